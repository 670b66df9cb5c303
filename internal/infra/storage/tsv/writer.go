// Package tsv writes annotated variants as a tab-separated table.
package tsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vietddude/varannot/internal/core/domain"
)

// Columns is the table header.
var Columns = []string{"CHROM", "POS", "ID", "REF", "ALT", "Gene", "Frequency", "Population", "DP"}

// Writer streams annotated variants to w.
type Writer struct {
	w   io.Writer
	csv *csv.Writer
}

// NewWriter creates a writer on w. Nothing is written until WriteHeader.
func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &Writer{w: w, csv: cw}
}

// WriteHeader writes the dbSNP version comment and the column header.
func (w *Writer) WriteHeader(dbsnpVersion string) error {
	if dbsnpVersion == "" {
		dbsnpVersion = "Unknown"
	}
	if _, err := fmt.Fprintf(w.w, "# dbSNP version: %s\n", dbsnpVersion); err != nil {
		return err
	}
	return w.csv.Write(Columns)
}

// Write appends one record. Unresolved annotations are written as empty
// fields; a missing rsID is written as ".".
func (w *Writer) Write(rec domain.AnnotatedVariant) error {
	return w.csv.Write(Row(rec))
}

// Flush writes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// Row formats rec as table fields.
func Row(rec domain.AnnotatedVariant) []string {
	id := "."
	if rec.RSID != nil && *rec.RSID != "" {
		id = *rec.RSID
	}

	freq := ""
	if rec.Frequency != nil {
		freq = strconv.FormatFloat(*rec.Frequency, 'f', 5, 64)
	}

	dp := ""
	if rec.DP != nil {
		dp = strconv.Itoa(*rec.DP)
	}

	return []string{
		rec.Chrom,
		strconv.FormatUint(rec.Pos, 10),
		id,
		rec.Ref,
		rec.Alt,
		deref(rec.Gene),
		freq,
		deref(rec.Population),
		dp,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FileSink writes each run's records to the run's output path. The file is
// written to a temporary name and renamed into place, so a failed run never
// leaves a truncated table behind.
type FileSink struct{}

// NewFileSink creates a file sink.
func NewFileSink() *FileSink {
	return &FileSink{}
}

// SaveBatch writes records to run.Output.
func (s *FileSink) SaveBatch(ctx context.Context, run *domain.Run, records []domain.AnnotatedVariant) error {
	dir := filepath.Dir(run.Output)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(run.Output)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := NewWriter(tmp)
	if err := w.WriteHeader(run.DbsnpVersion); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				tmp.Close()
				return err
			}
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	if err := os.Rename(tmp.Name(), run.Output); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
