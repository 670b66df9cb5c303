// Package vcf reads variant records from VCF files.
package vcf

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/vietddude/varannot/internal/core/domain"
)

// Fixed VCF columns.
const (
	colChrom = iota
	colPos
	colID
	colRef
	colAlt
	_ // QUAL
	_ // FILTER
	colInfo
	colFormat
	colFirstSample
)

// Reader parses VCF data line by line. Each ALT allele of a record is emitted
// as a separate Variant sharing the locus; symbolic and missing ALTs are skipped.
// A record left with no ALT at all is logged and counted in Skipped.
type Reader struct {
	sc      *bufio.Scanner
	line    int
	pending []domain.Variant
	skipped int
	log     *slog.Logger
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	const maxLine = 16 * 1024 * 1024 // long INFO columns
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return &Reader{sc: sc, log: slog.Default().With("component", "vcf")}
}

// Skipped returns the number of records dropped for having no sequence ALT.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Next returns the next variant, or io.EOF when the input is exhausted.
func (r *Reader) Next() (domain.Variant, error) {
	for len(r.pending) == 0 {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return domain.Variant{}, fmt.Errorf("line %d: %w", r.line+1, err)
			}
			return domain.Variant{}, io.EOF
		}
		r.line++

		line := strings.TrimRight(r.sc.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		vs, err := parseRecord(line)
		if err != nil {
			return domain.Variant{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		if len(vs) == 0 {
			r.skipped++
			r.log.Warn("Skipping record without a sequence ALT allele",
				"line", r.line,
				"record", truncate(line, 120),
			)
			continue
		}
		r.pending = vs
	}

	v := r.pending[0]
	r.pending = r.pending[1:]
	return v, nil
}

// ReadAll reads every variant from r.
func ReadAll(ctx context.Context, r io.Reader) ([]domain.Variant, error) {
	vr := NewReader(r)
	var out []domain.Variant
	for {
		if len(out)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, err := vr.Next()
		if err == io.EOF {
			if vr.Skipped() > 0 {
				vr.log.Warn("Records skipped", "count", vr.Skipped(), "variants", len(out))
			}
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// ReadFile reads every variant from path. Files ending in .gz are decompressed.
func ReadFile(ctx context.Context, path string) ([]domain.Variant, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var src io.Reader = fh
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		src = gz
	}

	vs, err := ReadAll(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vs, nil
}

func parseRecord(line string) ([]domain.Variant, error) {
	f := strings.Split(line, "\t")
	if len(f) <= colInfo {
		return nil, fmt.Errorf("expected at least %d columns, got %d", colInfo+1, len(f))
	}

	pos, err := strconv.ParseUint(f[colPos], 10, 64)
	if err != nil || pos == 0 {
		return nil, fmt.Errorf("invalid POS %q", f[colPos])
	}

	ref := strings.ToUpper(f[colRef])
	if ref == "" || ref == "." {
		return nil, fmt.Errorf("invalid REF %q", f[colRef])
	}

	id := f[colID]
	if id == "." {
		id = ""
	}

	var dp *int
	if len(f) > colFirstSample {
		dp = sampleDP(f[colFormat], f[colFirstSample])
	}

	var out []domain.Variant
	for _, alt := range strings.Split(f[colAlt], ",") {
		alt = strings.ToUpper(strings.TrimSpace(alt))
		if !isSequence(alt) {
			continue
		}
		out = append(out, domain.Variant{
			Chrom: f[colChrom],
			Pos:   pos,
			ID:    id,
			Ref:   ref,
			Alt:   alt,
			DP:    dp,
		})
	}
	return out, nil
}

// sampleDP returns the DP value of a sample column, nil when absent or ".".
func sampleDP(format, sample string) *int {
	keys := strings.Split(format, ":")
	vals := strings.Split(sample, ":")
	for i, k := range keys {
		if k != "DP" {
			continue
		}
		if i >= len(vals) {
			return nil
		}
		n, err := strconv.Atoi(vals[i])
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// isSequence reports whether alt is a plain nucleotide allele.
func isSequence(alt string) bool {
	if alt == "" {
		return false
	}
	for i := 0; i < len(alt); i++ {
		switch alt[i] {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
