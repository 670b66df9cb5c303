package tsv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/varannot/internal/core/domain"
)

func ptr[T any](v T) *T { return &v }

func records() []domain.AnnotatedVariant {
	full := domain.NewAnnotatedVariant(domain.Variant{
		Chrom: "7", Pos: 140453136, Ref: "A", Alt: "T", DP: ptr(37),
	})
	full.RSID = ptr("rs113488022")
	full.Gene = ptr("BRAF")
	full.Frequency = ptr(0.0000199)
	full.Population = ptr("gnomADe:NFE")

	empty := domain.NewAnnotatedVariant(domain.Variant{Chrom: "X", Pos: 5, Ref: "G", Alt: "C"})
	return []domain.AnnotatedVariant{full, empty}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteHeader("156"))
	for _, rec := range records() {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "# dbSNP version: 156", lines[0])
	assert.Equal(t, "CHROM\tPOS\tID\tREF\tALT\tGene\tFrequency\tPopulation\tDP", lines[1])
	assert.Equal(t, "7\t140453136\trs113488022\tA\tT\tBRAF\t0.00002\tgnomADe:NFE\t37", lines[2])
	assert.Equal(t, "X\t5\t.\tG\tC\t\t\t\t", lines[3])
}

func TestWriterUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader(""))
	require.NoError(t, w.Flush())
	assert.True(t, strings.HasPrefix(buf.String(), "# dbSNP version: Unknown\n"))
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	run := domain.NewRun("in.vcf", filepath.Join(dir, "out.tsv"))
	run.DbsnpVersion = "156"

	require.NoError(t, NewFileSink().SaveBatch(context.Background(), run, records()))

	data, err := os.ReadFile(run.Output)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be gone")
}
