package vcf

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `##fileformat=VCFv4.2
##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read Depth">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	SAMPLE1
7	140453136	var1	A	T	50	PASS	.	GT:DP	0/1:37
1	1000	.	C	G,t	50	PASS	.	GT:AD	1/2:5,6
2	500	.	G	<DEL>	50	PASS	SVTYPE=DEL
3	42	rs9	AT	A	50	PASS	.	GT:DP	0/1:.
X	10	.	G	*,C	.	.	.
`

func TestReadAll(t *testing.T) {
	vs, err := ReadAll(context.Background(), strings.NewReader(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vs) != 5 {
		t.Fatalf("expected 5 variants, got %d: %+v", len(vs), vs)
	}

	first := vs[0]
	if first.Chrom != "7" || first.Pos != 140453136 || first.ID != "var1" || first.Alt != "T" {
		t.Errorf("unexpected first variant %+v", first)
	}
	if first.DP == nil || *first.DP != 37 {
		t.Errorf("expected DP 37, got %v", first.DP)
	}

	// Multi-ALT record split into two variants at the same locus.
	if vs[1].Alt != "G" || vs[2].Alt != "T" || vs[1].Pos != vs[2].Pos {
		t.Errorf("multi-ALT split wrong: %+v %+v", vs[1], vs[2])
	}
	if vs[1].ID != "" || vs[1].DP != nil {
		t.Errorf("expected no ID and no DP, got %+v", vs[1])
	}

	// Symbolic <DEL> skipped; DP "." is absent.
	if vs[3].Chrom != "3" || vs[3].DP != nil {
		t.Errorf("unexpected deletion record %+v", vs[3])
	}

	// Spanning deletion "*" skipped, C kept.
	if vs[4].Chrom != "X" || vs[4].Alt != "C" {
		t.Errorf("unexpected last record %+v", vs[4])
	}
}

func TestReaderErrors(t *testing.T) {
	tests := map[string]string{
		"short line": "1\t100\t.\tA\n",
		"bad pos":    "1\tabc\t.\tA\tG\t.\t.\t.\n",
		"zero pos":   "1\t0\t.\tA\tG\t.\t.\t.\n",
		"empty ref":  "1\t5\t.\t.\tG\t.\t.\t.\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			r := NewReader(strings.NewReader(in))
			if _, err := r.Next(); err == nil || err == io.EOF {
				t.Errorf("expected parse error, got %v", err)
			}
		})
	}
}

func TestReadFileGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(sample)); err != nil {
		t.Fatal(err)
	}
	gz.Close()

	path := filepath.Join(t.TempDir(), "in.vcf.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	vs, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vs) != 5 {
		t.Errorf("expected 5 variants, got %d", len(vs))
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.vcf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReader_CountsSkippedRecords(t *testing.T) {
	r := NewReader(strings.NewReader(sample))

	var n int
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n++
	}

	if n != 5 {
		t.Errorf("expected 5 variants, got %d", n)
	}
	// Only the <DEL> record has no sequence ALT; "*,C" still yields C.
	if r.Skipped() != 1 {
		t.Errorf("expected 1 skipped record, got %d", r.Skipped())
	}
}
