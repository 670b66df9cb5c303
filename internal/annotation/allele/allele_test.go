package allele

import (
	"testing"

	"github.com/vietddude/varannot/internal/core/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		pos  uint64
		ref  string
		alt  string
		want Minimal
	}{
		{"snv", 100, "A", "g", Minimal{"1", 100, 100, "A", "G"}},
		{"mnv", 100, "AC", "GT", Minimal{"1", 100, 101, "AC", "GT"}},
		{"deletion with anchor", 100, "ATG", "A", Minimal{"1", 101, 102, "TG", "-"}},
		{"insertion with anchor", 100, "A", "ATT", Minimal{"1", 101, 100, "-", "TT"}},
		{"shared suffix", 100, "CAT", "GAT", Minimal{"1", 100, 100, "C", "G"}},
		{"suffix trimmed before prefix", 100, "AAA", "AA", Minimal{"1", 100, 100, "A", "-"}},
		{"padded substitution", 100, "TACG", "TGCG", Minimal{"1", 101, 101, "A", "G"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize("1", tt.pos, tt.ref, tt.alt)
			if got != tt.want {
				t.Errorf("Normalize(%d, %s, %s) = %+v, want %+v", tt.pos, tt.ref, tt.alt, got, tt.want)
			}
		})
	}
}

func TestMinimalRegion(t *testing.T) {
	m := Normalize("7", 140453136, "A", "T")
	if got := m.Region(); got != "7:140453136-140453136" {
		t.Errorf("Region() = %s", got)
	}
	if !m.IsSNV() {
		t.Error("expected SNV")
	}
	if Normalize("7", 10, "A", "AT").IsSNV() {
		t.Error("insertion reported as SNV")
	}
}

func TestComplement(t *testing.T) {
	tests := map[string]string{
		"A":   "T",
		"G":   "C",
		"ACG": "CGT",
		"-":   "-",
	}
	for in, want := range tests {
		got, ok := Complement(in)
		if !ok || got != want {
			t.Errorf("Complement(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}

	if _, ok := Complement("AXG"); ok {
		t.Error("expected invalid base to fail")
	}
}

func TestStrandAmbiguous(t *testing.T) {
	tests := []struct {
		ref, alt string
		want     bool
	}{
		{"A", "T", true},
		{"T", "A", true},
		{"C", "G", true},
		{"G", "C", true},
		{"A", "G", false},
		{"C", "T", false},
		{"AT", "TA", false},
	}
	for _, tt := range tests {
		if got := StrandAmbiguous(tt.ref, tt.alt); got != tt.want {
			t.Errorf("StrandAmbiguous(%s, %s) = %v, want %v", tt.ref, tt.alt, got, tt.want)
		}
	}
}

func entries(specs ...domain.PopulationFrequency) []domain.PopulationFrequency {
	return specs
}

func TestSelect_ExactMatch(t *testing.T) {
	m := NewMatcher(Config{})
	resp := entries(
		domain.PopulationFrequency{Allele: "T", Frequency: 0.1, Population: "A"},
		domain.PopulationFrequency{Allele: "G", Frequency: 0.2, Population: "B"},
	)

	sel, ok := m.Select(Minimal{Ref: "A", Alt: "T"}, resp)
	if !ok {
		t.Fatal("expected a match for T")
	}
	if sel.Frequency != 0.1 || sel.Population != "A" {
		t.Errorf("got %+v, want 0.1/A", sel)
	}

	if _, ok := m.Select(Minimal{Ref: "A", Alt: "C"}, resp); ok {
		t.Error("expected no match for C")
	}
}

func TestSelect_NeverPicksOtherAlt(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	resp := entries(
		domain.PopulationFrequency{Allele: "G", Frequency: 0.4, Population: "gnomADe:NFE"},
		domain.PopulationFrequency{Allele: "T", Frequency: 0.01, Population: "gnomADg:AFR"},
	)

	sel, ok := m.Select(Minimal{Ref: "C", Alt: "T"}, resp)
	if !ok {
		t.Fatal("expected a match")
	}
	if sel.Allele != "T" || sel.Frequency != 0.01 {
		t.Errorf("picked %+v, want the T entry", sel)
	}
}

func TestSelect_PopulationPreference(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	resp := entries(
		domain.PopulationFrequency{Allele: "T", Frequency: 0.30, Population: "gnomADe:AFR"},
		domain.PopulationFrequency{Allele: "T", Frequency: 0.20, Population: "1000GENOMES:phase_3:EUR"},
		domain.PopulationFrequency{Allele: "T", Frequency: 0.10, Population: "gnomADg:NFE"},
		domain.PopulationFrequency{Allele: "T", Frequency: 0.05, Population: "gnomADe:NFE"},
	)

	sel, ok := m.Select(Minimal{Ref: "C", Alt: "T"}, resp)
	if !ok {
		t.Fatal("expected a match")
	}
	if sel.Population != "gnomADe:NFE" || sel.Frequency != 0.05 {
		t.Errorf("got %+v, want gnomADe:NFE", sel)
	}
}

func TestSelect_UnlistedKeepsResponseOrder(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	resp := entries(
		domain.PopulationFrequency{Allele: "T", Frequency: 0.3, Population: "gnomADe:AFR"},
		domain.PopulationFrequency{Allele: "T", Frequency: 0.4, Population: "gnomADe:EAS"},
	)

	sel, _ := m.Select(Minimal{Ref: "C", Alt: "T"}, resp)
	if sel.Population != "gnomADe:AFR" {
		t.Errorf("got %s, want first reported population", sel.Population)
	}
}

func TestSelect_CaseInsensitiveAllele(t *testing.T) {
	m := NewMatcher(Config{})
	resp := entries(domain.PopulationFrequency{Allele: "tt", Frequency: 0.02, Population: "X"})

	if _, ok := m.Select(Normalize("1", 5, "C", "CTT"), resp); !ok {
		t.Error("expected lower-case allele to match")
	}
}

func TestSelect_StrandFlip(t *testing.T) {
	flip := NewMatcher(Config{StrandFlip: true})

	// A>G reported on the reverse strand as T>C.
	reverse := entries(domain.PopulationFrequency{Allele: "C", Frequency: 0.15, Population: "X"})
	sel, ok := flip.Select(Minimal{Ref: "A", Alt: "G"}, reverse)
	if !ok || !sel.Flipped || sel.Frequency != 0.15 {
		t.Errorf("expected flipped match, got %+v, %v", sel, ok)
	}

	// Off by default.
	if _, ok := NewMatcher(DefaultConfig()).Select(Minimal{Ref: "A", Alt: "G"}, reverse); ok {
		t.Error("default matcher should not flip strands")
	}

	// A/T reads the same on both strands.
	ambiguous := entries(domain.PopulationFrequency{Allele: "A", Frequency: 0.5, Population: "X"})
	if _, ok := flip.Select(Minimal{Ref: "A", Alt: "T"}, ambiguous); ok {
		t.Error("strand-ambiguous SNV must not match by complement")
	}

	// A forward REF entry means the response is already forward strand.
	forward := entries(
		domain.PopulationFrequency{Allele: "A", Frequency: 0.8, Population: "X"},
		domain.PopulationFrequency{Allele: "C", Frequency: 0.2, Population: "X"},
	)
	if _, ok := flip.Select(Minimal{Ref: "A", Alt: "G"}, forward); ok {
		t.Error("complement must not match when the response is forward strand")
	}
}
