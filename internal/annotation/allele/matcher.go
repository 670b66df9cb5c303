package allele

import (
	"strings"

	"github.com/vietddude/varannot/internal/core/domain"
)

// DefaultTargetPopulations is the preference order used to break ties.
var DefaultTargetPopulations = []string{
	"gnomADe:NFE",
	"gnomADg:NFE",
	"1000GENOMES:phase_3:EUR",
}

// Selection is the frequency chosen for a variant.
type Selection struct {
	Allele     string
	Frequency  float64
	Population string

	// Flipped is true when the entry matched the reverse-strand allele.
	Flipped bool
}

// Config holds matcher configuration.
type Config struct {
	// TargetPopulations ranks populations, earliest first. Empty keeps response order.
	TargetPopulations []string

	// StrandFlip allows matching the reverse-complement allele when nothing
	// matches directly. Region lookups pinned to strand 1 report forward-strand
	// alleles, so this is off by default.
	StrandFlip bool
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() Config {
	return Config{
		TargetPopulations: append([]string(nil), DefaultTargetPopulations...),
	}
}

// Matcher selects the population frequency entry for a variant's ALT allele.
// It is stateless and safe for concurrent use.
type Matcher struct {
	targets    []string
	strandFlip bool
}

// NewMatcher creates a matcher from cfg.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{
		targets:    append([]string(nil), cfg.TargetPopulations...),
		strandFlip: cfg.StrandFlip,
	}
}

// Select picks at most one entry for the minimal variant m. Entries reported
// for other alleles at the same locus never match. With strand flipping
// enabled the reverse-strand allele is tried only when nothing matches
// directly, only if no entry reports the forward REF allele, and never for
// strand-ambiguous SNVs. Returns false when nothing matches.
func (mt *Matcher) Select(m Minimal, entries []domain.PopulationFrequency) (Selection, bool) {
	alt := strings.ToUpper(m.Alt)

	best, ok := mt.pick(alt, entries)
	if ok || !mt.strandFlip {
		return best, ok
	}

	if StrandAmbiguous(m.Ref, alt) || reportsAllele(strings.ToUpper(m.Ref), entries) {
		return Selection{}, false
	}
	flipped, valid := Complement(alt)
	if !valid || flipped == alt {
		return Selection{}, false
	}

	best, ok = mt.pick(flipped, entries)
	if ok {
		best.Flipped = true
	}
	return best, ok
}

func (mt *Matcher) pick(allele string, entries []domain.PopulationFrequency) (Selection, bool) {
	var (
		best     Selection
		bestRank = -1
		found    bool
	)

	for _, e := range entries {
		if strings.ToUpper(e.Allele) != allele {
			continue
		}
		rank := mt.rank(e.Population)
		// Strictly better only, so equal ranks keep response order.
		if !found || rank < bestRank {
			best = Selection{Allele: e.Allele, Frequency: e.Frequency, Population: e.Population}
			bestRank = rank
			found = true
		}
	}

	return best, found
}

// rank returns the index of the first target the population matches by
// equality or substring; unlisted populations rank after every target.
func (mt *Matcher) rank(population string) int {
	for i, t := range mt.targets {
		if population == t || strings.Contains(population, t) {
			return i
		}
	}
	return len(mt.targets)
}

func reportsAllele(allele string, entries []domain.PopulationFrequency) bool {
	for _, e := range entries {
		if strings.ToUpper(e.Allele) == allele {
			return true
		}
	}
	return false
}
