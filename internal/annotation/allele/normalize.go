// Package allele normalizes VCF alleles and picks the population frequency
// that belongs to a variant's ALT allele.
package allele

import (
	"fmt"
	"strings"
)

// Deletion is the notation for an empty allele.
const Deletion = "-"

// Minimal is a variant in minimal representation: shared leading and trailing
// bases removed, coordinates adjusted to the bases that actually differ.
type Minimal struct {
	Chrom string
	Start uint64
	End   uint64
	Ref   string
	Alt   string
}

// Normalize trims the common suffix, then the common prefix, of ref and alt.
// An emptied allele becomes "-". For insertions End is Start-1, the convention
// for a zero-length reference span.
func Normalize(chrom string, pos uint64, ref, alt string) Minimal {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	alt = strings.ToUpper(strings.TrimSpace(alt))
	if ref == Deletion {
		ref = ""
	}
	if alt == Deletion {
		alt = ""
	}

	for len(ref) > 0 && len(alt) > 0 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref = ref[:len(ref)-1]
		alt = alt[:len(alt)-1]
	}

	prefix := 0
	for prefix < len(ref) && prefix < len(alt) && ref[prefix] == alt[prefix] {
		prefix++
	}
	ref = ref[prefix:]
	alt = alt[prefix:]

	start := pos + uint64(prefix)
	end := start + uint64(len(ref))
	if len(ref) == 0 {
		// Insertion between start-1 and start.
		end = start - 1
	} else {
		end--
	}

	if ref == "" {
		ref = Deletion
	}
	if alt == "" {
		alt = Deletion
	}

	return Minimal{Chrom: chrom, Start: start, End: end, Ref: ref, Alt: alt}
}

// Region returns the service region string "chrom:start-end".
func (m Minimal) Region() string {
	return fmt.Sprintf("%s:%d-%d", m.Chrom, m.Start, m.End)
}

// IsSNV reports whether the minimal variant is a single-base substitution.
func (m Minimal) IsSNV() bool {
	return len(m.Ref) == 1 && len(m.Alt) == 1 && m.Ref != Deletion && m.Alt != Deletion
}
