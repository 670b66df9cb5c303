package domain

import "fmt"

// Variant represents a single ALT allele at a locus, as read from a VCF record.
type Variant struct {
	Chrom string
	Pos   uint64
	ID    string // external identifier from the VCF, "" or "." when unset
	Ref   string
	Alt   string

	// DP is the read depth of the first sample; nil when the VCF has no DP.
	DP *int
}

// Locus returns the CHROM:POS key of the variant.
func (v Variant) Locus() string {
	return fmt.Sprintf("%s:%d", v.Chrom, v.Pos)
}

func (v Variant) String() string {
	return fmt.Sprintf("%s:%d %s>%s", v.Chrom, v.Pos, v.Ref, v.Alt)
}

// AnnotatedVariant is a Variant plus the annotations resolved for it.
// Nil fields were not resolved (missing upstream, failed, or cancelled).
type AnnotatedVariant struct {
	Variant

	RSID       *string
	Gene       *string
	Frequency  *float64
	Population *string

	// Outcomes keeps the terminal status of each annotation kind.
	Outcomes map[AnnotationKind]OutcomeStatus
}

// NewAnnotatedVariant returns an empty annotation record for v.
func NewAnnotatedVariant(v Variant) AnnotatedVariant {
	return AnnotatedVariant{
		Variant:  v,
		Outcomes: make(map[AnnotationKind]OutcomeStatus, len(AllKinds)),
	}
}

// Resolved reports whether every annotation kind finished successfully. A kind
// with no recorded outcome is unresolved.
func (a AnnotatedVariant) Resolved() bool {
	for _, k := range AllKinds {
		if s, ok := a.Outcomes[k]; !ok || s != OutcomeSuccess {
			return false
		}
	}
	return true
}
