package domain

import "fmt"

// AnnotationKind identifies one of the independently fetched annotations.
type AnnotationKind string

const (
	KindFrequency AnnotationKind = "frequency"
	KindGene      AnnotationKind = "gene"
	KindDbsnpID   AnnotationKind = "dbsnp"
)

// AllKinds lists every annotation kind fetched per variant.
var AllKinds = []AnnotationKind{KindFrequency, KindGene, KindDbsnpID}

// AnnotationRequest is a single logical lookup for one variant and allele.
type AnnotationRequest struct {
	Variant Variant
	Kind    AnnotationKind

	// Allele is the normalized ALT allele in the service's notation ("-" for deletions).
	Allele string

	// Region is the service region string, e.g. "7:140453136-140453136".
	Region string
}

func (r AnnotationRequest) String() string {
	return fmt.Sprintf("%s %s/%s", r.Kind, r.Region, r.Allele)
}

// OutcomeStatus is the terminal state of an AnnotationRequest.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeMissing
	OutcomeFailed
	OutcomeCancelled
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeMissing:
		return "missing"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PopulationFrequency is one {allele, frequency, population} entry reported upstream.
type PopulationFrequency struct {
	Allele     string  `json:"allele"`
	Frequency  float64 `json:"frequency"`
	Population string  `json:"population"`
}

// Outcome is the tagged result of a fetch. Only the field matching the request
// kind is populated on success.
type Outcome struct {
	Kind   AnnotationKind
	Status OutcomeStatus
	Err    error

	Gene        string
	RSID        string
	Frequencies []PopulationFrequency
}

// Success builds a successful outcome; the caller sets the value field.
func Success(kind AnnotationKind) Outcome {
	return Outcome{Kind: kind, Status: OutcomeSuccess}
}

// Missing builds an outcome for a valid request with no upstream data.
func Missing(kind AnnotationKind) Outcome {
	return Outcome{Kind: kind, Status: OutcomeMissing}
}

// Failed builds an outcome for a request that could not be resolved.
func Failed(kind AnnotationKind, err error) Outcome {
	return Outcome{Kind: kind, Status: OutcomeFailed, Err: err}
}

// Cancelled builds an outcome for a request abandoned because the run was aborted.
func Cancelled(kind AnnotationKind, err error) Outcome {
	return Outcome{Kind: kind, Status: OutcomeCancelled, Err: err}
}
