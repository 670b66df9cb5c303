package domain

import "testing"

func TestAnnotatedVariant_Resolved(t *testing.T) {
	v := Variant{Chrom: "1", Pos: 100, Ref: "A", Alt: "G"}

	all := NewAnnotatedVariant(v)
	for _, k := range AllKinds {
		all.Outcomes[k] = OutcomeSuccess
	}

	partial := NewAnnotatedVariant(v)
	partial.Outcomes[KindGene] = OutcomeSuccess
	partial.Outcomes[KindDbsnpID] = OutcomeSuccess
	partial.Outcomes[KindFrequency] = OutcomeMissing

	incomplete := NewAnnotatedVariant(v)
	incomplete.Outcomes[KindGene] = OutcomeSuccess

	tests := []struct {
		name string
		rec  AnnotatedVariant
		want bool
	}{
		{"all success", all, true},
		{"one missing", partial, false},
		{"no outcomes", NewAnnotatedVariant(v), false},
		{"kinds not recorded", incomplete, false},
		{"nil map", AnnotatedVariant{Variant: v}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Resolved(); got != tt.want {
				t.Errorf("Resolved() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRun_Record(t *testing.T) {
	run := NewRun("in.vcf", "out.tsv")

	run.Record(NewAnnotatedVariant(Variant{}))
	if run.Completed != 1 || run.Partial != 1 || run.Resolved != 0 {
		t.Errorf("empty record counted as %+v", run)
	}
}
