// Package annotator fans annotation requests out per variant and merges the
// outcomes back into ordered records.
package annotator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/varannot/internal/annotation/allele"
	"github.com/vietddude/varannot/internal/annotation/metrics"
	"github.com/vietddude/varannot/internal/core/domain"
)

// Fetcher resolves a single annotation request.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.AnnotationRequest) domain.Outcome
}

// Config holds pipeline configuration.
type Config struct {
	MaxWorkers int // Variants annotated concurrently (default: 5)
	Matcher    allele.Config
}

// DefaultConfig returns default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxWorkers: 5,
		Matcher:    allele.DefaultConfig(),
	}
}

// ProgressFunc is called after each variant finishes.
type ProgressFunc func(done, total int, record domain.AnnotatedVariant)

// Pipeline annotates variants with a bounded worker pool.
type Pipeline struct {
	cfg     Config
	fetcher Fetcher
	matcher *allele.Matcher
	log     *slog.Logger

	onProgress ProgressFunc
}

// NewPipeline creates a new pipeline.
func NewPipeline(cfg Config, fetcher Fetcher) *Pipeline {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultConfig().MaxWorkers
	}
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		matcher: allele.NewMatcher(cfg.Matcher),
		log:     slog.Default().With("component", "annotator"),
	}
}

// SetProgressCallback sets a callback invoked as each variant completes.
// It may be called from several goroutines at once.
func (p *Pipeline) SetProgressCallback(fn ProgressFunc) {
	p.onProgress = fn
}

// Annotate returns one record per input variant, in input order. Unresolved
// annotations are left nil on the record. If ctx ends first the records are
// still returned, with the outstanding kinds marked cancelled, together with
// ctx.Err().
func (p *Pipeline) Annotate(ctx context.Context, variants []domain.Variant) ([]domain.AnnotatedVariant, error) {
	out := make([]domain.AnnotatedVariant, len(variants))
	total := len(variants)
	var done atomic.Int64

	p.log.Info("Annotating variants", "count", total, "workers", p.cfg.MaxWorkers)

	var g errgroup.Group
	g.SetLimit(p.cfg.MaxWorkers)

	for i, v := range variants {
		if ctx.Err() != nil {
			out[i] = cancelledRecord(v)
			continue
		}

		g.Go(func() error {
			metrics.VariantsInFlight.Inc()
			defer metrics.VariantsInFlight.Dec()

			rec := p.annotateOne(ctx, v)
			out[i] = rec

			n := int(done.Add(1))
			metrics.VariantsProcessed.Inc()
			if p.onProgress != nil {
				p.onProgress(n, total, rec)
			}
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		p.log.Warn("Annotation cancelled", "completed", done.Load(), "total", total, "error", err)
		return out, err
	}

	p.log.Info("Annotation finished", "count", total)
	return out, nil
}

// annotateOne issues the three lookups for v concurrently and merges them.
func (p *Pipeline) annotateOne(ctx context.Context, v domain.Variant) domain.AnnotatedVariant {
	minimal := allele.Normalize(v.Chrom, v.Pos, v.Ref, v.Alt)

	outcomes := make([]domain.Outcome, len(domain.AllKinds))
	var wg sync.WaitGroup
	for i, kind := range domain.AllKinds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = p.fetcher.Fetch(ctx, domain.AnnotationRequest{
				Variant: v,
				Kind:    kind,
				Allele:  minimal.Alt,
				Region:  minimal.Region(),
			})
		}()
	}
	wg.Wait()

	rec := domain.NewAnnotatedVariant(v)
	for _, o := range outcomes {
		if o.Status == domain.OutcomeSuccess {
			o = p.apply(&rec, minimal, o)
		}
		rec.Outcomes[o.Kind] = o.Status
		metrics.OutcomesTotal.WithLabelValues(string(o.Kind), o.Status.String()).Inc()
	}

	p.log.Debug("Variant annotated",
		"variant", v.String(),
		"gene", o2s(rec.Gene),
		"rsid", o2s(rec.RSID),
		"population", o2s(rec.Population),
	)
	return rec
}

// apply copies a successful outcome onto rec. A frequency response with no
// entry for the ALT allele becomes Missing.
func (p *Pipeline) apply(rec *domain.AnnotatedVariant, m allele.Minimal, o domain.Outcome) domain.Outcome {
	switch o.Kind {
	case domain.KindGene:
		gene := o.Gene
		rec.Gene = &gene

	case domain.KindDbsnpID:
		id := o.RSID
		rec.RSID = &id

	case domain.KindFrequency:
		sel, ok := p.matcher.Select(m, o.Frequencies)
		if !ok {
			p.log.Debug("No frequency for ALT allele", "variant", rec.Variant.String(), "entries", len(o.Frequencies))
			return domain.Missing(o.Kind)
		}
		freq, pop := sel.Frequency, sel.Population
		rec.Frequency = &freq
		rec.Population = &pop
	}
	return o
}

func cancelledRecord(v domain.Variant) domain.AnnotatedVariant {
	rec := domain.NewAnnotatedVariant(v)
	for _, k := range domain.AllKinds {
		rec.Outcomes[k] = domain.OutcomeCancelled
	}
	return rec
}

func o2s(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
