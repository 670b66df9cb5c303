package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/varannot/internal/core/domain"
	"github.com/vietddude/varannot/internal/infra/vcf"
)

// statusTimeout bounds status writes made after the run context ended.
const statusTimeout = 5 * time.Second

// Run annotates the VCF at input and writes the TSV to output. The returned
// Run reflects the final state. Cancelling ctx stops outstanding lookups; the
// run is then marked cancelled, nothing is written, and ctx.Err() is returned.
func (a *Annotator) Run(ctx context.Context, input, output string) (*domain.Run, error) {
	run := domain.NewRun(input, output)
	a.saveRun(ctx, run)
	log := a.log.With("run", run.ID.String())

	variants, err := vcf.ReadFile(ctx, input)
	if err != nil {
		return a.fail(ctx, run, fmt.Errorf("read input: %w", err))
	}
	log.Info("Loaded variants", "count", len(variants), "input", input)

	version, err := a.release.Version(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return a.cancel(ctx, run, ctx.Err())
		}
		log.Warn("Continuing without dbSNP version", "error", err)
	}
	run.DbsnpVersion = version
	run.Total = len(variants)
	run.Transition(domain.RunStateRunning, "")
	a.saveRun(ctx, run)
	a.healthMon.SetRun(*run)

	var mu sync.Mutex
	a.pipeline.SetProgressCallback(func(done, total int, rec domain.AnnotatedVariant) {
		mu.Lock()
		defer mu.Unlock()
		run.Record(rec)
		a.healthMon.SetRun(*run)
		if done%100 == 0 || done == total {
			log.Info("Progress", "done", done, "total", total)
		}
	})

	records, err := a.pipeline.Annotate(ctx, variants)
	if err != nil {
		return a.cancel(ctx, run, err)
	}

	// Sinks that keep their own copy of the run must see the final state.
	run.Transition(domain.RunStateCompleted,
		fmt.Sprintf("%d variants, %d fully resolved", run.Total, run.Resolved))
	for _, sink := range a.sinks {
		if err := sink.SaveBatch(ctx, run, records); err != nil {
			if ctx.Err() != nil {
				return a.cancel(ctx, run, ctx.Err())
			}
			return a.fail(ctx, run, fmt.Errorf("write results: %w", err))
		}
	}

	a.saveRun(ctx, run)
	a.healthMon.SetRun(*run)
	log.Info("Run completed", "output", output, "resolved", run.Resolved, "partial", run.Partial)
	return run, nil
}

func (a *Annotator) fail(ctx context.Context, run *domain.Run, err error) (*domain.Run, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return a.cancel(ctx, run, err)
	}
	run.Transition(domain.RunStateFailed, err.Error())
	a.saveRun(ctx, run)
	a.healthMon.SetRun(*run)
	a.log.Error("Run failed", "run", run.ID.String(), "error", err)
	return run, err
}

func (a *Annotator) cancel(ctx context.Context, run *domain.Run, err error) (*domain.Run, error) {
	run.Transition(domain.RunStateCancelled, err.Error())
	a.saveRun(ctx, run)
	a.healthMon.SetRun(*run)
	a.log.Warn("Run cancelled", "run", run.ID.String(), "completed", run.Completed, "total", run.Total)
	return run, err
}

// saveRun persists run status. Failures are logged and never abort the run.
func (a *Annotator) saveRun(ctx context.Context, run *domain.Run) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
	defer cancel()

	if err := a.runs.Save(ctx, run); err != nil {
		a.log.Warn("Failed to save run status", "run", run.ID.String(), "state", run.State, "error", err)
	}
}
