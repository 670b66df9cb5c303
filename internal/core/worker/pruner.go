package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/varannot/internal/infra/storage"
)

// Pruner deletes old annotation runs based on a retention period.
type Pruner struct {
	retention time.Duration
	repo      storage.RunPruner
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.RunPruner) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		log:       slog.Default().With("component", "pruner"),
		now:       time.Now,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check every 10% of the retention period, between one minute and one hour
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune deletes runs last updated before now minus the retention period.
func (p *Pruner) Prune(ctx context.Context) int64 {
	threshold := p.now().Add(-p.retention)

	n, err := p.repo.DeleteRunsOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune runs", "threshold", threshold, "error", err)
		return 0
	}
	if n > 0 {
		p.log.Info("Pruned old runs", "count", n, "threshold", threshold)
	}
	return n
}
