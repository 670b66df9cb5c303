// Package budget handles request pacing against the annotation service.
//
// This package contains:
//   - Gate: process-wide dispatch spacing plus server-imposed penalty windows
//   - UsageTracker: per-kind call accounting for health reporting
package budget

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate paces request dispatch. Every caller passes through the same Gate
// before sending, so the minimum spacing holds across all workers and all
// annotation kinds. A penalty window set by a rate-limited response holds every
// caller until it expires.
//
// Spacing is a token bucket of size one. Penalty windows are kept beside it,
// since a limiter cannot be told to hold everyone until a given instant.
type Gate struct {
	limiter *rate.Limiter
	spacing time.Duration

	mu            sync.Mutex
	enforcedUntil time.Time

	now func() time.Time
}

// NewGate creates a gate admitting at most requestsPerSecond dispatches per second.
// A non-positive rate disables spacing; penalty windows still apply.
func NewGate(requestsPerSecond float64) *Gate {
	var spacing time.Duration
	limit := rate.Inf
	if requestsPerSecond > 0 {
		spacing = time.Duration(float64(time.Second) / requestsPerSecond)
		limit = rate.Every(spacing)
	}
	return &Gate{
		limiter: rate.NewLimiter(limit, 1),
		spacing: spacing,
		now:     time.Now,
	}
}

// Spacing returns the minimum interval between two dispatches.
func (g *Gate) Spacing() time.Duration {
	return g.spacing
}

// Acquire blocks until the caller may dispatch one request. It returns
// ctx.Err() if the context ends first; a cancelled caller does not consume a
// slot.
func (g *Gate) Acquire(ctx context.Context) error {
	for {
		if err := g.waitPenalty(ctx); err != nil {
			return err
		}

		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// The deadline falls before the next slot: hold until it passes.
			<-ctx.Done()
			return ctx.Err()
		}

		// A penalty issued while we waited for the slot still applies.
		if g.penaltyRemaining() <= 0 {
			return nil
		}
	}
}

func (g *Gate) waitPenalty(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := g.penaltyRemaining()
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (g *Gate) penaltyRemaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enforcedUntil.Sub(g.now())
}

// Penalize holds all dispatches for at least d from now. An existing later
// window is never shortened.
func (g *Gate) Penalize(d time.Duration) {
	if d <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	until := g.now().Add(d)
	if until.After(g.enforcedUntil) {
		g.enforcedUntil = until
	}
}

// EnforcedUntil returns the end of the current penalty window, zero if none was set.
func (g *Gate) EnforcedUntil() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enforcedUntil
}
