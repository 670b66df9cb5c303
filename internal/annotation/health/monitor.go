package health

import (
	"sync"
	"time"

	"github.com/vietddude/varannot/internal/core/domain"
	"github.com/vietddude/varannot/internal/infra/rpc/budget"
	"github.com/vietddude/varannot/internal/infra/rpc/provider"
)

// ProviderSource reports transport health.
type ProviderSource interface {
	GetName() string
	GetHealth() provider.HealthStatus
}

// UsageSource reports per-kind call counts.
type UsageSource interface {
	Snapshot() map[string]budget.UsageStats
}

// PenaltySource reports the current rate-limit window.
type PenaltySource interface {
	EnforcedUntil() time.Time
}

// Monitor aggregates health status from the transport and the active run.
type Monitor struct {
	provider ProviderSource
	usage    UsageSource
	penalty  PenaltySource

	mu  sync.RWMutex
	run *RunHealth
}

// NewMonitor creates a new health monitor. usage and penalty may be nil.
func NewMonitor(p ProviderSource, usage UsageSource, penalty PenaltySource) *Monitor {
	return &Monitor{
		provider: p,
		usage:    usage,
		penalty:  penalty,
	}
}

// SetRun records the current state of the active run.
func (m *Monitor) SetRun(run domain.Run) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.run = &RunHealth{
		RunID:     run.ID.String(),
		State:     string(run.State),
		Total:     run.Total,
		Completed: run.Completed,
		Partial:   run.Partial,
		StartedAt: run.CreatedAt,
	}
}

// CheckHealth builds a health report.
func (m *Monitor) CheckHealth() HealthReport {
	svc := ServiceHealth{
		Name:     m.provider.GetName(),
		Status:   StatusHealthy,
		Provider: m.provider.GetHealth(),
	}
	if m.usage != nil {
		svc.Usage = m.usage.Snapshot()
	}
	if m.penalty != nil {
		until := m.penalty.EnforcedUntil()
		svc.PenaltyUntil = until
		svc.PenaltyActive = until.After(time.Now())
	}

	// Evaluate Status
	switch {
	case !svc.Provider.Available:
		svc.Status = StatusCritical
	case svc.PenaltyActive || svc.Provider.ErrorRate > 0.1:
		svc.Status = StatusDegraded
	case svc.Provider.MonitorStats != nil && svc.Provider.MonitorStats.Status != provider.StatusHealthy:
		svc.Status = StatusDegraded
	}

	report := HealthReport{
		SystemStatus: svc.Status,
		Service:      svc,
	}

	m.mu.RLock()
	if m.run != nil {
		run := *m.run
		report.Run = &run
	}
	m.mu.RUnlock()

	return report
}
