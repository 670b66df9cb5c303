// Package health provides run health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/varannot/internal/infra/rpc/budget"
	"github.com/vietddude/varannot/internal/infra/rpc/provider"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// RunHealth contains progress for the active annotation run.
type RunHealth struct {
	RunID     string    `json:"run_id"`
	State     string    `json:"state"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Partial   int       `json:"partial"`
	StartedAt time.Time `json:"started_at"`
}

// ServiceHealth contains health metrics for the annotation service.
type ServiceHealth struct {
	Name          string                       `json:"name"`
	Status        SystemStatus                 `json:"status"`
	Provider      provider.HealthStatus        `json:"provider"`
	Usage         map[string]budget.UsageStats `json:"usage,omitempty"`
	PenaltyActive bool                         `json:"penalty_active"`
	PenaltyUntil  time.Time                    `json:"penalty_until,omitzero"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus  `json:"system_status"`
	Run          *RunHealth    `json:"run,omitempty"`
	Service      ServiceHealth `json:"service"`
}
