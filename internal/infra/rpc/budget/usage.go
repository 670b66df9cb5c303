package budget

import (
	"sync"
	"time"
)

// UsageStats holds call statistics for one request kind.
type UsageStats struct {
	TotalCalls   int       `json:"total_calls"`
	CallsPerHour int       `json:"calls_this_hour"`
	HourStartAt  time.Time `json:"hour_start_at"`
}

type kindUsage struct {
	totalCalls    int
	callsThisHour int
	hourStartTime time.Time
}

// UsageTracker counts dispatched calls per request kind.
type UsageTracker struct {
	mu    sync.RWMutex
	usage map[string]*kindUsage
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{usage: make(map[string]*kindUsage)}
}

// RecordCall records one dispatched call for kind.
func (ut *UsageTracker) RecordCall(kind string) {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	u, ok := ut.usage[kind]
	if !ok {
		u = &kindUsage{hourStartTime: time.Now()}
		ut.usage[kind] = u
	}

	if time.Since(u.hourStartTime) >= time.Hour {
		u.callsThisHour = 0
		u.hourStartTime = time.Now()
	}

	u.totalCalls++
	u.callsThisHour++
}

// GetUsage returns statistics for kind.
func (ut *UsageTracker) GetUsage(kind string) UsageStats {
	ut.mu.RLock()
	defer ut.mu.RUnlock()

	u, ok := ut.usage[kind]
	if !ok {
		return UsageStats{}
	}
	return UsageStats{
		TotalCalls:   u.totalCalls,
		CallsPerHour: u.callsThisHour,
		HourStartAt:  u.hourStartTime,
	}
}

// Snapshot returns statistics for every kind seen so far.
func (ut *UsageTracker) Snapshot() map[string]UsageStats {
	ut.mu.RLock()
	defer ut.mu.RUnlock()

	out := make(map[string]UsageStats, len(ut.usage))
	for kind, u := range ut.usage {
		out[kind] = UsageStats{
			TotalCalls:   u.totalCalls,
			CallsPerHour: u.callsThisHour,
			HourStartAt:  u.hourStartTime,
		}
	}
	return out
}

// Reset clears all counters.
func (ut *UsageTracker) Reset() {
	ut.mu.Lock()
	defer ut.mu.Unlock()
	ut.usage = make(map[string]*kindUsage)
}
