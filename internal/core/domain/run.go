package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle state of an annotation run.
type RunState string

const (
	RunStateQueued    RunState = "queued"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
	RunStateCancelled RunState = "cancelled"
)

// Run is the bookkeeping record of a single annotation run.
type Run struct {
	ID           uuid.UUID `msgpack:"id"            json:"id"`
	Input        string    `msgpack:"input"         json:"input"`
	Output       string    `msgpack:"output"        json:"output"`
	State        RunState  `msgpack:"state"         json:"state"`
	Message      string    `msgpack:"message"       json:"message"`
	DbsnpVersion string    `msgpack:"dbsnp_version" json:"dbsnp_version"`
	Total        int       `msgpack:"total"         json:"total"`
	Completed    int       `msgpack:"completed"     json:"completed"`
	Resolved     int       `msgpack:"resolved"      json:"resolved"`
	Partial      int       `msgpack:"partial"       json:"partial"`
	CreatedAt    time.Time `msgpack:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `msgpack:"updated_at"    json:"updated_at"`
}

// NewRun creates a queued run for the given input and output paths.
func NewRun(input, output string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.New(),
		Input:     input,
		Output:    output,
		State:     RunStateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the run to state with message and bumps UpdatedAt.
func (r *Run) Transition(state RunState, message string) {
	r.State = state
	r.Message = message
	r.UpdatedAt = time.Now().UTC()
}

// Record counts one finished variant record.
func (r *Run) Record(rec AnnotatedVariant) {
	r.Completed++
	if rec.Resolved() {
		r.Resolved++
	} else {
		r.Partial++
	}
}

// Finished reports whether the run reached a terminal state.
func (r *Run) Finished() bool {
	switch r.State {
	case RunStateCompleted, RunStateFailed, RunStateCancelled:
		return true
	}
	return false
}
