package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/varannot/internal/core/domain"
)

var (
	// ErrRunNotFound is returned when a run doesn't exist
	ErrRunNotFound = errors.New("run not found")
)

// VariantSink stores the annotated records of a finished run
type VariantSink interface {
	// SaveBatch stores records for run in input order
	SaveBatch(ctx context.Context, run *domain.Run, records []domain.AnnotatedVariant) error
}

// RunStore keeps run status bookkeeping
type RunStore interface {
	// Save creates or replaces a run
	Save(ctx context.Context, run *domain.Run) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// List returns the most recent runs, newest first
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}

// RunPruner deletes runs, and their stored records, by age
type RunPruner interface {
	// DeleteRunsOlderThan removes runs last updated before threshold
	DeleteRunsOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}
