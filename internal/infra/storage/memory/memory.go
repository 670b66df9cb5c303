package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/varannot/internal/core/domain"
	"github.com/vietddude/varannot/internal/infra/storage"
)

type MemoryStorage struct {
	runs     map[uuid.UUID]domain.Run
	variants map[uuid.UUID][]domain.AnnotatedVariant
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runs:     make(map[uuid.UUID]domain.Run),
		variants: make(map[uuid.UUID][]domain.AnnotatedVariant),
	}
}

// -----------------------------------------------------------------------------
// Run Store
// -----------------------------------------------------------------------------

type RunRepo struct {
	store *MemoryStorage
}

func NewRunRepo(store *MemoryStorage) *RunRepo {
	return &RunRepo{store: store}
}

func (r *RunRepo) Save(ctx context.Context, run *domain.Run) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.runs[run.ID] = *run
	return nil
}

func (r *RunRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	run, ok := r.store.runs[id]
	if !ok {
		return nil, storage.ErrRunNotFound
	}
	return &run, nil
}

func (r *RunRepo) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.Run, 0, len(r.store.runs))
	for _, run := range r.store.runs {
		run := run
		out = append(out, &run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RunRepo) DeleteRunsOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for id, run := range r.store.runs {
		if run.UpdatedAt.Before(threshold) {
			delete(r.store.runs, id)
			delete(r.store.variants, id)
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Variant Sink
// -----------------------------------------------------------------------------

type VariantRepo struct {
	store *MemoryStorage
}

func NewVariantRepo(store *MemoryStorage) *VariantRepo {
	return &VariantRepo{store: store}
}

func (r *VariantRepo) SaveBatch(ctx context.Context, run *domain.Run, records []domain.AnnotatedVariant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.runs[run.ID] = *run
	r.store.variants[run.ID] = append(r.store.variants[run.ID], records...)
	return nil
}

func (r *VariantRepo) GetByRun(ctx context.Context, runID uuid.UUID) ([]domain.AnnotatedVariant, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]domain.AnnotatedVariant(nil), r.store.variants[runID]...), nil
}
