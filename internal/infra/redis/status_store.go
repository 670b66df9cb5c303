package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vietddude/varannot/internal/core/domain"
	"github.com/vietddude/varannot/internal/infra/storage"
)

// DefaultRunTTL is how long a run record is kept.
const DefaultRunTTL = 7 * 24 * time.Hour

// StatusStore implements storage.RunStore using Redis. Runs are stored as
// msgpack blobs and indexed in a sorted set scored by creation time.
type StatusStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStatusStore creates a new Redis-backed run store.
func NewStatusStore(client *Client, ttl time.Duration) *StatusStore {
	if ttl <= 0 {
		ttl = DefaultRunTTL
	}
	return &StatusStore{
		rdb:    client.rdb,
		prefix: client.prefix,
		ttl:    ttl,
	}
}

// Save stores the run and updates the index.
func (s *StatusStore) Save(ctx context.Context, run *domain.Run) error {
	data, err := encodeRun(run)
	if err != nil {
		return err
	}

	id := run.ID.String()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, runKey(s.prefix, id), data, s.ttl)
	pipe.ZAdd(ctx, runIndexKey(s.prefix), redis.Z{
		Score:  float64(run.CreatedAt.UnixNano()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *StatusStore) Get(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	data, err := s.rdb.Get(ctx, runKey(s.prefix, id.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return decodeRun(data)
}

// List returns the most recent runs, newest first. Index entries whose run
// has expired are removed.
func (s *StatusStore) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	ids, err := s.rdb.ZRevRange(ctx, runIndexKey(s.prefix), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	out := make([]*domain.Run, 0, len(ids))
	for _, id := range ids {
		data, err := s.rdb.Get(ctx, runKey(s.prefix, id)).Bytes()
		if errors.Is(err, redis.Nil) {
			// Data expired but ID still indexed, remove it
			s.rdb.ZRem(ctx, runIndexKey(s.prefix), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get failed: %w", err)
		}
		run, err := decodeRun(data)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func encodeRun(run *domain.Run) ([]byte, error) {
	data, err := msgpack.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run: %w", err)
	}
	return data, nil
}

func decodeRun(data []byte) (*domain.Run, error) {
	var run domain.Run
	if err := msgpack.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}
