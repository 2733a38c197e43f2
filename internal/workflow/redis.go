package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/courierhq/dispatch/internal/config"
	"github.com/courierhq/dispatch/pkg/api"
)

// RedisRunStore is the durable RunStore backed by Redis. Suspended runs are
// stored as JSON so a different process can load and resume them
type RedisRunStore struct {
	client *redis.Client
	prefix string
}

var _ RunStore = (*RedisRunStore)(nil)

// NewRedisRunStore creates a Redis-backed run store
func NewRedisRunStore(cfg config.StoreConfig) *RedisRunStore {
	return &RedisRunStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.Prefix,
	}
}

// Close releases the underlying Redis connection
func (s *RedisRunStore) Close() error {
	return s.client.Close()
}

func (s *RedisRunStore) Put(
	ctx context.Context, id api.RunID, run *SuspendedRun,
) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(id), data, 0).Err()
}

func (s *RedisRunStore) Get(
	ctx context.Context, id api.RunID,
) (*SuspendedRun, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", api.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var run SuspendedRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *RedisRunStore) Delete(ctx context.Context, id api.RunID) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisRunStore) key(id api.RunID) string {
	return s.prefix + ":run:" + string(id)
}
