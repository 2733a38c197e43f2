package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courierhq/dispatch/internal/config"
	"github.com/courierhq/dispatch/pkg/api"
)

// RedisStore is the durable InterruptStore backed by Redis. Interrupts are
// stored as JSON values; a sorted set tracks the pending working set and a
// per-resource list supports most-recent-pending lookup
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ InterruptStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed interrupt store
func NewRedisStore(cfg config.StoreConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.Prefix,
	}
}

// Close releases the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Put(
	ctx context.Context, interrupt *api.Interrupt,
) error {
	data, err := json.Marshal(interrupt)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(interrupt.ID), data, 0)
	pipe.ZAdd(ctx, s.pendingKey(), redis.Z{
		Score:  float64(interrupt.CreatedAt.UnixNano()),
		Member: interrupt.ID,
	})
	pipe.LPush(ctx, s.resourceKey(interrupt.ResourceID), interrupt.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(
	ctx context.Context, id string,
) (*api.Interrupt, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", api.ErrApprovalNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var interrupt api.Interrupt
	if err := json.Unmarshal(data, &interrupt); err != nil {
		return nil, err
	}
	return &interrupt, nil
}

func (s *RedisStore) GetByResource(
	ctx context.Context, resourceID string,
) (*api.Interrupt, error) {
	ids, err := s.client.LRange(
		ctx, s.resourceKey(resourceID), 0, -1,
	).Result()
	if err != nil {
		return nil, err
	}

	// Most recent first (LPush ordering)
	for _, id := range ids {
		interrupt, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, api.ErrApprovalNotFound) {
				continue
			}
			return nil, err
		}
		if interrupt.Pending() {
			return interrupt, nil
		}
	}
	return nil, nil
}

// Update records a decision inside an optimistic transaction. The pending
// check and the write must observe the same version of the interrupt, or two
// concurrent decisions could both pass the check and both land
func (s *RedisStore) Update(
	ctx context.Context, id string, status api.ApprovalStatus,
	decidedBy, reason string, decidedAt time.Time,
) (*api.Interrupt, error) {
	var interrupt *api.Interrupt

	decide := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, s.key(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", api.ErrApprovalNotFound, id)
		}
		if err != nil {
			return err
		}

		interrupt = &api.Interrupt{}
		if err := json.Unmarshal(data, interrupt); err != nil {
			return err
		}
		if !interrupt.Pending() {
			return fmt.Errorf("%w: %s is %s",
				api.ErrApprovalInvalidState, id, interrupt.Status)
		}

		interrupt.Status = status
		interrupt.DecidedBy = decidedBy
		interrupt.DecisionReason = reason
		interrupt.DecidedAt = decidedAt
		updated, err := json.Marshal(interrupt)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(id), updated, 0)
			pipe.ZRem(ctx, s.pendingKey(), id)
			return nil
		})
		return err
	}

	// A lost watch means another writer touched the interrupt; re-reading
	// finds the decided status and surfaces ErrApprovalInvalidState
	for {
		err := s.client.Watch(ctx, decide, s.key(id))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return interrupt, nil
	}
}

func (s *RedisStore) Pending(ctx context.Context) ([]*api.Interrupt, error) {
	ids, err := s.client.ZRange(ctx, s.pendingKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var pending []*api.Interrupt
	for _, id := range ids {
		interrupt, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, api.ErrApprovalNotFound) {
				continue
			}
			return nil, err
		}
		if interrupt.Pending() {
			pending = append(pending, interrupt)
		}
	}
	return pending, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":interrupt:" + id
}

func (s *RedisStore) pendingKey() string {
	return s.prefix + ":interrupt:pending"
}

func (s *RedisStore) resourceKey(resourceID string) string {
	return s.prefix + ":interrupt:resource:" + resourceID
}
