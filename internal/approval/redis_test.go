package approval_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/dispatch/internal/approval"
	"github.com/courierhq/dispatch/internal/config"
	"github.com/courierhq/dispatch/pkg/api"
)

func newRedisStore(t *testing.T) *approval.RedisStore {
	t.Helper()
	redis, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(redis.Close)

	store := approval.NewRedisStore(config.StoreConfig{
		Addr:   redis.Addr(),
		Prefix: "dispatch-test",
	})
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newPendingInterrupt(id, resourceID string, at time.Time) *api.Interrupt {
	return &api.Interrupt{
		ID:         id,
		ResourceID: resourceID,
		Reason:     "order value exceeds limit",
		Action:     "book_shipment",
		CreatedAt:  at,
		Status:     api.ApprovalPending,
	}
}

func TestRedisPutGet(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	interrupt := newPendingInterrupt("hitl_aaaaaaaaaaaa", "ORD-1", now)
	interrupt.Context = map[string]any{"order_value": 6000.0}
	require.NoError(t, store.Put(ctx, interrupt))

	got, err := store.Get(ctx, "hitl_aaaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.ResourceID)
	assert.Equal(t, api.ApprovalPending, got.Status)
	assert.Equal(t, 6000.0, got.Context["order_value"])
}

func TestRedisGetMissing(t *testing.T) {
	store := newRedisStore(t)

	_, err := store.Get(context.Background(), "hitl_missing0000")
	assert.ErrorIs(t, err, api.ErrApprovalNotFound)
}

func TestRedisUpdate(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	interrupt := newPendingInterrupt("hitl_bbbbbbbbbbbb", "ORD-1", now)
	require.NoError(t, store.Put(ctx, interrupt))

	decided, err := store.Update(
		ctx, "hitl_bbbbbbbbbbbb", api.ApprovalApproved, "manager-7", "",
		now.Add(time.Minute),
	)
	require.NoError(t, err)
	assert.Equal(t, api.ApprovalApproved, decided.Status)

	_, err = store.Update(
		ctx, "hitl_bbbbbbbbbbbb", api.ApprovalRejected, "manager-8",
		"too costly", now.Add(2*time.Minute),
	)
	assert.ErrorIs(t, err, api.ErrApprovalInvalidState)
}

func TestRedisUpdateConcurrentDecisions(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	interrupt := newPendingInterrupt("hitl_eeeeeeeeeeee", "ORD-1", now)
	require.NoError(t, store.Put(ctx, interrupt))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	decide := func(i int, status api.ApprovalStatus, by string) {
		defer wg.Done()
		_, errs[i] = store.Update(
			ctx, interrupt.ID, status, by, "", now.Add(time.Minute),
		)
	}
	wg.Add(2)
	go decide(0, api.ApprovalApproved, "manager-7")
	go decide(1, api.ApprovalRejected, "manager-8")
	wg.Wait()

	// Exactly one decision lands; the loser observes the decided status
	var landed, refused int
	for _, err := range errs {
		if err == nil {
			landed++
			continue
		}
		assert.ErrorIs(t, err, api.ErrApprovalInvalidState)
		refused++
	}
	assert.Equal(t, 1, landed)
	assert.Equal(t, 1, refused)

	got, err := store.Get(ctx, interrupt.ID)
	require.NoError(t, err)
	assert.False(t, got.Pending())

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRedisUpdatePersistsDecisionReason(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	interrupt := newPendingInterrupt("hitl_ffffffffffff", "ORD-1", now)
	require.NoError(t, store.Put(ctx, interrupt))

	decided, err := store.Update(
		ctx, interrupt.ID, api.ApprovalRejected, "manager-8",
		"rate looks wrong", now.Add(time.Minute),
	)
	require.NoError(t, err)
	assert.Equal(t, "rate looks wrong", decided.DecisionReason)

	got, err := store.Get(ctx, interrupt.ID)
	require.NoError(t, err)
	assert.Equal(t, "rate looks wrong", got.DecisionReason)
}

func TestRedisPendingOrdering(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{
		"hitl_cccccccccc01",
		"hitl_cccccccccc02",
		"hitl_cccccccccc03",
	} {
		interrupt := newPendingInterrupt(
			id, "ORD-1", now.Add(time.Duration(i)*time.Second),
		)
		require.NoError(t, store.Put(ctx, interrupt))
	}

	_, err := store.Update(
		ctx, "hitl_cccccccccc02", api.ApprovalRejected, "m", "", now,
	)
	require.NoError(t, err)

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "hitl_cccccccccc01", pending[0].ID)
	assert.Equal(t, "hitl_cccccccccc03", pending[1].ID)
}

func TestRedisGetByResource(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := newPendingInterrupt("hitl_dddddddddd01", "ORD-1", now)
	second := newPendingInterrupt(
		"hitl_dddddddddd02", "ORD-1", now.Add(time.Second),
	)
	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))

	found, err := store.GetByResource(ctx, "ORD-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, second.ID, found.ID)

	_, err = store.Update(
		ctx, second.ID, api.ApprovalApproved, "m", "", now,
	)
	require.NoError(t, err)

	found, err = store.GetByResource(ctx, "ORD-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	found, err = store.GetByResource(ctx, "ORD-9")
	require.NoError(t, err)
	assert.Nil(t, found)
}
