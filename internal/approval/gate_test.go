package approval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/dispatch/internal/approval"
	"github.com/courierhq/dispatch/pkg/api"
)

func newGate(t *testing.T, options ...approval.Option) *approval.Gate {
	t.Helper()
	policy, err := approval.NewPolicy("value > limit", 5000.0)
	require.NoError(t, err)
	return approval.NewGate(approval.NewMemoryStore(), policy, options...)
}

func createInterrupt(
	t *testing.T, gate *approval.Gate, resourceID string,
) *api.Interrupt {
	t.Helper()
	interrupt, err := gate.Create(
		context.Background(), resourceID, "order value 6000.00 exceeds "+
			"auto-approval limit 5000.00", "book_shipment",
		map[string]any{"order_value": 6000.0},
	)
	require.NoError(t, err)
	return interrupt
}

func TestCreateInterrupt(t *testing.T) {
	gate := newGate(t)
	interrupt := createInterrupt(t, gate, "ORD-1001")

	assert.Regexp(t, "^hitl_[0-9a-f]{12}$", interrupt.ID)
	assert.Equal(t, api.ApprovalPending, interrupt.Status)
	assert.Equal(t, "ORD-1001", interrupt.ResourceID)
	assert.True(t, interrupt.Pending())
	assert.False(t, interrupt.CreatedAt.IsZero())
}

func TestApprove(t *testing.T) {
	gate := newGate(t)
	interrupt := createInterrupt(t, gate, "ORD-1001")

	decided, err := gate.Approve(
		context.Background(), interrupt.ID, "manager-7",
	)
	require.NoError(t, err)
	assert.Equal(t, api.ApprovalApproved, decided.Status)
	assert.Equal(t, "manager-7", decided.DecidedBy)
	assert.False(t, decided.DecidedAt.IsZero())
}

func TestApproveUnknown(t *testing.T) {
	gate := newGate(t)

	_, err := gate.Approve(context.Background(), "hitl_missing12", "m")
	assert.ErrorIs(t, err, api.ErrApprovalNotFound)
}

func TestDecisionIsExactlyOnce(t *testing.T) {
	gate := newGate(t)
	interrupt := createInterrupt(t, gate, "ORD-1001")

	_, err := gate.Approve(context.Background(), interrupt.ID, "first")
	require.NoError(t, err)

	_, err = gate.Approve(context.Background(), interrupt.ID, "second")
	assert.ErrorIs(t, err, api.ErrApprovalInvalidState)

	_, err = gate.Reject(
		context.Background(), interrupt.ID, "second", "changed my mind",
	)
	assert.ErrorIs(t, err, api.ErrApprovalInvalidState)

	// the original decision is untouched
	stored, err := gate.Get(context.Background(), interrupt.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ApprovalApproved, stored.Status)
	assert.Equal(t, "first", stored.DecidedBy)
}

func TestReject(t *testing.T) {
	gate := newGate(t)
	interrupt := createInterrupt(t, gate, "ORD-1001")

	decided, err := gate.Reject(
		context.Background(), interrupt.ID, "manager-7", "over budget",
	)
	require.NoError(t, err)
	assert.Equal(t, api.ApprovalRejected, decided.Status)
	assert.Equal(t, "over budget", decided.DecisionReason)

	// the reason survives on the stored audit record
	stored, err := gate.Get(context.Background(), interrupt.ID)
	require.NoError(t, err)
	assert.Equal(t, "over budget", stored.DecisionReason)
}

func TestFindPendingForResource(t *testing.T) {
	gate := newGate(t)
	first := createInterrupt(t, gate, "ORD-1001")
	second := createInterrupt(t, gate, "ORD-1001")
	createInterrupt(t, gate, "ORD-2002")

	found, err := gate.FindPendingForResource(
		context.Background(), "ORD-1001",
	)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, second.ID, found.ID)

	// deciding the most recent uncovers the earlier one
	_, err = gate.Approve(context.Background(), second.ID, "m")
	require.NoError(t, err)

	found, err = gate.FindPendingForResource(
		context.Background(), "ORD-1001",
	)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestFindPendingForResourceNone(t *testing.T) {
	gate := newGate(t)

	found, err := gate.FindPendingForResource(
		context.Background(), "ORD-9999",
	)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPendingOrderedOldestFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	gate := newGate(t, approval.WithClock(clock))

	first := createInterrupt(t, gate, "ORD-1")
	second := createInterrupt(t, gate, "ORD-2")
	third := createInterrupt(t, gate, "ORD-3")

	_, err := gate.Approve(context.Background(), second.ID, "m")
	require.NoError(t, err)

	pending, err := gate.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, third.ID, pending[1].ID)
}

type failingNotifier struct{}

func (failingNotifier) NotifyCreated(
	context.Context, *api.Interrupt,
) error {
	return errors.New("webhook unreachable")
}

func TestNotifierFailureIsBestEffort(t *testing.T) {
	gate := newGate(t, approval.WithNotifier(failingNotifier{}))

	interrupt := createInterrupt(t, gate, "ORD-1001")
	stored, err := gate.Get(context.Background(), interrupt.ID)
	require.NoError(t, err)
	assert.True(t, stored.Pending())
}

func TestResumeDecision(t *testing.T) {
	gate := newGate(t)
	interrupt := createInterrupt(t, gate, "ORD-1001")

	decided, err := gate.Approve(
		context.Background(), interrupt.ID, "manager-7",
	)
	require.NoError(t, err)

	decision := approval.ResumeDecision(decided)
	assert.Equal(t, decided.ID, decision.InterruptID)
	assert.Equal(t, api.ApprovalApproved, decision.Status)
	assert.Equal(t, "manager-7", decision.DecidedBy)
}
