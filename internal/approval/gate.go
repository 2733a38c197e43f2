package approval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courierhq/dispatch/pkg/api"
	"github.com/courierhq/dispatch/pkg/log"
)

// Gate creates and decides approval interrupts. It is shared across
// concurrent workflow runs; per-interrupt transitions are serialized by the
// underlying store
type Gate struct {
	store    InterruptStore
	notifier Notifier
	policy   *Policy
	now      func() time.Time
}

// Option configures the gate
type Option func(*Gate)

// NewGate creates an approval gate over the given store and policy
func NewGate(store InterruptStore, policy *Policy, options ...Option) *Gate {
	g := &Gate{
		store:    store,
		notifier: LogNotifier{},
		policy:   policy,
		now:      time.Now,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// WithNotifier overrides the external notification hook
func WithNotifier(n Notifier) Option {
	return func(g *Gate) {
		g.notifier = n
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// Policy returns the gate's approval policy
func (g *Gate) Policy() *Policy {
	return g.policy
}

// Create stores a new pending interrupt for the resource and notifies the
// external approval service best-effort
func (g *Gate) Create(
	ctx context.Context, resourceID, reason, action string,
	snapshot map[string]any,
) (*api.Interrupt, error) {
	interrupt := &api.Interrupt{
		ID:         newInterruptID(),
		ResourceID: resourceID,
		Reason:     reason,
		Action:     action,
		Context:    snapshot,
		CreatedAt:  g.now().UTC(),
		Status:     api.ApprovalPending,
	}
	if err := g.store.Put(ctx, interrupt); err != nil {
		return nil, err
	}

	if err := g.notifier.NotifyCreated(ctx, interrupt); err != nil {
		slog.Warn("Approval notification failed",
			log.InterruptID(interrupt.ID),
			log.Error(err))
	}

	slog.Info("Interrupt created",
		log.InterruptID(interrupt.ID),
		slog.String("resource_id", resourceID),
		slog.String("action", action))
	return interrupt, nil
}

// Approve records an approval decision for a pending interrupt
func (g *Gate) Approve(
	ctx context.Context, id, approver string,
) (*api.Interrupt, error) {
	interrupt, err := g.store.Update(
		ctx, id, api.ApprovalApproved, approver, "", g.now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	slog.Info("Interrupt approved",
		log.InterruptID(id),
		slog.String("decided_by", approver))
	return interrupt, nil
}

// Reject records a rejection for a pending interrupt, persisting the
// approver's reason on the audit record
func (g *Gate) Reject(
	ctx context.Context, id, approver, reason string,
) (*api.Interrupt, error) {
	interrupt, err := g.store.Update(
		ctx, id, api.ApprovalRejected, approver, reason, g.now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	slog.Info("Interrupt rejected",
		log.InterruptID(id),
		slog.String("decided_by", approver),
		slog.String("reason", reason))
	return interrupt, nil
}

// Get returns the interrupt with the given id
func (g *Gate) Get(ctx context.Context, id string) (*api.Interrupt, error) {
	return g.store.Get(ctx, id)
}

// FindPendingForResource returns the most recent pending interrupt for the
// resource, or nil when none is pending
func (g *Gate) FindPendingForResource(
	ctx context.Context, resourceID string,
) (*api.Interrupt, error) {
	return g.store.GetByResource(ctx, resourceID)
}

// Pending lists all interrupts awaiting a decision
func (g *Gate) Pending(ctx context.Context) ([]*api.Interrupt, error) {
	return g.store.Pending(ctx)
}

// ResumeDecision converts a decided interrupt into the payload the workflow
// engine consumes on resume
func ResumeDecision(interrupt *api.Interrupt) api.Decision {
	return api.Decision{
		InterruptID: interrupt.ID,
		Status:      interrupt.Status,
		DecidedBy:   interrupt.DecidedBy,
		DecidedAt:   interrupt.DecidedAt,
	}
}

func newInterruptID() string {
	return "hitl_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
