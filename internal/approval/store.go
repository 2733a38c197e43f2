// Package approval implements the human-in-the-loop gate: interrupt
// creation, pending tracking, and approve/reject decisions that feed the
// workflow engine's resume entrypoint.
package approval

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/courierhq/dispatch/pkg/api"
)

// InterruptStore persists approval interrupts. The reference implementation
// is in-memory; production deployments supply a durable implementation such
// as the Redis store
type InterruptStore interface {
	// Put stores a new interrupt
	Put(ctx context.Context, interrupt *api.Interrupt) error

	// Get returns the interrupt with the given id
	Get(ctx context.Context, id string) (*api.Interrupt, error)

	// GetByResource returns the most recent pending interrupt for the
	// resource, or nil when none is pending
	GetByResource(
		ctx context.Context, resourceID string,
	) (*api.Interrupt, error)

	// Update records a decision on the interrupt exactly once
	Update(
		ctx context.Context, id string, status api.ApprovalStatus,
		decidedBy, reason string, decidedAt time.Time,
	) (*api.Interrupt, error)

	// Pending lists all interrupts awaiting a decision, oldest first
	Pending(ctx context.Context) ([]*api.Interrupt, error)
}

// MemoryStore is the in-memory reference InterruptStore. Decided interrupts
// remain stored as audit records; they only leave the pending working set
type MemoryStore struct {
	mu         sync.RWMutex
	interrupts map[string]*api.Interrupt
}

var _ InterruptStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory interrupt store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		interrupts: map[string]*api.Interrupt{},
	}
}

func (s *MemoryStore) Put(_ context.Context, interrupt *api.Interrupt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *interrupt
	s.interrupts[interrupt.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(
	_ context.Context, id string,
) (*api.Interrupt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	interrupt, ok := s.interrupts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrApprovalNotFound, id)
	}
	cp := *interrupt
	return &cp, nil
}

func (s *MemoryStore) GetByResource(
	_ context.Context, resourceID string,
) (*api.Interrupt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *api.Interrupt
	for _, interrupt := range s.interrupts {
		if interrupt.ResourceID != resourceID || !interrupt.Pending() {
			continue
		}
		if latest == nil || interrupt.CreatedAt.After(latest.CreatedAt) {
			latest = interrupt
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) Update(
	_ context.Context, id string, status api.ApprovalStatus,
	decidedBy, reason string, decidedAt time.Time,
) (*api.Interrupt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	interrupt, ok := s.interrupts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrApprovalNotFound, id)
	}
	if !interrupt.Pending() {
		return nil, fmt.Errorf("%w: %s is %s",
			api.ErrApprovalInvalidState, id, interrupt.Status)
	}
	interrupt.Status = status
	interrupt.DecidedBy = decidedBy
	interrupt.DecisionReason = reason
	interrupt.DecidedAt = decidedAt
	cp := *interrupt
	return &cp, nil
}

func (s *MemoryStore) Pending(_ context.Context) ([]*api.Interrupt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*api.Interrupt
	for _, interrupt := range s.interrupts {
		if interrupt.Pending() {
			cp := *interrupt
			pending = append(pending, &cp)
		}
	}
	slices.SortFunc(pending, func(a, b *api.Interrupt) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return pending, nil
}
