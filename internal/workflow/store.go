package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/courierhq/dispatch/pkg/api"
)

type (
	// SuspendedRun is the fully serializable pair persisted when a run
	// suspends. Nothing goroutine-local is captured, so resumption may
	// occur in a different process than the one that suspended
	SuspendedRun struct {
		State       *api.RunState `json:"state"`
		PendingStep api.StepID    `json:"pending_step"`
	}

	// RunStore persists suspended runs keyed by correlation id. The
	// reference implementation is in-memory; production deployments supply
	// a durable implementation such as the Redis store
	RunStore interface {
		Put(ctx context.Context, id api.RunID, run *SuspendedRun) error
		Get(ctx context.Context, id api.RunID) (*SuspendedRun, error)
		Delete(ctx context.Context, id api.RunID) error
	}

	// MemoryRunStore is the in-memory reference RunStore
	MemoryRunStore struct {
		mu   sync.RWMutex
		runs map[api.RunID]*SuspendedRun
	}
)

var _ RunStore = (*MemoryRunStore)(nil)

// NewMemoryRunStore creates an empty in-memory run store
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs: map[api.RunID]*SuspendedRun{},
	}
}

func (s *MemoryRunStore) Put(
	_ context.Context, id api.RunID, run *SuspendedRun,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = run
	return nil
}

func (s *MemoryRunStore) Get(
	_ context.Context, id api.RunID,
) (*SuspendedRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrRunNotFound, id)
	}
	return run, nil
}

func (s *MemoryRunStore) Delete(_ context.Context, id api.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}
