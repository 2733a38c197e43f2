package carrier

import (
	"fmt"
	"slices"
	"sync"

	"github.com/courierhq/dispatch/pkg/api"
)

// Registry maps provider ids to their adapter implementations. It is
// read-mostly and safe for concurrent use across workflow runs
type Registry struct {
	mu       sync.RWMutex
	adapters map[api.ProviderID]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[api.ProviderID]Adapter{},
	}
}

// Register adds or replaces the adapter for its provider id
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

// Get returns the adapter registered for id
func (r *Registry) Get(id api.ProviderID) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrProviderNotFound, id)
	}
	return a, nil
}

// All returns a snapshot of every registered adapter
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		res = append(res, a)
	}
	return res
}

// IDs returns the sorted provider ids currently registered
func (r *Registry) IDs() []api.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]api.ProviderID, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered adapters
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
