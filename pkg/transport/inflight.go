package transport

import (
	"context"
	"sync"
)

// InFlightRegistry tracks in-flight runs for explicit cancellation. It maps
// request IDs to their cancel functions, allowing a DELETE request to abort
// a run that is still producing output.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]*inFlightEntry
}

// inFlightEntry is one registration. Its address identifies the run, so a
// stale release cannot remove a later run that reused the same ID.
type inFlightEntry struct {
	cancel context.CancelFunc
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[string]*inFlightEntry),
	}
}

// Register adds an in-flight run to the registry. The cancel function
// will be called if the run is explicitly cancelled.
func (r *InFlightRegistry) Register(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &inFlightEntry{cancel: cancel}
}

// Track derives a cancellable context for the run identified by id and
// registers it. The returned release func cancels the context and removes
// the entry if it still belongs to this run; callers defer it. Track reports false, and registers nothing,
// when id is already in flight.
func (r *InFlightRegistry) Track(ctx context.Context, id string) (context.Context, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return ctx, func() {}, false
	}
	ctx, cancel := context.WithCancel(ctx)
	entry := &inFlightEntry{cancel: cancel}
	r.entries[id] = entry
	return ctx, func() {
		r.mu.Lock()
		if r.entries[id] == entry {
			delete(r.entries, id)
		}
		r.mu.Unlock()
		cancel()
	}, true
}

// Cancel cancels an in-flight run by calling its cancel function.
// Returns true if the run was found and cancelled, false if the ID
// was not registered (either already completed or never existed).
func (r *InFlightRegistry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return false
	}
	entry.cancel()
	delete(r.entries, id)
	return true
}

// Remove removes a run from the registry without cancelling it.
func (r *InFlightRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of runs currently registered.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
