package percentile

import (
	"sync"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// Registry lazily creates one Tracker per instrument key and keeps it for
// the registry's lifetime. Trackers are never shared across keys.
type Registry struct {
	mu       sync.RWMutex
	capacity int
	trackers map[model.InstrumentKey]*Tracker
}

// NewRegistry creates a registry whose trackers hold capacity values.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		trackers: make(map[model.InstrumentKey]*Tracker),
	}
}

// Get returns the tracker for key, creating it on first use.
func (r *Registry) Get(key model.InstrumentKey) *Tracker {
	r.mu.RLock()
	t, ok := r.trackers[key]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok = r.trackers[key]; ok {
		return t
	}
	t = NewTracker(r.capacity)
	r.trackers[key] = t
	return t
}

// Lookup returns the tracker for key without creating one.
func (r *Registry) Lookup(key model.InstrumentKey) (*Tracker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trackers[key]
	return t, ok
}

// Keys returns the keys with a live tracker.
func (r *Registry) Keys() []model.InstrumentKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]model.InstrumentKey, 0, len(r.trackers))
	for k := range r.trackers {
		keys = append(keys, k)
	}
	return keys
}

// Resize changes the capacity of every existing and future tracker.
func (r *Registry) Resize(capacity int) {
	if capacity <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capacity = capacity
	for _, t := range r.trackers {
		t.Resize(capacity)
	}
}

// Reset empties the tracker for key, if present.
func (r *Registry) Reset(key model.InstrumentKey) {
	if t, ok := r.Lookup(key); ok {
		t.Reset()
	}
}

// Remove drops the tracker for key.
func (r *Registry) Remove(key model.InstrumentKey) {
	r.mu.Lock()
	delete(r.trackers, key)
	r.mu.Unlock()
}
