package config

import "sync"

// Store holds the current Signal parameters and notifies subscribers when
// they change. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	cur  Signal
	subs []func(old, next Signal)
}

// NewStore creates a store holding initial.
func NewStore(initial Signal) *Store {
	return &Store{cur: initial}
}

// Get returns the current parameters.
func (s *Store) Get() Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update validates next, swaps it in and calls subscribers outside the lock.
// An invalid value leaves the store unchanged.
func (s *Store) Update(next Signal) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	old := s.cur
	s.cur = next
	subs := make([]func(old, next Signal), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if old == next {
		return nil
	}
	for _, fn := range subs {
		fn(old, next)
	}
	return nil
}

// Patch applies fn to a copy of the current value and stores the result.
func (s *Store) Patch(fn func(*Signal)) (Signal, error) {
	next := s.Get()
	fn(&next)
	if err := s.Update(next); err != nil {
		return s.Get(), err
	}
	return next, nil
}

// Subscribe registers fn to be called after every effective change.
func (s *Store) Subscribe(fn func(old, next Signal)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}
