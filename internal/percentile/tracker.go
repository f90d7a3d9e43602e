// Package percentile ranks elasticity readings against a bounded window of
// recent history.
package percentile

import (
	"sync"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/ringbuf"
)

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 200

// Tracker holds a FIFO window of past values. Push is serialized by an
// internal mutex so concurrent callers never interleave.
type Tracker struct {
	mu     sync.Mutex
	window *ringbuf.Ring[float64]
}

// NewTracker creates a tracker with the given window capacity.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{window: ringbuf.New[float64](capacity)}
}

// Push appends v, evicting the oldest value beyond capacity, and returns the
// percentage of window values less than or equal to v. v itself counts, so
// a new maximum ranks exactly 100.
func (t *Tracker) Push(v float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.window.Push(v)
	return rank(t.window, v)
}

// Rank returns the percentile v would have in the current window without
// recording it. An empty window ranks every value at 100.
func (t *Tracker) Rank(v float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.window.Len() == 0 {
		return 100
	}
	return rank(t.window, v)
}

func rank(w *ringbuf.Ring[float64], v float64) float64 {
	var le int
	w.Do(func(x float64) {
		if x <= v {
			le++
		}
	})
	return 100 * float64(le) / float64(w.Len())
}

// Resize changes the window capacity, keeping the newest values.
func (t *Tracker) Resize(capacity int) {
	if capacity <= 0 {
		return
	}
	t.mu.Lock()
	t.window.Resize(capacity)
	t.mu.Unlock()
}

// Reset empties the window.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.window.Reset()
	t.mu.Unlock()
}

// Len returns the number of values in the window.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.window.Len()
}

// Cap returns the window capacity.
func (t *Tracker) Cap() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.window.Cap()
}

// Values returns a copy of the window, oldest first.
func (t *Tracker) Values() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.window.Items()
}
