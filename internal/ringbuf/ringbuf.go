// Package ringbuf provides a bounded FIFO ring buffer that evicts its oldest
// element once full. It backs closed-candle history and percentile windows.
//
// A Ring is not safe for concurrent use; the owner serializes access.
package ringbuf

// Ring is a fixed-capacity FIFO. Push never fails: when the ring is full the
// oldest value is overwritten and returned to the caller.
type Ring[T any] struct {
	buf   []T
	head  int // index of the oldest element
	count int

	evicted uint64
}

// New creates a ring holding at most capacity values. Minimum capacity is 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v. If the ring was full the evicted oldest value is returned
// with ok=true.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return evicted, false
	}

	evicted = r.buf[r.head]
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	r.evicted++
	return evicted, true
}

// At returns the i-th element, 0 being the oldest. It panics if i is out of range.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("ringbuf: index out of range")
	}
	return r.buf[(r.head+i)%len(r.buf)]
}

// Last returns the newest element.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.At(r.count - 1), true
}

// Items returns a copy of the contents, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Do calls fn for each element, oldest first, without copying.
func (r *Ring[T]) Do(fn func(T)) {
	for i := 0; i < r.count; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}

// Resize changes the capacity, keeping the newest values that still fit.
func (r *Ring[T]) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	items := r.Items()
	if len(items) > capacity {
		r.evicted += uint64(len(items) - capacity)
		items = items[len(items)-capacity:]
	}
	r.buf = make([]T, capacity)
	copy(r.buf, items)
	r.head = 0
	r.count = len(items)
}

// Reset empties the ring without changing its capacity.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.count = 0
}

// Len returns the current number of items in the ring.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Full reports whether the next Push will evict.
func (r *Ring[T]) Full() bool { return r.count == len(r.buf) }

// Evicted returns the total number of values dropped to make room.
func (r *Ring[T]) Evicted() uint64 { return r.evicted }
