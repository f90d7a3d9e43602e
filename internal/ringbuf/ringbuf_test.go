package ringbuf

import (
	"testing"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

func TestRing_BasicPush(t *testing.T) {
	r := New[model.Candle](4)

	r.Push(model.Candle{Time: 1, Open: 100})
	r.Push(model.Candle{Time: 2, Open: 200})

	if r.Len() != 2 {
		t.Fatalf("expected len=2, got %d", r.Len())
	}
	if got := r.At(0); got.Time != 1 {
		t.Fatalf("expected oldest time=1, got %d", got.Time)
	}
	last, ok := r.Last()
	if !ok || last.Time != 2 {
		t.Fatalf("expected newest time=2, got %d ok=%v", last.Time, ok)
	}
}

func TestRing_EvictsOldest(t *testing.T) {
	r := New[int](2)

	r.Push(1)
	r.Push(2)
	if !r.Full() {
		t.Fatal("ring should be full")
	}

	old, ok := r.Push(3)
	if !ok || old != 1 {
		t.Fatalf("expected eviction of 1, got %d ok=%v", old, ok)
	}
	if r.Evicted() != 1 {
		t.Fatalf("expected evicted=1, got %d", r.Evicted())
	}

	items := r.Items()
	if len(items) != 2 || items[0] != 2 || items[1] != 3 {
		t.Fatalf("expected [2 3], got %v", items)
	}
}

func TestRing_Wraparound(t *testing.T) {
	r := New[int](4)

	for i := 0; i < 23; i++ {
		r.Push(i)
	}
	items := r.Items()
	want := []int{19, 20, 21, 22}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("at %d: expected %d, got %d", i, want[i], items[i])
		}
	}

	var sum int
	r.Do(func(v int) { sum += v })
	if sum != 19+20+21+22 {
		t.Errorf("Do visited wrong values, sum=%d", sum)
	}
}

func TestRing_ResizeKeepsNewest(t *testing.T) {
	r := New[int](5)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	r.Resize(3)
	if r.Cap() != 3 || r.Len() != 3 {
		t.Fatalf("expected cap=3 len=3, got cap=%d len=%d", r.Cap(), r.Len())
	}
	if items := r.Items(); items[0] != 3 || items[2] != 5 {
		t.Fatalf("expected [3 4 5], got %v", items)
	}

	r.Resize(6)
	r.Push(6)
	if items := r.Items(); len(items) != 4 || items[3] != 6 {
		t.Fatalf("expected [3 4 5 6], got %v", items)
	}
}

func TestRing_ResetAndMinimumCapacity(t *testing.T) {
	r := New[int](0)
	if r.Cap() != 1 {
		t.Fatalf("expected minimum cap=1, got %d", r.Cap())
	}
	r.Push(7)
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("expected empty ring after reset, got len=%d", r.Len())
	}
	if _, ok := r.Last(); ok {
		t.Fatal("Last on empty ring should return false")
	}
}
