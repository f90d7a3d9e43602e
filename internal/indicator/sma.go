package indicator

import (
	"strconv"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/ringbuf"
)

// SMA calculates Simple Moving Average over a rolling window.
type SMA struct {
	period int
	window *ringbuf.Ring[float64]
	sum    float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		window: ringbuf.New[float64](period),
	}
}

func (s *SMA) Name() string { return "SMA_" + strconv.Itoa(s.period) }

func (s *SMA) Update(candle model.Candle) { s.Add(candle.Close) }

// Add feeds one value, dropping the oldest once the window is full.
func (s *SMA) Add(price float64) {
	if old, evicted := s.window.Push(price); evicted {
		s.sum -= old
	}
	s.sum += price
}

// Value returns the mean of the values currently in the window, or 0 when empty.
func (s *SMA) Value() float64 {
	if s.window.Len() == 0 {
		return 0
	}
	return s.sum / float64(s.window.Len())
}

func (s *SMA) Ready() bool { return s.window.Len() >= s.period }

// Peek computes what Value() would be with an additional value without mutating state.
func (s *SMA) Peek(price float64) float64 {
	if !s.window.Full() {
		return (s.sum + price) / float64(s.window.Len()+1)
	}
	// Preview: replace the oldest value with the new price
	return (s.sum - s.window.At(0) + price) / float64(s.period)
}

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.window.Reset()
	s.sum = 0
}

// SMAOf returns the mean of the trailing period closes. With fewer than
// period closes it returns the last close, and 0 for an empty slice.
func SMAOf(closes []float64, period int) float64 {
	switch {
	case len(closes) == 0:
		return 0
	case len(closes) < period:
		return closes[len(closes)-1]
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}
