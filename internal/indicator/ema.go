package indicator

import (
	"strconv"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// EMA calculates Exponential Moving Average, seeded with the simple average
// of the first period values.
// O(1) per update, no window storage.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
	last       float64
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA_" + strconv.Itoa(e.period) }

func (e *EMA) Update(candle model.Candle) { e.Add(candle.Close) }

// Add feeds one value.
func (e *EMA) Add(price float64) {
	e.count++
	e.last = price

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

// Value returns the EMA once ready. Before that it falls back to the most
// recent value, and to 0 when nothing has been added.
func (e *EMA) Value() float64 {
	if e.count < e.period {
		return e.last
	}
	return e.current
}

func (e *EMA) Ready() bool { return e.count >= e.period }

// Peek computes what Value() would be with an additional value without mutating state.
func (e *EMA) Peek(price float64) float64 {
	switch {
	case e.count+1 < e.period:
		return price
	case e.count+1 == e.period:
		return (e.sum + price) / float64(e.period)
	}
	return (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
	e.sum = 0
	e.last = 0
}

// EMAOf returns the EMA of closes. With fewer than period closes it returns
// the last close, and 0 for an empty slice.
func EMAOf(closes []float64, period int) float64 {
	e := NewEMA(period)
	for _, c := range closes {
		e.Add(c)
	}
	return e.Value()
}
