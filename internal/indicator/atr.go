package indicator

import (
	"math"
	"strconv"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/ringbuf"
)

// FallbackATR is returned by ATROf when fewer than two candles are available.
const FallbackATR = 0.0006

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(c model.Candle, prevClose float64) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// ATR is the simple average of the trailing period true ranges. The first
// candle only provides a previous close.
type ATR struct {
	period    int
	ranges    *ringbuf.Ring[float64]
	sum       float64
	prevClose float64
	count     int
}

// NewATR creates a new ATR indicator with the given period.
func NewATR(period int) *ATR {
	if period < 1 {
		period = 1
	}
	return &ATR{
		period: period,
		ranges: ringbuf.New[float64](period),
	}
}

func (a *ATR) Name() string { return "ATR_" + strconv.Itoa(a.period) }

func (a *ATR) Update(candle model.Candle) {
	a.count++
	if a.count > 1 {
		tr := TrueRange(candle, a.prevClose)
		if old, evicted := a.ranges.Push(tr); evicted {
			a.sum -= old
		}
		a.sum += tr
	}
	a.prevClose = candle.Close
}

// Value returns the mean of the available true ranges, or 0 before the
// second candle.
func (a *ATR) Value() float64 {
	if a.ranges.Len() == 0 {
		return 0
	}
	return a.sum / float64(a.ranges.Len())
}

func (a *ATR) Ready() bool { return a.ranges.Len() >= a.period }

// Peek previews a flat candle at price. A bar with no range contributes only
// its gap from the previous close.
func (a *ATR) Peek(price float64) float64 {
	return a.PeekCandle(model.Candle{Open: price, High: price, Low: price, Close: price})
}

// PeekCandle returns what Value would be after Update(c), without mutating
// state.
func (a *ATR) PeekCandle(c model.Candle) float64 {
	if a.count == 0 {
		return 0
	}
	tr := TrueRange(c, a.prevClose)
	if !a.ranges.Full() {
		return (a.sum + tr) / float64(a.ranges.Len()+1)
	}
	return (a.sum - a.ranges.At(0) + tr) / float64(a.period)
}

// Reset clears the ATR state for reuse.
func (a *ATR) Reset() {
	a.ranges.Reset()
	a.sum = 0
	a.prevClose = 0
	a.count = 0
}

// ATROf returns the ATR of candles, or FallbackATR with fewer than two candles.
func ATROf(candles []model.Candle, period int) float64 {
	if len(candles) < 2 {
		return FallbackATR
	}
	a := NewATR(period)
	for _, c := range candles {
		a.Update(c)
	}
	return a.Value()
}

// Elasticity returns |price-reference|/atr, or 0 when atr is not positive or
// the result would not be finite.
func Elasticity(price, reference, atr float64) float64 {
	if atr <= 0 || math.IsNaN(atr) {
		return 0
	}
	e := math.Abs(price-reference) / atr
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0
	}
	return e
}
