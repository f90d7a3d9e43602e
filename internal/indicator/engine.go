package indicator

import "github.com/johanriascos7777/ReversionMediaTrading/internal/model"

// Engine holds the streaming reference line and ATR of one timeframe.
//
// Closed candles are fed with Process in O(1). The in-progress candle is only
// ever previewed through Peek, so a tick never mutates indicator state.
// Designed for single-goroutine usage; the owner serializes calls.
type Engine struct {
	params Params
	ref    Indicator
	atr    *ATR
	closed int
}

// NewEngine creates an empty Engine for p.
func NewEngine(p Params) *Engine {
	return &Engine{
		params: p,
		ref:    NewReference(p.Mode, p.EMAPeriod),
		atr:    NewATR(p.ATRPeriod),
	}
}

// Params returns the parameters the Engine was built with.
func (e *Engine) Params() Params { return e.params }

// Closed returns the number of closed candles fed since the last Restore.
func (e *Engine) Closed() int { return e.closed }

// Process feeds one closed candle.
func (e *Engine) Process(c model.Candle) {
	e.ref.Update(c)
	e.atr.Update(c)
	e.closed++
}

// Restore discards all state and replays closed, oldest first. The EMA is
// seeded from the first candles of closed, so callers restore whenever the
// retained window slides.
func (e *Engine) Restore(closed []model.Candle) {
	e.ref = NewReference(e.params.Mode, e.params.EMAPeriod)
	e.atr.Reset()
	e.closed = 0
	for _, c := range closed {
		e.Process(c)
	}
}

// ProcessPeek evaluates price against the closed candles plus current, the
// in-progress candle (nil when none is open). The result equals
// Compute(append(closed, *current), price, params).
func (e *Engine) ProcessPeek(current *model.Candle, price float64) (Values, bool) {
	n := e.closed
	if current != nil {
		n++
	}
	if e.params.EMAPeriod <= 0 || n < e.params.EMAPeriod {
		return Values{}, false
	}

	v := Values{Reference: e.ref.Value(), ATR: e.atr.Value()}
	if current != nil {
		v.Reference = e.ref.Peek(current.Close)
		v.ATR = e.atr.PeekCandle(*current)
	}
	if n < 2 {
		v.ATR = FallbackATR
	}
	v.Elasticity = Elasticity(price, v.Reference, v.ATR)
	return v, true
}
