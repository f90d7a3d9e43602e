// Package agg builds fixed-period OHLC candles for one timeframe from a
// stream of price ticks.
package agg

import (
	"time"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/ringbuf"
)

// DefaultHistory is the number of closed candles retained per timeframe.
const DefaultHistory = 150

// ClosedCandleEvent is returned by Ingest when a tick rolls the period over.
type ClosedCandleEvent struct {
	Timeframe model.Timeframe
	Candle    model.Candle   // the candle that just closed
	History   []model.Candle // closed history after the append, oldest first
	Evicted   bool           // the append pushed the oldest candle out of history
}

// Aggregator owns the candle history of a single timeframe.
//
// It is a plain state machine with no goroutines or locks: Ingest applies one
// tick and reports a closed candle, and the caller decides how to deliver it.
// Calls must be serialized in tick-arrival order.
type Aggregator struct {
	tf       model.Timeframe
	periodMs int64

	current *model.Candle
	closed  *ringbuf.Ring[model.Candle]

	// OnDroppedTick is called for ticks older than the open candle's period.
	OnDroppedTick func()
}

// New creates an Aggregator for tf retaining up to history closed candles.
func New(tf model.Timeframe, history int) *Aggregator {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Aggregator{
		tf:       tf,
		periodMs: tf.PeriodMs(),
		closed:   ringbuf.New[model.Candle](history),
	}
}

// Timeframe returns the aggregation timeframe.
func (a *Aggregator) Timeframe() model.Timeframe { return a.tf }

// PeriodStart returns floor(ts/period)*period in Unix milliseconds.
func (a *Aggregator) PeriodStart(ts time.Time) int64 {
	return periodStart(ts.UnixMilli(), a.periodMs)
}

func periodStart(ms, periodMs int64) int64 {
	id := ms / periodMs
	if ms < 0 && ms%periodMs != 0 {
		id--
	}
	return id * periodMs
}

// Ingest incorporates one tick. When the tick belongs to a later period than
// the open candle, the open candle is closed, appended to history and returned
// in the event, and a new candle is opened at the tick's period.
func (a *Aggregator) Ingest(price float64, ts time.Time) (ClosedCandleEvent, bool) {
	start := a.PeriodStart(ts)

	if a.current == nil {
		a.open(price, start)
		return ClosedCandleEvent{}, false
	}

	switch {
	case start == a.current.Time:
		c := a.current
		if price > c.High {
			c.High = price
		}
		if price < c.Low {
			c.Low = price
		}
		c.Close = price
		return ClosedCandleEvent{}, false

	case start < a.current.Time:
		// Late tick: its period is already closed.
		if a.OnDroppedTick != nil {
			a.OnDroppedTick()
		}
		return ClosedCandleEvent{}, false
	}

	done := *a.current
	done.Closed = true
	_, evicted := a.closed.Push(done)
	a.open(price, start)

	return ClosedCandleEvent{
		Timeframe: a.tf,
		Candle:    done,
		History:   a.closed.Items(),
		Evicted:   evicted,
	}, true
}

func (a *Aggregator) open(price float64, start int64) {
	a.current = &model.Candle{
		Time:  start,
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
	}
}

// Seed appends already-closed historical candles, oldest first, without
// requiring live ticks. Candles at or after the open candle's period are skipped.
func (a *Aggregator) Seed(candles []model.Candle) int {
	n := 0
	for _, c := range candles {
		if a.current != nil && c.Time >= a.current.Time {
			continue
		}
		if last, ok := a.closed.Last(); ok && c.Time <= last.Time {
			continue
		}
		c.Closed = true
		a.closed.Push(c)
		n++
	}
	return n
}

// Resize changes the closed-history capacity, keeping the newest candles
// that still fit. It reports whether any candle was dropped.
func (a *Aggregator) Resize(history int) bool {
	if history <= 0 {
		history = DefaultHistory
	}
	before := a.closed.Len()
	a.closed.Resize(history)
	return a.closed.Len() < before
}

// Cap returns the closed-history capacity.
func (a *Aggregator) Cap() int { return a.closed.Cap() }

// Snapshot returns closed history plus the in-progress candle, if any.
func (a *Aggregator) Snapshot() []model.Candle {
	out := a.closed.Items()
	if a.current != nil {
		out = append(out, *a.current)
	}
	return out
}

// Closed returns a copy of the closed history, oldest first.
func (a *Aggregator) Closed() []model.Candle {
	return a.closed.Items()
}

// Current returns the in-progress candle.
func (a *Aggregator) Current() (model.Candle, bool) {
	if a.current == nil {
		return model.Candle{}, false
	}
	return *a.current, true
}

// Len returns the number of candles Snapshot would return.
func (a *Aggregator) Len() int {
	if a.current != nil {
		return a.closed.Len() + 1
	}
	return a.closed.Len()
}
