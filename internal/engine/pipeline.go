package engine

import (
	"sync"
	"time"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/indicator"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/agg"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/percentile"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/state"
)

// pipeline owns the candle, indicator and percentile state of one timeframe.
// The mutex serializes every mutation in tick-arrival order.
type pipeline struct {
	mu   sync.Mutex
	key  model.InstrumentKey
	agg  *agg.Aggregator
	ind  *indicator.Engine
	last *model.Snapshot
}

func newPipeline(key model.InstrumentKey, history int, ip indicator.Params) *pipeline {
	return &pipeline{
		key: key,
		agg: agg.New(key.Timeframe, history),
		ind: indicator.NewEngine(ip),
	}
}

// ingest applies a tick and evaluates the timeframe at the tick's price.
func (p *pipeline) ingest(t model.Tick, reg *percentile.Registry, ip indicator.Params, th state.Thresholds) (agg.ClosedCandleEvent, *model.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev, closed := p.agg.Ingest(t.Price, t.TickTS)
	if closed {
		if ev.Evicted {
			p.ind.Restore(ev.History)
		} else {
			p.ind.Process(ev.Candle)
		}
	}
	return ev, p.evaluate(t.Price, t.TickTS.UnixMilli(), reg, ip, th), closed
}

// resize changes the closed-history capacity.
func (p *pipeline) resize(history int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.agg.Resize(history) {
		p.ind.Restore(p.agg.Closed())
	}
}

func (p *pipeline) capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agg.Cap()
}

// evaluateLast evaluates the timeframe at the newest candle's close. Used
// after seeding, before any live tick has arrived.
func (p *pipeline) evaluateLast(reg *percentile.Registry, ip indicator.Params, th state.Thresholds) *model.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.agg.Len() == 0 {
		return nil
	}
	candles := p.agg.Snapshot()
	last := candles[len(candles)-1]
	ts := last.Time + p.key.Timeframe.PeriodMs()
	return p.evaluate(last.Close, ts, reg, ip, th)
}

// evaluate must be called with p.mu held. Changed indicator parameters
// rebuild the streaming state from closed history first.
func (p *pipeline) evaluate(price float64, ts int64, reg *percentile.Registry, ip indicator.Params, th state.Thresholds) *model.Snapshot {
	if p.ind.Params() != ip {
		p.ind = indicator.NewEngine(ip)
		p.ind.Restore(p.agg.Closed())
	}
	var open *model.Candle
	if c, ok := p.agg.Current(); ok {
		open = &c
	}
	v, ok := p.ind.ProcessPeek(open, price)
	if !ok {
		return nil
	}
	pct := reg.Get(p.key).Push(v.Elasticity)
	snap := &model.Snapshot{
		Timeframe:  p.key.Timeframe,
		Price:      price,
		EMA:        v.Reference,
		ATR:        v.ATR,
		Elasticity: v.Elasticity,
		Percentile: pct,
		State:      state.Classify(v.Elasticity, pct, th),
		Timestamp:  ts,
	}
	p.last = snap
	return snap
}

func (p *pipeline) seed(candles []model.Candle) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.agg.Seed(candles)
	p.ind.Restore(p.agg.Closed())
	return n
}

func (p *pipeline) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agg.Len()
}

func (p *pipeline) candles() []model.Candle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agg.Snapshot()
}

func (p *pipeline) onDroppedTick(fn func()) {
	p.mu.Lock()
	p.agg.OnDroppedTick = fn
	p.mu.Unlock()
}

func candleTime(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
