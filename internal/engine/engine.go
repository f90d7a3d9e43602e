// Package engine runs the live signal pipeline: it turns ticks into
// per-timeframe snapshots, fuses them, weighs the result against the
// historical backtest and publishes one message per complete reading.
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/johanriascos7777/ReversionMediaTrading/config"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/backtest"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/metrics"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/percentile"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/state"
)

// Options wires an Engine to its instrument and collaborators.
type Options struct {
	Market string
	Symbol string
	Fast   model.Timeframe
	Slow   model.Timeframe

	// HistoryLimit is the number of candles requested per timeframe at warm-up.
	HistoryLimit int

	Publisher model.Publisher
	Metrics   *metrics.Metrics      // nil registers on a private registry
	Health    *metrics.HealthStatus // optional

	// OnDecisionChange is called when the fused decision state differs from
	// the previous message's. It runs on the tick path with the message lock
	// held; it must not block or call back into the Engine.
	OnDecisionChange func(prev model.State, msg model.SnapshotMessage)
}

// Engine owns the per-timeframe pipelines, the percentile registry and the
// current backtest result for one instrument.
type Engine struct {
	opts     Options
	store    *config.Store
	registry *percentile.Registry
	fast     *pipeline
	slow     *pipeline
	prom     *metrics.Metrics
	log      *slog.Logger

	histMu  sync.RWMutex
	history map[model.Timeframe][]model.Candle

	result atomic.Pointer[model.BacktestResult]
	btGen  atomic.Uint64
	btWG   sync.WaitGroup

	msgMu sync.Mutex
	last  *model.SnapshotMessage
}

// New creates an Engine reading its signal parameters from store. Parameter
// changes take effect on the next tick. A changed candle history or
// percentile window resizes the live state, and changed replay inputs re-run
// the backtest.
func New(opts Options, store *config.Store) *Engine {
	sig := store.Get()
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 500
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics(prometheus.NewRegistry())
	}
	if opts.Publisher == nil {
		opts.Publisher = discard{}
	}

	e := &Engine{
		opts:     opts,
		store:    store,
		registry: percentile.NewRegistry(sig.PercentileWindow),
		prom:     opts.Metrics,
		log:      logger.Component("engine"),
		history:  make(map[model.Timeframe][]model.Candle),
	}
	e.fast = newPipeline(e.key(opts.Fast), sig.CandleHistory, sig.IndicatorParams())
	e.slow = newPipeline(e.key(opts.Slow), sig.CandleHistory, sig.IndicatorParams())
	for _, p := range e.pipelines() {
		p.onDroppedTick(e.prom.DroppedTicks.Inc)
	}

	store.Subscribe(e.onSignalChange)
	return e
}

func (e *Engine) key(tf model.Timeframe) model.InstrumentKey {
	return model.InstrumentKey{Market: e.opts.Market, Instrument: e.opts.Symbol, Timeframe: tf}
}

func (e *Engine) pipelines() []*pipeline { return []*pipeline{e.fast, e.slow} }

// Registry exposes the live percentile trackers.
func (e *Engine) Registry() *percentile.Registry { return e.registry }

// ProcessTick feeds one tick to every timeframe. It returns the published
// message when every timeframe produced a snapshot; otherwise ok is false and
// nothing is published.
func (e *Engine) ProcessTick(t model.Tick) (model.SnapshotMessage, bool) {
	if !t.Valid() {
		e.prom.MalformedMessages.Inc()
		return model.SnapshotMessage{}, false
	}
	start := time.Now()
	defer func() { e.prom.TickProcessDur.Observe(time.Since(start).Seconds()) }()

	e.prom.TicksTotal.Inc()
	if e.opts.Health != nil {
		e.opts.Health.SetLastTickTime(t.TickTS)
	}

	sig := e.store.Get()
	ip, th := sig.IndicatorParams(), sig.Thresholds()

	var snaps [2]*model.Snapshot
	for i, p := range e.pipelines() {
		ev, snap, closed := p.ingest(t, e.registry, ip, th)
		if closed {
			e.candleClosed(ev.Timeframe, ev.Candle, len(ev.History))
		}
		snaps[i] = snap
	}
	if snaps[0] == nil || snaps[1] == nil {
		return model.SnapshotMessage{}, false
	}
	return e.publish(*snaps[0], *snaps[1], t.TickTS.UnixMilli(), sig), true
}

func (e *Engine) candleClosed(tf model.Timeframe, c model.Candle, history int) {
	e.prom.CandlesTotal.WithLabelValues(string(tf)).Inc()
	if e.opts.Health != nil {
		e.opts.Health.SetCandles(string(tf), history)
	}
	e.log.Info("candle closed",
		"tf", tf,
		"start", candleTime(c.Time).Format(time.RFC3339),
		"o", c.Open, "h", c.High, "l", c.Low, "c", c.Close,
		"history", history)
}

// publish fuses two snapshots with the current backtest into a message and
// hands it to the publisher.
func (e *Engine) publish(fast, slow model.Snapshot, ts int64, sig config.Signal) model.SnapshotMessage {
	e.msgMu.Lock()
	defer e.msgMu.Unlock()

	msg, prev := e.fuseLocked(fast, slow, ts, sig)
	e.emit(msg, prev)
	return msg
}

// fuseLocked builds the message and records it as the latest. Must be called
// with e.msgMu held.
func (e *Engine) fuseLocked(fast, slow model.Snapshot, ts int64, sig config.Signal) (model.SnapshotMessage, *model.SnapshotMessage) {
	live := state.FuseTimeframes(fast.State, slow.State)
	cmp := e.compare(live, fast.Elasticity, sig.Epsilon)

	msg := model.SnapshotMessage{
		Type:       model.MsgSnapshot,
		Fast:       fast,
		Slow:       slow,
		FinalState: live,
		Comparison: cmp,
		Decision:   state.Decide(live, cmp, sig.Cutoffs()),
		TS:         ts,
	}
	prev := e.last
	e.last = &msg
	return msg, prev
}

// emit publishes msg. Must be called with e.msgMu held so messages leave in
// the order they were recorded as latest.
func (e *Engine) emit(msg model.SnapshotMessage, prev *model.SnapshotMessage) {
	e.opts.Publisher.Publish(model.MsgSnapshot, msg.JSON())
	e.prom.SnapshotsPublished.Inc()
	e.prom.DecisionState.Set(metrics.StateValue(string(msg.Decision.State)))

	if prev != nil && prev.Decision.State == msg.Decision.State {
		return
	}
	var was model.State
	if prev != nil {
		was = prev.Decision.State
	}
	e.log.Info("decision changed", "from", was, "to", msg.Decision.State, "why", msg.Decision.Explanation)
	if e.opts.OnDecisionChange != nil {
		e.opts.OnDecisionChange(was, msg)
	}
}

// compare weighs the live reading against the current backtest. A nil
// result means the backtest is not ready.
func (e *Engine) compare(live model.State, elasticity, eps float64) *model.ComparisonResult {
	res := e.result.Load()
	if res == nil {
		return nil
	}
	c := backtest.Compare(live, elasticity, *res, eps)
	return &c
}

// refresh re-fuses the latest snapshots against the current backtest and
// republishes when a message has already been sent.
func (e *Engine) refresh() {
	e.msgMu.Lock()
	defer e.msgMu.Unlock()
	if e.last == nil {
		return
	}
	msg, prev := e.fuseLocked(e.last.Fast, e.last.Slow, e.last.TS, e.store.Get())
	e.emit(msg, prev)
}

// ReportFeedStatus publishes an upstream connection transition.
func (e *Engine) ReportFeedStatus(s model.FeedStatus, message string) {
	connected := s == model.FeedConnected
	if connected {
		e.prom.FeedConnected.Set(1)
	} else {
		e.prom.FeedConnected.Set(0)
	}
	if e.opts.Health != nil {
		e.opts.Health.SetFeedConnected(connected)
	}
	msg := model.StatusMessage{Type: model.MsgStatus, Status: s, Message: message}
	e.opts.Publisher.Publish(model.MsgStatus, msg.JSON())
}

func (e *Engine) onSignalChange(old, next config.Signal) {
	if old.CandleHistory != next.CandleHistory {
		for _, p := range e.pipelines() {
			p.resize(next.CandleHistory)
		}
		e.log.Info("candle history resized", "from", old.CandleHistory, "to", next.CandleHistory)
	}
	if old.PercentileWindow != next.PercentileWindow {
		e.registry.Resize(next.PercentileWindow)
		e.log.Info("percentile window resized", "from", old.PercentileWindow, "to", next.PercentileWindow)
	}
	if old.BacktestChanged(next) {
		e.StartBacktest()
	}
}

type discard struct{}

func (discard) Publish(string, []byte) {}
