package engine

import (
	"context"
	"time"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/backtest"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// WarmUp fetches the historical batch of every timeframe, seeds the
// aggregators with it and publishes an initial message when every timeframe
// is ready. It then starts the backtest over the fast timeframe's batch.
//
// A timeframe whose fetch fails starts cold; WarmUp itself never fails.
func (e *Engine) WarmUp(ctx context.Context, provider model.HistoryProvider) {
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID("warmup"))

	for _, p := range e.pipelines() {
		if ctx.Err() != nil {
			return
		}
		tf := p.key.Timeframe
		candles := provider.FetchCandles(ctx, tf, e.opts.HistoryLimit)
		if len(candles) == 0 {
			e.prom.HistoryFetchFailures.WithLabelValues(string(tf)).Inc()
			e.log.Warn("no historical candles, starting cold", append(logger.LogWithTrace(ctx), "tf", tf)...)
			continue
		}

		e.histMu.Lock()
		e.history[tf] = append([]model.Candle(nil), candles...)
		e.histMu.Unlock()

		n := p.seed(candles)
		if e.opts.Health != nil {
			e.opts.Health.SetCandles(string(tf), p.len())
		}
		e.log.Info("seeded historical candles", append(logger.LogWithTrace(ctx), "tf", tf, "fetched", len(candles), "seeded", n)...)
	}

	sig := e.store.Get()
	ip, th := sig.IndicatorParams(), sig.Thresholds()
	fast := e.fast.evaluateLast(e.registry, ip, th)
	slow := e.slow.evaluateLast(e.registry, ip, th)
	if fast != nil && slow != nil {
		ts := fast.Timestamp
		if slow.Timestamp > ts {
			ts = slow.Timestamp
		}
		e.publish(*fast, *slow, ts, sig)
	}

	e.StartBacktest()
}

// StartBacktest replays the fast timeframe's historical batch in the
// background. A run superseded by a later one discards its result.
func (e *Engine) StartBacktest() {
	gen := e.btGen.Add(1)
	candles := e.History(e.opts.Fast)
	cfg := e.store.Get().BacktestConfig()

	e.btWG.Add(1)
	go func() {
		defer e.btWG.Done()
		res, ok := e.runBacktest(candles, cfg)
		if e.btGen.Load() != gen {
			return
		}
		if !ok {
			e.result.Store(nil)
			if e.opts.Health != nil {
				e.opts.Health.SetBacktestReady(false)
			}
			return
		}
		e.result.Store(&res)
		if e.opts.Health != nil {
			e.opts.Health.SetBacktestReady(true)
		}
		e.refresh()
	}()
}

func (e *Engine) runBacktest(candles []model.Candle, cfg backtest.Config) (model.BacktestResult, bool) {
	if err := cfg.Validate(); err != nil {
		e.log.Error("backtest config rejected", "err", err)
		return model.BacktestResult{}, false
	}
	if !cfg.Eligible(len(candles)) {
		e.log.Warn("backtest not ready: insufficient history", "candles", len(candles), "min", cfg.MinCandles)
		return model.BacktestResult{}, false
	}

	start := time.Now()
	res := backtest.Run(candles, cfg)
	elapsed := time.Since(start)
	e.prom.BacktestDur.Observe(elapsed.Seconds())
	e.prom.BacktestSignals.Set(float64(res.TotalSignals))
	e.log.Info("backtest complete",
		"candles", len(candles),
		"signals", res.TotalSignals,
		"wins", res.Wins,
		"win_rate", res.WinRate,
		"avg_bars", res.AvgBarsToRevert,
		"mode", cfg.Mode,
		"elapsed", elapsed)
	return res, true
}

// WaitBacktest blocks until every started backtest has finished.
func (e *Engine) WaitBacktest() { e.btWG.Wait() }
