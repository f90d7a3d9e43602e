package engine

import "github.com/johanriascos7777/ReversionMediaTrading/internal/model"

// History returns the retained historical batch of tf, oldest first.
func (e *Engine) History(tf model.Timeframe) []model.Candle {
	e.histMu.RLock()
	defer e.histMu.RUnlock()
	out := make([]model.Candle, len(e.history[tf]))
	copy(out, e.history[tf])
	return out
}

// Backtest returns the current backtest result.
func (e *Engine) Backtest() (model.BacktestResult, bool) {
	res := e.result.Load()
	if res == nil {
		return model.BacktestResult{}, false
	}
	return *res, true
}

// LastMessage returns the most recently published snapshot message.
func (e *Engine) LastMessage() (model.SnapshotMessage, bool) {
	e.msgMu.Lock()
	defer e.msgMu.Unlock()
	if e.last == nil {
		return model.SnapshotMessage{}, false
	}
	return *e.last, true
}

// Decision returns the latest comparison and fused decision.
func (e *Engine) Decision() (*model.ComparisonResult, model.FusedDecision, bool) {
	msg, ok := e.LastMessage()
	if !ok {
		return nil, model.FusedDecision{}, false
	}
	return msg.Comparison, msg.Decision, true
}

// Candles returns the live candle series of tf: closed history plus the
// in-progress candle.
func (e *Engine) Candles(tf model.Timeframe) []model.Candle {
	for _, p := range e.pipelines() {
		if p.key.Timeframe == tf {
			return p.candles()
		}
	}
	return nil
}

// CandleCounts returns the live series length per timeframe.
func (e *Engine) CandleCounts() map[model.Timeframe]int {
	out := make(map[model.Timeframe]int, 2)
	for _, p := range e.pipelines() {
		out[p.key.Timeframe] = p.len()
	}
	return out
}

// Timeframes returns the fast and slow timeframes.
func (e *Engine) Timeframes() (fast, slow model.Timeframe) {
	return e.opts.Fast, e.opts.Slow
}
