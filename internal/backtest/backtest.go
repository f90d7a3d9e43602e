// Package backtest replays a historical candle series through the signal
// classifier and records how each GREEN entry played out, then compares a
// live reading against that history.
package backtest

import (
	"fmt"
	"math"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/indicator"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/percentile"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/state"
)

// MinRangeATR replaces the per-candle ATR proxy on zero-range candles.
const MinRangeATR = 0.0001

// Config configures a replay.
type Config struct {
	EMAPeriod        int
	MaxBarsToRevert  int
	PercentileWindow int
	// MinCandles is the shortest series worth replaying. Run itself accepts
	// any length; callers use Eligible to decide whether to run at all.
	MinCandles int
	Mode       indicator.Mode
	Thresholds state.Thresholds
}

// DefaultConfig mirrors the live defaults with the simple-average reference line.
func DefaultConfig() Config {
	return Config{
		EMAPeriod:        100,
		MaxBarsToRevert:  20,
		PercentileWindow: percentile.DefaultCapacity,
		MinCandles:       110,
		Mode:             indicator.SimpleAverage,
		Thresholds:       state.DefaultThresholds(),
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.EMAPeriod < 1 {
		return fmt.Errorf("backtest: ema period must be positive, got %d", c.EMAPeriod)
	}
	if c.MaxBarsToRevert < 1 {
		return fmt.Errorf("backtest: max bars to revert must be positive, got %d", c.MaxBarsToRevert)
	}
	return c.Thresholds.Validate()
}

// Eligible reports whether a series of n candles is long enough to replay.
func (c Config) Eligible(n int) bool {
	min := c.MinCandles
	if min < c.EMAPeriod+1 {
		min = c.EMAPeriod + 1
	}
	return n >= min
}

// Run replays candles and returns the event log with aggregate statistics.
//
// For every index from EMAPeriod on, the reference line is taken over the
// preceding EMAPeriod closes, the candle's own high-low range stands in for
// ATR, and the close is ranked by a private percentile tracker. GREEN bars
// become events; each is scanned forward for the first bar that crosses back
// through the reference line.
//
// Run is pure: the same candles and config always produce the same result.
func Run(candles []model.Candle, cfg Config) model.BacktestResult {
	res := model.BacktestResult{Events: []model.BacktestEvent{}}
	p := cfg.EMAPeriod
	if p < 1 || len(candles) <= p {
		return res
	}

	tracker := percentile.NewTracker(cfg.PercentileWindow)
	ref := indicator.NewReference(cfg.Mode, p)
	for _, c := range candles[:p] {
		ref.Update(c)
	}

	for i := p; i < len(candles); i++ {
		c := candles[i]
		line := ref.Value()
		ref.Update(c)

		atr := math.Abs(c.High - c.Low)
		if atr == 0 {
			atr = MinRangeATR
		}
		e := indicator.Elasticity(c.Close, line, atr)
		pct := tracker.Push(e)

		st := state.Classify(e, pct, cfg.Thresholds)
		if st != model.StateGreen {
			continue
		}

		ev := model.BacktestEvent{
			EntryIndex:   i,
			ExitIndex:    model.NoExit,
			BarsToRevert: cfg.MaxBarsToRevert,
			State:        st,
			Elasticity:   e,
		}
		for j := 1; j <= cfg.MaxBarsToRevert && i+j < len(candles); j++ {
			next := candles[i+j]
			if (c.Close > line && next.Low <= line) || (c.Close < line && next.High >= line) {
				ev.ExitIndex = i + j
				ev.BarsToRevert = j
				break
			}
		}
		res.Events = append(res.Events, ev)
	}

	res.TotalSignals = len(res.Events)
	bars := 0
	for _, ev := range res.Events {
		if ev.Won() {
			res.Wins++
			bars += ev.BarsToRevert
		}
	}
	if res.TotalSignals > 0 {
		res.WinRate = math.Round(100 * float64(res.Wins) / float64(res.TotalSignals))
	}
	if res.Wins > 0 {
		res.AvgBarsToRevert = math.Round(float64(bars) / float64(res.Wins))
	}
	return res
}
