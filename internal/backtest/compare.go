package backtest

import (
	"math"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// DefaultEpsilon is the elasticity distance below which two readings match.
const DefaultEpsilon = 0.1

// Compare summarizes the events in res that share st and whose elasticity is
// within epsilon (exclusive) of elasticity. A non-positive epsilon uses
// DefaultEpsilon.
//
// WinRate is not rounded. AvgBarsToRevert averages every matched event,
// losses included, so it is not the same figure as the replay's own
// wins-only average.
func Compare(st model.State, elasticity float64, res model.BacktestResult, epsilon float64) model.ComparisonResult {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	var out model.ComparisonResult
	wins, bars := 0, 0
	for _, ev := range res.Events {
		if ev.State != st || math.Abs(ev.Elasticity-elasticity) >= epsilon {
			continue
		}
		out.SimilarSignals++
		bars += ev.BarsToRevert
		if ev.Won() {
			wins++
		}
	}
	if out.SimilarSignals == 0 {
		return out
	}
	out.WinRate = 100 * float64(wins) / float64(out.SimilarSignals)
	out.AvgBarsToRevert = float64(bars) / float64(out.SimilarSignals)
	return out
}
