package state

import (
	"fmt"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// Cutoffs are the historical win-rate bounds used by Decide.
type Cutoffs struct {
	GreenWinRate float64 `json:"win_rate_green" yaml:"win_rate_green"`
	RedWinRate   float64 `json:"win_rate_red" yaml:"win_rate_red"`
}

// DefaultCutoffs returns 65/40.
func DefaultCutoffs() Cutoffs {
	return Cutoffs{GreenWinRate: 65, RedWinRate: 40}
}

// Validate checks RedWinRate <= GreenWinRate within [0,100].
func (c Cutoffs) Validate() error {
	if c.RedWinRate < 0 || c.GreenWinRate > 100 || c.RedWinRate > c.GreenWinRate {
		return fmt.Errorf("win-rate cutoffs red=%.2f green=%.2f are invalid", c.RedWinRate, c.GreenWinRate)
	}
	return nil
}

// Decide weighs the live state against the historical comparison. Rules are
// applied in order and the first match wins:
//
//  1. no comparison: YELLOW
//  2. no similar signals: YELLOW
//  3. live GREEN and win rate >= GreenWinRate: GREEN
//  4. win rate < RedWinRate: RED, even over a live GREEN
//  5. otherwise YELLOW
//
// GREEN therefore needs both a live GREEN and historical support; history
// can demote a live GREEN but never promote anything else.
func Decide(live model.State, cmp *model.ComparisonResult, c Cutoffs) model.FusedDecision {
	switch {
	case cmp == nil:
		return model.FusedDecision{
			State:       model.StateYellow,
			Explanation: "insufficient history: backtest not ready",
		}

	case cmp.SimilarSignals == 0:
		return model.FusedDecision{
			State:       model.StateYellow,
			Explanation: "no historical precedent for the current reading",
		}

	case live == model.StateGreen && cmp.WinRate >= c.GreenWinRate:
		return model.FusedDecision{
			State: model.StateGreen,
			Explanation: fmt.Sprintf("live GREEN confirmed: %d similar signals, %.0f%% reverted, avg %.1f bars to revert",
				cmp.SimilarSignals, cmp.WinRate, cmp.AvgBarsToRevert),
		}

	case cmp.WinRate < c.RedWinRate:
		return model.FusedDecision{
			State: model.StateRed,
			Explanation: fmt.Sprintf("statistically unsupported: %.0f%% win rate over %d similar signals",
				cmp.WinRate, cmp.SimilarSignals),
		}
	}

	return model.FusedDecision{
		State: model.StateYellow,
		Explanation: fmt.Sprintf("insufficient conviction: live %s, %.0f%% win rate over %d similar signals",
			live, cmp.WinRate, cmp.SimilarSignals),
	}
}
