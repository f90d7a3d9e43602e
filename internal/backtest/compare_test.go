package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

func event(st model.State, e float64, exit, bars int) model.BacktestEvent {
	return model.BacktestEvent{EntryIndex: 1, ExitIndex: exit, BarsToRevert: bars, State: st, Elasticity: e}
}

func TestCompare_NoMatches(t *testing.T) {
	res := model.BacktestResult{Events: []model.BacktestEvent{event(model.StateGreen, 3.0, 5, 2)}}

	got := Compare(model.StateGreen, 1.0, res, 0.1)
	assert.Equal(t, model.ComparisonResult{}, got)

	got = Compare(model.StateYellow, 3.0, res, 0.1)
	assert.Equal(t, model.ComparisonResult{}, got)

	assert.Equal(t, model.ComparisonResult{}, Compare(model.StateGreen, 1, model.BacktestResult{}, 0))
}

func TestCompare_FiltersAndAverages(t *testing.T) {
	res := model.BacktestResult{Events: []model.BacktestEvent{
		event(model.StateGreen, 2.00, 10, 2),
		event(model.StateGreen, 2.05, model.NoExit, 20),
		event(model.StateGreen, 1.95, 12, 5),
		event(model.StateGreen, 2.10, 13, 1), // |Δ| == eps, excluded
		event(model.StateGreen, 3.50, 14, 1),
		event(model.StateYellow, 2.00, 15, 1),
	}}

	got := Compare(model.StateGreen, 2.0, res, 0.1)
	assert.Equal(t, 3, got.SimilarSignals)
	assert.InDelta(t, 200.0/3.0, got.WinRate, 1e-9, "win rate is not rounded")
	assert.InDelta(t, 9.0, got.AvgBarsToRevert, 1e-9, "average includes the loss")
}

func TestCompare_DefaultEpsilon(t *testing.T) {
	res := model.BacktestResult{Events: []model.BacktestEvent{
		event(model.StateGreen, 2.05, 3, 3),
		event(model.StateGreen, 2.2, 3, 3),
	}}
	assert.Equal(t, 1, Compare(model.StateGreen, 2.0, res, 0).SimilarSignals)
	assert.Equal(t, 2, Compare(model.StateGreen, 2.0, res, 0.5).SimilarSignals)
}
