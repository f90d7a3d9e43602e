package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

const (
	G = model.StateGreen
	Y = model.StateYellow
	R = model.StateRed
)

func TestClassify(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name       string
		elasticity float64
		percentile float64
		want       model.State
	}{
		{"inside band", 2.0, 90, G},
		{"percentile at green bound", 2.0, 80, G},
		{"elasticity at max", 5.5, 95, G},
		{"elasticity at min", 1.0, 95, G},
		{"elasticity above max", 5.51, 95, Y},
		{"elasticity below min", 0.99, 95, Y},
		{"yellow percentile", 2.0, 79.9, Y},
		{"percentile at yellow bound", 0.2, 60, Y},
		{"red", 2.0, 59.9, R},
		{"zero reading", 0, 0, R},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.elasticity, tc.percentile, th))
		})
	}
}

func TestFuseTimeframes_AllPairs(t *testing.T) {
	want := map[[2]model.State]model.State{
		{G, G}: G, {G, Y}: Y, {G, R}: R,
		{Y, G}: R, {Y, Y}: R, {Y, R}: R,
		{R, G}: R, {R, Y}: R, {R, R}: R,
	}
	for pair, exp := range want {
		assert.Equal(t, exp, FuseTimeframes(pair[0], pair[1]), "fast=%s slow=%s", pair[0], pair[1])
	}
}

func TestDecide_FusionTable(t *testing.T) {
	c := DefaultCutoffs()
	cmp := func(n int, wr float64) *model.ComparisonResult {
		return &model.ComparisonResult{SimilarSignals: n, WinRate: wr, AvgBarsToRevert: 4}
	}

	assert.Equal(t, G, Decide(G, cmp(10, 70), c).State)
	assert.Equal(t, R, Decide(G, cmp(10, 30), c).State)
	assert.Equal(t, Y, Decide(G, cmp(10, 50), c).State)
	assert.Equal(t, Y, Decide(G, cmp(0, 0), c).State)
	assert.Equal(t, Y, Decide(G, cmp(0, 90), c).State, "no precedent never degrades or promotes")
	assert.Equal(t, Y, Decide(G, nil, c).State)
}

func TestDecide_HistoryNeverPromotes(t *testing.T) {
	c := DefaultCutoffs()
	strong := &model.ComparisonResult{SimilarSignals: 25, WinRate: 100}
	assert.Equal(t, Y, Decide(Y, strong, c).State)
	assert.Equal(t, Y, Decide(R, strong, c).State)

	weak := &model.ComparisonResult{SimilarSignals: 25, WinRate: 10}
	assert.Equal(t, R, Decide(Y, weak, c).State)
}

func TestDecide_BoundaryAndExplanation(t *testing.T) {
	c := DefaultCutoffs()
	d := Decide(G, &model.ComparisonResult{SimilarSignals: 12, WinRate: 65, AvgBarsToRevert: 3.5}, c)
	assert.Equal(t, G, d.State, "win rate equal to the green cutoff is GREEN")
	assert.Contains(t, d.Explanation, "12 similar signals")
	assert.Contains(t, d.Explanation, "65%")
	assert.Contains(t, d.Explanation, "3.5 bars")

	assert.Equal(t, Y, Decide(G, &model.ComparisonResult{SimilarSignals: 3, WinRate: 40}, c).State,
		"win rate equal to the red cutoff is not RED")
}

func TestDecide_CustomCutoffs(t *testing.T) {
	c := Cutoffs{GreenWinRate: 80, RedWinRate: 50}
	assert.Equal(t, Y, Decide(G, &model.ComparisonResult{SimilarSignals: 5, WinRate: 70}, c).State)
	assert.Equal(t, R, Decide(G, &model.ComparisonResult{SimilarSignals: 5, WinRate: 45}, c).State)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.NoError(t, DefaultCutoffs().Validate())

	bad := DefaultThresholds()
	bad.ElasticityMin = 6
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.PercentileYellowMin = 90
	assert.Error(t, bad.Validate())

	assert.Error(t, Cutoffs{GreenWinRate: 30, RedWinRate: 40}.Validate())
}
