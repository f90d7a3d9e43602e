package backtest

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/indicator"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

func c(open, high, low, close float64) model.Candle {
	return model.Candle{Open: open, High: high, Low: low, Close: close, Closed: true}
}

// spikeSeries returns 100 flat candles at 1.0, a spike at index 100
// (close 1.01, range 0.004, elasticity 2.5 vs the 1.0 reference) and then
// tail candles produced by tail(i).
func spikeSeries(n int, tail func(i int) model.Candle) []model.Candle {
	out := make([]model.Candle, 0, n)
	for i := 0; i < 100; i++ {
		out = append(out, c(1, 1, 1, 1))
	}
	out = append(out, c(1.0, 1.012, 1.008, 1.01))
	for i := 101; i < n; i++ {
		out = append(out, tail(i))
	}
	return out
}

func TestRun_SpikeRevertsNextBar(t *testing.T) {
	candles := spikeSeries(120, func(int) model.Candle { return c(1.0, 1.001, 0.999, 1.0) })

	res := Run(candles, DefaultConfig())

	require.Equal(t, 1, res.TotalSignals)
	ev := res.Events[0]
	assert.Equal(t, 100, ev.EntryIndex)
	assert.Equal(t, 101, ev.ExitIndex)
	assert.Equal(t, 1, ev.BarsToRevert)
	assert.Equal(t, model.StateGreen, ev.State)
	assert.InDelta(t, 2.5, ev.Elasticity, 1e-6)

	assert.Equal(t, 1, res.Wins)
	assert.Equal(t, 100.0, res.WinRate)
	assert.Equal(t, 1.0, res.AvgBarsToRevert)
}

func TestRun_RevertsLaterBar(t *testing.T) {
	candles := spikeSeries(120, func(i int) model.Candle {
		if i < 104 {
			// stays above the reference line, elasticity far outside the band
			return c(1.01, 1.0101, 1.0099, 1.01)
		}
		return c(1.0, 1.001, 0.999, 1.0)
	})

	res := Run(candles, DefaultConfig())
	require.NotEmpty(t, res.Events)
	ev := res.Events[0]
	assert.Equal(t, 100, ev.EntryIndex)
	assert.Equal(t, 104, ev.ExitIndex)
	assert.Equal(t, 4, ev.BarsToRevert)
}

func TestRun_NoReversionIsLoss(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBarsToRevert = 5
	candles := spikeSeries(130, func(int) model.Candle { return c(1.02, 1.021, 1.019, 1.02) })

	res := Run(candles, cfg)
	require.Equal(t, 1, res.TotalSignals)
	ev := res.Events[0]
	assert.Equal(t, model.NoExit, ev.ExitIndex)
	assert.Equal(t, 5, ev.BarsToRevert)
	assert.False(t, ev.Won())
	assert.Zero(t, res.Wins)
	assert.Zero(t, res.WinRate)
	assert.Zero(t, res.AvgBarsToRevert, "average covers wins only")
}

func TestRun_HorizonTruncatedAtSeriesEnd(t *testing.T) {
	candles := spikeSeries(101, nil)
	res := Run(candles, DefaultConfig())
	require.Equal(t, 1, res.TotalSignals)
	assert.Equal(t, model.NoExit, res.Events[0].ExitIndex)
	assert.Equal(t, 20, res.Events[0].BarsToRevert)
}

func TestRun_ShortSeries(t *testing.T) {
	res := Run(make([]model.Candle, 100), DefaultConfig())
	assert.Zero(t, res.TotalSignals)
	assert.NotNil(t, res.Events)
}

func randomWalk(seed int64, n int) []model.Candle {
	rng := rand.New(rand.NewSource(seed))
	out := make([]model.Candle, n)
	price := 1.10
	for i := range out {
		open := price
		price += (rng.Float64() - 0.5) * 0.002
		hi := max(open, price) + rng.Float64()*0.0005
		lo := min(open, price) - rng.Float64()*0.0005
		out[i] = c(open, hi, lo, price)
	}
	return out
}

func TestRun_Deterministic(t *testing.T) {
	candles := randomWalk(42, 500)
	for _, mode := range []indicator.Mode{indicator.SimpleAverage, indicator.Exponential} {
		cfg := DefaultConfig()
		cfg.Mode = mode

		a := Run(candles, cfg)
		b := Run(candles, cfg)
		require.Equal(t, a, b)

		ja, err := json.Marshal(a)
		require.NoError(t, err)
		jb, err := json.Marshal(b)
		require.NoError(t, err)
		assert.Equal(t, ja, jb, "mode %s", mode)
	}
}

func TestRun_AggregatesMatchEvents(t *testing.T) {
	res := Run(randomWalk(7, 500), DefaultConfig())

	wins, bars := 0, 0
	for i, ev := range res.Events {
		assert.Equal(t, model.StateGreen, ev.State)
		if i > 0 {
			assert.Greater(t, ev.EntryIndex, res.Events[i-1].EntryIndex)
		}
		if ev.Won() {
			wins++
			bars += ev.BarsToRevert
			assert.Equal(t, ev.EntryIndex+ev.BarsToRevert, ev.ExitIndex)
		}
	}
	assert.Equal(t, len(res.Events), res.TotalSignals)
	assert.Equal(t, wins, res.Wins)
}

func TestConfig_Eligible(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Eligible(109))
	assert.True(t, cfg.Eligible(110))

	cfg.MinCandles = 0
	assert.False(t, cfg.Eligible(100))
	assert.True(t, cfg.Eligible(101))
}
