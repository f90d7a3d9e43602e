package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanriascos7777/ReversionMediaTrading/config"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/metrics"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

type capture struct {
	mu   sync.Mutex
	msgs []captured
}

type captured struct {
	typ  string
	data []byte
}

func (c *capture) Publish(msgType string, data []byte) {
	c.mu.Lock()
	c.msgs = append(c.msgs, captured{msgType, data})
	c.mu.Unlock()
}

func (c *capture) ofType(typ string) []captured {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []captured
	for _, m := range c.msgs {
		if m.typ == typ {
			out = append(out, m)
		}
	}
	return out
}

type stubHistory map[model.Timeframe][]model.Candle

func (s stubHistory) FetchCandles(_ context.Context, tf model.Timeframe, limit int) []model.Candle {
	c := s[tf]
	if len(c) > limit {
		c = c[len(c)-limit:]
	}
	return c
}

var base = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func testSignal() config.Signal {
	s := config.DefaultSignal()
	s.EMAPeriod = 3
	s.ATRPeriod = 2
	s.CandleHistory = 50
	s.PercentileWindow = 10
	s.MinBacktestCandles = 10
	s.MaxBarsToRevert = 3
	return s
}

func newTestEngine(t *testing.T, pub model.Publisher) (*Engine, *config.Store, *metrics.Metrics) {
	t.Helper()
	store := config.NewStore(testSignal())
	m := metrics.NewMetrics(prometheus.NewRegistry())
	e := New(Options{
		Market:    "FOREX",
		Symbol:    "EUR/USD",
		Fast:      model.M5,
		Slow:      model.M15,
		Publisher: pub,
		Metrics:   m,
		Health:    metrics.NewHealthStatus(),
	}, store)
	return e, store, m
}

// series builds n closed candles of tf ending just before base.
func series(tf model.Timeframe, n int) []model.Candle {
	out := make([]model.Candle, n)
	start := base.UnixMilli() - int64(n)*tf.PeriodMs()
	for i := range out {
		px := 1.1000
		if i%4 == 1 {
			px = 1.1030
		}
		out[i] = model.Candle{
			Time:   start + int64(i)*tf.PeriodMs(),
			Open:   1.1000,
			High:   px + 0.0005,
			Low:    1.0995,
			Close:  px,
			Closed: true,
		}
	}
	return out
}

func tick(offset time.Duration, px float64) model.Tick {
	return model.Tick{Symbol: "EUR/USD", Price: px, TickTS: base.Add(offset)}
}

func TestProcessTick_NoMessageUntilEveryTimeframeIsWarm(t *testing.T) {
	pub := &capture{}
	e, _, _ := newTestEngine(t, pub)

	// One tick per M5 period: M5 is warm after 3 ticks, M15 after 7.
	for i := 0; i < 6; i++ {
		_, ok := e.ProcessTick(tick(time.Duration(i)*5*time.Minute, 1.1+float64(i)*0.0001))
		require.False(t, ok, "tick %d should not produce a message", i)
	}
	assert.Empty(t, pub.ofType(model.MsgSnapshot))

	msg, ok := e.ProcessTick(tick(30*time.Minute, 1.1010))
	require.True(t, ok)
	assert.Equal(t, model.MsgSnapshot, msg.Type)
	assert.Equal(t, model.M5, msg.Fast.Timeframe)
	assert.Equal(t, model.M15, msg.Slow.Timeframe)
	assert.Nil(t, msg.Comparison, "backtest has not run")
	assert.Equal(t, model.StateYellow, msg.Decision.State)
	assert.Contains(t, msg.Decision.Explanation, "insufficient history")

	sent := pub.ofType(model.MsgSnapshot)
	require.Len(t, sent, 1)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(sent[0].data, &decoded))
	assert.Equal(t, "snapshot", decoded["type"])
	assert.Contains(t, decoded, "finalState")
	assert.Nil(t, decoded["comparison"])
}

func TestProcessTick_RejectsInvalidTick(t *testing.T) {
	e, _, m := newTestEngine(t, &capture{})
	_, ok := e.ProcessTick(model.Tick{Price: 0, TickTS: base})
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedMessages))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TicksTotal))
}

func TestProcessTick_LateTickDropped(t *testing.T) {
	e, _, m := newTestEngine(t, &capture{})
	e.ProcessTick(tick(20*time.Minute, 1.1))
	e.ProcessTick(tick(14*time.Minute, 1.2))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DroppedTicks), "late for both timeframes")
	fast := e.Candles(model.M5)
	require.Len(t, fast, 1)
	assert.Equal(t, 1.1, fast[0].High, "late tick must not touch the open candle")
}

func TestProcessTick_ClosedCandlesNeverChange(t *testing.T) {
	e, _, _ := newTestEngine(t, &capture{})
	e.ProcessTick(tick(0, 1.10))
	e.ProcessTick(tick(time.Minute, 1.12))
	e.ProcessTick(tick(5*time.Minute, 1.11))

	closed := e.Candles(model.M5)[0]
	require.True(t, closed.Closed)
	for i := 0; i < 5; i++ {
		e.ProcessTick(tick(5*time.Minute+time.Duration(i)*time.Second, 1.2+float64(i)*0.01))
	}
	assert.Equal(t, closed, e.Candles(model.M5)[0])
}

func TestWarmUp_SeedsPublishesAndBacktests(t *testing.T) {
	pub := &capture{}
	var changes []model.State
	e, _, _ := newTestEngine(t, pub)
	e.opts.OnDecisionChange = func(_ model.State, msg model.SnapshotMessage) {
		changes = append(changes, msg.Decision.State)
	}

	hist := stubHistory{model.M5: series(model.M5, 40), model.M15: series(model.M15, 40)}
	e.WarmUp(context.Background(), hist)
	e.WaitBacktest()

	assert.Len(t, e.History(model.M5), 40)
	assert.Len(t, e.History(model.M15), 40)
	counts := e.CandleCounts()
	assert.Equal(t, 40, counts[model.M5])
	assert.Equal(t, 40, counts[model.M15])

	res, ok := e.Backtest()
	require.True(t, ok)
	assert.Equal(t, len(res.Events), res.TotalSignals)

	sent := pub.ofType(model.MsgSnapshot)
	require.Len(t, sent, 2, "initial snapshot, then a refresh once the backtest is ready")

	cmp, dec, ok := e.Decision()
	require.True(t, ok)
	require.NotNil(t, cmp)
	assert.True(t, dec.State.Valid())
	assert.NotEmpty(t, changes)
}

func TestWarmUp_FetchFailureStartsCold(t *testing.T) {
	pub := &capture{}
	e, _, m := newTestEngine(t, pub)

	e.WarmUp(context.Background(), stubHistory{})
	e.WaitBacktest()

	assert.Empty(t, pub.ofType(model.MsgSnapshot))
	_, ok := e.Backtest()
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryFetchFailures.WithLabelValues("M5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryFetchFailures.WithLabelValues("M15")))

	// Live ticks still build state.
	for i := 0; i < 7; i++ {
		e.ProcessTick(tick(time.Duration(i)*5*time.Minute, 1.1))
	}
	assert.Len(t, pub.ofType(model.MsgSnapshot), 1)
}

func TestWarmUp_ShortHistoryLeavesBacktestNotReady(t *testing.T) {
	e, _, _ := newTestEngine(t, &capture{})
	e.WarmUp(context.Background(), stubHistory{model.M5: series(model.M5, 6), model.M15: series(model.M15, 6)})
	e.WaitBacktest()

	_, ok := e.Backtest()
	assert.False(t, ok)
	cmp, dec, ok := e.Decision()
	require.True(t, ok)
	assert.Nil(t, cmp)
	assert.Equal(t, model.StateYellow, dec.State)
}

func TestSignalChange_ResizesTrackersAndRerunsBacktest(t *testing.T) {
	e, store, _ := newTestEngine(t, &capture{})
	e.WarmUp(context.Background(), stubHistory{model.M5: series(model.M5, 40), model.M15: series(model.M15, 40)})
	e.WaitBacktest()

	_, err := store.Patch(func(s *config.Signal) { s.PercentileWindow = 3 })
	require.NoError(t, err)
	tr, ok := e.Registry().Lookup(e.key(model.M5))
	require.True(t, ok)
	assert.Equal(t, 3, tr.Cap())

	// Raising the replay minimum above the batch makes the backtest not ready.
	_, err = store.Patch(func(s *config.Signal) { s.MinBacktestCandles = 1000 })
	require.NoError(t, err)
	e.WaitBacktest()
	_, ok = e.Backtest()
	assert.False(t, ok)
}

func TestReportFeedStatus(t *testing.T) {
	pub := &capture{}
	e, _, m := newTestEngine(t, pub)

	e.ReportFeedStatus(model.FeedConnected, "")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedConnected))
	e.ReportFeedStatus(model.FeedDisconnected, "eof")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FeedConnected))

	sent := pub.ofType(model.MsgStatus)
	require.Len(t, sent, 2)
	var st model.StatusMessage
	require.NoError(t, json.Unmarshal(sent[1].data, &st))
	assert.Equal(t, model.FeedDisconnected, st.Status)
	assert.Equal(t, "eof", st.Message)
}

func TestSignalChange_LongerEMAResizesHistory(t *testing.T) {
	pub := &capture{}
	e, store, _ := newTestEngine(t, pub)

	_, err := store.Patch(func(s *config.Signal) {
		s.EMAPeriod = 60
		s.CandleHistory = 100
	})
	require.NoError(t, err)
	assert.Equal(t, 100, e.fast.capacity())
	assert.Equal(t, 100, e.slow.capacity())

	// 200 M5 periods give the M15 pipeline 67 candles, enough for EMA(60).
	var published int
	for i := 0; i < 200; i++ {
		if _, ok := e.ProcessTick(tick(time.Duration(i)*5*time.Minute, 1.1+float64(i%7)*0.0002)); ok {
			published++
		}
	}
	assert.Positive(t, published)
	assert.Len(t, e.Candles(model.M5), 101, "100 closed plus the open candle")

	msg, ok := e.LastMessage()
	require.True(t, ok)
	assert.Equal(t, 60, store.Get().EMAPeriod)
	assert.Positive(t, msg.Fast.EMA)
	e.WaitBacktest()
}

func TestSignalChange_ShrinkingHistoryKeepsPublishing(t *testing.T) {
	pub := &capture{}
	e, store, _ := newTestEngine(t, pub)
	e.WarmUp(context.Background(), stubHistory{model.M5: series(model.M5, 40), model.M15: series(model.M15, 40)})
	e.WaitBacktest()

	_, err := store.Patch(func(s *config.Signal) { s.CandleHistory = 5 })
	require.NoError(t, err)
	assert.Len(t, e.Candles(model.M5), 5)

	_, ok := e.ProcessTick(tick(time.Minute, 1.1010))
	assert.True(t, ok)
}

func TestPublish_LastDeliveredIsLatest(t *testing.T) {
	pub := &capture{}
	e, _, _ := newTestEngine(t, pub)
	e.WarmUp(context.Background(), stubHistory{model.M5: series(model.M5, 40), model.M15: series(model.M15, 40)})
	e.WaitBacktest()

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.ProcessTick(tick(time.Duration(round)*time.Second, 1.1+float64(round)*0.0001))
		}()
		go func() {
			defer wg.Done()
			e.refresh()
		}()
		wg.Wait()

		sent := pub.ofType(model.MsgSnapshot)
		last, ok := e.LastMessage()
		require.True(t, ok)
		require.JSONEq(t, string(last.JSON()), string(sent[len(sent)-1].data), "round %d", round)
	}
}

func TestHistory_EmptyIsNotNil(t *testing.T) {
	e, _, _ := newTestEngine(t, &capture{})
	h := e.History(model.M5)
	require.NotNil(t, h)
	b, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}
