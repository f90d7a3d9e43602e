package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/history"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/ws"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

func TestParseInstruments(t *testing.T) {
	got := parseInstruments(" EUR/USD:1.1 , GBP/USD, BAD:x ,,USD/JPY:150")
	assert.Equal(t, []instrument{
		{Symbol: "EUR/USD", Start: 1.1},
		{Symbol: "GBP/USD", Start: defaultStartPrice},
		{Symbol: "USD/JPY", Start: 150},
	}, got)
}

func TestTimeSeries_ReadableByHistoryProvider(t *testing.T) {
	srv := httptest.NewServer(newRouter(newHub(), []instrument{{Symbol: "EUR/USD", Start: 1.085}}))
	defer srv.Close()

	p := history.New(history.Config{BaseURL: srv.URL, Symbol: "EUR/USD"})
	candles, err := p.Fetch(context.Background(), model.M5, 120)
	require.NoError(t, err)
	require.Len(t, candles, 120)

	period := model.M5.PeriodMs()
	for i, c := range candles {
		assert.Zero(t, c.Time%period, "candle %d not aligned", i)
		assert.GreaterOrEqual(t, c.High, c.Low)
		assert.Greater(t, c.Low, 0.0)
		if i > 0 {
			assert.Equal(t, candles[i-1].Time+period, c.Time)
		}
	}
	assert.Less(t, candles[len(candles)-1].Time+period, time.Now().UnixMilli()+1)

	// Stable across calls.
	again, err := p.Fetch(context.Background(), model.M5, 120)
	require.NoError(t, err)
	assert.Equal(t, candles[0].Open, again[0].Open)
}

func TestTimeSeries_Errors(t *testing.T) {
	srv := httptest.NewServer(newRouter(newHub(), []instrument{{Symbol: "EUR/USD", Start: 1.085}}))
	defer srv.Close()

	unknown := history.New(history.Config{BaseURL: srv.URL, Symbol: "XAU/USD"})
	_, err := unknown.Fetch(context.Background(), model.M5, 10)
	assert.ErrorIs(t, err, history.ErrVendor)

	tooMany := history.New(history.Config{BaseURL: srv.URL, Symbol: "EUR/USD"})
	_, err = tooMany.Fetch(context.Background(), model.M5, maxOutputSize+1)
	assert.ErrorIs(t, err, history.ErrVendor)
}

func TestFeed_SubscribedSymbolsOnly(t *testing.T) {
	h := newHub()
	srv := httptest.NewServer(newRouter(h, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"action": "subscribe",
		"params": map[string]string{"symbols": "EUR/USD"},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runGenerator(ctx, h, []instrument{{Symbol: "GBP/USD", Start: 1.25}, {Symbol: "EUR/USD", Start: 1.085}}, 10*time.Millisecond, 1)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ticks []model.Tick
	for len(ticks) < 3 {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		if tick, ok := ws.ParsePriceEvent(raw, time.Now()); ok {
			ticks = append(ticks, tick)
		}
	}
	for _, tick := range ticks {
		assert.Equal(t, "EUR/USD", tick.Symbol)
		assert.InDelta(t, 1.085, tick.Price, 0.01)
	}
}
