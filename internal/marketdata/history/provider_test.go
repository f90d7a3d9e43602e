package history

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

const okBody = `{"meta":{"symbol":"EUR/USD"},"status":"ok","values":[
 {"datetime":"2024-03-04 10:10:00","open":"1.0860","high":"1.0866","low":"1.0858","close":"1.0864"},
 {"datetime":"2024-03-04 10:05:00","open":"1.0855","high":"1.0862","low":"1.0851","close":"1.0860"},
 {"datetime":"2024-03-04 10:00:00","open":"1.0850","high":"1.0857","low":"1.0849","close":"1.0855"}]}`

func TestFetch_ReversesToOldestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "EUR/USD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5min", r.URL.Query().Get("interval"))
		assert.Equal(t, "500", r.URL.Query().Get("outputsize"))
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, APIKey: "secret", Symbol: "EUR/USD"})
	candles, err := p.Fetch(context.Background(), model.M5, 500)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC).UnixMilli(), candles[0].Time)
	assert.Equal(t, 1.0855, candles[0].Close)
	assert.Equal(t, 1.0864, candles[2].Close)
	for i, c := range candles {
		assert.True(t, c.Closed, "candle %d", i)
		if i > 0 {
			assert.Greater(t, c.Time, candles[i-1].Time)
		}
	}
}

func TestFetchCandles_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		vendor bool
	}{
		{"vendor error status", 200, `{"status":"error","code":429,"message":"run out of API credits"}`, true},
		{"missing values", 200, `{"status":"ok"}`, true},
		{"http error", 500, `oops`, true},
		{"malformed json", 200, `{"status":`, false},
		{"bad price", 200, `{"status":"ok","values":[{"datetime":"2024-03-04 10:00:00","open":"x","high":"1","low":"1","close":"1"}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var failed error
			p := New(Config{BaseURL: srv.URL, Symbol: "EUR/USD"})
			p.OnFailure = func(_ model.Timeframe, err error) { failed = err }

			got := p.FetchCandles(context.Background(), model.M15, 10)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			require.Error(t, failed)
			assert.Equal(t, tt.vendor, errors.Is(failed, ErrVendor))
		})
	}
}

func TestFetchCandles_NetworkError(t *testing.T) {
	p := New(Config{BaseURL: "http://127.0.0.1:1", Symbol: "EUR/USD", Timeout: time.Second})
	assert.Empty(t, p.FetchCandles(context.Background(), model.M5, 10))
}

func TestFetch_PacesRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, Symbol: "EUR/USD", Pause: 150 * time.Millisecond})
	start := time.Now()
	p.FetchCandles(context.Background(), model.M5, 3)
	p.FetchCandles(context.Background(), model.M15, 3)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_UnknownTimeframe(t *testing.T) {
	p := New(Config{BaseURL: "http://unused", Symbol: "EUR/USD"})
	_, err := p.Fetch(context.Background(), model.Timeframe("W1"), 3)
	assert.Error(t, err)
}
