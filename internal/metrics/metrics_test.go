package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TicksTotal.Inc()
	m.CandlesTotal.WithLabelValues("M5").Add(2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CandlesTotal.WithLabelValues("M5")))

	// Registering a second set on the same registry must panic.
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestStateValue(t *testing.T) {
	assert.Equal(t, 2.0, StateValue("GREEN"))
	assert.Equal(t, 1.0, StateValue("YELLOW"))
	assert.Equal(t, 0.0, StateValue("RED"))
}

func TestHealthStatus_ServeHTTP(t *testing.T) {
	h := NewHealthStatus()
	h.SetCandles("M5", 150)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "feed down is degraded")

	h.SetFeedConnected(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string         `json:"status"`
		Candles map[string]int `json:"candles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 150, body.Candles["M5"])

	h.SetRedisEnabled(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "enabled but unreachable redis is degraded")
}

func TestHealthStatus_MarketClosed(t *testing.T) {
	h := NewHealthStatus()
	h.SetMarket(false, "closed, opens Sun 22:00 UTC (35h30m)")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code, "a silent feed is expected while the market is closed")

	var body struct {
		Status string `json:"status"`
		Market string `json:"market"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "market_closed", body.Status)
	assert.Contains(t, body.Market, "opens Sun")
}
