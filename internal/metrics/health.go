package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected  bool           `json:"feed_connected"`
	LastTickTime   time.Time      `json:"last_tick_time"`
	Candles        map[string]int `json:"candles"`
	BacktestReady  bool           `json:"backtest_ready"`
	RedisEnabled   bool           `json:"redis_enabled"`
	RedisConnected bool           `json:"redis_connected"`
	ArchiveOK      bool           `json:"archive_ok"`
	MarketOpen     bool           `json:"market_open"`
	MarketStatus   string         `json:"market_status"`

	// Liveness probe results
	RedisLatencyMs float64   `json:"redis_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		Candles:      make(map[string]int),
		MarketOpen:   true,
		MarketStatus: "open",
		StartedAt:    time.Now(),
	}
}

// SetMarket records the trading-session state of the instrument's market.
func (h *HealthStatus) SetMarket(open bool, status string) {
	h.mu.Lock()
	h.MarketOpen = open
	h.MarketStatus = status
	h.mu.Unlock()
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetCandles(tf string, n int) {
	h.mu.Lock()
	h.Candles[tf] = n
	h.mu.Unlock()
}

func (h *HealthStatus) SetBacktestReady(v bool) {
	h.mu.Lock()
	h.BacktestReady = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckArchive pings the candle archive database.
func (h *HealthStatus) CheckArchive(ctx context.Context, db *sql.DB) {
	err := db.PingContext(ctx)
	h.mu.Lock()
	h.ArchiveOK = err == nil
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either dependency may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, archive *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if archive != nil {
					h.CheckArchive(probeCtx, archive)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	switch {
	case h.RedisEnabled && !h.RedisConnected:
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	case !h.FeedConnected && !h.MarketOpen:
		overallStatus = "market_closed"
	case !h.FeedConnected:
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	candles := make(map[string]int, len(h.Candles))
	for k, v := range h.Candles {
		candles[k] = v
	}

	status := struct {
		Status         string         `json:"status"`
		Uptime         string         `json:"uptime"`
		FeedConnected  bool           `json:"feed_connected"`
		LastTickTime   string         `json:"last_tick_time"`
		TickAge        string         `json:"tick_age"`
		Candles        map[string]int `json:"candles"`
		BacktestReady  bool           `json:"backtest_ready"`
		Market         string         `json:"market"`
		RedisEnabled   bool           `json:"redis_enabled"`
		RedisConnected bool           `json:"redis_connected"`
		RedisLatencyMs float64        `json:"redis_latency_ms"`
		LastCheckAt    string         `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		FeedConnected:  h.FeedConnected,
		LastTickTime:   h.LastTickTime.Format(time.RFC3339),
		TickAge:        tickAge,
		Candles:        candles,
		BacktestReady:  h.BacktestReady,
		Market:         h.MarketStatus,
		RedisEnabled:   h.RedisEnabled,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		LastCheckAt:    h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
