package metrics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	TicksTotal        prometheus.Counter
	MalformedMessages prometheus.Counter
	DroppedTicks      prometheus.Counter // late ticks behind the open candle
	CandlesTotal      *prometheus.CounterVec
	TickProcessDur    prometheus.Histogram

	SnapshotsPublished prometheus.Counter
	DecisionState      prometheus.Gauge // 0=red, 1=yellow, 2=green

	// Upstream feed
	FeedReconnects prometheus.Counter
	FeedConnected  prometheus.Gauge

	// Historical data and replay
	HistoryFetchFailures *prometheus.CounterVec // labels: tf
	BacktestDur          prometheus.Histogram
	BacktestSignals      prometheus.Gauge

	// Backpressure
	FanoutDropsTotal     *prometheus.CounterVec // labels: subscriber
	ChannelSaturationPct *prometheus.GaugeVec   // labels: channel_name

	// Redis sink
	RedisPublishDur          prometheus.Histogram
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	WebhookFailures prometheus.Counter
}

// NewMetrics creates all metrics and registers them on reg. A nil reg uses
// the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elasticity_ticks_total",
			Help: "Total price ticks accepted from the upstream feed",
		}),
		MalformedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elasticity_malformed_messages_total",
			Help: "Upstream messages ignored as malformed or non-price",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elasticity_dropped_ticks_total",
			Help: "Ticks dropped because their period had already closed",
		}),
		CandlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elasticity_candles_closed_total",
			Help: "Candles closed (by timeframe)",
		}, []string{"tf"}),
		TickProcessDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "elasticity_tick_process_duration_seconds",
			Help:    "Time to turn one tick into snapshots for every timeframe",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elasticity_snapshots_published_total",
			Help: "Complete multi-timeframe snapshot messages published",
		}),
		DecisionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elasticity_decision_state",
			Help: "Latest fused decision (0=red, 1=yellow, 2=green)",
		}),

		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elasticity_feed_reconnects_total",
			Help: "Upstream feed reconnection attempts",
		}),
		FeedConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elasticity_feed_connected",
			Help: "1 while the upstream feed is connected",
		}),

		HistoryFetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elasticity_history_fetch_failures_total",
			Help: "Historical candle requests that returned no data",
		}, []string{"tf"}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "elasticity_backtest_duration_seconds",
			Help:    "Backtest replay duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		BacktestSignals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elasticity_backtest_signals",
			Help: "GREEN entries in the latest backtest",
		}),

		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elasticity_fanout_drops_total",
			Help: "Messages dropped by the publish bus per subscriber",
		}, []string{"subscriber"}),
		ChannelSaturationPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "elasticity_channel_saturation_pct",
			Help: "Channel fill percentage (len/cap * 100)",
		}, []string{"channel_name"}),

		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "elasticity_redis_publish_duration_seconds",
			Help:    "Redis PUBLISH latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elasticity_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elasticity_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		WebhookFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elasticity_webhook_failures_total",
			Help: "Decision webhooks that failed to deliver",
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.MalformedMessages,
		m.DroppedTicks,
		m.CandlesTotal,
		m.TickProcessDur,
		m.SnapshotsPublished,
		m.DecisionState,
		m.FeedReconnects,
		m.FeedConnected,
		m.HistoryFetchFailures,
		m.BacktestDur,
		m.BacktestSignals,
		m.FanoutDropsTotal,
		m.ChannelSaturationPct,
		m.RedisPublishDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.WebhookFailures,
	)

	return m
}

// StateValue maps a decision state to the DecisionState gauge value.
func StateValue(s string) float64 {
	switch s {
	case "GREEN":
		return 2
	case "YELLOW":
		return 1
	}
	return 0
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", "err", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
