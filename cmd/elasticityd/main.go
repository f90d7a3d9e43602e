// cmd/elasticityd runs the live elasticity signal service for one instrument.
//
// Pipeline:
//
//	[price WS] -> ticks -> [engine: candles, indicators, percentiles, states]
//	           -> snapshot/status messages -> [bus] -> WS hub, Redis channel
//
// Historical candles are loaded once at startup (vendor HTTP or a SQLite
// archive) to warm the indicators and run the backtest before live ticks flow.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/johanriascos7777/ReversionMediaTrading/config"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/engine"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/gateway"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/bus"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/history"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/ws"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/markethours"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/metrics"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/notification"
	redisstore "github.com/johanriascos7777/ReversionMediaTrading/internal/store/redis"
	sqlitestore "github.com/johanriascos7777/ReversionMediaTrading/internal/store/sqlite"
)

var processStart = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.Init("elasticityd", cfg.LogLevel)
	log.Info("starting",
		"symbol", cfg.Symbol,
		"fast_tf", cfg.FastTF,
		"slow_tf", cfg.SlowTF,
		"feed", cfg.FeedURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	calendar := markethours.ForMarket(cfg.Market)
	updateMarket(health, calendar, time.Now())
	log.Info("market session", "market", cfg.Market, "status", markethours.StatusString(calendar, time.Now()))

	store := config.NewStore(cfg.Signal)

	// ---- Message bus: one subscriber per sink ----
	fanout := bus.New(1024)
	fanout.OnDrop = func(subscriber string) {
		prom.FanoutDropsTotal.WithLabelValues(subscriber).Inc()
	}
	gatewayCh := fanout.Subscribe("gateway")

	// ---- Redis sink (optional) ----
	var redisPub *redisstore.Publisher
	if cfg.RedisAddr != "" {
		health.SetRedisEnabled(true)
		redisPub, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			log.Warn("redis init failed, continuing without redis", "err", err)
			health.SetRedisConnected(false)
		} else {
			health.SetRedisConnected(true)
			redisPub.OnPublish = func(d time.Duration) {
				prom.RedisPublishDur.Observe(d.Seconds())
			}
			redisPub.Breaker().OnStateChange = func(_, to redisstore.State) {
				prom.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					prom.RedisCircuitBreakerTrips.Inc()
				}
			}
			go redisPub.Run(ctx, fanout.Subscribe("redis"))
		}
	}

	// ---- Decision-change alerts ----
	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	dispatcher := notification.NewDispatcher(64, notifiers...)
	dispatcher.OnError = func(error) { prom.WebhookFailures.Inc() }
	go dispatcher.Run(ctx)

	// ---- Engine ----
	eng := engine.New(engine.Options{
		Market:       cfg.Market,
		Symbol:       cfg.Symbol,
		Fast:         cfg.FastTF,
		Slow:         cfg.SlowTF,
		HistoryLimit: cfg.HistoryOutput,
		Publisher:    fanout,
		Metrics:      prom,
		Health:       health,
		OnDecisionChange: func(prev model.State, msg model.SnapshotMessage) {
			dispatcher.Notify(notification.DecisionAlert(cfg.Symbol, prev, msg))
		},
	}, store)

	// ---- Gateway: WS hub + REST ----
	hub := gateway.NewHub()
	gateway.NewConfigStore(hub, store)
	go hub.Run(ctx, gatewayCh)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           gateway.NewRouter(hub, eng, processStart),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("gateway listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("gateway server failed", "err", err)
			cancel()
		}
	}()

	// ---- Historical warm-up ----
	provider, archive := historySource(cfg)
	if archive != nil {
		defer archive.Close()
		health.StartLivenessChecker(ctx, redisClient(redisPub), archive.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, redisClient(redisPub), nil, 10*time.Second)
	}
	eng.WarmUp(ctx, provider)

	// ---- Live feed ----
	ingest, err := ws.New(ws.Config{
		URL:            cfg.FeedURL,
		APIKey:         cfg.FeedAPIKey,
		Symbol:         cfg.Symbol,
		ReconnectDelay: cfg.ReconnectDelay,
	})
	if err != nil {
		log.Error("feed init failed", "err", err)
		os.Exit(1)
	}
	ingest.OnStatus = eng.ReportFeedStatus
	ingest.OnReconnect = prom.FeedReconnects.Inc
	ingest.OnMalformed = prom.MalformedMessages.Inc

	tickCh := make(chan model.Tick, 10000)
	go func() {
		if err := ingest.Start(ctx, tickCh); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("feed stopped", "err", err)
		}
	}()

	// Ticks are processed on a single goroutine.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-tickCh:
				eng.ProcessTick(t)
			}
		}
	}()

	go monitor(ctx, prom, health, calendar, fanout, tickCh)

	log.Info("pipeline ready")

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("gateway shutdown", "err", err)
	}
	hub.Close()
	fanout.Close()
	eng.WaitBacktest()
	if redisPub != nil {
		redisPub.Close()
	}
	metricsSrv.Stop(shutdownCtx)
	log.Info("shutdown complete")
}

// historySource picks the SQLite archive when configured, the vendor API
// otherwise. The returned reader is nil for the vendor source.
func historySource(cfg *config.Config) (model.HistoryProvider, *sqlitestore.Reader) {
	if cfg.HistorySQLitePath != "" {
		reader, err := sqlitestore.NewReader(cfg.HistorySQLitePath)
		if err == nil {
			slog.Info("history: using sqlite archive", "path", cfg.HistorySQLitePath)
			return sqlitestore.Archive{Reader: reader, Symbol: cfg.Symbol}, reader
		}
		slog.Warn("history: sqlite archive unavailable, falling back to vendor", "err", err)
	}
	return history.New(history.Config{
		BaseURL: cfg.HistoryURL,
		APIKey:  cfg.HistoryAPIKey,
		Symbol:  cfg.Symbol,
		Pause:   cfg.HistoryPause,
	}), nil
}

func redisClient(p *redisstore.Publisher) *goredis.Client {
	if p == nil {
		return nil
	}
	return p.Client()
}

func updateMarket(health *metrics.HealthStatus, cal markethours.Calendar, now time.Time) {
	health.SetMarket(cal.IsOpen(now), markethours.StatusString(cal, now))
}

// monitor refreshes channel saturation gauges and the market session.
func monitor(ctx context.Context, prom *metrics.Metrics, health *metrics.HealthStatus, cal markethours.Calendar, fanout *bus.FanOut, tickCh chan model.Tick) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			updateMarket(health, cal, now)
			for _, s := range fanout.ChannelStats() {
				if s.Cap > 0 {
					prom.ChannelSaturationPct.WithLabelValues("fanout_" + s.Name).Set(float64(s.Len) / float64(s.Cap) * 100)
				}
			}
			prom.ChannelSaturationPct.WithLabelValues("ticks").Set(float64(len(tickCh)) / float64(cap(tickCh)) * 100)
		}
	}
}
