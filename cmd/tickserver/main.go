// cmd/tickserver is a staging stand-in for the market-data vendor.
//
// It serves two endpoints:
//
//	/ws           price events for subscribed symbols, driven by a random walk
//	/time_series  bulk candles in the vendor's newest-first format
//
// Price event shape:
//
//	{"event":"price","symbol":"EUR/USD","price":1.08512,"timestamp":1700000000}
//
// Config (env vars):
//
//	TICK_SERVER_ADDR  listen address (default ":9001")
//	TICK_SYMBOLS      comma-separated SYMBOL[:START_PRICE] list (default "EUR/USD:1.0850")
//	TICK_INTERVAL_MS  event interval in milliseconds (default "1000")
//	LOG_LEVEL         debug|info|warn|error (default "info")
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/johanriascos7777/ReversionMediaTrading/config"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
)

const defaultStartPrice = 1.0850

func main() {
	log := logger.Init("tickserver", config.ParseLevel(envOrDefault("LOG_LEVEL", "info")))

	addr := envOrDefault("TICK_SERVER_ADDR", ":9001")
	instruments := parseInstruments(envOrDefault("TICK_SYMBOLS", "EUR/USD:1.0850"))
	if len(instruments) == 0 {
		log.Error("no instruments configured via TICK_SYMBOLS")
		os.Exit(1)
	}
	interval := time.Duration(envIntOrDefault("TICK_INTERVAL_MS", 1000)) * time.Millisecond
	log.Info("starting", "addr", addr, "instruments", len(instruments), "interval", interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := newHub()
	go runGenerator(ctx, h, instruments, interval, time.Now().UnixNano())

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(h, instruments),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "ws", "ws://localhost"+addr+"/ws", "history", "http://localhost"+addr+"/time_series")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
}

func newRouter(h *hub, instruments []instrument) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", wsHandler(h)).Methods(http.MethodGet)
	r.HandleFunc("/time_series", timeSeriesHandler(instruments, time.Now)).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"tickserver"}`))
	}).Methods(http.MethodGet)
	return r
}

// parseInstruments reads "SYM[:PRICE],..." pairs. Symbols may contain '/'.
func parseInstruments(s string) []instrument {
	var out []instrument
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		symbol, priceStr, hasPrice := strings.Cut(part, ":")
		price := defaultStartPrice
		if hasPrice {
			p, err := strconv.ParseFloat(strings.TrimSpace(priceStr), 64)
			if err != nil || p <= 0 {
				slog.Warn("skipping invalid instrument", "entry", part)
				continue
			}
			price = p
		}
		out = append(out, instrument{Symbol: strings.TrimSpace(symbol), Start: price})
	}
	return out
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
