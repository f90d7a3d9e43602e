package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/johanriascos7777/ReversionMediaTrading/config"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Source is the engine state served over REST.
type Source interface {
	History(tf model.Timeframe) []model.Candle
	CandleCounts() map[model.Timeframe]int
	Backtest() (model.BacktestResult, bool)
	Decision() (*model.ComparisonResult, model.FusedDecision, bool)
	Timeframes() (fast, slow model.Timeframe)
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// NewRouter returns a router with every gateway route registered.
func NewRouter(hub *Hub, src Source, processStart time.Time) *mux.Router {
	r := mux.NewRouter()
	RegisterRoutes(r, hub, src, processStart)
	return r
}

// RegisterRoutes registers all HTTP routes on the provided router.
func RegisterRoutes(r *mux.Router, hub *Hub, src Source, processStart time.Time) {
	r.Use(corsMiddleware)

	// WebSocket endpoint
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			hub.log.Warn("ws upgrade error", "err", err)
			return
		}
		hub.HandleWSRequest(conn)
	}).Methods(http.MethodGet)

	// Retained historical batch: /history?timeframe=M5|5min
	r.HandleFunc("/history", func(w http.ResponseWriter, req *http.Request) {
		fast, slow := src.Timeframes()
		tf := fast
		if s := req.URL.Query().Get("timeframe"); s != "" {
			parsed, err := model.ParseTimeframe(s)
			if err != nil || (parsed != fast && parsed != slow) {
				writeError(w, http.StatusBadRequest, "unknown timeframe "+s)
				return
			}
			tf = parsed
		}
		writeJSON(w, http.StatusOK, src.History(tf))
	}).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		candles := make(map[string]int)
		for tf, n := range src.CandleCounts() {
			candles[string(tf)] = n
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"candles":    candles,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	}).Methods(http.MethodGet)

	// REST: GET/POST /api/config
	r.HandleFunc("/api/config", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, hub.ConfigStore.Get())
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/config", func(w http.ResponseWriter, req *http.Request) {
		// Keys absent from the body keep their current values.
		next := hub.ConfigStore.Get()
		if err := json.NewDecoder(req.Body).Decode(&next); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := hub.ConfigStore.Set(next); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, config.ErrInvalid) {
				code = http.StatusBadRequest
			}
			writeError(w, code, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, next)
	}).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/api/backtest", func(w http.ResponseWriter, req *http.Request) {
		res, ok := src.Backtest()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/decision", func(w http.ResponseWriter, req *http.Request) {
		cmp, dec, ok := src.Decision()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "warming_up"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"comparison": cmp,
			"decision":   dec,
		})
	}).Methods(http.MethodGet)

	// REST: system metrics snapshot
	r.HandleFunc("/api/metrics", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, CollectMetrics(processStart, hub, src))
	}).Methods(http.MethodGet)
}
