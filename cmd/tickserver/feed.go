package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// instrument is one simulated symbol.
type instrument struct {
	Symbol string
	Start  float64
}

type priceEvent struct {
	Event     string  `json:"event"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

type subscribeRequest struct {
	Action string `json:"action"`
	Params struct {
		Symbols string `json:"symbols"`
	} `json:"params"`
}

type subscribeStatus struct {
	Event   string   `json:"event"`
	Status  string   `json:"status"`
	Symbols []string `json:"symbols"`
}

// subscriber is one connected client and the symbols it asked for.
type subscriber struct {
	send    chan []byte
	mu      sync.RWMutex
	symbols map[string]bool
}

func (s *subscriber) subscribe(symbols []string) {
	s.mu.Lock()
	for _, sym := range symbols {
		s.symbols[sym] = true
	}
	s.mu.Unlock()
}

func (s *subscriber) wants(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.symbols[symbol]
}

type hub struct {
	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*subscriber]struct{})}
}

func (h *hub) register() *subscriber {
	s := &subscriber{send: make(chan []byte, 256), symbols: make(map[string]bool)}
	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *hub) unregister(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		close(s.send)
	}
	h.mu.Unlock()
}

// broadcast delivers msg to every client subscribed to symbol. Slow clients
// miss the event.
func (h *hub) broadcast(symbol string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.clients {
		if !s.wants(symbol) {
			continue
		}
		select {
		case s.send <- msg:
		default:
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("upgrade failed", "err", err)
			return
		}
		slog.Info("client connected", "remote", r.RemoteAddr)

		s := h.register()
		done := make(chan struct{})
		go func() {
			defer close(done)
			readSubscriptions(conn, s)
		}()

		defer func() {
			conn.Close()
			<-done
			h.unregister(s)
			slog.Info("client disconnected", "remote", r.RemoteAddr)
		}()

		for {
			select {
			case <-done:
				return
			case msg, ok := <-s.send:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}
	}
}

// readSubscriptions handles subscribe requests until the connection fails.
func readSubscriptions(conn *websocket.Conn, s *subscriber) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		if json.Unmarshal(raw, &req) != nil || req.Action != "subscribe" {
			continue
		}
		var symbols []string
		for _, sym := range strings.Split(req.Params.Symbols, ",") {
			if sym = strings.TrimSpace(sym); sym != "" {
				symbols = append(symbols, sym)
			}
		}
		s.subscribe(symbols)
		slog.Debug("subscribed", "symbols", symbols)

		ack, _ := json.Marshal(subscribeStatus{Event: "subscribe-status", Status: "ok", Symbols: symbols})
		select {
		case s.send <- ack:
		default:
		}
	}
}

// walk applies one random-walk step of at most +/-0.05%.
func walk(rng *rand.Rand, price float64) float64 {
	next := price * (1 + (rng.Float64()-0.5)*0.001)
	if next <= 0 {
		return price
	}
	return next
}

func runGenerator(ctx context.Context, h *hub, instruments []instrument, interval time.Duration, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	prices := make([]float64, len(instruments))
	for i, inst := range instruments {
		prices[i] = inst.Start
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for i, inst := range instruments {
				prices[i] = walk(rng, prices[i])
				b, err := json.Marshal(priceEvent{
					Event:     "price",
					Symbol:    inst.Symbol,
					Price:     prices[i],
					Timestamp: now.Unix(),
				})
				if err != nil {
					continue
				}
				h.broadcast(inst.Symbol, b)
			}
		}
	}
}
