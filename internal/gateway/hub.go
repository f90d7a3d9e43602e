package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/logger"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/marketdata/bus"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

const clientSendBuffer = 256

// Hub manages WebSocket subscribers.
// It acts as a compositor, delegating to focused components:
//   - Broadcaster: latest-message cache + non-blocking fan-out
//   - ConfigStore: signal parameter reads/updates + config_update broadcast
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string][]byte // last payload per message type
	closed  bool

	// Delivery latency from tick time to broadcast.
	Latency *LatencyTracker

	Broadcaster *Broadcaster
	ConfigStore *ConfigStore

	log *slog.Logger
}

// NewHub creates a Hub with no subscribers.
func NewHub() *Hub {
	h := &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string][]byte),
		Latency: NewLatencyTracker(10000),
		log:     logger.Component("gateway"),
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// Run broadcasts every message from in until ctx is cancelled or in is
// closed, then disconnects all clients.
func (h *Hub) Run(ctx context.Context, in <-chan bus.Message) {
	defer h.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			h.Broadcaster.Broadcast(msg.Type, msg.Data)
		}
	}
}

// HandleWSRequest registers an upgraded connection and replays the latest
// status and snapshot to it.
func (h *Hub) HandleWSRequest(conn *websocket.Conn) *Client {
	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
		hub:  h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.clients[client] = true
	count := len(h.clients)
	// Replay under the lock so no broadcast can slip in ahead of it.
	for _, typ := range []string{model.MsgStatus, model.MsgConfigUpdate, model.MsgSnapshot} {
		if data, ok := h.latest[typ]; ok {
			client.send <- data
		}
	}
	h.mu.Unlock()

	h.log.Info("ws client connected", "client", client.id, "total", count)

	go client.writePump()
	go client.readPump()
	return client
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Close disconnects every client. Later connections are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Latest returns the last broadcast payload of msgType.
func (h *Hub) Latest(msgType string) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, ok := h.latest[msgType]
	return data, ok
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
