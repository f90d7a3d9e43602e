package gateway

import (
	"encoding/json"
	"time"

	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// Broadcaster caches the latest payload per message type and sends each
// payload to every client without blocking.
type Broadcaster struct {
	hub *Hub

	// OnDrop is called when a client's send buffer is full.
	OnDrop func(clientID string)
}

// NewBroadcaster creates a Broadcaster backed by the given Hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// Broadcast sends data to all clients. A slow client misses the message
// rather than stalling the others.
func (b *Broadcaster) Broadcast(msgType string, data []byte) {
	if msgType == model.MsgSnapshot && b.hub.Latency != nil {
		if ts := extractTS(data); ts > 0 {
			if ms := float64(time.Now().UnixMilli() - ts); ms >= 0 {
				b.hub.Latency.Record(ms)
			}
		}
	}

	b.hub.mu.Lock()
	defer b.hub.mu.Unlock()
	b.hub.latest[msgType] = data
	for client := range b.hub.clients {
		select {
		case client.send <- data:
		default:
			if b.OnDrop != nil {
				b.OnDrop(client.id)
			}
		}
	}
}

// extractTS reads the Unix-ms "ts" field of a snapshot message.
func extractTS(data []byte) int64 {
	var partial struct {
		TS int64 `json:"ts"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return 0
	}
	return partial.TS
}
