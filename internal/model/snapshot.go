package model

import "encoding/json"

// Snapshot is the per-timeframe indicator reading produced for one tick.
type Snapshot struct {
	Timeframe  Timeframe `json:"timeframe"`
	Price      float64   `json:"price"`
	EMA        float64   `json:"ema"`
	ATR        float64   `json:"atr"`
	Elasticity float64   `json:"elasticity"`
	Percentile float64   `json:"percentile"`
	State      State     `json:"state"`
	Timestamp  int64     `json:"timestamp"` // Unix ms
}

// Message types published to subscribers.
const (
	MsgSnapshot     = "snapshot"
	MsgStatus       = "status"
	MsgConfigUpdate = "config_update"
)

// SnapshotMessage carries one complete multi-timeframe reading.
type SnapshotMessage struct {
	Type       string            `json:"type"`
	Fast       Snapshot          `json:"fast"`
	Slow       Snapshot          `json:"slow"`
	FinalState State             `json:"finalState"`
	Comparison *ComparisonResult `json:"comparison"`
	Decision   FusedDecision     `json:"decision"`
	TS         int64             `json:"ts"`
}

// FeedStatus is the upstream connection state.
type FeedStatus string

const (
	FeedConnecting   FeedStatus = "connecting"
	FeedConnected    FeedStatus = "connected"
	FeedDisconnected FeedStatus = "disconnected"
)

// StatusMessage reports an upstream connection transition.
type StatusMessage struct {
	Type    string     `json:"type"`
	Status  FeedStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// JSON returns the JSON-encoded message.
func (m SnapshotMessage) JSON() []byte {
	b, _ := json.Marshal(m)
	return b
}

// JSON returns the JSON-encoded message.
func (m StatusMessage) JSON() []byte {
	b, _ := json.Marshal(m)
	return b
}
