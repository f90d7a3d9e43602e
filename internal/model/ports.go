package model

import "context"

// ── Port Interfaces ──
// These interfaces decouple the signal pipeline from concrete data sources
// and sinks (HTTP vendor, SQLite archive, WebSocket hub, Redis).

// HistoryProvider returns closed candles for a timeframe, oldest first.
// Implementations return an empty slice, never an error, when the source fails.
type HistoryProvider interface {
	FetchCandles(ctx context.Context, tf Timeframe, limit int) []Candle
}

// Publisher delivers an encoded message to downstream subscribers.
// Publish must not block the caller.
type Publisher interface {
	Publish(msgType string, data []byte)
}
