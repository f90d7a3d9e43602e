package model

import (
	"encoding/json"
	"time"
)

// Candle is a fixed-period OHLC aggregate. Time is the period start in Unix
// milliseconds, always a multiple of the timeframe's period length.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Closed bool    `json:"closed"`
}

// Start returns the period start as a UTC time.
func (c Candle) Start() time.Time {
	return time.UnixMilli(c.Time).UTC()
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Closes extracts the close prices of candles in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
