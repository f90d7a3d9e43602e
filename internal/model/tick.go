package model

import "time"

// Tick is a single price update from the upstream feed.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	TickTS time.Time `json:"tick_ts"` // UTC
}

// Valid reports whether the tick carries a usable price and timestamp.
func (t Tick) Valid() bool {
	return t.Price > 0 && !t.TickTS.IsZero()
}
