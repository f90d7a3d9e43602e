// Package indicator provides the price indicators behind the elasticity
// signal: EMA and SMA reference lines, ATR volatility, and elasticity, the
// distance of price from its reference line in ATR units.
//
// Streaming indicators implement the Indicator interface and update in O(1)
// per candle. Batch helpers (EMA, ATR, Compute) fold a candle slice through
// the same streaming types so both paths share one formula.
package indicator

import "github.com/johanriascos7777/ReversionMediaTrading/internal/model"

// Indicator is the interface for all streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "EMA_100", "ATR_14").
	Name() string

	// Update feeds a new closed candle and recalculates.
	Update(candle model.Candle)

	// Value returns the current calculated value.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Peek computes what Value() would be if a candle closing at price were
	// added next, WITHOUT mutating internal state.
	Peek(price float64) float64
}
