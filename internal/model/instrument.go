package model

// InstrumentKey identifies one independent indicator stream:
// a market, an instrument within it, and a timeframe.
type InstrumentKey struct {
	Market     string    `json:"market"`
	Instrument string    `json:"instrument"`
	Timeframe  Timeframe `json:"timeframe"`
}

// String returns "market:instrument:timeframe".
func (k InstrumentKey) String() string {
	return k.Market + ":" + k.Instrument + ":" + string(k.Timeframe)
}
