package indicator

import "github.com/johanriascos7777/ReversionMediaTrading/internal/model"

// Params configures a live indicator computation.
type Params struct {
	EMAPeriod int
	ATRPeriod int
	Mode      Mode
}

// DefaultParams are the live defaults: EMA(100), ATR(14), exponential reference.
func DefaultParams() Params {
	return Params{EMAPeriod: 100, ATRPeriod: 14, Mode: Exponential}
}

// Values are the indicator outputs for one price against a candle series.
type Values struct {
	Reference  float64
	ATR        float64
	Elasticity float64
}

// Compute evaluates price against candles (closed history plus the
// in-progress candle). It reports ok=false while the series is shorter than
// the EMA period; callers must treat that as "no reading yet".
func Compute(candles []model.Candle, price float64, p Params) (Values, bool) {
	if p.EMAPeriod <= 0 || len(candles) < p.EMAPeriod {
		return Values{}, false
	}

	ref := NewReference(p.Mode, p.EMAPeriod)
	atr := NewATR(p.ATRPeriod)
	for _, c := range candles {
		ref.Update(c)
		atr.Update(c)
	}

	v := Values{
		Reference: ref.Value(),
		ATR:       atr.Value(),
	}
	if len(candles) < 2 {
		v.ATR = FallbackATR
	}
	v.Elasticity = Elasticity(price, v.Reference, v.ATR)
	return v, true
}
