package indicator

import (
	"fmt"
	"strings"
)

// Mode selects how the reference line is computed.
//
// Live processing uses Exponential and the backtest replay uses
// SimpleAverage by default. The two lines differ, so a live reading and a
// replayed bar with identical prices can classify differently near the
// thresholds.
type Mode int

const (
	Exponential Mode = iota
	SimpleAverage
)

func (m Mode) String() string {
	switch m {
	case Exponential:
		return "exponential"
	case SimpleAverage:
		return "simple"
	default:
		return "unknown"
	}
}

// ParseMode accepts "exponential"/"ema" and "simple"/"sma".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exponential", "ema":
		return Exponential, nil
	case "simple", "sma", "simpleaverage":
		return SimpleAverage, nil
	}
	return 0, fmt.Errorf("indicator: unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m != Exponential && m != SimpleAverage {
		return nil, fmt.Errorf("indicator: invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// NewReference returns a streaming reference line for mode.
func NewReference(mode Mode, period int) Indicator {
	if mode == SimpleAverage {
		return NewSMA(period)
	}
	return NewEMA(period)
}

// Reference computes the reference line of closes in one pass.
func Reference(mode Mode, closes []float64, period int) float64 {
	if mode == SimpleAverage {
		return SMAOf(closes, period)
	}
	return EMAOf(closes, period)
}
