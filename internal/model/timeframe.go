package model

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe identifies a candle aggregation period, e.g. "M5".
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
)

var timeframePeriods = map[Timeframe]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  time.Hour,
}

// Period returns the candle length. Unknown timeframes return 0.
func (tf Timeframe) Period() time.Duration {
	return timeframePeriods[tf]
}

// PeriodMs returns the candle length in milliseconds.
func (tf Timeframe) PeriodMs() int64 {
	return tf.Period().Milliseconds()
}

// Interval returns the vendor-style interval label ("5min", "1h").
func (tf Timeframe) Interval() string {
	p := tf.Period()
	if p >= time.Hour {
		return fmt.Sprintf("%dh", int(p/time.Hour))
	}
	return fmt.Sprintf("%dmin", int(p/time.Minute))
}

// ParseTimeframe accepts "M5", "m5" or "5min" style labels.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	tf := Timeframe(strings.ToUpper(s))
	if _, ok := timeframePeriods[tf]; ok {
		return tf, nil
	}
	for known := range timeframePeriods {
		if strings.EqualFold(known.Interval(), s) {
			return known, nil
		}
	}
	return "", fmt.Errorf("model: unknown timeframe %q", s)
}
