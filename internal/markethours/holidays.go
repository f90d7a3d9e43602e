package markethours

import "time"

// Fixed-date FX holidays. Liquidity providers close from the previous day's
// 22:00 UTC rollover, but the whole UTC day is treated as closed here.
var fxHolidays = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},   // New Year's Day
	{time.December, 25}, // Christmas
}

// IsHoliday returns true if the UTC date of t is an FX holiday.
func IsHoliday(t time.Time) bool {
	u := t.UTC()
	for _, h := range fxHolidays {
		if u.Month() == h.month && u.Day() == h.day {
			return true
		}
	}
	return false
}
