// Package markethours knows when the traded market is in session.
//
// The spot FX market trades continuously from Sunday 22:00 UTC to Friday
// 22:00 UTC, apart from a few fixed holidays. Markets without a calendar
// (crypto, synthetic feeds) are always open.
package markethours

import (
	"fmt"
	"strings"
	"time"
)

// FX week boundaries in UTC.
const (
	FXOpenWeekday  = time.Sunday
	FXCloseWeekday = time.Friday
	FXRolloverHour = 22
)

// Calendar reports trading sessions for one market.
type Calendar interface {
	IsOpen(t time.Time) bool
	// NextOpen returns t when the market is open at t.
	NextOpen(t time.Time) time.Time
}

// ForMarket returns the calendar for a market name such as "FOREX".
func ForMarket(market string) Calendar {
	switch strings.ToUpper(strings.TrimSpace(market)) {
	case "FOREX", "FX":
		return FX{}
	default:
		return AlwaysOpen{}
	}
}

// AlwaysOpen never closes.
type AlwaysOpen struct{}

func (AlwaysOpen) IsOpen(time.Time) bool          { return true }
func (AlwaysOpen) NextOpen(t time.Time) time.Time { return t }

// FX is the spot forex week.
type FX struct{}

// IsOpen returns true if t falls inside the FX trading week and is not a holiday.
func (FX) IsOpen(t time.Time) bool {
	u := t.UTC()
	if IsHoliday(u) {
		return false
	}
	switch u.Weekday() {
	case time.Saturday:
		return false
	case FXOpenWeekday:
		return u.Hour() >= FXRolloverHour
	case FXCloseWeekday:
		return u.Hour() < FXRolloverHour
	default:
		return true
	}
}

// NextOpen returns the next instant the market is open, probing hour by hour.
func (f FX) NextOpen(t time.Time) time.Time {
	if f.IsOpen(t) {
		return t
	}
	u := t.UTC().Truncate(time.Hour)
	for i := 0; i < 24*10; i++ { // weekends plus holidays never exceed ten days
		u = u.Add(time.Hour)
		if f.IsOpen(u) {
			return u
		}
	}
	return u
}

// StatusString returns a human-readable market status.
func StatusString(c Calendar, t time.Time) string {
	if c.IsOpen(t) {
		return "open"
	}
	next := c.NextOpen(t).UTC()
	return fmt.Sprintf("closed, opens %s %s UTC (%s)",
		next.Weekday().String()[:3], next.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
