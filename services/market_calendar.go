package services

import (
	"log"
	"time"
)

// Market session bounds in minutes from midnight, exchange local time.
// 9:30 AM = 570, 4:00 PM = 960. Both bounds are inclusive.
const (
	marketOpenMinute  = 9*60 + 30
	marketCloseMinute = 16 * 60
)

// MarketCalendar decides whether the exchange is open at a given instant.
// US equities hours: 9:30-16:00 Eastern, Monday through Friday. Holidays
// are not modeled; a closed-market cycle is simply a cheap no-op.
type MarketCalendar struct {
	loc *time.Location
}

// NewMarketCalendar creates a calendar for the US exchange timezone.
func NewMarketCalendar() *MarketCalendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// tzdata missing on the host; fall back to fixed EST offset
		log.Printf("Failed to load exchange timezone, using fixed offset: %v", err)
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &MarketCalendar{loc: loc}
}

// IsOpen reports whether the market is open at the given instant.
func (m *MarketCalendar) IsOpen(at time.Time) bool {
	local := at.In(m.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minuteOfDay := local.Hour()*60 + local.Minute()
	return minuteOfDay >= marketOpenMinute && minuteOfDay <= marketCloseMinute
}
