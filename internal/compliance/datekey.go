package compliance

import (
	"time"
)

// DateLayout is the UTC calendar-day key used for snapshots and alerts.
const DateLayout = "2006-01-02"

// DateKey returns the UTC calendar day t falls on.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDateKey parses a key produced by DateKey.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, key, time.UTC)
}

// ShiftDateKey moves key by days calendar days. Invalid keys are returned unchanged.
func ShiftDateKey(key string, days int) string {
	t, err := ParseDateKey(key)
	if err != nil {
		return key
	}
	return t.AddDate(0, 0, days).Format(DateLayout)
}

// PreviousDateKey is the calendar day before key.
func PreviousDateKey(key string) string {
	return ShiftDateKey(key, -1)
}

// DateRange returns the inclusive [start, end] keys covering rangeDays days ending on now's day.
func DateRange(now time.Time, rangeDays int) (string, string) {
	if rangeDays < 1 {
		rangeDays = 1
	}
	end := DateKey(now)
	return ShiftDateKey(end, -(rangeDays - 1)), end
}
