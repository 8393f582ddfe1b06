package recurring

import (
	"fmt"
	"time"
)

// NextDueDate returns the occurrence strictly after from for the given
// frequency and optional anchors. Month-based frequencies clamp the target day
// into the destination month instead of letting the date normalize forward, so
// Jan 31 plus one month lands on Feb 29 in a leap year rather than Mar 2.
func NextDueDate(frequency Frequency, from time.Time, dayOfMonth *int, dayOfWeek *time.Weekday) time.Time {
	switch frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		if dayOfWeek != nil {
			// Next occurrence of the anchor weekday strictly after from,
			// always 1 to 7 days ahead.
			days := (int(*dayOfWeek)-int(from.Weekday())+6)%7 + 1
			return from.AddDate(0, 0, days)
		}
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return addMonthsClamped(from, 1, dayOfMonth)
	case FrequencyQuarterly:
		return addMonthsClamped(from, 3, dayOfMonth)
	case FrequencyYearly:
		return addMonthsClamped(from, 12, dayOfMonth)
	}
	panic(fmt.Sprintf("unknown frequency %q", frequency))
}

// InitialNextDueDate rolls a template's start date forward until it is not in
// the past, so templates created with a historical start date do not generate
// a backlog on their first run. A start date of today or later is kept as-is.
func InitialNextDueDate(frequency Frequency, startDate time.Time, dayOfMonth *int, dayOfWeek *time.Weekday, now time.Time) time.Time {
	next := startDate
	for next.Before(now) {
		next = NextDueDate(frequency, next, dayOfMonth, dayOfWeek)
	}
	return next
}

func addMonthsClamped(from time.Time, months int, dayAnchor *int) time.Time {
	year, month, day := from.Date()
	m := int(month) + months
	y := year + (m-1)/12
	m = (m-1)%12 + 1
	target := day
	if dayAnchor != nil {
		target = *dayAnchor
	}
	if last := daysInMonth(y, time.Month(m)); target > last {
		target = last
	}
	hour, min, sec := from.Clock()
	return time.Date(y, time.Month(m), target, hour, min, sec, from.Nanosecond(), from.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
