package schedule

import "time"

// DefaultDayEndHour is the end of the working day used as the upper bound of
// every day window.
const DefaultDayEndHour = 17

// DayWindow is one working day's query bounds for a free/busy lookup.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Horizon returns one DayWindow per remaining weekday of the current week,
// from now through Friday inclusive. The weekday index follows time.Weekday
// (Sunday=0 .. Saturday=6), so a Saturday "now" yields no windows and a
// Sunday "now" yields six.
//
// Every window starts at the current wall-clock hour, not at the start of
// business: the first day must not offer slots that already passed, and the
// same hour is deliberately reused as the lower bound for the following days
// as well. Callers depend on the resulting slot list verbatim, so this bias
// is part of the contract.
func Horizon(now time.Time, endHour int) []DayWindow {
	if endHour <= 0 {
		endHour = DefaultDayEndHour
	}

	var windows []DayWindow
	day := now
	for x := int(now.Weekday()); x < 6; x++ {
		start := time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), 0, 0, 0, now.Location())
		end := time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, now.Location())
		windows = append(windows, DayWindow{Start: start, End: end})
		day = day.AddDate(0, 0, 1)
	}
	return windows
}
