// Package recurrence turns a master record's recurrence pattern into the
// concrete calendar dates the event occurs on.
package recurrence

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDayOfMonth returns the given day within year/month, pulled back to
// the last day of the month when the month is shorter. The second return
// is false when clamping happened.
func ClampDayOfMonth(year int, month time.Month, day int) (time.Time, bool) {
	max := DaysInMonth(year, month)
	if day > max {
		return time.Date(year, month, max, 0, 0, 0, 0, time.UTC), false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// NthWeekdayOfMonth returns the date of the week-th occurrence of weekday in
// year/month. Week -1 selects the last occurrence. The second return is
// false when the month has no such occurrence (only possible for week 5).
func NthWeekdayOfMonth(year int, month time.Month, week int, weekday time.Weekday) (time.Time, bool) {
	if week == -1 {
		last := time.Date(year, month, DaysInMonth(year, month), 0, 0, 0, 0, time.UTC)
		back := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDate(0, 0, -back), true
	}
	if week < 1 || week > 5 {
		return time.Time{}, false
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	fwd := (int(weekday) - int(first.Weekday()) + 7) % 7
	d := first.AddDate(0, 0, fwd+(week-1)*7)
	if d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

// addMonths advances a year/month pair without the day-overflow
// normalization time.Time.AddDate would apply.
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	m := int(month) - 1 + n
	return year + m/12, time.Month(m%12 + 1)
}
