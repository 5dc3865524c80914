package recurrence

import (
	"time"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

// DefaultMaxInstances bounds open-ended patterns. Callers that pass no end
// bound always get a finite sequence.
const DefaultMaxInstances = 1000

// MonthOverflowPolicy controls what a monthly day-of-month pattern does when
// the target day does not exist in a candidate month (day 31 in April).
type MonthOverflowPolicy int

const (
	// SkipShortMonths drops months that lack the target day. This is the
	// default: a "31st of the month" event simply has no April occurrence.
	SkipShortMonths MonthOverflowPolicy = iota
	// ClampToMonthEnd moves the occurrence to the last day of the month.
	ClampToMonthEnd
)

// WeeklyIntervalPolicy controls whether a weekly pattern with an explicit
// weekday set honors interval > 1. The legacy behavior scans every calendar
// day and filters by weekday, which makes "every 2 weeks on Tue" emit every
// Tuesday. ScanEveryWeek preserves that; HonorInterval emits only weekdays
// falling in a week block aligned to the anchor.
type WeeklyIntervalPolicy int

const (
	ScanEveryWeek WeeklyIntervalPolicy = iota
	HonorInterval
)

// Config bounds and tunes an expansion.
type Config struct {
	// End is the inclusive upper bound. The zero value means open-ended;
	// MaxInstances then binds.
	End time.Time
	// MaxInstances caps the sequence length. Zero or negative selects
	// DefaultMaxInstances.
	MaxInstances int

	Overflow       MonthOverflowPolicy
	WeeklyInterval WeeklyIntervalPolicy
}

// Expand returns the ascending sequence of dates a pattern occurs on,
// anchored at the master's start date. It is a pure function: no side
// effects, same inputs give the same sequence, and the result is always
// finite. A nil or non-recurring pattern expands to nothing.
func Expand(anchor time.Time, p *event.Pattern, cfg Config) []time.Time {
	if !p.Recurring() {
		return nil
	}

	anchor = midnight(anchor)
	max := cfg.MaxInstances
	if max <= 0 {
		max = DefaultMaxInstances
	}
	hasEnd := !cfg.End.IsZero()
	end := midnight(cfg.End)
	if hasEnd && end.Before(anchor) {
		return nil
	}
	interval := p.Interval
	if interval < 1 {
		interval = 1
	}

	switch p.Type {
	case event.TypeDaily:
		return stepDays(anchor, interval, hasEnd, end, max)
	case event.TypeWeekly:
		if len(p.Weekdays) == 0 {
			return stepDays(anchor, interval*7, hasEnd, end, max)
		}
		return scanWeekdays(anchor, p.Weekdays, interval, cfg.WeeklyInterval, hasEnd, end, max)
	case event.TypeMonthly:
		return stepMonths(anchor, p.Monthly, interval, cfg.Overflow, hasEnd, end, max)
	}
	return nil
}

// ExpandPattern is Expand with string dates at the boundary: anchor comes
// from the record's stored start date and the result is formatted back.
// The stricter of the pattern's own end date and cfg.End applies.
func ExpandPattern(startDate string, p *event.Pattern, cfg Config) []string {
	anchor, err := ParseDate(startDate)
	if err != nil {
		return nil
	}
	if p.Recurring() && p.EndDate != "" {
		if pEnd, err := ParseDate(p.EndDate); err == nil {
			if cfg.End.IsZero() || pEnd.Before(cfg.End) {
				cfg.End = pEnd
			}
		}
	}
	dates := Expand(anchor, p, cfg)
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, FormatDate(d))
	}
	return out
}

func stepDays(anchor time.Time, step int, hasEnd bool, end time.Time, max int) []time.Time {
	var dates []time.Time
	for d := anchor; !hasEnd || !d.After(end); d = d.AddDate(0, 0, step) {
		if len(dates) >= max {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

func scanWeekdays(anchor time.Time, weekdays []time.Weekday, interval int, policy WeeklyIntervalPolicy, hasEnd bool, end time.Time, max int) []time.Time {
	set := make(map[time.Weekday]bool, len(weekdays))
	for _, w := range weekdays {
		set[w] = true
	}

	// The day-by-day scan stops the day before the end bound, so an event
	// ending on one of its own weekdays does not occur on the end date
	// itself. Kept for compatibility with existing stored patterns.
	last := end.AddDate(0, 0, -1)

	var dates []time.Time
	for d := anchor; !hasEnd || !d.After(last); d = d.AddDate(0, 0, 1) {
		if len(dates) >= max {
			break
		}
		if !set[d.Weekday()] {
			continue
		}
		if policy == HonorInterval && interval > 1 {
			week := daysBetween(anchor, d) / 7
			if week%interval != 0 {
				continue
			}
		}
		dates = append(dates, d)
	}
	return dates
}

func stepMonths(anchor time.Time, m *event.Monthly, interval int, policy MonthOverflowPolicy, hasEnd bool, end time.Time, max int) []time.Time {
	var dates []time.Time

	// Hard iteration cap so sub-modes that skip months can never loop
	// forever on an open-ended pattern.
	for k := 0; k <= max*12; k++ {
		year, month := addMonths(anchor.Year(), anchor.Month(), k*interval)
		monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		if hasEnd && monthStart.After(end) {
			break
		}
		if len(dates) >= max {
			break
		}

		var candidate time.Time
		if m.Nth != nil {
			d, ok := NthWeekdayOfMonth(year, month, m.Nth.Week, m.Nth.Weekday)
			if !ok {
				continue
			}
			candidate = d
		} else {
			d, exact := ClampDayOfMonth(year, month, m.Day)
			if !exact && policy == SkipShortMonths {
				continue
			}
			candidate = d
		}

		if candidate.Before(anchor) {
			continue
		}
		if hasEnd && candidate.After(end) {
			continue
		}
		dates = append(dates, candidate)
	}
	return dates
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
