package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PatternType enumerates the supported recurrence types. Anything else on
// the wire parses to TypeNone and the record behaves as non-recurring.
type PatternType string

const (
	TypeNone    PatternType = "none"
	TypeDaily   PatternType = "daily"
	TypeWeekly  PatternType = "weekly"
	TypeMonthly PatternType = "monthly"
)

// NthWeekday picks the week-th occurrence of a weekday within a month.
// Week -1 means the last occurrence.
type NthWeekday struct {
	Week    int
	Weekday time.Weekday
}

// Monthly is the monthly sub-mode: exactly one of Day (day-of-month) or
// Nth (nth weekday) is in effect. Nth wins when set.
type Monthly struct {
	Day int
	Nth *NthWeekday
}

// Pattern is a recurrence rule attached to a master record.
type Pattern struct {
	Type     PatternType
	Interval int
	Weekdays []time.Weekday // weekly only; empty means every day qualifies
	Monthly  *Monthly       // monthly only
	EndDate  string         // inclusive YYYY-MM-DD bound, empty = open-ended
}

// Recurring reports whether the pattern actually recurs.
func (p *Pattern) Recurring() bool {
	if p == nil {
		return false
	}
	switch p.Type {
	case TypeDaily, TypeWeekly:
		return true
	case TypeMonthly:
		return p.Monthly != nil
	}
	return false
}

// wirePattern matches the JSON shape used when storing a master's pattern
// and when round-tripping through submission forms. monthlyWeekday is the
// legacy "week,weekday" pair, e.g. "-1,0" for the last Sunday.
type wirePattern struct {
	Type           string `json:"type"`
	Interval       int    `json:"interval,omitempty"`
	Weekdays       []int  `json:"weekdays,omitempty"`
	MonthlyType    string `json:"monthlyType,omitempty"`
	MonthlyDate    int    `json:"monthlyDate,omitempty"`
	MonthlyWeekday string `json:"monthlyWeekday,omitempty"`
	EndDate        string `json:"endDate,omitempty"`
}

func (p Pattern) MarshalJSON() ([]byte, error) {
	w := wirePattern{
		Type:     string(p.Type),
		Interval: p.Interval,
		EndDate:  p.EndDate,
	}
	if w.Type == "" {
		w.Type = string(TypeNone)
	}
	for _, d := range p.Weekdays {
		w.Weekdays = append(w.Weekdays, int(d))
	}
	if p.Monthly != nil {
		if p.Monthly.Nth != nil {
			w.MonthlyType = "weekday"
			w.MonthlyWeekday = fmt.Sprintf("%d,%d", p.Monthly.Nth.Week, int(p.Monthly.Nth.Weekday))
		} else {
			w.MonthlyType = "date"
			w.MonthlyDate = p.Monthly.Day
		}
	}
	return json.Marshal(w)
}

func (p *Pattern) UnmarshalJSON(data []byte) error {
	var w wirePattern
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed := fromWire(w)
	*p = *parsed
	return nil
}

// ParsePattern decodes a stored pattern. A malformed payload or an unknown
// type yields a non-recurring pattern, never an error the caller has to
// branch on.
func ParsePattern(data []byte) *Pattern {
	if len(data) == 0 {
		return &Pattern{Type: TypeNone, Interval: 1}
	}
	var w wirePattern
	if err := json.Unmarshal(data, &w); err != nil {
		return &Pattern{Type: TypeNone, Interval: 1}
	}
	return fromWire(w)
}

func fromWire(w wirePattern) *Pattern {
	p := &Pattern{
		Interval: w.Interval,
		EndDate:  w.EndDate,
	}
	if p.Interval < 1 {
		p.Interval = 1
	}

	switch PatternType(w.Type) {
	case TypeDaily:
		p.Type = TypeDaily
	case TypeWeekly:
		p.Type = TypeWeekly
		for _, d := range w.Weekdays {
			if d >= 0 && d <= 6 {
				p.Weekdays = append(p.Weekdays, time.Weekday(d))
			}
		}
	case TypeMonthly:
		p.Type = TypeMonthly
		switch {
		case w.MonthlyType == "weekday" || (w.MonthlyType == "" && w.MonthlyWeekday != ""):
			nth, ok := parseNthWeekday(w.MonthlyWeekday)
			if !ok {
				p.Type = TypeNone
				return p
			}
			p.Monthly = &Monthly{Nth: &nth}
		case w.MonthlyDate >= 1 && w.MonthlyDate <= 31:
			p.Monthly = &Monthly{Day: w.MonthlyDate}
		default:
			// Missing sub-mode: treat as non-recurring.
			p.Type = TypeNone
		}
	default:
		p.Type = TypeNone
	}
	return p
}

func parseNthWeekday(s string) (NthWeekday, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return NthWeekday{}, false
	}
	week, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return NthWeekday{}, false
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return NthWeekday{}, false
	}
	if (week < 1 || week > 5) && week != -1 {
		return NthWeekday{}, false
	}
	if day < 0 || day > 6 {
		return NthWeekday{}, false
	}
	return NthWeekday{Week: week, Weekday: time.Weekday(day)}, true
}
