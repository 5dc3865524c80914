package recurrence

import (
	"reflect"
	"testing"
	"time"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func formatAll(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, FormatDate(d))
	}
	return out
}

func TestExpandDaily_InclusiveEnd(t *testing.T) {
	p := &event.Pattern{Type: event.TypeDaily, Interval: 3}
	got := formatAll(Expand(mustDate(t, "2025-01-01"), p, Config{End: mustDate(t, "2025-01-10")}))
	want := []string{"2025-01-01", "2025-01-04", "2025-01-07", "2025-01-10"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandDaily_Consecutive(t *testing.T) {
	p := &event.Pattern{Type: event.TypeDaily, Interval: 1}
	got := formatAll(Expand(mustDate(t, "2025-07-15"), p, Config{End: mustDate(t, "2025-07-19")}))
	want := []string{"2025-07-15", "2025-07-16", "2025-07-17", "2025-07-18", "2025-07-19"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandDaily_EndOffGrid(t *testing.T) {
	p := &event.Pattern{Type: event.TypeDaily, Interval: 3}
	got := formatAll(Expand(mustDate(t, "2025-01-01"), p, Config{End: mustDate(t, "2025-01-09")}))
	want := []string{"2025-01-01", "2025-01-04", "2025-01-07"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandWeekly_NoWeekdaySet(t *testing.T) {
	// Without an explicit weekday set the pattern steps whole weeks from
	// the anchor, end bound inclusive.
	p := &event.Pattern{Type: event.TypeWeekly, Interval: 2}
	got := formatAll(Expand(mustDate(t, "2025-07-15"), p, Config{End: mustDate(t, "2025-08-12")}))
	want := []string{"2025-07-15", "2025-07-29", "2025-08-12"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandWeekly_WeekdaysStopBeforeEnd(t *testing.T) {
	// 2025-07-15 is a Tuesday. With an explicit weekday set the scan stops
	// the day before the end bound, so 2025-07-29 itself never occurs even
	// though it is a Tuesday.
	p := &event.Pattern{
		Type:     event.TypeWeekly,
		Interval: 1,
		Weekdays: []time.Weekday{time.Tuesday, time.Thursday},
	}
	got := formatAll(Expand(mustDate(t, "2025-07-15"), p, Config{End: mustDate(t, "2025-07-29")}))
	want := []string{"2025-07-15", "2025-07-17", "2025-07-22", "2025-07-24"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandWeekly_ScanEveryWeekIgnoresInterval(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeWeekly,
		Interval: 2,
		Weekdays: []time.Weekday{time.Tuesday},
	}
	got := formatAll(Expand(mustDate(t, "2025-07-15"), p, Config{End: mustDate(t, "2025-08-13")}))
	want := []string{"2025-07-15", "2025-07-22", "2025-07-29", "2025-08-05", "2025-08-12"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandWeekly_HonorInterval(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeWeekly,
		Interval: 2,
		Weekdays: []time.Weekday{time.Tuesday},
	}
	cfg := Config{End: mustDate(t, "2025-08-13"), WeeklyInterval: HonorInterval}
	got := formatAll(Expand(mustDate(t, "2025-07-15"), p, cfg))
	want := []string{"2025-07-15", "2025-07-29", "2025-08-12"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandMonthly_MidMonthDay(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeMonthly,
		Interval: 1,
		Monthly:  &event.Monthly{Day: 15},
	}
	got := formatAll(Expand(mustDate(t, "2025-07-15"), p, Config{End: mustDate(t, "2025-12-15")}))
	want := []string{
		"2025-07-15", "2025-08-15", "2025-09-15",
		"2025-10-15", "2025-11-15", "2025-12-15",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandMonthly_SkipShortMonths(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeMonthly,
		Interval: 1,
		Monthly:  &event.Monthly{Day: 31},
	}
	got := formatAll(Expand(mustDate(t, "2025-01-31"), p, Config{End: mustDate(t, "2025-05-31")}))
	want := []string{"2025-01-31", "2025-03-31", "2025-05-31"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandMonthly_ClampToMonthEnd(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeMonthly,
		Interval: 1,
		Monthly:  &event.Monthly{Day: 31},
	}
	cfg := Config{End: mustDate(t, "2025-05-31"), Overflow: ClampToMonthEnd}
	got := formatAll(Expand(mustDate(t, "2025-01-31"), p, cfg))
	want := []string{"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandMonthly_NthWeekday(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeMonthly,
		Interval: 1,
		Monthly:  &event.Monthly{Nth: &event.NthWeekday{Week: 1, Weekday: time.Tuesday}},
	}
	got := formatAll(Expand(mustDate(t, "2025-01-07"), p, Config{End: mustDate(t, "2025-03-31")}))
	want := []string{"2025-01-07", "2025-02-04", "2025-03-04"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandMonthly_LastWeekday(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeMonthly,
		Interval: 1,
		Monthly:  &event.Monthly{Nth: &event.NthWeekday{Week: -1, Weekday: time.Friday}},
	}
	got := formatAll(Expand(mustDate(t, "2025-01-31"), p, Config{End: mustDate(t, "2025-03-31")}))
	want := []string{"2025-01-31", "2025-02-28", "2025-03-28"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandMonthly_NeverBeforeAnchor(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeMonthly,
		Interval: 1,
		Monthly:  &event.Monthly{Day: 15},
	}
	got := formatAll(Expand(mustDate(t, "2025-01-20"), p, Config{End: mustDate(t, "2025-03-31")}))
	want := []string{"2025-02-15", "2025-03-15"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpand_EndBeforeAnchor(t *testing.T) {
	p := &event.Pattern{Type: event.TypeDaily, Interval: 1}
	got := Expand(mustDate(t, "2025-06-01"), p, Config{End: mustDate(t, "2025-05-01")})
	if len(got) != 0 {
		t.Fatalf("expected no dates, got %v", formatAll(got))
	}
}

func TestExpand_NonRecurring(t *testing.T) {
	if got := Expand(mustDate(t, "2025-06-01"), nil, Config{}); got != nil {
		t.Fatalf("expected nil for nil pattern, got %v", formatAll(got))
	}
	p := &event.Pattern{Type: event.TypeNone}
	if got := Expand(mustDate(t, "2025-06-01"), p, Config{}); got != nil {
		t.Fatalf("expected nil for non-recurring pattern, got %v", formatAll(got))
	}
}

func TestExpand_OpenEndedCapped(t *testing.T) {
	p := &event.Pattern{Type: event.TypeDaily, Interval: 1}
	got := Expand(mustDate(t, "2025-01-01"), p, Config{MaxInstances: 5})
	if len(got) != 5 {
		t.Fatalf("expected 5 dates, got %d", len(got))
	}
	if FormatDate(got[4]) != "2025-01-05" {
		t.Fatalf("expected last date 2025-01-05, got %s", FormatDate(got[4]))
	}
}

func TestExpand_Deterministic(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeWeekly,
		Interval: 1,
		Weekdays: []time.Weekday{time.Monday, time.Wednesday},
	}
	cfg := Config{End: mustDate(t, "2025-09-01")}
	first := formatAll(Expand(mustDate(t, "2025-07-07"), p, cfg))
	second := formatAll(Expand(mustDate(t, "2025-07-07"), p, cfg))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expansion not deterministic: %v vs %v", first, second)
	}
}

func TestExpandPattern_PatternEndWins(t *testing.T) {
	p := &event.Pattern{
		Type:     event.TypeWeekly,
		Interval: 1,
		Weekdays: []time.Weekday{time.Tuesday, time.Thursday},
		EndDate:  "2025-07-29",
	}
	got := ExpandPattern("2025-07-15", p, Config{})
	want := []string{"2025-07-15", "2025-07-17", "2025-07-22", "2025-07-24"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandPattern_StricterBoundApplies(t *testing.T) {
	p := &event.Pattern{Type: event.TypeDaily, Interval: 1, EndDate: "2025-12-31"}
	got := ExpandPattern("2025-01-01", p, Config{End: mustDate(t, "2025-01-03")})
	want := []string{"2025-01-01", "2025-01-02", "2025-01-03"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandPattern_BadAnchor(t *testing.T) {
	p := &event.Pattern{Type: event.TypeDaily, Interval: 1}
	if got := ExpandPattern("not-a-date", p, Config{}); got != nil {
		t.Fatalf("expected nil for unparseable anchor, got %v", got)
	}
}
