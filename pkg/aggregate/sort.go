package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

var sortLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// sortKey builds the record's chronological key. The second return is
// false when the start date does not parse; such records sort after every
// valid one rather than being dropped.
func sortKey(rec *event.Record) (time.Time, string, bool) {
	t := rec.StartTime
	if t == "" {
		t = "00:00:00"
	}
	raw := strings.TrimSpace(rec.StartDate + " " + t)
	for _, layout := range sortLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, raw, true
		}
	}
	// Date may still be fine with a malformed time.
	if parsed, err := time.Parse("2006-01-02", rec.StartDate); err == nil {
		return parsed, raw, true
	}
	return time.Time{}, raw, false
}

// sortRecords orders records chronologically by start date and time, ties
// broken by original fetch order. Records with unparseable dates go last,
// ordered among themselves by their raw key so the result stays
// deterministic. DESC reverses only the valid-dated records.
func sortRecords(records []event.Record, order string) {
	desc := strings.EqualFold(order, "DESC")

	type item struct {
		rec   event.Record
		t     time.Time
		raw   string
		valid bool
	}
	items := make([]item, len(records))
	for i := range records {
		t, raw, ok := sortKey(&records[i])
		items[i] = item{rec: records[i], t: t, raw: raw, valid: ok}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.valid && !b.valid:
			return true
		case !a.valid && b.valid:
			return false
		case !a.valid && !b.valid:
			return a.raw < b.raw
		}
		if desc {
			return a.t.After(b.t)
		}
		return a.t.Before(b.t)
	})

	for i := range items {
		records[i] = items[i].rec
	}
}
