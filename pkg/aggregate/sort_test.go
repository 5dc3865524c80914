package aggregate

import (
	"testing"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

func datedRecord(id, date, startTime string) event.Record {
	return event.Record{ID: id, Title: id, StartDate: date, StartTime: startTime}
}

func TestSortRecords_DateThenTime(t *testing.T) {
	recs := []event.Record{
		datedRecord("evening", "2025-07-10", "19:00"),
		datedRecord("next-day", "2025-07-11", "09:00"),
		datedRecord("morning", "2025-07-10", "08:30:00"),
		datedRecord("no-time", "2025-07-10", ""),
	}
	sortRecords(recs, "ASC")
	want := []string{"no-time", "morning", "evening", "next-day"}
	for i, w := range want {
		if recs[i].ID != w {
			t.Fatalf("position %d: expected %s, got %s (order %v)", i, w, recs[i].ID, titles(recs))
		}
	}
}

func TestSortRecords_Descending(t *testing.T) {
	recs := []event.Record{
		datedRecord("a", "2025-07-10", ""),
		datedRecord("b", "2025-07-20", ""),
		datedRecord("c", "2025-07-15", ""),
	}
	sortRecords(recs, "desc")
	want := []string{"b", "c", "a"}
	for i, w := range want {
		if recs[i].ID != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, recs[i].ID)
		}
	}
}

func TestSortRecords_InvalidDatesLast(t *testing.T) {
	recs := []event.Record{
		datedRecord("bad-z", "zzzz", ""),
		datedRecord("good", "2025-07-10", ""),
		datedRecord("bad-a", "april 1st", ""),
	}
	sortRecords(recs, "ASC")
	if recs[0].ID != "good" {
		t.Fatalf("valid date must sort first, got %v", titles(recs))
	}
	// Invalid dates order among themselves by raw key.
	if recs[1].ID != "bad-a" || recs[2].ID != "bad-z" {
		t.Fatalf("invalid dates not deterministic: %v", titles(recs))
	}

	// DESC keeps invalid records last.
	sortRecords(recs, "DESC")
	if recs[len(recs)-1].ID == "good" {
		t.Fatalf("invalid dates must stay last under DESC, got %v", titles(recs))
	}
}

func TestSortRecords_MalformedTimeFallsBackToDate(t *testing.T) {
	recs := []event.Record{
		datedRecord("later", "2025-07-12", "whenever"),
		datedRecord("earlier", "2025-07-10", "25:99"),
	}
	sortRecords(recs, "ASC")
	if recs[0].ID != "earlier" || recs[1].ID != "later" {
		t.Fatalf("date-only fallback broken: %v", titles(recs))
	}
}
