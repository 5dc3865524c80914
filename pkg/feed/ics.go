package feed

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

// ICS renders the records as an iCalendar document. Events with a start
// time become timed VEVENTs, the rest all-day ones. Record timezones are
// informational only; times are emitted as floating local times the way
// the listing stores them.
func ICS(calName string, records []event.Record) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//mayo-server//events//EN")
	if calName != "" {
		cal.SetName(calName)
		cal.SetXWRCalName(calName)
	}

	for i := range records {
		rec := &records[i]
		start, err := eventStart(rec)
		if err != nil {
			// Feed output skips what it cannot date; the API keeps it.
			continue
		}

		uid := rec.Key()
		if rec.RecurringInstance {
			uid = fmt.Sprintf("%s-%s", uid, rec.StartDate)
		}
		ev := cal.AddEvent(uid)
		ev.SetSummary(rec.Title)
		ev.SetDtStampTime(time.Now().UTC())

		if rec.StartTime == "" {
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(eventEnd(rec, start).AddDate(0, 0, 1))
		} else {
			ev.SetStartAt(start)
			ev.SetEndAt(eventEnd(rec, start))
		}

		if desc := StripHTML(rec.DescriptionHTML); desc != "" {
			ev.SetDescription(desc)
		}
		if loc := locationLine(rec); loc != "" {
			ev.SetLocation(loc)
		}
	}
	return cal.Serialize(), nil
}

func eventStart(rec *event.Record) (time.Time, error) {
	if rec.StartTime != "" {
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
			if t, err := time.Parse(layout, rec.StartDate+" "+rec.StartTime); err == nil {
				return t, nil
			}
		}
	}
	return time.Parse("2006-01-02", rec.StartDate)
}

func eventEnd(rec *event.Record, start time.Time) time.Time {
	endDate := rec.EndDate
	if endDate == "" {
		endDate = rec.StartDate
	}
	if rec.EndTime != "" {
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
			if t, err := time.Parse(layout, endDate+" "+rec.EndTime); err == nil {
				return t
			}
		}
	}
	if rec.StartTime != "" {
		// Timed event without an end time: assume an hour.
		return start.Add(time.Hour)
	}
	t, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return start
	}
	return t
}

func locationLine(rec *event.Record) string {
	return joinNonEmpty(", ", rec.Location.Name, rec.Location.Address, rec.Location.Details)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
