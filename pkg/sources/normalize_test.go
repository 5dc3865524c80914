package sources

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

func TestRecordFromJSON_FlatShape(t *testing.T) {
	raw := `{
		"id": 42,
		"title": "Unity Day",
		"description": "<p>All welcome</p>",
		"start_date": "2025-07-15",
		"end_date": "2025-07-16",
		"start_time": "10:00",
		"event_type": "Activity",
		"service_body": "5",
		"location": {"name": "City Hall", "address": "1 Main St"},
		"categories": [{"id": 3, "name": "Workshop", "slug": "workshop"}],
		"tags": [{"id": 8, "name": "Online", "slug": "online"}]
	}`
	src := event.Source{ID: "peer-a", Kind: event.KindExternal}
	rec := RecordFromJSON(gjson.Parse(raw), src)

	if rec.ID != "42" || rec.Title != "Unity Day" {
		t.Fatalf("identity fields wrong: %#v", rec)
	}
	if rec.StartDate != "2025-07-15" || rec.EndDate != "2025-07-16" || rec.StartTime != "10:00" {
		t.Fatalf("date fields wrong: %#v", rec)
	}
	if rec.EventType != "Activity" || rec.ServiceBody != "5" {
		t.Fatalf("meta fields wrong: %#v", rec)
	}
	if rec.Location.Name != "City Hall" || rec.Location.Address != "1 Main St" {
		t.Fatalf("location wrong: %#v", rec.Location)
	}
	if len(rec.Categories) != 1 || rec.Categories[0].Slug != "workshop" {
		t.Fatalf("categories wrong: %#v", rec.Categories)
	}
	if len(rec.Tags) != 1 || rec.Tags[0].ID != 8 {
		t.Fatalf("tags wrong: %#v", rec.Tags)
	}
	if rec.Source.ID != "peer-a" {
		t.Fatalf("provenance lost: %#v", rec.Source)
	}
}

func TestRecordFromJSON_LegacyNestedShape(t *testing.T) {
	raw := `{
		"id": "7",
		"title": {"rendered": "Area Assembly"},
		"content": {"rendered": "<p>Agenda attached</p>"},
		"meta": {
			"event_start_date": "2025-09-01",
			"event_start_time": "09:00",
			"event_type": "Service",
			"service_body": "12",
			"location_name": "Community Center",
			"recurring_pattern": {"type": "monthly", "monthlyType": "date", "monthlyDate": 1}
		},
		"skipped_occurrences": ["2025-10-01"]
	}`
	rec := RecordFromJSON(gjson.Parse(raw), event.Source{ID: "peer-b"})

	if rec.Title != "Area Assembly" {
		t.Fatalf("nested title not read: %q", rec.Title)
	}
	if rec.DescriptionHTML != "<p>Agenda attached</p>" {
		t.Fatalf("nested content not read: %q", rec.DescriptionHTML)
	}
	if rec.StartDate != "2025-09-01" || rec.EventType != "Service" {
		t.Fatalf("meta fields not read: %#v", rec)
	}
	if rec.Location.Name != "Community Center" {
		t.Fatalf("meta location not read: %#v", rec.Location)
	}
	if rec.Recurrence == nil || rec.Recurrence.Type != event.TypeMonthly {
		t.Fatalf("nested pattern not parsed: %#v", rec.Recurrence)
	}
	if len(rec.Skipped) != 1 || rec.Skipped[0] != "2025-10-01" {
		t.Fatalf("skipped occurrences not read: %v", rec.Skipped)
	}
}

func TestRecordFromJSON_MissingFields(t *testing.T) {
	rec := RecordFromJSON(gjson.Parse(`{"id": 1}`), event.Source{ID: "x"})
	if rec.Title != "" || rec.StartDate != "" || rec.Recurrence != nil {
		t.Fatalf("missing fields must stay empty: %#v", rec)
	}
}

func TestRecordFromJSON_NonRecurringPatternDropped(t *testing.T) {
	raw := `{"id": 1, "recurring_pattern": {"type": "none"}}`
	rec := RecordFromJSON(gjson.Parse(raw), event.Source{ID: "x"})
	if rec.Recurrence != nil {
		t.Fatalf("non-recurring pattern must not attach: %#v", rec.Recurrence)
	}
}

func TestResolveServiceBodyNames(t *testing.T) {
	records := []event.Record{
		{ServiceBody: "5"},
		{ServiceBody: "5", ServiceBodyName: "Already Named"},
		{ServiceBody: "Willamette Area"},
		{ServiceBody: "99"},
		{},
	}
	ResolveServiceBodyNames(records, map[string]string{"5": "River Area", "0": "Unaffiliated"})

	if records[0].ServiceBodyName != "River Area" {
		t.Fatalf("numeric code not resolved: %#v", records[0])
	}
	if records[1].ServiceBodyName != "Already Named" {
		t.Fatal("existing name must not be overwritten")
	}
	if records[2].ServiceBodyName != "" {
		t.Fatal("non-numeric service body must stay untouched")
	}
	if records[3].ServiceBodyName != "" {
		t.Fatal("unknown code must stay untouched")
	}
}

func TestResolveServiceBodyNames_EmptyMap(t *testing.T) {
	records := []event.Record{{ServiceBody: "5"}}
	ResolveServiceBodyNames(records, nil)
	if records[0].ServiceBodyName != "" {
		t.Fatal("nil lookup must be a no-op")
	}
}
