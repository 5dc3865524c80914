package aggregate

import (
	"testing"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
	"github.com/bmlt-enabled/mayo-server/pkg/sources"
)

func taggedRecord(id, eventType, serviceBody string, catSlugs, tagSlugs []string) event.Record {
	rec := event.Record{ID: id, Title: id, StartDate: "2025-07-10", EventType: eventType, ServiceBody: serviceBody}
	for _, s := range catSlugs {
		rec.Categories = append(rec.Categories, event.Term{Slug: s})
	}
	for _, s := range tagSlugs {
		rec.Tags = append(rec.Tags, event.Term{Slug: s})
	}
	return rec
}

func titles(recs []event.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Title)
	}
	return out
}

func TestApplyFilters_MetaAND(t *testing.T) {
	recs := []event.Record{
		taggedRecord("both", "Service", "5", nil, nil),
		taggedRecord("type-only", "Service", "9", nil, nil),
		taggedRecord("body-only", "Activity", "5", nil, nil),
	}
	got := applyFilters(recs, sources.Query{EventType: "Service", ServiceBody: "5", Relation: "AND"})
	if len(got) != 1 || got[0].ID != "both" {
		t.Fatalf("AND relation: expected [both], got %v", titles(got))
	}
}

func TestApplyFilters_MetaOR(t *testing.T) {
	recs := []event.Record{
		taggedRecord("both", "Service", "5", nil, nil),
		taggedRecord("type-only", "Service", "9", nil, nil),
		taggedRecord("body-only", "Activity", "5", nil, nil),
		taggedRecord("neither", "Activity", "9", nil, nil),
	}
	got := applyFilters(recs, sources.Query{EventType: "Service", ServiceBody: "5", Relation: "OR"})
	if len(got) != 3 {
		t.Fatalf("OR relation: expected 3 records, got %v", titles(got))
	}
	for _, r := range got {
		if r.ID == "neither" {
			t.Fatal("OR relation must not match a record satisfying no filter")
		}
	}
}

func TestApplyFilters_ServiceBodyList(t *testing.T) {
	recs := []event.Record{
		taggedRecord("a", "", "5", nil, nil),
		taggedRecord("b", "", "7", nil, nil),
		taggedRecord("c", "", "9", nil, nil),
	}
	got := applyFilters(recs, sources.Query{ServiceBody: "5, 9"})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %v", titles(got))
	}
}

func TestApplyFilters_CategoryInclude(t *testing.T) {
	recs := []event.Record{
		taggedRecord("workshop", "", "", []string{"workshop"}, nil),
		taggedRecord("social", "", "", []string{"social"}, nil),
		taggedRecord("untagged", "", "", nil, nil),
	}
	got := applyFilters(recs, sources.Query{Categories: "workshop,dance"})
	if len(got) != 1 || got[0].ID != "workshop" {
		t.Fatalf("expected [workshop], got %v", titles(got))
	}
}

func TestApplyFilters_TagExclusion(t *testing.T) {
	recs := []event.Record{
		taggedRecord("keep", "", "", nil, []string{"online"}),
		taggedRecord("drop", "", "", nil, []string{"online", "cancelled"}),
		taggedRecord("plain", "", "", nil, nil),
	}
	got := applyFilters(recs, sources.Query{Tags: "-cancelled"})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %v", titles(got))
	}
	for _, r := range got {
		if r.ID == "drop" {
			t.Fatal("record with excluded tag must be dropped")
		}
	}
}

func TestApplyFilters_ExclusionBeatsInclusion(t *testing.T) {
	recs := []event.Record{
		taggedRecord("both", "", "", nil, []string{"online", "cancelled"}),
	}
	got := applyFilters(recs, sources.Query{Tags: "online,-cancelled"})
	if len(got) != 0 {
		t.Fatalf("excluded slug must win over included one, got %v", titles(got))
	}
}

func TestApplyFilters_NoFiltersPassesEverything(t *testing.T) {
	recs := []event.Record{
		taggedRecord("a", "Service", "5", []string{"workshop"}, nil),
		taggedRecord("b", "", "", nil, nil),
	}
	got := applyFilters(recs, sources.Query{})
	if len(got) != 2 {
		t.Fatalf("expected all records to pass, got %v", titles(got))
	}
}
