package sources

import (
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

// RecordFromJSON maps one raw event object into the canonical record shape,
// attaching source provenance. It tolerates both the flat shape this server
// emits and the legacy nested shape ({"title":{"rendered":...},"meta":{...}})
// peers may still send. Missing fields become empty values, never errors.
func RecordFromJSON(item gjson.Result, src event.Source) event.Record {
	rec := event.Record{Source: src}

	rec.ID = item.Get("id").String()
	rec.Title = firstString(item, "title.rendered", "title")
	rec.DescriptionHTML = firstString(item, "content.rendered", "description", "content")

	rec.StartDate = firstString(item, "meta.event_start_date", "start_date")
	rec.EndDate = firstString(item, "meta.event_end_date", "end_date")
	rec.StartTime = firstString(item, "meta.event_start_time", "start_time")
	rec.EndTime = firstString(item, "meta.event_end_time", "end_time")
	rec.Timezone = firstString(item, "meta.timezone", "timezone")
	rec.EventType = firstString(item, "meta.event_type", "event_type")
	rec.ServiceBody = firstString(item, "meta.service_body", "service_body")
	rec.ServiceBodyName = item.Get("service_body_name").String()

	rec.Location = event.Location{
		Name:    firstString(item, "meta.location_name", "location.name"),
		Address: firstString(item, "meta.location_address", "location.address"),
		Details: firstString(item, "meta.location_details", "location.details"),
	}

	rec.Categories = termsFromJSON(item.Get("categories"))
	rec.Tags = termsFromJSON(item.Get("tags"))

	if raw := firstRaw(item, "meta.recurring_pattern", "recurring_pattern"); raw != "" {
		p := event.ParsePattern([]byte(raw))
		if p.Recurring() {
			rec.Recurrence = p
		}
	}
	for _, d := range item.Get("skipped_occurrences").Array() {
		rec.Skipped = append(rec.Skipped, d.String())
	}
	rec.RecurringInstance = item.Get("is_recurring_instance").Bool()

	return rec
}

func termsFromJSON(arr gjson.Result) []event.Term {
	var out []event.Term
	for _, t := range arr.Array() {
		out = append(out, event.Term{
			ID:   t.Get("id").Int(),
			Name: t.Get("name").String(),
			Slug: t.Get("slug").String(),
		})
	}
	return out
}

func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func firstRaw(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); v.IsObject() {
			return v.Raw
		}
	}
	return ""
}

// ResolveServiceBodyNames fills in human names for numeric service-body
// codes using the directory lookup. Records that already carry a name, and
// codes the lookup cannot resolve, are left as is.
func ResolveServiceBodyNames(records []event.Record, names map[string]string) {
	if len(names) == 0 {
		return
	}
	for i := range records {
		if records[i].ServiceBodyName != "" || records[i].ServiceBody == "" {
			continue
		}
		if _, err := strconv.Atoi(records[i].ServiceBody); err != nil {
			continue
		}
		if name, ok := names[records[i].ServiceBody]; ok {
			records[i].ServiceBodyName = name
		}
	}
}
