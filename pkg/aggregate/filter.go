package aggregate

import (
	"strings"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
	"github.com/bmlt-enabled/mayo-server/pkg/sources"
)

// applyFilters re-applies the request's field filters to every record,
// regardless of origin. Sources get the same filters up front, but remote
// peers may honor them partially or not at all, so this pass is what makes
// the listing correct. Unknown filter values simply match nothing.
func applyFilters(records []event.Record, q sources.Query) []event.Record {
	catInclude, catExclude := sources.ParseTaxonomyFilter(q.Categories)
	tagInclude, tagExclude := sources.ParseTaxonomyFilter(q.Tags)
	serviceBodies := sources.SplitList(q.ServiceBody)

	var out []event.Record
	for _, rec := range records {
		if !matchesMeta(&rec, q.EventType, serviceBodies, q.Relation) {
			continue
		}
		if !matchesTaxonomy(&rec, catInclude, catExclude, (*event.Record).HasCategorySlug) {
			continue
		}
		if !matchesTaxonomy(&rec, tagInclude, tagExclude, (*event.Record).HasTagSlug) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// matchesMeta evaluates the event-type and service-body filters. The
// relation joins the two filters that are actually set: AND (default)
// requires all of them, OR requires at least one.
func matchesMeta(rec *event.Record, eventType string, serviceBodies []string, relation string) bool {
	var checks []bool
	if eventType != "" {
		checks = append(checks, rec.EventType == eventType)
	}
	if len(serviceBodies) > 0 {
		found := false
		for _, sb := range serviceBodies {
			if rec.ServiceBody == sb {
				found = true
				break
			}
		}
		checks = append(checks, found)
	}
	if len(checks) == 0 {
		return true
	}

	if strings.EqualFold(relation, "OR") {
		for _, ok := range checks {
			if ok {
				return true
			}
		}
		return false
	}
	for _, ok := range checks {
		if !ok {
			return false
		}
	}
	return true
}

// matchesTaxonomy applies exclusion first: a record carrying any excluded
// slug is dropped. With a non-empty include list the record must carry at
// least one of them.
func matchesTaxonomy(rec *event.Record, include, exclude []string, has func(*event.Record, string) bool) bool {
	for _, slug := range exclude {
		if has(rec, slug) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, slug := range include {
		if has(rec, slug) {
			return true
		}
	}
	return false
}
