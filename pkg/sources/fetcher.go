// Package sources contains the event providers the aggregation pipeline
// fans out to: the local store, remote peer instances, and the BMLT
// meeting directory.
package sources

import (
	"context"
	"strings"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

// Query carries the filters a listing request passes down to each source.
// Sources apply what they can; the pipeline re-applies taxonomy filters
// afterwards so sources that ignore them stay correct.
type Query struct {
	Status      string // local only; defaults to "publish"
	EventType   string
	ServiceBody string // comma-separated ids/names
	Relation    string // AND | OR between EventType and ServiceBody
	Categories  string // comma-separated slugs, "-slug" excludes
	Tags        string
	Archive     bool
	RangeStart  string // optional YYYY-MM-DD window, overrides archive logic
	RangeEnd    string
	Today       string // the pipeline's "today", YYYY-MM-DD
}

// Fetcher is one provider of event records.
type Fetcher interface {
	Source() event.Source
	Fetch(ctx context.Context, q Query) ([]event.Record, error)
}

// SplitList splits a comma-separated filter value, trimming blanks.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseTaxonomyFilter separates a comma-separated slug list into includes
// and excludes. A leading '-' marks exclusion.
func ParseTaxonomyFilter(filter string) (include, exclude []string) {
	for _, item := range SplitList(filter) {
		if strings.HasPrefix(item, "-") {
			if v := strings.TrimPrefix(item, "-"); v != "" {
				exclude = append(exclude, v)
			}
		} else {
			include = append(include, item)
		}
	}
	return include, exclude
}
