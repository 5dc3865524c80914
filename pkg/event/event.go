// Package event defines the canonical event record that every source
// (local store, remote peer, meeting directory) is normalized into.
package event

// SourceKind identifies what kind of provider a record came from.
type SourceKind string

const (
	KindLocal     SourceKind = "local"
	KindExternal  SourceKind = "external-plugin"
	KindDirectory SourceKind = "external-directory"
)

// Source is provenance attached to every record, local ones included,
// so downstream code never has to treat "no source" as meaning local.
type Source struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind SourceKind `json:"kind"`
	URL  string     `json:"url,omitempty"`
}

// Term is a category or tag.
type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Location struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Details string `json:"details,omitempty"`
}

// Record is the canonical event shape. Dates are plain YYYY-MM-DD strings
// and times HH:MM[:SS]; a missing start time sorts as midnight.
type Record struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Status          string   `json:"status,omitempty"` // moderation state; only set on local records

	DescriptionHTML string   `json:"description,omitempty"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date,omitempty"`
	StartTime       string   `json:"start_time,omitempty"`
	EndTime         string   `json:"end_time,omitempty"`
	Timezone        string   `json:"timezone,omitempty"`
	EventType       string   `json:"event_type,omitempty"`
	ServiceBody     string   `json:"service_body,omitempty"`
	ServiceBodyName string   `json:"service_body_name,omitempty"`
	Location        Location `json:"location"`
	Categories      []Term   `json:"categories,omitempty"`
	Tags            []Term   `json:"tags,omitempty"`

	// Recurrence and Skipped are only ever set on a master record.
	// An expanded instance carries neither.
	Recurrence *Pattern `json:"recurring_pattern,omitempty"`
	Skipped    []string `json:"skipped_occurrences,omitempty"`

	Source            Source `json:"source"`
	RecurringInstance bool   `json:"is_recurring_instance,omitempty"`
}

// Key returns the identifier that is unique across sources. Record IDs are
// only unique within one source, so the pair disambiguates.
func (r *Record) Key() string {
	return r.Source.ID + "/" + r.ID
}

// HasTagSlug reports whether the record carries the given tag slug.
func (r *Record) HasTagSlug(slug string) bool {
	for _, t := range r.Tags {
		if t.Slug == slug {
			return true
		}
	}
	return false
}

// HasCategorySlug reports whether the record carries the given category slug.
func (r *Record) HasCategorySlug(slug string) bool {
	for _, c := range r.Categories {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

// Instance derives an expanded occurrence of a recurring master on the given
// date. The master's start-to-end duration (in days) is re-applied so multi
// day events stay multi day. The copy never carries the recurrence pattern.
func (r *Record) Instance(startDate, endDate string) Record {
	inst := *r
	inst.StartDate = startDate
	inst.EndDate = endDate
	inst.Recurrence = nil
	inst.Skipped = nil
	inst.RecurringInstance = true
	return inst
}
