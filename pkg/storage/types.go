package storage

import "time"

// Taxonomy names accepted by term helpers.
const (
	TaxCategory = "category"
	TaxTag      = "tag"
)

// NewEvent carries the fields accepted when creating an event. Terms are
// given as names; slugs are derived and reused when they already exist.
type NewEvent struct {
	Title           string
	DescriptionHTML string
	Status          string // defaults to "pending"
	EventType       string
	ServiceBody     string
	StartDate       string
	EndDate         string
	StartTime       string
	EndTime         string
	Timezone        string
	LocationName    string
	LocationAddress string
	LocationDetails string
	ContactName     string
	ContactEmail    string
	PatternJSON     string // recurrence pattern as stored JSON, empty = none
	Categories      []string
	Tags            []string
}

// ListOptions controls selection when listing events. Category and tag
// membership is filtered later in the aggregation pipeline, uniformly with
// external records, so it is not part of the SQL query.
type ListOptions struct {
	Status        string // defaults to "publish"
	EventType     string
	ServiceBodies []string // matches any of these when non-empty
	Relation      string   // "AND" (default) or "OR" between the two filters above
	OnlyRecurring bool
}

// StatusCount is one row of the per-status event tally.
type StatusCount struct {
	Status    string
	Events    int
	Recurring int
}

// Subscriber is one email-subscription record. Delivery is out of scope;
// the server only stores and lists them.
type Subscriber struct {
	ID        int64
	Email     string
	Name      string
	Confirmed bool
	CreatedAt time.Time
}
