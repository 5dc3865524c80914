package event

// AnnouncementPriorities are the accepted priority levels, lowest to highest.
var AnnouncementPriorities = []string{"low", "normal", "high", "urgent"}

// Announcement is a site notice with an optional display window. Unlike
// events, announcements are purely local: they are never fetched from
// remote sources and carry no recurrence.
type Announcement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ContentHTML string `json:"content,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority"`
	ServiceBody string `json:"service_body,omitempty"`
	StartDate   string `json:"display_start_date,omitempty"`
	EndDate     string `json:"display_end_date,omitempty"`
	StartTime   string `json:"display_start_time,omitempty"`
	EndTime     string `json:"display_end_time,omitempty"`
	Categories  []Term `json:"categories,omitempty"`
	Tags        []Term `json:"tags,omitempty"`
	Active      bool   `json:"is_active"`
	CreatedAt   string `json:"created_date,omitempty"`
}

// ActiveOn reports whether the display window covers the given date
// (YYYY-MM-DD). Empty bounds are open ended.
func (a *Announcement) ActiveOn(today string) bool {
	if a.StartDate != "" && a.StartDate > today {
		return false
	}
	if a.EndDate != "" && a.EndDate < today {
		return false
	}
	return true
}

// HasTagSlug reports whether the announcement carries the given tag slug.
func (a *Announcement) HasTagSlug(slug string) bool {
	for _, t := range a.Tags {
		if t.Slug == slug {
			return true
		}
	}
	return false
}

// HasCategorySlug reports whether the announcement carries the given
// category slug.
func (a *Announcement) HasCategorySlug(slug string) bool {
	for _, c := range a.Categories {
		if c.Slug == slug {
			return true
		}
	}
	return false
}
