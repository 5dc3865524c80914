package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
	"github.com/bmlt-enabled/mayo-server/pkg/sources"
	"github.com/bmlt-enabled/mayo-server/pkg/storage"
)

func (s *Server) today() string {
	if s.Pipeline != nil && s.Pipeline.Now != nil {
		return s.Pipeline.Now().Format("2006-01-02")
	}
	return time.Now().Format("2006-01-02")
}

func (s *Server) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	anns, err := s.DB.ListAnnouncements(r.Context(), storage.AnnouncementOptions{
		Priority:    q.Get("priority"),
		ServiceBody: q.Get("service_body"),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	today := s.today()
	activeOnly := q.Get("active") != "false"
	catInclude, catExclude := sources.ParseTaxonomyFilter(q.Get("categories"))
	tagInclude, tagExclude := sources.ParseTaxonomyFilter(q.Get("tags"))

	out := []event.Announcement{}
	for _, ann := range anns {
		ann.Active = ann.ActiveOn(today)
		if activeOnly && !ann.Active {
			continue
		}
		if !annMatchesTaxonomy(&ann, catInclude, catExclude, (*event.Announcement).HasCategorySlug) {
			continue
		}
		if !annMatchesTaxonomy(&ann, tagInclude, tagExclude, (*event.Announcement).HasTagSlug) {
			continue
		}
		out = append(out, ann)
	}

	writeJSON(w, map[string]interface{}{
		"announcements": out,
		"total":         len(out),
	})
}

// annMatchesTaxonomy applies exclusion first, then requires membership in a
// non-empty include list, same rules as the event listing.
func annMatchesTaxonomy(ann *event.Announcement, include, exclude []string, has func(*event.Announcement, string) bool) bool {
	for _, slug := range exclude {
		if has(ann, slug) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, slug := range include {
		if has(ann, slug) {
			return true
		}
	}
	return false
}

func (s *Server) handleAnnouncementByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid announcement id", http.StatusBadRequest)
		return
	}
	ann, err := s.DB.GetAnnouncement(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "announcement not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Unmoderated submissions are not publicly addressable.
	if ann.Status != "publish" {
		http.Error(w, "announcement not found", http.StatusNotFound)
		return
	}
	ann.Active = ann.ActiveOn(s.today())
	writeJSON(w, ann)
}

// announcementSubmission is the POST /api/announcements payload. The date
// pair bounds when the announcement is displayed, not when anything occurs.
type announcementSubmission struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	ServiceBody string   `json:"service_body"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	ContactName string   `json:"contact_name"`
	Email       string   `json:"email"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleSubmitAnnouncement(w http.ResponseWriter, r *http.Request) {
	var sub announcementSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.DB.CreateAnnouncement(r.Context(), storage.NewAnnouncement{
		Title:        sub.Title,
		ContentHTML:  sub.Description,
		Status:       "pending",
		Priority:     sub.Priority,
		ServiceBody:  sub.ServiceBody,
		StartDate:    sub.StartDate,
		EndDate:      sub.EndDate,
		StartTime:    sub.StartTime,
		EndTime:      sub.EndTime,
		ContactName:  sub.ContactName,
		ContactEmail: sub.Email,
		Categories:   sub.Categories,
		Tags:         sub.Tags,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ann, err := s.DB.GetAnnouncement(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ann.Active = ann.ActiveOn(s.today())
	writeJSON(w, ann)
}

func (s *Server) handleSetAnnouncementStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid announcement id", http.StatusBadRequest)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !allowedStatuses[req.Status] {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if err := s.DB.SetAnnouncementStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "announcement not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
