package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bmlt-enabled/mayo-server/pkg/aggregate"
	"github.com/bmlt-enabled/mayo-server/pkg/event"
	"github.com/bmlt-enabled/mayo-server/pkg/feed"
	"github.com/bmlt-enabled/mayo-server/pkg/sources"
	"github.com/bmlt-enabled/mayo-server/pkg/storage"
)

func (s *Server) aggregateRequest(r *http.Request) aggregate.Request {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	return aggregate.Request{
		Query: sources.Query{
			Status:      q.Get("status"),
			EventType:   q.Get("event_type"),
			ServiceBody: q.Get("service_body"),
			Relation:    q.Get("relation"),
			Categories:  q.Get("categories"),
			Tags:        q.Get("tags"),
			Archive:     q.Get("archive") == "true",
			RangeStart:  q.Get("start_date"),
			RangeEnd:    q.Get("end_date"),
		},
		SourceIDs: sources.SplitList(q.Get("source_ids")),
		Page:      page,
		PerPage:   perPage,
		Order:     q.Get("order"),
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	result, err := s.Pipeline.Aggregate(r.Context(), s.aggregateRequest(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleEventByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	rec, err := s.DB.GetEvent(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Unmoderated submissions are not publicly addressable.
	if rec.Status != "publish" {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	rec.Source = localSource(s.SiteURL)
	writeJSON(w, rec)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	records, err := s.DB.SearchEvents(r.Context(), q.Get("search"), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	src := localSource(s.SiteURL)
	for i := range records {
		records[i].Source = src
	}
	writeJSON(w, map[string]interface{}{"events": records})
}

// submission is the POST /api/events payload. Terms arrive as lists of
// names; the recurrence pattern in its stored JSON shape.
type submission struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	EventType       string          `json:"event_type"`
	ServiceBody     string          `json:"service_body"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	Timezone        string          `json:"timezone"`
	LocationName    string          `json:"location_name"`
	LocationAddress string          `json:"location_address"`
	LocationDetails string          `json:"location_details"`
	ContactName     string          `json:"contact_name"`
	ContactEmail    string          `json:"email"`
	Pattern         json.RawMessage `json:"recurring_pattern"`
	Categories      []string        `json:"categories"`
	Tags            []string        `json:"tags"`
}

func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var sub submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	patternJSON := ""
	if len(sub.Pattern) > 0 {
		// Round-trip through the parser so only well-formed recurring
		// patterns get stored.
		p := event.ParsePattern(sub.Pattern)
		if p.Recurring() {
			data, err := json.Marshal(p)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			patternJSON = string(data)
		}
	}

	id, err := s.DB.CreateEvent(r.Context(), storage.NewEvent{
		Title:           sub.Title,
		DescriptionHTML: sub.Description,
		Status:          "pending",
		EventType:       sub.EventType,
		ServiceBody:     sub.ServiceBody,
		StartDate:       sub.StartDate,
		EndDate:         sub.EndDate,
		StartTime:       sub.StartTime,
		EndTime:         sub.EndTime,
		Timezone:        sub.Timezone,
		LocationName:    sub.LocationName,
		LocationAddress: sub.LocationAddress,
		LocationDetails: sub.LocationDetails,
		ContactName:     sub.ContactName,
		ContactEmail:    sub.ContactEmail,
		PatternJSON:     patternJSON,
		Categories:      sub.Categories,
		Tags:            sub.Tags,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.DB.GetEvent(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rec.Source = localSource(s.SiteURL)
	writeJSON(w, rec)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	srcs := []event.Source{localSource(s.SiteURL)}
	for _, f := range s.Pipeline.External {
		srcs = append(srcs, f.Source())
	}
	writeJSON(w, map[string]interface{}{"sources": srcs})
}

func (s *Server) handleServiceBodies(w http.ResponseWriter, r *http.Request) {
	if s.Directory == nil {
		writeJSON(w, []sources.ServiceBody{})
		return
	}
	bodies, err := s.Directory.ServiceBodies(r.Context())
	if err != nil {
		// Lookup failure is non-fatal everywhere else; same here.
		writeJSON(w, []sources.ServiceBody{})
		return
	}
	writeJSON(w, bodies)
}

type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.DB.AddSubscriber(r.Context(), req.Email, req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]bool{"subscribed": true})
}

func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := s.DB.ListSubscribers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, subs)
}

type statusRequest struct {
	Status string `json:"status"`
}

var allowedStatuses = map[string]bool{"pending": true, "publish": true, "trash": true}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
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
	if err := s.DB.SetStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// feedRecords runs the aggregation with feed-friendly pagination: one big
// page, upcoming events only.
func (s *Server) feedRecords(r *http.Request) ([]event.Record, error) {
	req := s.aggregateRequest(r)
	req.Page = 1
	req.PerPage = 500
	result, err := s.Pipeline.Aggregate(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return result.Events, nil
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	records, err := s.feedRecords(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	body, err := feed.ICS("Community Events", records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	records, err := s.feedRecords(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	body, err := feed.RSS("Community Events", s.SiteURL, records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func localSource(siteURL string) event.Source {
	return event.Source{ID: "local", Name: "Local Events", Kind: event.KindLocal, URL: siteURL}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
