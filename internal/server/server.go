// Package server exposes the aggregated event listing, the submission
// endpoint, and the calendar/RSS feeds over HTTP.
package server

import (
	"log"
	"net/http"

	"github.com/bmlt-enabled/mayo-server/pkg/aggregate"
	"github.com/bmlt-enabled/mayo-server/pkg/sources"
	"github.com/bmlt-enabled/mayo-server/pkg/storage"
)

type Server struct {
	DB        *storage.DB
	Pipeline  *aggregate.Pipeline
	Directory *sources.Directory // nil when no BMLT root server is configured
	SiteURL   string
	Username  string
	Password  string
}

func New(db *storage.DB, pipeline *aggregate.Pipeline, directory *sources.Directory, siteURL, user, pass string) *Server {
	return &Server{
		DB:        db,
		Pipeline:  pipeline,
		Directory: directory,
		SiteURL:   siteURL,
		Username:  user,
		Password:  pass,
	}
}

func (s *Server) Start(addr string) error {
	log.Printf("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public API
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events/search", s.handleSearch)
	mux.HandleFunc("GET /api/events/{id}", s.handleEventByID)
	mux.HandleFunc("POST /api/events", s.handleSubmitEvent)
	mux.HandleFunc("GET /api/announcements", s.handleAnnouncements)
	mux.HandleFunc("GET /api/announcements/{id}", s.handleAnnouncementByID)
	mux.HandleFunc("POST /api/announcements", s.handleSubmitAnnouncement)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("GET /api/servicebodies", s.handleServiceBodies)
	mux.HandleFunc("POST /api/subscribers", s.handleSubscribe)

	// Feeds
	mux.HandleFunc("GET /feed.ics", s.handleICS)
	mux.HandleFunc("GET /feed.rss", s.handleRSS)

	// Moderation; protected when credentials are configured.
	mux.HandleFunc("GET /api/subscribers", s.basicAuth(s.handleListSubscribers))
	mux.HandleFunc("POST /api/events/{id}/status", s.basicAuth(s.handleSetStatus))
	mux.HandleFunc("POST /api/announcements/{id}/status", s.basicAuth(s.handleSetAnnouncementStatus))

	return mux
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
