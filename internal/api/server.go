// Package api serves the scanner over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jarredhawkins/omniparse/internal/index"
	"github.com/jarredhawkins/omniparse/internal/lang"
)

// MaxBodyBytes caps the size of a request body.
const MaxBodyBytes = 8 << 20

// Server is the HTTP API server for omniparse.
type Server struct {
	router chi.Router
	langs  *lang.Set
	index  *index.Index // Optional, enables the workspace endpoints
	log    zerolog.Logger
}

// NewServer creates and configures the HTTP server. idx may be nil.
func NewServer(langs *lang.Set, idx *index.Index, log zerolog.Logger) *Server {
	s := &Server{
		langs: langs,
		index: idx,
		log:   log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/api/languages", s.handleLanguages)

	r.Post("/api/parse", s.handleParse)
	r.Post("/api/render", s.handleRender)
	r.Post("/api/json", s.handleJSON)

	// Workspace endpoints
	r.Group(func(r chi.Router) {
		r.Use(s.requireIndex)

		r.Get("/api/stats", s.handleStats)
		r.Get("/api/segments/{type}", s.handleSegments)
		r.Get("/api/definitions", s.handleDefinitions)
		r.Get("/api/references", s.handleReferences)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": s.langs.Names()})
}

func (s *Server) requireIndex(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.index == nil {
			jsonError(w, "no workspace is indexed", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}
