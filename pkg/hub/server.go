// Package hub provides the HTTP API over a skills corpus: listing, reading,
// searching, and bundled delivery of skills for an assistant host.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/skillhubdev/skillhub/pkg/bundle"
	"github.com/skillhubdev/skillhub/pkg/index"
	"github.com/skillhubdev/skillhub/pkg/logger"
	"github.com/skillhubdev/skillhub/pkg/skill"
)

// ServerConfig holds the configuration for the hub server
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server serves the corpus API
type Server struct {
	router    *mux.Router
	discovery *skill.Discovery
	idx       *index.Index
	bundler   *bundle.Bundler
	config    *ServerConfig
	server    *http.Server
}

// NewServer creates a new hub server. The index is optional; without it the
// search endpoint reports 503.
func NewServer(config *ServerConfig, discovery *skill.Discovery, idx *index.Index) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	bundler, err := bundle.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create bundler")
	}

	s := &Server{
		router:    mux.NewRouter(),
		discovery: discovery,
		idx:       idx,
		bundler:   bundler,
		config:    config,
	}

	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	api.HandleFunc("/skills/{name}", s.handleGetSkill).Methods("GET")
	api.HandleFunc("/skills/{name}/bundle", s.handleGetBundle).Methods("GET")
	api.HandleFunc("/skills/{name}/references/{path:.*}", s.handleGetReference).Methods("GET")
	api.HandleFunc("/search", s.handleSearch).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// Handler returns the configured router, useful for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:    address,
		Handler: s.router,
	}

	logger.G(ctx).WithField("address", address).Info("Starting hub server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.G(ctx).WithError(err).Error("Hub server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.G(r.Context()).WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	})
}

type skillSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`
	RefCount    int    `json:"refCount"`
}

type skillDetail struct {
	skillSummary
	Directory  string     `json:"directory"`
	Content    string     `json:"content"`
	References []refEntry `json:"references"`
}

type refEntry struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.discovery.DiscoverSkills()
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusInternalServerError, "failed to discover skills", err)
		return
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]skillSummary, 0, len(names))
	for _, name := range names {
		sk := skills[name]
		summaries = append(summaries, skillSummary{
			Name:        sk.Name,
			Description: sk.Description,
			Version:     sk.Version,
			RefCount:    len(sk.References),
		})
	}

	s.writeJSONResponse(w, r, map[string]any{"skills": summaries})
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	sk, err := s.discovery.GetSkill(name)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusNotFound, "skill not found", err)
		return
	}

	detail := skillDetail{
		skillSummary: skillSummary{
			Name:        sk.Name,
			Description: sk.Description,
			Version:     sk.Version,
			RefCount:    len(sk.References),
		},
		Directory: sk.Directory,
		Content:   sk.Content,
	}
	for _, ref := range sk.References {
		detail.References = append(detail.References, refEntry{Path: ref.Path, Title: ref.Title})
	}

	s.writeJSONResponse(w, r, detail)
}

func (s *Server) handleGetReference(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	path := vars["path"]

	sk, err := s.discovery.GetSkill(name)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusNotFound, "skill not found", err)
		return
	}

	ref, ok := sk.Reference(skill.ReferencesDirName + "/" + path)
	if !ok {
		s.writeErrorResponse(w, r, http.StatusNotFound, "reference not found", nil)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, ref.Content)
}

func (s *Server) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	sk, err := s.discovery.GetSkill(name)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusNotFound, "skill not found", err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if err := s.bundler.WriteDir(w, sk.Directory); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to write bundle")
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.idx == nil {
		s.writeErrorResponse(w, r, http.StatusServiceUnavailable, "search index not configured", nil)
		return
	}

	query := r.URL.Query().Get("q")
	matches, err := s.idx.Search(r.Context(), query)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "search failed", err)
		return
	}

	if matches == nil {
		matches = []index.Match{}
	}

	s.writeJSONResponse(w, r, map[string]any{"query": query, "matches": matches})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, r, map[string]any{"status": "ok"})
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, r *http.Request, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	if err != nil {
		logger.G(r.Context()).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode error response")
	}
}
