// Package httpserver provides the HTTP REST API server for the literature search service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/enrich"
	"github.com/meridianlabs/literature-search-service/internal/observability"
	"github.com/meridianlabs/literature-search-service/internal/sources"
)

// SearchService runs a neutral query against the registered literature
// databases. The sources.Aggregator implements it.
type SearchService interface {
	EnabledSources() []sources.SearchSource
	SearchSources(ctx context.Context, params sources.SearchParams, sourceTypes []domain.SourceType) []sources.SourceResult
}

// EnrichmentService backfills missing DOIs on search results and recovers
// records from stored PDF documents.
type EnrichmentService interface {
	BackfillDOIs(ctx context.Context, records []domain.Record) int
	ProcessFolder(ctx context.Context, folderID string) ([]enrich.Document, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   SearchService
	enricher   EnrichmentService
	validate   *validator.Validate
	metrics    *observability.Metrics
	logger     zerolog.Logger
	cfg        Config
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MaxRecords caps how many records per source one request may ask for.
	MaxRecords int

	// SearchTimeout bounds one aggregated search across all databases.
	// Zero means the request context alone bounds the search.
	SearchTimeout time.Duration

	// DefaultFolderID is the Drive folder scanned when a document-scan
	// request names none.
	DefaultFolderID string
}

// NewServer creates a new HTTP server. enricher may be nil when DOI
// backfill and document scanning are disabled; metrics may be nil when
// instrumentation is disabled.
func NewServer(
	cfg Config,
	searcher SearchService,
	enricher EnrichmentService,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		searcher: searcher,
		enricher: enricher,
		validate: newValidator(),
		metrics:  metrics,
		logger:   logger.With().Str("component", "http-server").Logger(),
		cfg:      cfg,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/searches", s.runSearch)
		r.Post("/document-scans", s.scanDocuments)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether at least one literature database is
// enabled and ready to be searched.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	enabled := s.searcher.EnabledSources()
	if len(enabled) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  "no literature databases are enabled",
		})
		return
	}

	names := make([]string, len(enabled))
	for i, src := range enabled {
		names[i] = src.Name()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ready",
		"sources": names,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
