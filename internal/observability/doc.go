// Package observability provides logging and metrics support for the
// literature search service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, sources, and document enrichment
//   - Context helpers for propagating the request ID
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("search started")
//
// Add search context to logger:
//
//	logger = observability.WithSearchContext(logger, queryText, "scopus")
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("litsearch")
//
// Record metrics:
//
//	metrics.RecordSearchStarted("wos")
//	metrics.RecordRecordsFetched("wos", 42)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: Search request identifier
//   - query: Rendered search query
//   - source: Database searched (wos, scopus, scholar)
//   - doi: Digital object identifier of a record
//   - filename: Stored document name
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
