// Package sources provides clients for searching bibliographic databases.
//
// Each supported database (Web of Science, Scopus, Google Scholar)
// implements the SearchSource interface. A source translates the neutral
// query into its own dialect, fetches result pages, and normalizes the raw
// payloads into domain records.
//
// Example usage:
//
//	source := wos.New(cfg, logger)
//	params := sources.SearchParams{
//		Query: query.Build([]string{"Patagonia"}, []string{"glacier melt"}, nil),
//	}
//	result, err := source.Search(ctx, params)
package sources

import (
	"context"
	"time"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/query"
)

// SearchParams defines the parameters for one database search.
type SearchParams struct {
	// Query is the neutral query to translate and execute (required).
	Query query.NeutralQuery

	// MaxRecords bounds the total number of records fetched across all
	// pages. A value of 0 uses the source's default bound.
	MaxRecords int

	// PageSize is the number of records requested per page. A value of 0
	// uses the source's default.
	PageSize int
}

// SearchResult contains the outcome of one source search.
type SearchResult struct {
	// Records holds the normalized records in retrieval order.
	Records []domain.Record

	// TotalResults is the total number of matches reported by the source,
	// when known. May exceed len(Records) for bounded searches.
	TotalResults int

	// Source identifies which database provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search, including
	// network latency, retries, and response parsing.
	SearchDuration time.Duration
}

// SearchSource is implemented by every bibliographic database client.
type SearchSource interface {
	// Search runs the query against the database and returns normalized
	// records. Implementations respect context cancellation, apply rate
	// limiting, and wrap errors with source context.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this source.
	Name() string

	// IsEnabled returns whether this source is configured for searches.
	// A source missing its credential reports false.
	IsEnabled() bool
}
