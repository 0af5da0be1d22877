package httpserver

import (
	"time"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/enrich"
	"github.com/meridianlabs/literature-search-service/internal/sources"
)

// Search response types for JSON serialization.

type searchResponse struct {
	SearchID       string                  `json:"search_id"`
	Query          string                  `json:"query"`
	Sources        []sourceOutcomeResponse `json:"sources"`
	RecordCount    int                     `json:"record_count"`
	DOIsBackfilled int                     `json:"dois_backfilled"`
	Records        []domain.Record         `json:"records"`
}

// sourceOutcomeResponse reports how one database fared during a search.
// Exactly one of the result fields and Error is meaningful.
type sourceOutcomeResponse struct {
	Source       string `json:"source"`
	TotalResults int    `json:"total_results"`
	RecordCount  int    `json:"record_count"`
	Duration     string `json:"duration,omitempty"`
	Error        string `json:"error,omitempty"`
}

type documentScanResponse struct {
	FolderID  string            `json:"folder_id"`
	Documents []enrich.Document `json:"documents"`
	Count     int               `json:"count"`
}

// sourceOutcomes converts per-source search results into response form.
func sourceOutcomes(results []sources.SourceResult) []sourceOutcomeResponse {
	outcomes := make([]sourceOutcomeResponse, 0, len(results))
	for _, res := range results {
		outcome := sourceOutcomeResponse{Source: string(res.Source)}
		if res.Error != nil {
			outcome.Error = res.Error.Error()
		} else if res.Result != nil {
			outcome.TotalResults = res.Result.TotalResults
			outcome.RecordCount = len(res.Result.Records)
			outcome.Duration = res.Result.SearchDuration.Round(time.Millisecond).String()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
