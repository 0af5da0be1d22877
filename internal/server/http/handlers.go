package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/enrich"
	"github.com/meridianlabs/literature-search-service/internal/query"
	"github.com/meridianlabs/literature-search-service/internal/sources"
)

// Request body and rendering constants.
const (
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

	formatJSON  = "json"
	formatCSV   = "csv"
	formatTable = "table"
)

// searchRequest is the JSON request body for running a literature search.
type searchRequest struct {
	LocationTerms []string          `json:"location_terms,omitempty" validate:"max=50,dive,min=1,max=256"`
	TopicTerms    []string          `json:"topic_terms,omitempty" validate:"max=50,dive,min=1,max=256"`
	Years         *yearRangeRequest `json:"years,omitempty"`
	Databases     []string          `json:"databases,omitempty" validate:"max=10,dive,oneof=wos scopus scholar google_scholar"`
	MaxRecords    int               `json:"max_records,omitempty" validate:"min=0"`
	BackfillDOIs  *bool             `json:"backfill_dois,omitempty"`
}

// yearRangeRequest bounds publication years. Both bounds are exclusive, so
// {2015, 2020} matches work published 2016 through 2019.
type yearRangeRequest struct {
	Start int `json:"start" validate:"required,min=1000,max=9999"`
	End   int `json:"end" validate:"required,min=1000,max=9999,gtefield=Start"`
}

// documentScanRequest is the JSON request body for scanning a Drive folder.
type documentScanRequest struct {
	FolderID string `json:"folder_id,omitempty"`
}

// runSearch handles POST /api/v1/searches. It builds the neutral query,
// runs it against the selected databases, optionally backfills missing
// DOIs, and renders the merged result set in the requested format.
func (s *Server) runSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.LocationTerms = trimTerms(req.LocationTerms)
	req.TopicTerms = trimTerms(req.TopicTerms)
	if len(req.LocationTerms) == 0 && len(req.TopicTerms) == 0 {
		writeError(w, http.StatusBadRequest, "at least one of location_terms or topic_terms is required")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	sourceTypes, err := parseSourceTypes(req.Databases)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var years *query.YearRange
	if req.Years != nil {
		years = &query.YearRange{Start: req.Years.Start, End: req.Years.End}
	}
	q := query.Build(req.LocationTerms, req.TopicTerms, years)

	maxRecords := req.MaxRecords
	if maxRecords <= 0 || maxRecords > s.cfg.MaxRecords {
		maxRecords = s.cfg.MaxRecords
	}

	searchCtx := ctx
	if s.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.cfg.SearchTimeout)
		defer cancel()
	}

	searchID := uuid.New()
	s.logger.Info().
		Str("search_id", searchID.String()).
		Str("query", q.String()).
		Int("max_records", maxRecords).
		Msg("search started")

	s.recordSearchesStarted(sourceTypes)

	results := s.searcher.SearchSources(searchCtx, sources.SearchParams{
		Query:      q,
		MaxRecords: maxRecords,
	}, sourceTypes)
	s.recordSearchOutcomes(results)

	resultSet := sources.Merge(results)

	filled := 0
	if s.enricher != nil && (req.BackfillDOIs == nil || *req.BackfillDOIs) {
		filled = s.enricher.BackfillDOIs(searchCtx, resultSet.Records)
	}

	s.logger.Info().
		Str("search_id", searchID.String()).
		Int("records", resultSet.Len()).
		Int("dois_backfilled", filled).
		Msg("search completed")

	switch resolveFormat(r) {
	case formatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("X-Search-ID", searchID.String())
		w.WriteHeader(http.StatusOK)
		if err := resultSet.WriteCSV(w); err != nil {
			s.logger.Debug().Err(err).Msg("writing CSV response")
		}
	case formatTable:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Search-ID", searchID.String())
		w.WriteHeader(http.StatusOK)
		if err := resultSet.WriteTable(w); err != nil {
			s.logger.Debug().Err(err).Msg("writing table response")
		}
	default:
		writeJSON(w, http.StatusOK, searchResponse{
			SearchID:       searchID.String(),
			Query:          q.String(),
			Sources:        sourceOutcomes(results),
			RecordCount:    resultSet.Len(),
			DOIsBackfilled: filled,
			Records:        resultSet.Records,
		})
	}
}

// scanDocuments handles POST /api/v1/document-scans. It lists the PDFs in
// a Drive folder and recovers a bibliographic record for each.
func (s *Server) scanDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.enricher == nil {
		writeError(w, http.StatusServiceUnavailable, "document scanning is not configured")
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	// An empty body scans the configured default folder.
	var req documentScanRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON request body")
			return
		}
	}

	folderID := strings.TrimSpace(req.FolderID)
	if folderID == "" {
		folderID = s.cfg.DefaultFolderID
	}
	if folderID == "" {
		writeError(w, http.StatusBadRequest, "folder_id is required")
		return
	}

	docs, err := s.enricher.ProcessFolder(ctx, folderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []enrich.Document{}
	}

	writeJSON(w, http.StatusOK, documentScanResponse{
		FolderID:  folderID,
		Documents: docs,
		Count:     len(docs),
	})
}

// recordSearchesStarted counts one search per database about to run. An
// empty selection means every enabled database runs.
func (s *Server) recordSearchesStarted(sourceTypes []domain.SourceType) {
	if s.metrics == nil {
		return
	}
	if len(sourceTypes) == 0 {
		for _, src := range s.searcher.EnabledSources() {
			s.metrics.RecordSearchStarted(string(src.SourceType()))
		}
		return
	}
	for _, st := range sourceTypes {
		s.metrics.RecordSearchStarted(string(st))
	}
}

// recordSearchOutcomes counts per-database completions, failures, and
// fetched records.
func (s *Server) recordSearchOutcomes(results []sources.SourceResult) {
	if s.metrics == nil {
		return
	}
	for _, res := range results {
		name := string(res.Source)
		if res.Error != nil || res.Result == nil {
			s.metrics.RecordSearchFailed(name, 0)
			continue
		}
		s.metrics.RecordSearchCompleted(name, len(res.Result.Records), res.Result.SearchDuration.Seconds())
		s.metrics.RecordRecordsFetched(name, len(res.Result.Records))
	}
}

// resolveFormat picks the response format. The format query parameter wins
// over the Accept header; JSON is the default.
func resolveFormat(r *http.Request) string {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case formatCSV:
		return formatCSV
	case formatTable:
		return formatTable
	case formatJSON:
		return formatJSON
	}

	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "text/csv"):
		return formatCSV
	case strings.Contains(accept, "text/plain"):
		return formatTable
	}
	return formatJSON
}

// parseSourceTypes maps request database names onto source types. Scholar
// accepts both its short and long spelling. Duplicates collapse, keeping
// first-mention order.
func parseSourceTypes(names []string) ([]domain.SourceType, error) {
	if len(names) == 0 {
		return nil, nil
	}

	types := make([]domain.SourceType, 0, len(names))
	seen := make(map[domain.SourceType]bool, len(names))
	for _, name := range names {
		var st domain.SourceType
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "wos":
			st = domain.SourceWebOfScience
		case "scopus":
			st = domain.SourceScopus
		case "scholar", "google_scholar":
			st = domain.SourceScholar
		default:
			return nil, domain.NewUnsupportedDatabaseError(name)
		}
		if !seen[st] {
			seen[st] = true
			types = append(types, st)
		}
	}
	return types, nil
}

// trimTerms trims whitespace and drops terms left empty.
func trimTerms(terms []string) []string {
	trimmed := terms[:0]
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term != "" {
			trimmed = append(trimmed, term)
		}
	}
	return trimmed
}

// newValidator builds the request validator, reporting fields by their
// JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage renders the first validation failure as a client-facing
// message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}

	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedDatabase):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
