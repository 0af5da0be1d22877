// Package scholar provides the Google Scholar search source via SerpApi.
//
// Scholar has no Boolean query syntax, so the translated query is a plain
// term string, and the year range travels as as_ylo/as_yhi request
// parameters. Results are consumed iterator style: pages are fetched until
// one comes back short or empty.
package scholar

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	gs "github.com/serpapi/google-search-results-golang"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/query"
	"github.com/meridianlabs/literature-search-service/internal/sources"
)

const (
	// DefaultRateLimit is the default rate limit (1 request per second).
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultPageSize is the default results per page; 20 is the engine's
	// maximum.
	DefaultPageSize = 20

	// DefaultMaxRecords is the default bound on results fetched across all
	// pages of one search.
	DefaultMaxRecords = 100

	// engine is the SerpApi engine identifier for Google Scholar.
	engine = "google_scholar"

	// sourceName is the human-readable name for this source.
	sourceName = "Google Scholar"
)

// Config holds configuration for the Google Scholar client.
type Config struct {
	// APIKey is the SerpApi key for authentication.
	// Required for all searches.
	APIKey string

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// PageSize is the number of results requested per page (at most 20).
	PageSize int

	// MaxRecords bounds the total results fetched across all pages.
	MaxRecords int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.PageSize == 0 || c.PageSize > DefaultPageSize {
		c.PageSize = DefaultPageSize
	}
	if c.MaxRecords == 0 {
		c.MaxRecords = DefaultMaxRecords
	}
}

// searchAPI is the seam over the SerpApi client, so tests can substitute a
// canned transport.
type searchAPI interface {
	Search(params map[string]string) (map[string]interface{}, error)
}

// serpAPI implements searchAPI with the real SerpApi client.
type serpAPI struct {
	apiKey string
}

func (s *serpAPI) Search(params map[string]string) (map[string]interface{}, error) {
	search := gs.NewGoogleSearch(params, s.apiKey)
	return search.GetJSON()
}

// DOIFinder resolves a DOI for a publication by bibliographic lookup. It
// backfills results whose landing-page URL does not embed a DOI.
type DOIFinder interface {
	FindDOI(ctx context.Context, title, author string) (string, error)
}

// Client implements the sources.SearchSource interface for Google Scholar.
type Client struct {
	config    Config
	api       searchAPI
	limiter   *sources.RateLimiter
	doiFinder DOIFinder
	logger    zerolog.Logger
}

// Ensure Client implements SearchSource interface.
var _ sources.SearchSource = (*Client)(nil)

// New creates a new Google Scholar client with the given configuration.
// doiFinder may be nil, in which case results without a DOI in their URL
// keep an empty DOI.
func New(cfg Config, doiFinder DOIFinder, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:    cfg,
		api:       &serpAPI{apiKey: cfg.APIKey},
		limiter:   sources.NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		doiFinder: doiFinder,
		logger:    logger.With().Str("source", sourceName).Logger(),
	}
}

// NewWithAPI creates a new Google Scholar client with a custom search API.
// This is useful for testing with canned responses.
func NewWithAPI(cfg Config, api searchAPI, doiFinder DOIFinder, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:    cfg,
		api:       api,
		limiter:   sources.NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		doiFinder: doiFinder,
		logger:    logger.With().Str("source", sourceName).Logger(),
	}
}

// Search queries Google Scholar for records matching the given parameters.
// Pages are fetched sequentially until the engine stops returning results
// or MaxRecords is reached.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	startTime := time.Now()

	translated, err := query.Translate(params.Query, string(domain.SourceScholar))
	if err != nil {
		return nil, err
	}

	maxRecords := params.MaxRecords
	if maxRecords == 0 {
		maxRecords = c.config.MaxRecords
	}
	pageSize := params.PageSize
	if pageSize == 0 || pageSize > DefaultPageSize {
		pageSize = c.config.PageSize
	}

	base := map[string]string{
		"engine": engine,
		"q":      translated.Query,
		"hl":     "en",
	}
	if years := params.Query.Years; years != nil {
		// The neutral bounds are exclusive, as_ylo/as_yhi are inclusive.
		base["as_ylo"] = strconv.Itoa(years.Start + 1)
		base["as_yhi"] = strconv.Itoa(years.End - 1)
	}

	var records []domain.Record

	for start := 0; len(records) < maxRecords; start += pageSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		reqParams := make(map[string]string, len(base)+2)
		for k, v := range base {
			reqParams[k] = v
		}
		reqParams["start"] = strconv.Itoa(start)
		reqParams["num"] = strconv.Itoa(pageSize)

		c.logger.Debug().Int("start", start).Msg("fetching page")

		resp, err := c.api.Search(reqParams)
		if err != nil {
			return nil, domain.NewExternalAPIError(sourceName, 0, "search request failed", err)
		}

		results := objList(resp, "organic_results")
		if len(results) == 0 {
			break
		}

		for _, item := range results {
			records = append(records, c.toRecord(ctx, item))
			if len(records) == maxRecords {
				break
			}
		}

		if len(results) < pageSize {
			break
		}
	}

	return &sources.SearchResult{
		Records:        records,
		TotalResults:   len(records),
		Source:         domain.SourceScholar,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
// SerpApi requires an API key, so it returns false if the key is empty.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.config.APIKey != ""
}
