// Package scopus provides the Elsevier Scopus search source.
//
// The translated Scopus query is passed to the Search API unchanged; pages
// are fetched sequentially with count/start offsets until the requested
// bound or the result set is exhausted.
package scopus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/query"
	"github.com/meridianlabs/literature-search-service/internal/sources"
)

const (
	// DefaultBaseURL is the default Scopus API base URL.
	DefaultBaseURL = "https://api.elsevier.com/content"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the default number of results requested per page.
	DefaultPageSize = 25

	// DefaultMaxRecords is the default bound on the total records fetched
	// across all pages of one search.
	DefaultMaxRecords = 2000

	// apiKeyHeader is the HTTP header name for the Scopus API key.
	apiKeyHeader = "X-ELS-APIKey"

	// sourceName is the human-readable name for this source.
	sourceName = "Scopus"
)

// Config holds configuration for the Scopus client.
type Config struct {
	// BaseURL is the Scopus API base URL.
	BaseURL string

	// APIKey is the Elsevier API key for authentication.
	// Required for all Scopus API requests.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// PageSize is the number of results requested per page.
	PageSize int

	// MaxRecords bounds the total records fetched across all pages.
	MaxRecords int

	// Metrics optionally counts requests to the upstream API.
	Metrics sources.RequestMetrics

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxRecords == 0 {
		c.MaxRecords = DefaultMaxRecords
	}
}

// Client implements the sources.SearchSource interface for Scopus.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
	logger     zerolog.Logger
}

// Ensure Client implements SearchSource interface.
var _ sources.SearchSource = (*Client)(nil)

// New creates a new Scopus client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:         cfg.Timeout,
		RateLimit:       cfg.RateLimit,
		BurstSize:       cfg.BurstSize,
		APIKey:          cfg.APIKey,
		APIKeyHeader:    apiKeyHeader,
		Metrics:         cfg.Metrics,
		MetricsSource:   string(domain.SourceScopus),
		MetricsEndpoint: "search",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// NewWithHTTPClient creates a new Scopus client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// Search queries Scopus for records matching the given parameters. Pages
// are fetched sequentially until the result set is exhausted or MaxRecords
// is reached.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	startTime := time.Now()

	translated, err := query.Translate(params.Query, string(domain.SourceScopus))
	if err != nil {
		return nil, err
	}

	maxRecords := params.MaxRecords
	if maxRecords == 0 {
		maxRecords = c.config.MaxRecords
	}
	pageSize := params.PageSize
	if pageSize == 0 {
		pageSize = c.config.PageSize
	}

	var (
		records      []domain.Record
		totalResults int
	)

	for start := 0; start < maxRecords; start += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, total, err := c.fetchPage(ctx, translated.Query, pageSize, start)
		if err != nil {
			return nil, err
		}
		totalResults = total

		if len(entries) == 0 {
			break
		}
		for i := range entries {
			records = append(records, toRecord(&entries[i]))
		}
		if len(entries) < pageSize || start+len(entries) >= total {
			break
		}
	}

	if len(records) > maxRecords {
		records = records[:maxRecords]
	}

	return &sources.SearchResult{
		Records:        records,
		TotalResults:   totalResults,
		Source:         domain.SourceScopus,
		SearchDuration: time.Since(startTime),
	}, nil
}

// fetchPage fetches one page of search results.
func (c *Client) fetchPage(ctx context.Context, translatedQuery string, count, start int) ([]Entry, int, error) {
	searchURL, err := c.buildSearchURL(translatedQuery, count, start)
	if err != nil {
		return nil, 0, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, 0, domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			string(body),
			nil,
		)
	}

	// Parse the JSON response (limit body to 10MB).
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, 0, domain.NewMalformedResponseError(sourceName, err)
	}

	total, _ := strconv.Atoi(searchResp.SearchResults.TotalResults)
	return searchResp.SearchResults.Entries, total, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceScopus
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
// Scopus requires an API key, so it returns false if the key is empty.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.config.APIKey != ""
}

// buildSearchURL constructs the Scopus search API URL.
func (c *Client) buildSearchURL(translatedQuery string, count, start int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/search/scopus"

	urlQuery := url.Values{}
	urlQuery.Set("query", translatedQuery)
	urlQuery.Set("view", "COMPLETE")
	urlQuery.Set("count", strconv.Itoa(count))
	if start > 0 {
		urlQuery.Set("start", strconv.Itoa(start))
	}
	baseURL.RawQuery = urlQuery.Encode()

	return baseURL.String(), nil
}
