// Package wos provides the Web of Science search source.
//
// The client speaks the Expanded API: paginated GET requests authenticated
// with an X-ApiKey header, pages fetched strictly in sequence. Rate-limit
// responses are retried per page with linear backoff; failed pages are
// retried with exponential backoff, and pagination keeps whatever it has
// already accumulated when a later page cannot be fetched.
package wos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/query"
	"github.com/meridianlabs/literature-search-service/internal/sources"
)

const (
	// DefaultBaseURL is the default Web of Science Expanded API base URL.
	DefaultBaseURL = "https://api.clarivate.com/api/wos"

	// DefaultRateLimit is the default rate limit (2 requests per second).
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the default number of records requested per page.
	DefaultPageSize = 100

	// DefaultMaxRecords is the default bound on the total records fetched
	// across all pages of one search.
	DefaultMaxRecords = 5000

	// DefaultPageRetries is the default number of attempts for a single
	// page when the API keeps answering 429.
	DefaultPageRetries = 3

	// DefaultMaxFailures is the default number of consecutive page
	// failures tolerated before pagination gives up.
	DefaultMaxFailures = 5

	// DefaultRetryDelay is the default unit delay for retry backoff and
	// the pause between successive pages.
	DefaultRetryDelay = time.Second

	// databaseID selects the Web of Science Core Collection.
	databaseID = "WOS"

	// apiKeyHeader is the HTTP header name for the Clarivate API key.
	apiKeyHeader = "X-ApiKey"

	// sourceName is the human-readable name for this source.
	sourceName = "Web of Science"
)

// Config holds configuration for the Web of Science client.
type Config struct {
	// BaseURL is the Web of Science API base URL.
	BaseURL string

	// APIKey is the Clarivate API key for authentication.
	// Required for all Web of Science API requests.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// PageSize is the number of records requested per page.
	PageSize int

	// MaxRecords bounds the total records fetched across all pages.
	MaxRecords int

	// PageRetries is the number of attempts for a single page when the
	// API keeps answering 429.
	PageRetries int

	// MaxFailures is the number of consecutive page failures tolerated
	// before pagination returns what it has.
	MaxFailures int

	// RetryDelay is the unit delay for both retry schedules.
	RetryDelay time.Duration

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
	if c.PageRetries == 0 {
		c.PageRetries = DefaultPageRetries
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// Client implements the sources.SearchSource interface for Web of Science.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
	backoff    sources.Backoff
	logger     zerolog.Logger
}

// Ensure Client implements SearchSource interface.
var _ sources.SearchSource = (*Client)(nil)

// New creates a new Web of Science client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	// Transport-level retries stay off; the page retry loop owns the 429
	// policy.
	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:         cfg.Timeout,
		RateLimit:       cfg.RateLimit,
		BurstSize:       cfg.BurstSize,
		APIKey:          cfg.APIKey,
		APIKeyHeader:    apiKeyHeader,
		DisableRetries:  true,
		Metrics:         cfg.Metrics,
		MetricsSource:   string(domain.SourceWebOfScience),
		MetricsEndpoint: "search",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		backoff:    sources.Backoff{Base: cfg.RetryDelay},
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// NewWithHTTPClient creates a new Web of Science client with a custom HTTP
// client. This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		backoff:    sources.Backoff{Base: cfg.RetryDelay},
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// Search queries Web of Science for records matching the given parameters.
// Pages are fetched strictly in sequence, and records accumulated before a
// terminal failure are still returned.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	startTime := time.Now()

	translated, err := query.Translate(params.Query, string(domain.SourceWebOfScience))
	if err != nil {
		return nil, err
	}
	if !query.BalancedParens(translated.Query) {
		return nil, domain.NewValidationError("query", "unbalanced parentheses")
	}

	maxRecords := params.MaxRecords
	if maxRecords == 0 {
		maxRecords = c.config.MaxRecords
	}
	pageSize := params.PageSize
	if pageSize == 0 {
		pageSize = c.config.PageSize
	}

	records, totalFound, err := c.FetchAll(ctx, translated.Query, maxRecords, pageSize)
	if err != nil {
		return nil, err
	}

	return &sources.SearchResult{
		Records:        records,
		TotalResults:   totalFound,
		Source:         domain.SourceWebOfScience,
		SearchDuration: time.Since(startTime),
	}, nil
}

// Page is one page of records returned by FetchPage.
type Page struct {
	// Records holds the page's records in response order.
	Records []domain.Record

	// FirstRecord is the 1-based index of the first record in this page.
	FirstRecord int

	// TotalFound is the total number of matches reported by the API.
	TotalFound int
}

// FetchAll pages through results until the API is exhausted, a page comes
// back short, or firstRecord passes maxRecords. A page that fails with an
// error is retried at the same offset with exponentially growing delays;
// after MaxFailures consecutive failures the records accumulated so far
// are returned rather than discarded. A query matching nothing yields nil
// records and no error.
func (c *Client) FetchAll(ctx context.Context, translatedQuery string, maxRecords, pageSize int) ([]domain.Record, int, error) {
	var (
		records    []domain.Record
		totalFound int
		failures   int
	)

	firstRecord := 1
	for firstRecord <= maxRecords {
		if err := ctx.Err(); err != nil {
			return records, totalFound, err
		}

		c.logger.Debug().
			Int("first_record", firstRecord).
			Int("page_size", pageSize).
			Msg("fetching page")

		page, err := c.FetchPage(ctx, translatedQuery, pageSize, firstRecord)
		if err != nil {
			failures++
			c.logger.Warn().
				Err(err).
				Int("first_record", firstRecord).
				Int("failures", failures).
				Msg("page fetch failed")
			if failures >= c.config.MaxFailures {
				c.logger.Error().
					Int("failures", failures).
					Int("records", len(records)).
					Msg("pagination abandoned, keeping accumulated records")
				break
			}
			if err := c.backoff.Sleep(ctx, c.backoff.Exponential(failures)); err != nil {
				return records, totalFound, err
			}
			continue
		}

		if page == nil || len(page.Records) == 0 {
			break
		}

		records = append(records, page.Records...)
		totalFound = page.TotalFound
		failures = 0

		// A short page is the last page.
		if len(page.Records) < pageSize {
			break
		}

		firstRecord += pageSize

		if err := c.backoff.Sleep(ctx, c.config.RetryDelay); err != nil {
			return records, totalFound, err
		}
	}

	return records, totalFound, nil
}

// FetchPage fetches a single page, retrying rate-limited attempts with
// linearly growing delays. Any failure other than a 429 is returned
// immediately; when every attempt is rate limited the page is given up
// and (nil, nil) returned.
func (c *Client) FetchPage(ctx context.Context, translatedQuery string, count, firstRecord int) (*Page, error) {
	for attempt := 1; attempt <= c.config.PageRetries; attempt++ {
		page, err := c.fetchOnce(ctx, translatedQuery, count, firstRecord)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}

		c.logger.Warn().
			Int("attempt", attempt).
			Int("first_record", firstRecord).
			Msg("rate limited")

		if attempt == c.config.PageRetries {
			break
		}
		if err := c.backoff.Sleep(ctx, c.backoff.Linear(attempt)); err != nil {
			return nil, err
		}
	}

	c.logger.Warn().
		Int("first_record", firstRecord).
		Msg("rate limit retries exhausted")
	return nil, nil
}

// fetchOnce performs one page request with no retries. It returns
// (nil, nil) when the query matched nothing, on a non-200 status other
// than 429, and on transport failure; those outcomes end retrieval
// without being errors. A 429 comes back as a RateLimitError for the
// retry loop, and an unparseable body as a MalformedResponseError.
func (c *Client) fetchOnce(ctx context.Context, translatedQuery string, count, firstRecord int) (*Page, error) {
	searchURL, err := c.buildSearchURL(translatedQuery, count, firstRecord)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn().
			Err(err).
			Int("first_record", firstRecord).
			Msg("request failed")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.NewRateLimitError(sourceName, 0)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		apiErr := domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
		c.logger.Warn().
			Err(apiErr).
			Int("first_record", firstRecord).
			Msg("unexpected status")
		return nil, nil
	}

	// Parse the JSON response (limit body to 10MB).
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
	}

	container := searchResp.Data.Records.Records
	if !container.HasMatches {
		c.logger.Info().Msg("no records matched the query")
		return nil, nil
	}

	records := make([]domain.Record, 0, len(container.Records))
	for i := range container.Records {
		records = append(records, toRecord(&container.Records[i]))
	}

	return &Page{
		Records:     records,
		FirstRecord: firstRecord,
		TotalFound:  searchResp.QueryResult.RecordsFound,
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceWebOfScience
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
// Web of Science requires an API key, so it returns false if the key is
// empty.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.config.APIKey != ""
}

// buildSearchURL constructs the Web of Science search API URL.
func (c *Client) buildSearchURL(translatedQuery string, count, firstRecord int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	urlQuery := url.Values{}
	urlQuery.Set("databaseId", databaseID)
	urlQuery.Set("usrQuery", translatedQuery)
	urlQuery.Set("count", strconv.Itoa(count))
	urlQuery.Set("firstRecord", strconv.Itoa(firstRecord))
	baseURL.RawQuery = urlQuery.Encode()

	return baseURL.String(), nil
}
