// Package crossref resolves DOIs and bibliographic metadata through the
// CrossRef REST API.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/normalize"
	"github.com/meridianlabs/literature-search-service/internal/sources"
)

const (
	// DefaultBaseURL is the default CrossRef API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// The polite pool (with a contact email) tolerates higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the human-readable name for this service.
	sourceName = "CrossRef"
)

// Config holds configuration for the CrossRef client.
type Config struct {
	// BaseURL is the CrossRef API base URL.
	// Defaults to https://api.crossref.org
	BaseURL string

	// Email is the contact email for the polite pool. Providing one grants
	// access to higher rate limits.
	Email string

	// Timeout is the request timeout.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Metrics optionally counts requests to the upstream API.
	Metrics sources.RequestMetrics
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
}

// Client looks up works on CrossRef. It backfills DOIs for search results
// and resolves full metadata for DOIs extracted from stored documents.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
	logger     zerolog.Logger
}

// New creates a new CrossRef client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	userAgent := sources.DefaultUserAgent
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:         cfg.Timeout,
		RateLimit:       cfg.RateLimit,
		BurstSize:       cfg.BurstSize,
		UserAgent:       userAgent,
		Metrics:         cfg.Metrics,
		MetricsSource:   "crossref",
		MetricsEndpoint: "works",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// NewWithHTTPClient creates a new CrossRef client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// FindDOI looks up the DOI of a work by its title, optionally narrowed by
// an author name. Returns a NotFoundError when nothing matches.
func (c *Client) FindDOI(ctx context.Context, title, author string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.NewValidationError("title", "must not be empty")
	}

	searchURL, err := c.buildSearchURL(title, author)
	if err != nil {
		return "", fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return "", domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var worksResp WorksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&worksResp); err != nil {
		return "", domain.NewMalformedResponseError(sourceName, err)
	}

	for _, item := range worksResp.Message.Items {
		if doi := strings.TrimSpace(item.DOI); doi != "" {
			return doi, nil
		}
	}
	return "", domain.NewNotFoundError("work", title)
}

// Work fetches the bibliographic record registered for a DOI.
func (c *Client) Work(ctx context.Context, doi string) (*domain.Record, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, domain.NewValidationError("doi", "must not be empty")
	}

	workURL, err := c.buildWorkURL(doi)
	if err != nil {
		return nil, fmt.Errorf("building work URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, workURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("work", doi)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var workResp WorkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&workResp); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
	}

	rec := toRecord(&workResp.Message)
	return &rec, nil
}

// toRecord maps a CrossRef work onto the common record shape. Abstracts
// arrive wrapped in JATS markup, which is stripped.
func toRecord(work *Work) domain.Record {
	rec := domain.Record{
		DOI:       strings.TrimSpace(work.DOI),
		Publisher: normalize.Whitespace(work.Publisher),
		Abstract:  normalize.StripMarkup(work.Abstract),
	}

	if len(work.Title) > 0 {
		rec.Title = normalize.Whitespace(work.Title[0])
	}
	if len(work.ContainerTitle) > 0 {
		rec.SourceTitle = normalize.Whitespace(work.ContainerTitle[0])
	}

	for _, author := range work.Author {
		if name := authorName(author); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}

	for _, subject := range work.Subject {
		if kw := strings.TrimSpace(subject); kw != "" {
			rec.Keywords = append(rec.Keywords, kw)
		}
	}

	rec.Year = work.Issued.Year()
	return rec
}

// authorName renders a contributor as "Given Family", degrading to
// whichever part is present.
func authorName(a Author) string {
	given := strings.TrimSpace(a.Given)
	family := strings.TrimSpace(a.Family)
	switch {
	case given != "" && family != "":
		return given + " " + family
	case family != "":
		return family
	default:
		return given
	}
}

// buildSearchURL constructs the works search URL for a DOI lookup. Only the
// DOI field is selected; one row is enough.
func (c *Client) buildSearchURL(title, author string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	query := url.Values{}
	query.Set("query.title", title)
	if author = strings.TrimSpace(author); author != "" {
		query.Set("query.author", author)
	}
	query.Set("select", "DOI")
	query.Set("rows", "1")
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildWorkURL constructs the single-work URL for a DOI.
func (c *Client) buildWorkURL(doi string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works/" + doi

	if c.config.Email != "" {
		query := url.Values{}
		query.Set("mailto", c.config.Email)
		baseURL.RawQuery = query.Encode()
	}

	return baseURL.String(), nil
}
