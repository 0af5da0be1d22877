package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultUserAgent is sent with requests unless the caller sets one.
	DefaultUserAgent = "MeridianLabs-LiteratureSearch/1.0"

	defaultTimeout    = 30 * time.Second
	defaultRateLimit  = 5.0
	defaultBurstSize  = 5
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// RequestMetrics counts upstream API traffic. Clients run without one.
type RequestMetrics interface {
	RecordSourceRequest(source, endpoint string, durationSeconds float64)
	RecordSourceRequestFailed(source, endpoint, errorType string)
	RecordSourceRateLimited(source string)
}

// HTTPClientConfig configures the shared HTTP client.
type HTTPClientConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of transport-level retry attempts.
	MaxRetries int

	// RetryDelay is the base delay between transport-level retries.
	RetryDelay time.Duration

	// DisableRetries turns transport-level retries off entirely, so every
	// response, including 429 and 5xx, is returned to the caller. Sources
	// that implement their own retry policy set this.
	DisableRetries bool

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API credential.
	APIKey string

	// APIKeyHeader is the header name the credential is sent under
	// (e.g. "X-ApiKey", "X-ELS-APIKey").
	APIKeyHeader string

	// Metrics, when set, receives per-attempt request counts labeled
	// with MetricsSource and MetricsEndpoint.
	Metrics RequestMetrics

	// MetricsSource labels recorded requests with the upstream name
	// (e.g. "wos", "crossref").
	MetricsSource string

	// MetricsEndpoint labels recorded requests with the logical endpoint
	// (e.g. "search", "works"). URL paths are not used because they can
	// embed identifiers such as DOIs.
	MetricsEndpoint string
}

// HTTPClient wraps http.Client with rate limiting and optional retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a rate-limited HTTP client. Unless retries are
// disabled, the client retries 429 (honoring Retry-After) and 5xx responses.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = defaultBurstSize
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// maxRetries returns the effective transport-level retry budget.
func (c *HTTPClient) maxRetries() int {
	if c.config.DisableRetries {
		return 0
	}
	return c.config.MaxRetries
}

// Do executes an HTTP request. It waits for the rate limiter before each
// attempt and sets the User-Agent and optional API key headers. With
// retries enabled it retries on 429 (respecting Retry-After) and on 5xx
// server errors; with retries disabled the first response is returned
// unconditionally.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	maxRetries := c.maxRetries()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			c.recordFailure("transport")
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < maxRetries {
				if err := c.waitForRetry(req.Context(), c.config.RetryDelay); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}
			return nil, lastErr
		}

		c.recordRequest(time.Since(start))
		if resp.StatusCode == http.StatusTooManyRequests {
			c.recordRateLimited()
		}

		if c.config.DisableRetries || !c.shouldRetry(resp.StatusCode) {
			return resp, nil
		}

		retryDelay := c.getRetryDelay(resp)

		// Drain and close the body to free the connection before retrying.
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt < maxRetries {
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			if err := c.waitForRetry(req.Context(), retryDelay); err != nil {
				return nil, err
			}
			if err := c.resetRequestBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
			continue
		}

		c.recordFailure("max_retries")
		return nil, fmt.Errorf("max retries exhausted after %d attempts, last status: %d", maxRetries+1, resp.StatusCode)
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

func (c *HTTPClient) recordRequest(elapsed time.Duration) {
	if c.config.Metrics == nil {
		return
	}
	c.config.Metrics.RecordSourceRequest(c.config.MetricsSource, c.config.MetricsEndpoint, elapsed.Seconds())
}

func (c *HTTPClient) recordFailure(errorType string) {
	if c.config.Metrics == nil {
		return
	}
	c.config.Metrics.RecordSourceRequestFailed(c.config.MetricsSource, c.config.MetricsEndpoint, errorType)
}

func (c *HTTPClient) recordRateLimited() {
	if c.config.Metrics == nil {
		return
	}
	c.config.Metrics.RecordSourceRateLimited(c.config.MetricsSource)
}

// shouldRetry returns true for status codes worth retrying at the
// transport level.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay determines how long to wait before retrying. It respects
// the Retry-After header when present, in either seconds or HTTP-date
// form, and falls back to the configured retry delay.
func (c *HTTPClient) getRetryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

// waitForRetry waits for the given duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody restores the request body before a retry when possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
