package sources

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastClientConfig returns a config with an effectively unlimited rate
// limiter and millisecond retry delays.
func fastClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		RateLimit:  1000,
		BurstSize:  100,
		RetryDelay: time.Millisecond,
	}
}

func TestHTTPClient_SetsHeaders(t *testing.T) {
	var gotUserAgent, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("X-ApiKey")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastClientConfig()
	cfg.APIKey = "secret-key"
	cfg.APIKeyHeader = "X-ApiKey"
	client := NewHTTPClient(cfg)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, DefaultUserAgent, gotUserAgent)
	assert.Equal(t, "secret-key", gotKey)
}

func TestHTTPClient_KeepsCallerUserAgent(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(fastClientConfig())

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "caller-agent/2.0")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "caller-agent/2.0", gotUserAgent)
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(fastClientConfig())

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), requests.Load())
}

func TestHTTPClient_ExhaustsRetries(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := fastClientConfig()
	cfg.MaxRetries = 2
	client := NewHTTPClient(cfg)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exhausted")
	assert.Equal(t, int32(3), requests.Load())
}

func TestHTTPClient_DisableRetriesReturnsRawResponse(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := fastClientConfig()
	cfg.DisableRetries = true
	client := NewHTTPClient(cfg)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(1), requests.Load())
}

// fakeRequestMetrics records metric calls as "source/endpoint" strings.
type fakeRequestMetrics struct {
	requests    []string
	failures    []string
	rateLimited int
}

func (f *fakeRequestMetrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	f.requests = append(f.requests, source+"/"+endpoint)
}

func (f *fakeRequestMetrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	f.failures = append(f.failures, source+"/"+endpoint+"/"+errorType)
}

func (f *fakeRequestMetrics) RecordSourceRateLimited(source string) {
	f.rateLimited++
}

func TestHTTPClient_RecordsRequestMetrics(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recorder := &fakeRequestMetrics{}
	cfg := fastClientConfig()
	cfg.Metrics = recorder
	cfg.MetricsSource = "wos"
	cfg.MetricsEndpoint = "search"
	client := NewHTTPClient(cfg)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	// Both attempts received responses; only the first was rate limited.
	assert.Equal(t, []string{"wos/search", "wos/search"}, recorder.requests)
	assert.Equal(t, 1, recorder.rateLimited)
	assert.Empty(t, recorder.failures)
}

func TestHTTPClient_RecordsTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	recorder := &fakeRequestMetrics{}
	cfg := fastClientConfig()
	cfg.MaxRetries = 1
	cfg.Metrics = recorder
	cfg.MetricsSource = "scopus"
	cfg.MetricsEndpoint = "search"
	client := NewHTTPClient(cfg)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)

	assert.Empty(t, recorder.requests)
	assert.Equal(t, []string{"scopus/search/transport", "scopus/search/transport"}, recorder.failures)
	assert.Zero(t, recorder.rateLimited)
}

func TestShouldRetry(t *testing.T) {
	client := NewHTTPClient(fastClientConfig())

	tests := []struct {
		statusCode int
		want       bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{599, true},
		{600, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, client.shouldRetry(tt.statusCode),
			"status %d", tt.statusCode)
	}
}

func TestGetRetryDelay(t *testing.T) {
	cfg := fastClientConfig()
	cfg.RetryDelay = 50 * time.Millisecond
	client := NewHTTPClient(cfg)

	makeResp := func(retryAfter string) *http.Response {
		resp := &http.Response{Header: http.Header{}}
		if retryAfter != "" {
			resp.Header.Set("Retry-After", retryAfter)
		}
		return resp
	}

	t.Run("no header uses configured delay", func(t *testing.T) {
		assert.Equal(t, 50*time.Millisecond, client.getRetryDelay(makeResp("")))
	})

	t.Run("seconds form", func(t *testing.T) {
		assert.Equal(t, 2*time.Second, client.getRetryDelay(makeResp("2")))
	})

	t.Run("zero seconds falls back", func(t *testing.T) {
		assert.Equal(t, 50*time.Millisecond, client.getRetryDelay(makeResp("0")))
	})

	t.Run("http date in the future", func(t *testing.T) {
		future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
		delay := client.getRetryDelay(makeResp(future))
		assert.Greater(t, delay, 20*time.Second)
		assert.LessOrEqual(t, delay, 30*time.Second)
	})

	t.Run("http date in the past falls back", func(t *testing.T) {
		past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
		assert.Equal(t, 50*time.Millisecond, client.getRetryDelay(makeResp(past)))
	})

	t.Run("garbage falls back", func(t *testing.T) {
		assert.Equal(t, 50*time.Millisecond, client.getRetryDelay(makeResp("soon")))
	})
}
