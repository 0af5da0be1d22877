package crossref

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/literature-search-service/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return New(Config{
		BaseURL:   baseURL,
		Email:     "dev@meridianlabs.example",
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		BurstSize: 100,
	}, zerolog.Nop())
}

func TestFindDOI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "Glacier Response to Warming", q.Get("query.title"))
		assert.Equal(t, "Maria Alvarez", q.Get("query.author"))
		assert.Equal(t, "DOI", q.Get("select"))
		assert.Equal(t, "1", q.Get("rows"))
		assert.Equal(t, "dev@meridianlabs.example", q.Get("mailto"))
		assert.Contains(t, r.Header.Get("User-Agent"), "mailto:dev@meridianlabs.example")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","message":{"total-results":1,"items":[{"DOI":"10.1234/found"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	doi, err := client.FindDOI(context.Background(), "Glacier Response to Warming", "Maria Alvarez")
	require.NoError(t, err)
	assert.Equal(t, "10.1234/found", doi)
}

func TestFindDOI_OmitsEmptyAuthor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["query.author"]
		assert.False(t, present)

		w.Write([]byte(`{"status":"ok","message":{"total-results":1,"items":[{"DOI":"10.1234/found"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	doi, err := client.FindDOI(context.Background(), "Some Title", "  ")
	require.NoError(t, err)
	assert.Equal(t, "10.1234/found", doi)
}

func TestFindDOI_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","message":{"total-results":0,"items":[]}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FindDOI(context.Background(), "Unknown Title", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindDOI_EmptyTitle(t *testing.T) {
	client := newTestClient("http://unused.example")

	_, err := client.FindDOI(context.Background(), "   ", "")

	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestFindDOI_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "query rejected", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FindDOI(context.Background(), "Some Title", "")

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CrossRef", apiErr.Source)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestWork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works/10.1234/j.test.5", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"message": {
				"DOI": "10.1234/j.test.5",
				"title": ["Glacier  Response   to Warming"],
				"author": [
					{"given": "Maria", "family": "Alvarez"},
					{"family": "Chen"}
				],
				"issued": {"date-parts": [[2020, 3]]},
				"container-title": ["Journal of Glaciology"],
				"publisher": "Test Press",
				"subject": ["Glaciology", " Hydrology "],
				"abstract": "<jats:p>Melting accelerates.</jats:p>"
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	rec, err := client.Work(context.Background(), "10.1234/j.test.5")
	require.NoError(t, err)

	assert.Equal(t, "10.1234/j.test.5", rec.DOI)
	assert.Equal(t, "Glacier Response to Warming", rec.Title)
	assert.Equal(t, []string{"Maria Alvarez", "Chen"}, rec.Authors)
	assert.Equal(t, 2020, rec.Year)
	assert.Equal(t, "Journal of Glaciology", rec.SourceTitle)
	assert.Equal(t, "Test Press", rec.Publisher)
	assert.Equal(t, []string{"Glaciology", "Hydrology"}, rec.Keywords)
	assert.Equal(t, "Melting accelerates.", rec.Abstract)
}

func TestWork_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "resource not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Work(context.Background(), "10.9999/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWork_SparseRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","message":{"DOI":"10.1234/sparse","issued":{"date-parts":[[]]}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	rec, err := client.Work(context.Background(), "10.1234/sparse")
	require.NoError(t, err)

	assert.Equal(t, "10.1234/sparse", rec.DOI)
	assert.Empty(t, rec.Title)
	assert.Empty(t, rec.Authors)
	assert.Zero(t, rec.Year)
	assert.Empty(t, rec.Publisher)
}

func TestWork_EmptyDOI(t *testing.T) {
	client := newTestClient("http://unused.example")

	_, err := client.Work(context.Background(), "")

	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestWork_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","message":`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Work(context.Background(), "10.1234/truncated")

	var malErr *domain.MalformedResponseError
	require.ErrorAs(t, err, &malErr)
	assert.Equal(t, "CrossRef", malErr.Source)
}
