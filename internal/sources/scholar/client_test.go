package scholar

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/query"
	"github.com/meridianlabs/literature-search-service/internal/sources"
)

// fakeAPI serves canned organic_results pages and records every request.
type fakeAPI struct {
	pages    [][]map[string]interface{}
	err      error
	requests []map[string]string
}

func (f *fakeAPI) Search(params map[string]string) (map[string]interface{}, error) {
	captured := make(map[string]string, len(params))
	for k, v := range params {
		captured[k] = v
	}
	f.requests = append(f.requests, captured)

	if f.err != nil {
		return nil, f.err
	}

	page := len(f.requests) - 1
	if page >= len(f.pages) {
		return map[string]interface{}{}, nil
	}

	results := make([]interface{}, 0, len(f.pages[page]))
	for _, item := range f.pages[page] {
		results = append(results, item)
	}
	return map[string]interface{}{"organic_results": results}, nil
}

// fakeDOIFinder returns a fixed DOI and records lookup titles.
type fakeDOIFinder struct {
	doi    string
	err    error
	titles []string
}

func (f *fakeDOIFinder) FindDOI(ctx context.Context, title, author string) (string, error) {
	f.titles = append(f.titles, title)
	return f.doi, f.err
}

func organicItem(i int) map[string]interface{} {
	return map[string]interface{}{
		"title":   fmt.Sprintf("Scholar Result %d", i),
		"link":    fmt.Sprintf("https://doi.org/10.1234/schol.%d", i),
		"snippet": "A  snippet   of text.",
		"publication_info": map[string]interface{}{
			"summary": "J Smith, A Doe - Journal of Glaciology, 2021 - springer.com",
			"authors": []interface{}{
				map[string]interface{}{"name": "J Smith"},
				map[string]interface{}{"name": "A Doe"},
			},
		},
	}
}

func itemPage(first, n int) []map[string]interface{} {
	page := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		page = append(page, organicItem(first+i))
	}
	return page
}

func newFakeClient(api *fakeAPI, finder DOIFinder) *Client {
	return NewWithAPI(Config{
		APIKey:    "test-key",
		RateLimit: 1000,
		BurstSize: 100,
		Enabled:   true,
	}, api, finder, zerolog.Nop())
}

func TestSearch_TranslatesAndParameterizes(t *testing.T) {
	api := &fakeAPI{pages: [][]map[string]interface{}{itemPage(1, 2)}}
	client := newFakeClient(api, nil)

	q := query.Build(
		[]string{"Patagonia", "Chile"},
		[]string{"glacier melt", "hydrolog*"},
		&query.YearRange{Start: 2018, End: 2022},
	)
	_, err := client.Search(context.Background(), sources.SearchParams{Query: q})
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, "google_scholar", req["engine"])
	assert.Equal(t, `("Patagonia" "Chile") ("glacier melt" hydrolog*)`, req["q"])
	assert.Equal(t, "en", req["hl"])
	assert.Equal(t, "2019", req["as_ylo"])
	assert.Equal(t, "2021", req["as_yhi"])
	assert.Equal(t, "0", req["start"])
	assert.Equal(t, "20", req["num"])
}

func TestSearch_NoYearRangeOmitsBounds(t *testing.T) {
	api := &fakeAPI{}
	client := newFakeClient(api, nil)

	_, err := client.Search(context.Background(), sources.SearchParams{
		Query: query.Build(nil, []string{"glaciers"}, nil),
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	assert.NotContains(t, api.requests[0], "as_ylo")
	assert.NotContains(t, api.requests[0], "as_yhi")
}

func TestSearch_RecordMapping(t *testing.T) {
	api := &fakeAPI{pages: [][]map[string]interface{}{itemPage(7, 1)}}
	client := newFakeClient(api, nil)

	result, err := client.Search(context.Background(), sources.SearchParams{
		Query: query.Build(nil, []string{"glaciers"}, nil),
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, domain.SourceScholar, rec.Source)
	assert.Equal(t, "Scholar Result 7", rec.Title)
	assert.Equal(t, []string{"J Smith", "A Doe"}, rec.Authors)
	assert.Equal(t, 2021, rec.Year)
	assert.Equal(t, "Journal of Glaciology", rec.SourceTitle)
	assert.Equal(t, "10.1234/schol.7", rec.DOI)
	assert.Equal(t, "A snippet of text.", rec.Abstract)
	assert.Equal(t, "https://doi.org/10.1234/schol.7", rec.URL)
}

func TestSearch_IterationStops(t *testing.T) {
	t.Run("short page is the last page", func(t *testing.T) {
		api := &fakeAPI{pages: [][]map[string]interface{}{itemPage(1, 3)}}
		client := newFakeClient(api, nil)

		result, err := client.Search(context.Background(), sources.SearchParams{
			Query: query.Build(nil, []string{"glaciers"}, nil),
		})
		require.NoError(t, err)

		assert.Len(t, result.Records, 3)
		assert.Len(t, api.requests, 1)
	})

	t.Run("empty page ends iteration", func(t *testing.T) {
		api := &fakeAPI{pages: [][]map[string]interface{}{itemPage(1, 20)}}
		client := newFakeClient(api, nil)

		result, err := client.Search(context.Background(), sources.SearchParams{
			Query: query.Build(nil, []string{"glaciers"}, nil),
		})
		require.NoError(t, err)

		assert.Len(t, result.Records, 20)
		require.Len(t, api.requests, 2)
		assert.Equal(t, "20", api.requests[1]["start"])
	})

	t.Run("max records bounds iteration", func(t *testing.T) {
		api := &fakeAPI{pages: [][]map[string]interface{}{
			itemPage(1, 20),
			itemPage(21, 20),
			itemPage(41, 20),
		}}
		client := newFakeClient(api, nil)

		result, err := client.Search(context.Background(), sources.SearchParams{
			Query:      query.Build(nil, []string{"glaciers"}, nil),
			MaxRecords: 25,
		})
		require.NoError(t, err)

		assert.Len(t, result.Records, 25)
		assert.Len(t, api.requests, 2)
		assert.Equal(t, "Scholar Result 25", result.Records[24].Title)
	})
}

func TestSearch_DOIFallback(t *testing.T) {
	noDOIItem := organicItem(1)
	noDOIItem["link"] = "https://example.com/some-paper"

	t.Run("finder backfills missing DOI", func(t *testing.T) {
		api := &fakeAPI{pages: [][]map[string]interface{}{{noDOIItem}}}
		finder := &fakeDOIFinder{doi: "10.5555/found"}
		client := newFakeClient(api, finder)

		result, err := client.Search(context.Background(), sources.SearchParams{
			Query: query.Build(nil, []string{"glaciers"}, nil),
		})
		require.NoError(t, err)
		require.Len(t, result.Records, 1)

		assert.Equal(t, "10.5555/found", result.Records[0].DOI)
		assert.Equal(t, []string{"Scholar Result 1"}, finder.titles)
	})

	t.Run("finder error leaves DOI empty", func(t *testing.T) {
		api := &fakeAPI{pages: [][]map[string]interface{}{{noDOIItem}}}
		finder := &fakeDOIFinder{err: errors.New("lookup failed")}
		client := newFakeClient(api, finder)

		result, err := client.Search(context.Background(), sources.SearchParams{
			Query: query.Build(nil, []string{"glaciers"}, nil),
		})
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Empty(t, result.Records[0].DOI)
	})

	t.Run("embedded DOI skips the finder", func(t *testing.T) {
		api := &fakeAPI{pages: [][]map[string]interface{}{itemPage(1, 1)}}
		finder := &fakeDOIFinder{doi: "10.5555/unwanted"}
		client := newFakeClient(api, finder)

		result, err := client.Search(context.Background(), sources.SearchParams{
			Query: query.Build(nil, []string{"glaciers"}, nil),
		})
		require.NoError(t, err)
		require.Len(t, result.Records, 1)

		assert.Equal(t, "10.1234/schol.1", result.Records[0].DOI)
		assert.Empty(t, finder.titles)
	})
}

func TestSearch_SummaryFallbackAuthors(t *testing.T) {
	item := organicItem(1)
	item["publication_info"] = map[string]interface{}{
		"summary": "C Rivera, D Fuentes - Andean Geology, 2019 - scielo.cl",
	}

	api := &fakeAPI{pages: [][]map[string]interface{}{{item}}}
	client := newFakeClient(api, nil)

	result, err := client.Search(context.Background(), sources.SearchParams{
		Query: query.Build(nil, []string{"glaciers"}, nil),
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, []string{"C Rivera", "D Fuentes"}, rec.Authors)
	assert.Equal(t, "Andean Geology", rec.SourceTitle)
	assert.Equal(t, 2019, rec.Year)
}

func TestSearch_APIError(t *testing.T) {
	api := &fakeAPI{err: errors.New("quota exceeded")}
	client := newFakeClient(api, nil)

	_, err := client.Search(context.Background(), sources.SearchParams{
		Query: query.Build(nil, []string{"glaciers"}, nil),
	})

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Google Scholar", apiErr.Source)
}

func TestSplitSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		authors string
		venue   string
		year    int
	}{
		{
			name:    "full summary",
			summary: "J Smith, A Doe - Journal of Glaciology, 2021 - springer.com",
			authors: "J Smith, A Doe",
			venue:   "Journal of Glaciology",
			year:    2021,
		},
		{
			name:    "no year",
			summary: "J Smith - Journal of Glaciology - springer.com",
			authors: "J Smith",
			venue:   "Journal of Glaciology",
			year:    0,
		},
		{
			name:    "year only",
			summary: "J Smith - 2021 - springer.com",
			authors: "J Smith",
			venue:   "",
			year:    2021,
		},
		{
			name:    "authors only",
			summary: "J Smith, A Doe",
			authors: "J Smith, A Doe",
			venue:   "",
			year:    0,
		},
		{
			name:    "empty",
			summary: "",
			authors: "",
			venue:   "",
			year:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authors, venue, year := splitSummary(tt.summary)
			assert.Equal(t, tt.authors, authors)
			assert.Equal(t, tt.venue, venue)
			assert.Equal(t, tt.year, year)
		})
	}
}

func TestIsEnabled(t *testing.T) {
	enabled := New(Config{APIKey: "key", Enabled: true}, nil, zerolog.Nop())
	assert.True(t, enabled.IsEnabled())

	noKey := New(Config{Enabled: true}, nil, zerolog.Nop())
	assert.False(t, noKey.IsEnabled())
}
