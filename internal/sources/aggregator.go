package sources

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/literature-search-service/internal/domain"
)

// SourceResult holds the outcome of a search against one source.
type SourceResult struct {
	// Source identifies which database the result belongs to.
	Source domain.SourceType

	// Result contains the search results if the search succeeded.
	// Will be nil if Error is non-nil.
	Result *SearchResult

	// Error contains the error if the search failed.
	Error error
}

// Aggregator manages the registered sources and runs searches against them
// strictly sequentially, in registration order. A failing source is logged
// and skipped; the remaining sources still run.
//
// Sequential execution is deliberate. Each source applies its own rate
// limits and paginated retries, and each page fetch depends on the prior
// page's outcome, so there is nothing to parallelize within a source and
// little to gain across them.
type Aggregator struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]SearchSource
	order   []domain.SourceType
	logger  zerolog.Logger
}

// NewAggregator creates an aggregator with no registered sources.
func NewAggregator(logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		sources: make(map[domain.SourceType]SearchSource),
		logger:  logger,
	}
}

// Register adds a source. Re-registering a source type replaces the
// previous client without changing its position in the search order.
func (a *Aggregator) Register(source SearchSource) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := source.SourceType()
	if _, exists := a.sources[st]; !exists {
		a.order = append(a.order, st)
	}
	a.sources[st] = source
}

// Get returns a source by type, or nil if not registered.
func (a *Aggregator) Get(sourceType domain.SourceType) SearchSource {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sources[sourceType]
}

// EnabledSources returns the enabled sources in registration order.
func (a *Aggregator) EnabledSources() []SearchSource {
	a.mu.RLock()
	defer a.mu.RUnlock()

	enabled := make([]SearchSource, 0, len(a.order))
	for _, st := range a.order {
		if source := a.sources[st]; source.IsEnabled() {
			enabled = append(enabled, source)
		}
	}
	return enabled
}

// SearchAll searches every enabled source, one after another, and returns
// one result per source including failures. The caller decides how to
// handle per-source errors; Merge ignores them.
func (a *Aggregator) SearchAll(ctx context.Context, params SearchParams) []SourceResult {
	return a.SearchSources(ctx, params, nil)
}

// SearchSources searches the named sources in the order given, or every
// enabled source in registration order when sourceTypes is empty. Unknown
// source types are skipped.
func (a *Aggregator) SearchSources(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType) []SourceResult {
	var selected []SearchSource
	if len(sourceTypes) == 0 {
		selected = a.EnabledSources()
	} else {
		a.mu.RLock()
		selected = make([]SearchSource, 0, len(sourceTypes))
		for _, st := range sourceTypes {
			if source, ok := a.sources[st]; ok {
				selected = append(selected, source)
			}
		}
		a.mu.RUnlock()
	}

	if len(selected) == 0 {
		return nil
	}

	results := make([]SourceResult, 0, len(selected))
	for _, source := range selected {
		if err := ctx.Err(); err != nil {
			results = append(results, SourceResult{Source: source.SourceType(), Error: err})
			continue
		}

		result, err := source.Search(ctx, params)
		if err != nil {
			a.logger.Error().
				Err(err).
				Str("source", source.Name()).
				Msg("source search failed")
			results = append(results, SourceResult{Source: source.SourceType(), Error: err})
			continue
		}

		a.logger.Info().
			Str("source", source.Name()).
			Int("records", len(result.Records)).
			Dur("duration", result.SearchDuration).
			Msg("source search completed")
		results = append(results, SourceResult{Source: source.SourceType(), Result: result})
	}

	return results
}

// Merge concatenates the successful results into a single result set,
// preserving search order. Failed sources contribute nothing.
func Merge(results []SourceResult) *domain.ResultSet {
	rs := &domain.ResultSet{}
	for _, r := range results {
		if r.Error != nil || r.Result == nil {
			continue
		}
		rs.Append(r.Result.Records...)
	}
	return rs
}
