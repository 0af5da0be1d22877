// Package studyarea derives study-area labels for a publication from its
// abstract, using a named-entity tagger to find place names.
package studyarea

import (
	"context"
	"strings"

	"github.com/meridianlabs/literature-search-service/internal/normalize"
)

// LabelPlace is the entity label tagging geopolitical place names.
const LabelPlace = "GPE"

// Span is one tagged entity occurrence in a text.
type Span struct {
	// Text is the surface form of the entity.
	Text string
	// Label is the entity type assigned by the tagger.
	Label string
	// Start and End delimit the occurrence as byte offsets.
	Start int
	End   int
}

// Tagger produces typed entity spans for a text. Implementations wrap an
// external NLP model or service.
type Tagger interface {
	Entities(ctx context.Context, text string) ([]Span, error)
}

// Extractor filters place-typed spans into a study-area list.
type Extractor struct {
	tagger Tagger
	labels map[string]struct{}
}

// NewExtractor creates an Extractor keeping spans with the given labels.
// With no labels, only LabelPlace spans are kept.
func NewExtractor(tagger Tagger, labels ...string) *Extractor {
	if len(labels) == 0 {
		labels = []string{LabelPlace}
	}

	keep := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		keep[label] = struct{}{}
	}

	return &Extractor{tagger: tagger, labels: keep}
}

// StudyAreas returns the unique place names of text in first-occurrence
// order. Blank text yields nil without invoking the tagger.
func (e *Extractor) StudyAreas(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	spans, err := e.tagger.Entities(ctx, text)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var areas []string
	for _, span := range spans {
		if _, ok := e.labels[span.Label]; !ok {
			continue
		}
		name := normalize.Whitespace(span.Text)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		areas = append(areas, name)
	}

	return areas, nil
}
