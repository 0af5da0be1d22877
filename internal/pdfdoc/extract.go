package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrNoDOI is returned when the scanned pages carry no DOI.
var ErrNoDOI = errors.New("pdfdoc: no doi found")

// DefaultMaxPages bounds how many leading pages are scanned for a DOI.
// Articles print their DOI on the first page; five covers long front matter.
const DefaultMaxPages = 5

// Extractor scans PDF content for a DOI.
type Extractor struct {
	maxPages int
}

// NewExtractor creates an Extractor scanning up to maxPages leading pages.
// A non-positive maxPages falls back to DefaultMaxPages.
func NewExtractor(maxPages int) *Extractor {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Extractor{maxPages: maxPages}
}

// DOI returns the first DOI found in the leading pages of the document.
// Returns ErrNoDOI when none of the scanned pages carries one.
func (e *Extractor) DOI(content []byte) (doi string, err error) {
	// The parser panics on some malformed files; degrade that to an error.
	defer func() {
		if r := recover(); r != nil {
			doi = ""
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	pages := reader.NumPage()
	if pages > e.maxPages {
		pages = e.maxPages
	}

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := FindDOI(text); doi != "" {
			return doi, nil
		}
	}

	return "", ErrNoDOI
}
