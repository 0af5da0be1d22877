package scopus

import (
	"strings"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/normalize"
)

// toRecord maps a Scopus entry onto the common record shape.
func toRecord(entry *Entry) domain.Record {
	return domain.Record{
		Source:      domain.SourceScopus,
		Title:       normalize.Whitespace(entry.Title),
		Authors:     extractAuthors(entry),
		Year:        normalize.Year(entry.CoverDate),
		SourceTitle: normalize.Whitespace(entry.PublicationName),
		DOI:         strings.TrimSpace(entry.DOI),
		Abstract:    normalize.StripMarkup(entry.Description),
		Keywords:    normalize.SplitList(entry.Authkeywords, "|"),
	}
}

// extractAuthors extracts author names from the entry. The COMPLETE view
// author list is preferred; dc:creator carries the first author only.
func extractAuthors(entry *Entry) []string {
	if entry.Authors != nil && len(entry.Authors.Authors) > 0 {
		authors := make([]string, 0, len(entry.Authors.Authors))
		for _, a := range entry.Authors.Authors {
			name := strings.TrimSpace(a.Name)
			if name == "" {
				if a.GivenName != "" && a.Surname != "" {
					name = a.Surname + ", " + a.GivenName
				} else if a.Surname != "" {
					name = a.Surname
				}
			}
			if name == "" {
				continue
			}
			authors = append(authors, name)
		}
		if len(authors) > 0 {
			return authors
		}
	}

	// Fallback to dc:creator (first author only).
	if creator := strings.TrimSpace(entry.Creator); creator != "" {
		return []string{creator}
	}

	return nil
}
