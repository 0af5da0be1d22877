package scholar

import (
	"context"
	"regexp"
	"strings"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/normalize"
)

// doiPattern matches a DOI embedded in a landing-page URL.
var doiPattern = regexp.MustCompile(`(?i)10\.\d{4,9}/[-._;()/:A-Z0-9]+`)

// toRecord maps one organic result onto the common record shape. Scholar
// results carry no DOI field, so the landing-page URL is scanned for one,
// with a bibliographic lookup as fallback when a finder is configured.
func (c *Client) toRecord(ctx context.Context, item map[string]interface{}) domain.Record {
	title := normalize.Whitespace(str(item, "title"))
	link := strings.TrimSpace(str(item, "link"))

	pubInfo := obj(item, "publication_info")
	summaryAuthors, venue, year := splitSummary(str(pubInfo, "summary"))

	authors := authorNames(pubInfo)
	if len(authors) == 0 && summaryAuthors != "" {
		authors = normalize.SplitList(summaryAuthors, ",")
	}

	doi := doiPattern.FindString(link)
	if doi == "" && c.doiFinder != nil && title != "" {
		var author string
		if len(authors) > 0 {
			author = authors[0]
		}
		found, err := c.doiFinder.FindDOI(ctx, title, author)
		if err != nil {
			c.logger.Debug().Err(err).Str("title", title).Msg("doi lookup failed")
		} else {
			doi = found
		}
	}

	return domain.Record{
		Source:      domain.SourceScholar,
		Title:       title,
		Authors:     authors,
		Year:        year,
		SourceTitle: venue,
		DOI:         doi,
		Abstract:    normalize.Whitespace(str(item, "snippet")),
		URL:         link,
	}
}

// splitSummary parses the publication_info summary line, which reads
// "A Author, B Author - Venue, 2021 - host.com". Any segment may be
// missing.
func splitSummary(summary string) (authors, venue string, year int) {
	parts := strings.Split(summary, " - ")
	authors = strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return authors, "", 0
	}

	seg := strings.TrimSpace(parts[1])
	year = normalize.Year(seg)
	switch {
	case year == 0:
		venue = seg
	default:
		if i := strings.LastIndex(seg, ","); i >= 0 && normalize.Year(seg[i:]) == year {
			venue = strings.TrimSpace(seg[:i])
		}
	}
	return authors, venue, year
}

// authorNames extracts the structured author list when the engine provides
// one.
func authorNames(pubInfo map[string]interface{}) []string {
	var names []string
	for _, a := range objList(pubInfo, "authors") {
		if name := strings.TrimSpace(str(a, "name")); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// str returns m[key] when it is a string, and "" for anything else.
func str(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// obj returns m[key] when it is an object, and nil for anything else.
func obj(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// objList returns the objects in the list at m[key], skipping non-object
// elements. A missing or malformed list yields nil.
func objList(m map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if o, ok := item.(map[string]interface{}); ok {
			out = append(out, o)
		}
	}
	return out
}
