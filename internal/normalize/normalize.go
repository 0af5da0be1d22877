// Package normalize provides shared text-shaping helpers used when mapping
// raw source responses into domain records.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// markupTag matches a single markup tag such as <i> or </jats:p>.
	// Abstracts from several sources arrive with JATS or HTML markup
	// embedded in the text.
	markupTag = regexp.MustCompile(`<[^<]+?>`)

	yearPattern = regexp.MustCompile(`\d{4}`)
)

// Whitespace trims and collapses runs of whitespace into single spaces.
func Whitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripMarkup removes markup tags and collapses the remaining whitespace.
func StripMarkup(s string) string {
	return Whitespace(markupTag.ReplaceAllString(s, ""))
}

// Year extracts the first four-digit year from s. Returns 0 when s carries
// no year. Accepts bare years as well as date strings like "2021-03-01".
func Year(s string) int {
	match := yearPattern.FindString(s)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

// SplitList splits a delimited multi-value field, trimming each entry and
// dropping empty ones.
func SplitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
