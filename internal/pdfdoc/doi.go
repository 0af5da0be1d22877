// Package pdfdoc extracts DOIs from PDF documents so their bibliographic
// metadata can be recovered from the DOI registry.
package pdfdoc

import "regexp"

// doiPattern matches a word-bounded DOI inside running text. PDF text runs
// titles, footers, and URLs together, so the boundary anchors keep the match
// from swallowing surrounding punctuation.
var doiPattern = regexp.MustCompile(`(?i)\b10\.\d{4,9}/[-._;()/:A-Z0-9]+\b`)

// FindDOI returns the first DOI in text, or "" when there is none.
func FindDOI(text string) string {
	return doiPattern.FindString(text)
}
