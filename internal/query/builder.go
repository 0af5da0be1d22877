// Package query builds neutral Boolean search queries and translates them
// into the dialects of the supported bibliographic databases.
package query

import (
	"fmt"
	"strings"
)

// YearRange restricts a query to publication years strictly between Start
// and End. Both bounds are exclusive.
type YearRange struct {
	Start int
	End   int
}

// NeutralQuery is the database-independent query representation. It is
// built once and immutable thereafter.
type NeutralQuery struct {
	LocationTerms []string
	TopicTerms    []string
	Years         *YearRange

	rendered string
}

// Build assembles a neutral query from location terms, topic terms, and an
// optional year range. Each non-empty term list becomes a parenthesized
// OR-clause and the clauses are joined with AND. The year range is appended
// as a trailing PUBYEAR segment. Absent inputs degrade to empty clauses.
func Build(locationTerms, topicTerms []string, years *YearRange) NeutralQuery {
	q := NeutralQuery{
		LocationTerms: append([]string(nil), locationTerms...),
		TopicTerms:    append([]string(nil), topicTerms...),
	}
	if years != nil {
		y := *years
		q.Years = &y
	}

	var clauses []string
	if clause := orClause(locationTerms); clause != "" {
		clauses = append(clauses, clause)
	}
	if clause := orClause(topicTerms); clause != "" {
		clauses = append(clauses, clause)
	}
	combined := strings.Join(clauses, " AND ")

	if years != nil {
		yearSegment := fmt.Sprintf("PUBYEAR AFT %d AND PUBYEAR BEF %d", years.Start, years.End)
		q.rendered = strings.TrimSpace(combined + " " + yearSegment)
	} else {
		q.rendered = combined
	}
	return q
}

// String returns the rendered neutral query.
func (q NeutralQuery) String() string {
	return q.rendered
}

// HasYears returns true if the query carries a year range.
func (q NeutralQuery) HasYears() bool {
	return q.Years != nil
}

// orClause renders a term list as a parenthesized OR-clause. Terms are
// quoted unless they contain a wildcard, which must reach the target
// database unaltered.
func orClause(terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = quoteTerm(term)
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}

func quoteTerm(term string) string {
	if strings.Contains(term, "*") {
		return term
	}
	return `"` + term + `"`
}

// BalancedParens reports whether every opening parenthesis in s is matched
// by a later closing one. A closing parenthesis with no prior open fails
// immediately.
func BalancedParens(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
