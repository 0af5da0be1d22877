package query

import (
	"regexp"
	"strings"

	"github.com/meridianlabs/literature-search-service/internal/domain"
)

var (
	// yearClausePattern matches a PUBYEAR clause in any of its neutral
	// forms, including a bare AFT or BEF half and the exact-year form.
	yearClausePattern = regexp.MustCompile(`\bPUBYEAR (AFT \d+|BEF \d+|=\d+)( AND PUBYEAR (AFT \d+|BEF \d+|=\d+))?\b`)

	// yearRangePattern captures the start and end years of a full range
	// clause for rewriting into a target dialect.
	yearRangePattern = regexp.MustCompile(`PUBYEAR AFT (\d+) AND PUBYEAR BEF (\d+)`)

	trailingOperator = regexp.MustCompile(`\s+(AND|OR)\s*$`)
)

// TranslatedQuery is a query string tagged with the database whose dialect
// it conforms to.
type TranslatedQuery struct {
	Database domain.SourceType
	Query    string
}

// Translate rewrites a neutral query into the dialect of the named
// database. The database name is matched case-insensitively; an
// unrecognized name returns an UnsupportedDatabaseError.
func Translate(q NeutralQuery, database string) (TranslatedQuery, error) {
	switch strings.ToLower(database) {
	case "scholar", "google_scholar":
		return TranslatedQuery{Database: domain.SourceScholar, Query: translateScholar(q.String())}, nil
	case "wos":
		return TranslatedQuery{Database: domain.SourceWebOfScience, Query: translateWoS(q.String())}, nil
	case "scopus":
		return TranslatedQuery{Database: domain.SourceScopus, Query: translateScopus(q.String())}, nil
	default:
		return TranslatedQuery{}, domain.NewUnsupportedDatabaseError(database)
	}
}

// translateScholar strips Boolean operators and the year clause. Scholar
// has no year-range query syntax; callers apply the range as a request
// parameter instead. Replacing operators with spaces loses the Boolean
// structure, which is the documented tradeoff for this target.
func translateScholar(rendered string) string {
	s := strings.ReplaceAll(rendered, " AND ", " ")
	s = strings.ReplaceAll(s, " OR ", " ")
	s = stripYearClause(s)
	return strings.TrimSpace(s)
}

// translateWoS wraps the term portion in TS=(...) and rewrites the year
// range to PY=start-end. The halves are joined with AND only when both are
// non-empty.
func translateWoS(rendered string) string {
	var termHalf string
	if inner := cleanBooleanQuery(stripYearClause(rendered)); inner != "" {
		termHalf = cleanBooleanQuery("TS=(" + inner + ")")
	}

	var yearHalf string
	if m := yearRangePattern.FindStringSubmatch(rendered); m != nil {
		yearHalf = cleanBooleanQuery("PY=" + m[1] + "-" + m[2])
	}

	switch {
	case termHalf != "" && yearHalf != "":
		return cleanBooleanQuery(termHalf + " AND " + yearHalf)
	case termHalf != "":
		return termHalf
	case yearHalf != "":
		return yearHalf
	default:
		return ""
	}
}

// translateScopus rewrites the year range in place and leaves every other
// byte of the query untouched.
func translateScopus(rendered string) string {
	return yearRangePattern.ReplaceAllString(rendered, "AND PUBYEAR > ${1} AND PUBYEAR < ${2}")
}

// stripYearClause removes every PUBYEAR clause from the query.
func stripYearClause(q string) string {
	return strings.TrimSpace(yearClausePattern.ReplaceAllString(q, ""))
}

// cleanBooleanQuery strips dangling AND/OR operators from the end of the
// query, repeatedly, until none remain.
func cleanBooleanQuery(q string) string {
	q = strings.TrimSpace(q)
	for trailingOperator.MatchString(q) {
		q = strings.TrimSpace(trailingOperator.ReplaceAllString(q, ""))
	}
	return q
}
