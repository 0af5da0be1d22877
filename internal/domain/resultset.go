package domain

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ResultSet is an ordered collection of records accumulated across one or
// more database searches. Order follows retrieval order.
type ResultSet struct {
	Records []Record
}

// Append adds records to the end of the set, preserving their order.
func (rs *ResultSet) Append(records ...Record) {
	rs.Records = append(rs.Records, records...)
}

// Len returns the number of records in the set.
func (rs *ResultSet) Len() int {
	return len(rs.Records)
}

// WriteTable writes the records as a human-readable table to w.
func (rs *ResultSet) WriteTable(w io.Writer) {
	if len(rs.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-8s  %-60s  %-24s  %-4s  %s\n",
		"Rank", "Source", "Title", "Authors", "Year", "DOI")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, r := range rs.Records {
		fmt.Fprintf(w, "%-4d  %-8s  %-60s  %-24s  %-4s  %s\n",
			i+1,
			r.Source,
			truncate(orMissing(r.Title), 60),
			truncate(formatAuthors(r.Authors), 24),
			yearOrMissing(r.Year),
			orMissing(r.DOI))
	}

	fmt.Fprintf(w, "\n%d records\n", len(rs.Records))
}

// WriteCSV writes the records as CSV to w, one row per record with a
// leading header row. Absent fields are written as the missing placeholder.
func (rs *ResultSet) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"Source", "Title", "Authors", "Year", "Source Title", "DOI", "Abstract", "Keywords", "Study Areas"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range rs.Records {
		row := []string{
			string(r.Source),
			orMissing(r.Title),
			joinOrMissing(r.Authors),
			yearOrMissing(r.Year),
			orMissing(r.SourceTitle),
			orMissing(r.DOI),
			orMissing(r.Abstract),
			joinOrMissing(r.Keywords),
			joinOrMissing(r.StudyAreas),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the records as indented JSON to w. Zero-value fields
// are omitted rather than replaced by the missing placeholder.
func (rs *ResultSet) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs.Records)
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return s
}

func joinOrMissing(values []string) string {
	if len(values) == 0 {
		return Missing
	}
	return strings.Join(values, "; ")
}

func yearOrMissing(year int) string {
	if year == 0 {
		return Missing
	}
	return strconv.Itoa(year)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return Missing
	case 1:
		return authors[0]
	default:
		return authors[0] + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
