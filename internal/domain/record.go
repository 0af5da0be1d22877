// Package domain provides the data model and error taxonomy for the
// Literature Search Service.
package domain

import "strings"

// SourceType identifies the bibliographic database a record came from.
type SourceType string

const (
	SourceWebOfScience SourceType = "wos"
	SourceScopus       SourceType = "scopus"
	SourceScholar      SourceType = "scholar"

	// SourceDrive marks records recovered from stored PDF documents rather
	// than a database search.
	SourceDrive SourceType = "drive"
)

// Missing is the placeholder written for absent fields in tabular and CSV
// output. In-memory records keep zero values; the placeholder is applied
// only at the presentation boundary.
const Missing = "N/A"

// Record is a normalized bibliographic record. Fields that a source does
// not provide are left at their zero value.
type Record struct {
	Source      SourceType `json:"source"`
	Title       string     `json:"title"`
	Authors     []string   `json:"authors,omitempty"`
	Year        int        `json:"year,omitempty"`
	SourceTitle string     `json:"source_title,omitempty"`
	Publisher   string     `json:"publisher,omitempty"`
	DOI         string     `json:"doi,omitempty"`
	Abstract    string     `json:"abstract,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	StudyAreas  []string   `json:"study_areas,omitempty"`
	URL         string     `json:"url,omitempty"`
}

// HasDOI returns true if the record carries a non-empty DOI.
func (r *Record) HasDOI() bool {
	return strings.TrimSpace(r.DOI) != ""
}
