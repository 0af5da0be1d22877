package wos

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/meridianlabs/literature-search-service/internal/normalize"
)

// SearchResponse represents the top-level Web of Science Expanded API
// response.
type SearchResponse struct {
	QueryResult QueryResult  `json:"QueryResult"`
	Data        ResponseData `json:"Data"`
}

// QueryResult carries the query-level metadata of the response.
type QueryResult struct {
	RecordsFound int `json:"RecordsFound"`
}

// ResponseData wraps the record payload of the response.
type ResponseData struct {
	Records RecordsWrapper `json:"Records"`
}

// RecordsWrapper wraps the polymorphic records container.
type RecordsWrapper struct {
	Records RecordsContainer `json:"records"`
}

// RecordsContainer decodes the "records" value, which the API serializes
// as an object holding REC when the query matched and as an empty string
// when it did not. Any other shape is a decode error.
type RecordsContainer struct {
	// HasMatches reports whether the response carried a record payload.
	HasMatches bool

	// Records holds the page's records, normalized to a list.
	Records []Record
}

// UnmarshalJSON implements the single-object/list/empty-string tolerance
// described above. Decode errors below REC propagate so that a structurally
// broken page is reported as malformed rather than silently empty.
func (rc *RecordsContainer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != "" {
			return fmt.Errorf("unexpected records value %q", s)
		}
		// An empty string is the API's "no matches" marker.
		return nil
	}

	var container struct {
		REC recList `json:"REC"`
	}
	if err := json.Unmarshal(data, &container); err != nil {
		return err
	}

	rc.HasMatches = true
	rc.Records = container.REC
	return nil
}

// recList accepts both a single record object and a list of them. The API
// drops the list wrapper when a page holds exactly one record.
type recList []Record

func (rl *recList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '[' {
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return err
		}
		*rl = records
		return nil
	}

	var single Record
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*rl = recList{single}
	return nil
}

// Record represents a single REC entry. Only the fields the normalizer
// reads are modeled; fields with an unexpected shape decode to their zero
// value instead of failing the page.
type Record struct {
	StaticData StaticData `json:"static_data"`
}

// StaticData holds the static portion of a record.
type StaticData struct {
	Summary            Summary            `json:"summary"`
	FullRecordMetadata FullRecordMetadata `json:"fullrecord_metadata"`
}

// Summary holds the bibliographic summary of a record.
type Summary struct {
	Titles      Titles      `json:"titles"`
	Names       Names       `json:"names"`
	PubInfo     PubInfo     `json:"pub_info"`
	Identifiers Identifiers `json:"identifiers"`
}

// Titles wraps the record's title entries.
type Titles struct {
	Title titleList `json:"title"`
}

// Names wraps the record's author entries.
type Names struct {
	Name nameList `json:"name"`
}

// PubInfo carries publication metadata.
type PubInfo struct {
	PubYear flexYear `json:"pubyear"`
}

// Identifiers wraps the record's identifier entries.
type Identifiers struct {
	Identifier identifierList `json:"identifier"`
}

// FullRecordMetadata holds the extended portion of a record.
type FullRecordMetadata struct {
	Abstracts    Abstracts    `json:"abstracts"`
	KeywordsPlus KeywordsPlus `json:"keywords_plus"`
}

// Abstracts wraps the record's abstract paragraphs.
type Abstracts struct {
	Abstract abstractList `json:"abstract"`
}

// KeywordsPlus wraps the record's derived keywords.
type KeywordsPlus struct {
	Keyword keywordList `json:"keyword"`
}

// TitleEntry is one element of titles.title; type is "item" for the
// document title and "source" for the venue.
type TitleEntry struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NameEntry is one element of names.name.
type NameEntry struct {
	FullName string `json:"full_name"`
}

// IdentifierEntry is one element of identifiers.identifier.
type IdentifierEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// AbstractEntry is one paragraph of the record's abstract.
type AbstractEntry struct {
	Content string `json:"content"`
}

// The API collapses single-element lists to a bare object, so every list
// field decodes through flexList.

type titleList []TitleEntry

func (l *titleList) UnmarshalJSON(data []byte) error {
	*l = flexList[TitleEntry](data)
	return nil
}

type nameList []NameEntry

func (l *nameList) UnmarshalJSON(data []byte) error {
	*l = flexList[NameEntry](data)
	return nil
}

type identifierList []IdentifierEntry

func (l *identifierList) UnmarshalJSON(data []byte) error {
	*l = flexList[IdentifierEntry](data)
	return nil
}

type abstractList []AbstractEntry

func (l *abstractList) UnmarshalJSON(data []byte) error {
	*l = flexList[AbstractEntry](data)
	return nil
}

type keywordList []string

func (l *keywordList) UnmarshalJSON(data []byte) error {
	*l = flexList[string](data)
	return nil
}

// flexList decodes either a JSON list or a single object into a slice of T.
// A value of any other shape yields nil; a broken field inside a record
// must not fail the whole page.
func flexList[T any](data []byte) []T {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '[' {
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return nil
		}
		return list
	}

	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return nil
	}
	return []T{single}
}

// flexYear is a publication year that may arrive as a JSON number or as a
// string, sometimes with month or day attached ("2021-03").
type flexYear int

func (y *flexYear) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*y = flexYear(normalize.Year(s))
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	*y = flexYear(n)
	return nil
}
