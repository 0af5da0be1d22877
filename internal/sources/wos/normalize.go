package wos

import (
	"strings"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/normalize"
)

// toRecord maps a raw Web of Science record onto the common record shape.
// Absent fields stay zero valued; output rendering substitutes the
// missing-value marker.
func toRecord(rec *Record) domain.Record {
	summary := rec.StaticData.Summary

	var title, sourceTitle string
	for _, t := range summary.Titles.Title {
		switch t.Type {
		case "item":
			if title == "" {
				title = normalize.Whitespace(t.Content)
			}
		case "source":
			if sourceTitle == "" {
				sourceTitle = normalize.Whitespace(t.Content)
			}
		}
	}

	var authors []string
	for _, n := range summary.Names.Name {
		if name := strings.TrimSpace(n.FullName); name != "" {
			authors = append(authors, name)
		}
	}

	var doi string
	for _, id := range summary.Identifiers.Identifier {
		if strings.EqualFold(id.Type, "doi") {
			doi = strings.TrimSpace(id.Value)
			break
		}
	}

	var paragraphs []string
	for _, a := range rec.StaticData.FullRecordMetadata.Abstracts.Abstract {
		if text := normalize.StripMarkup(a.Content); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	var keywords []string
	for _, k := range rec.StaticData.FullRecordMetadata.KeywordsPlus.Keyword {
		if kw := strings.TrimSpace(k); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return domain.Record{
		Source:      domain.SourceWebOfScience,
		Title:       title,
		Authors:     authors,
		Year:        int(summary.PubInfo.PubYear),
		SourceTitle: sourceTitle,
		DOI:         doi,
		Abstract:    strings.Join(paragraphs, " "),
		Keywords:    keywords,
	}
}
