// Package enrich recovers missing bibliographic metadata. It backfills DOIs
// on search results and turns stored PDF documents into full records by way
// of the DOI registry.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/literature-search-service/internal/domain"
	"github.com/meridianlabs/literature-search-service/internal/drive"
)

// MetadataResolver looks up works in a DOI registry.
type MetadataResolver interface {
	FindDOI(ctx context.Context, title, author string) (string, error)
	Work(ctx context.Context, doi string) (*domain.Record, error)
}

// DOIExtractor scans PDF content for a DOI.
type DOIExtractor interface {
	DOI(content []byte) (string, error)
}

// ContentDownloader fetches a candidate PDF from a result link.
type ContentDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// AreaTagger derives study-area labels from abstract text.
type AreaTagger interface {
	StudyAreas(ctx context.Context, text string) ([]string, error)
}

// MetricsRecorder counts enrichment outcomes. The service runs without one.
type MetricsRecorder interface {
	RecordDOILookup(outcome string)
	RecordDocumentProcessed()
	RecordDocumentSkipped()
}

type nopMetrics struct{}

func (nopMetrics) RecordDOILookup(string)   {}
func (nopMetrics) RecordDocumentProcessed() {}
func (nopMetrics) RecordDocumentSkipped()   {}

// Document is a bibliographic record recovered from a stored PDF.
type Document struct {
	domain.Record
	Filename string `json:"filename"`
}

// Config holds the collaborators of the enrichment service. Resolver is
// required; the rest enable optional stages when present.
type Config struct {
	Resolver   MetadataResolver
	Lister     drive.FileLister
	Extractor  DOIExtractor
	Downloader ContentDownloader
	Areas      AreaTagger
	Metrics    MetricsRecorder
}

// Service enriches search results and stored documents.
type Service struct {
	resolver   MetadataResolver
	lister     drive.FileLister
	extractor  DOIExtractor
	downloader ContentDownloader
	areas      AreaTagger
	metrics    MetricsRecorder
	logger     zerolog.Logger
}

// New creates an enrichment service from the configured collaborators.
func New(cfg Config, logger zerolog.Logger) *Service {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		resolver:   cfg.Resolver,
		lister:     cfg.Lister,
		extractor:  cfg.Extractor,
		downloader: cfg.Downloader,
		areas:      cfg.Areas,
		metrics:    metrics,
		logger:     logger.With().Str("component", "enrich").Logger(),
	}
}

// BackfillDOIs fills missing DOIs on records in place, first by registry
// title lookup and then, when a downloader is configured, by scanning the
// linked PDF. Returns how many records gained a DOI. Lookup failures leave
// the record untouched.
func (s *Service) BackfillDOIs(ctx context.Context, records []domain.Record) int {
	filled := 0
	for i := range records {
		if ctx.Err() != nil {
			break
		}
		if records[i].HasDOI() {
			continue
		}

		doi, err := s.lookupDOI(ctx, &records[i])
		if doi == "" {
			doi = s.doiFromLinkedPDF(ctx, &records[i])
		}
		if doi != "" {
			records[i].DOI = doi
			filled++
			s.metrics.RecordDOILookup("filled")
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.metrics.RecordDOILookup("failed")
		} else {
			s.metrics.RecordDOILookup("missing")
		}
	}
	return filled
}

// lookupDOI resolves a DOI by title and first author.
func (s *Service) lookupDOI(ctx context.Context, rec *domain.Record) (string, error) {
	if s.resolver == nil || rec.Title == "" {
		return "", nil
	}

	var author string
	if len(rec.Authors) > 0 {
		author = rec.Authors[0]
	}

	doi, err := s.resolver.FindDOI(ctx, rec.Title, author)
	if err != nil {
		s.logger.Debug().Err(err).Str("title", rec.Title).Msg("doi lookup failed")
		return "", err
	}
	return doi, nil
}

// doiFromLinkedPDF downloads the record's link when it points at a PDF and
// scans the document for a DOI.
func (s *Service) doiFromLinkedPDF(ctx context.Context, rec *domain.Record) string {
	if s.downloader == nil || s.extractor == nil || !linksPDF(rec.URL) {
		return ""
	}

	content, err := s.downloader.Download(ctx, rec.URL)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", rec.URL).Msg("pdf download failed")
		return ""
	}

	doi, err := s.extractor.DOI(content)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", rec.URL).Msg("no doi in linked pdf")
		return ""
	}
	return doi
}

// linksPDF reports whether a result link points at a PDF file.
func linksPDF(link string) bool {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), ".pdf")
}

// ProcessFolder recovers a bibliographic record for every PDF stored in a
// folder. Files whose DOI cannot be found or resolved are skipped with a
// warning, never failing the batch.
func (s *Service) ProcessFolder(ctx context.Context, folderID string) ([]Document, error) {
	if s.lister == nil || s.extractor == nil || s.resolver == nil {
		return nil, fmt.Errorf("document storage is not configured: %w", domain.ErrServiceUnavailable)
	}

	files, err := s.lister.ListPDFs(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing folder: %w", err)
	}

	s.logger.Info().Str("folder_id", folderID).Int("files", len(files)).Msg("processing stored documents")

	var docs []Document
	for _, file := range files {
		if ctx.Err() != nil {
			return docs, ctx.Err()
		}

		doc, err := s.processFile(ctx, file)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", file.Name).Msg("skipping document")
			s.metrics.RecordDocumentSkipped()
			continue
		}
		docs = append(docs, *doc)
		s.metrics.RecordDocumentProcessed()
	}

	return docs, nil
}

// processFile downloads one stored PDF, finds its DOI, and resolves the
// registry record.
func (s *Service) processFile(ctx context.Context, file drive.File) (*Document, error) {
	content, err := s.lister.Download(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	doi, err := s.extractor.DOI(content)
	if err != nil {
		return nil, err
	}

	rec, err := s.resolver.Work(ctx, doi)
	if err != nil {
		return nil, err
	}
	rec.Source = domain.SourceDrive

	if s.areas != nil && rec.Abstract != "" {
		areas, err := s.areas.StudyAreas(ctx, rec.Abstract)
		if err != nil {
			s.logger.Debug().Err(err).Str("doi", doi).Msg("study area tagging failed")
		} else {
			rec.StudyAreas = areas
		}
	}

	return &Document{Record: *rec, Filename: file.Name}, nil
}
