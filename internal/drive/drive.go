// Package drive lists and downloads PDF documents stored in a Google Drive
// folder, authenticating with a service-account key.
package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/meridianlabs/literature-search-service/internal/domain"
)

const (
	// DefaultMaxFileSize caps a single media download (50MB).
	DefaultMaxFileSize = 50 * 1024 * 1024

	// listPageSize is the page size used when listing folder contents.
	listPageSize = 100
)

// folderIDPattern matches the characters Drive uses in folder identifiers.
// The ID is interpolated into a list query, so anything else is rejected.
var folderIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// File is the metadata of one stored document.
type File struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// FileLister enumerates and fetches the PDF documents of a storage folder.
type FileLister interface {
	ListPDFs(ctx context.Context, folderID string) ([]File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Config holds configuration for the Drive client.
type Config struct {
	// CredentialsJSON is the raw service-account key. Takes precedence
	// over CredentialsFile.
	CredentialsJSON []byte

	// CredentialsFile is the path of the service-account JSON key.
	CredentialsFile string

	// MaxFileSize caps a single media download in bytes.
	// Defaults to 50MB.
	MaxFileSize int64
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.MaxFileSize == 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

// Client implements FileLister over the Google Drive v3 API.
type Client struct {
	service *gdrive.Service
	maxSize int64
	logger  zerolog.Logger
}

// Ensure Client implements FileLister interface.
var _ FileLister = (*Client)(nil)

// New creates a Drive client from a service-account key, requesting
// read-only scope.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	cfg.applyDefaults()

	data := cfg.CredentialsJSON
	if len(data) == 0 {
		var err error
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading service account file: %w", err)
		}
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, gdrive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	service, err := gdrive.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return NewWithService(cfg, service, logger), nil
}

// NewWithService creates a Drive client around an existing API service.
// This is useful for testing with mock servers.
func NewWithService(cfg Config, service *gdrive.Service, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		service: service,
		maxSize: cfg.MaxFileSize,
		logger:  logger.With().Str("component", "drive").Logger(),
	}
}

// ListPDFs returns the PDF documents directly inside folderID, following
// list pagination to the end.
func (c *Client) ListPDFs(ctx context.Context, folderID string) ([]File, error) {
	if !folderIDPattern.MatchString(folderID) {
		return nil, domain.NewValidationError("folder_id", "malformed folder identifier")
	}

	query := fmt.Sprintf("'%s' in parents and trashed=false and mimeType='application/pdf'", folderID)

	var files []File
	pageToken := ""
	for {
		call := c.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, size)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing folder %s: %w", folderID, err)
		}

		for _, f := range list.Files {
			files = append(files, File{
				ID:       f.Id,
				Name:     f.Name,
				MimeType: f.MimeType,
				Size:     f.Size,
			})
		}

		if list.NextPageToken == "" {
			return files, nil
		}
		pageToken = list.NextPageToken
	}
}

// Download fetches the content of a stored document.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("downloading file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", fileID, err)
	}
	if int64(len(content)) > c.maxSize {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, c.maxSize)
	}

	return content, nil
}
