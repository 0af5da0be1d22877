package pdfdoc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePDFContent = []byte("%PDF-1.4 sample content for testing")

// newTestDownloader allows private networks because httptest binds loopback.
func newTestDownloader(cfg DownloaderConfig) *Downloader {
	cfg.AllowPrivateNetworks = true
	return NewDownloader(cfg)
}

func pdfServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(content)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewDownloader_Defaults(t *testing.T) {
	t.Run("applies default values", func(t *testing.T) {
		d := NewDownloader(DownloaderConfig{})

		assert.Equal(t, int64(50*1024*1024), d.maxSize)
		assert.Equal(t, "Mozilla/5.0 (compatible; MeridianLabs-LiteratureSearch/1.0)", d.userAgent)
		assert.Equal(t, 60*time.Second, d.client.Timeout)
		assert.False(t, d.allowPrivateNetworks)
	})

	t.Run("uses custom config values", func(t *testing.T) {
		d := NewDownloader(DownloaderConfig{
			Timeout:   30 * time.Second,
			MaxSize:   1024,
			UserAgent: "CustomAgent/2.0",
		})

		assert.Equal(t, int64(1024), d.maxSize)
		assert.Equal(t, "CustomAgent/2.0", d.userAgent)
		assert.Equal(t, 30*time.Second, d.client.Timeout)
	})
}

func TestDownload(t *testing.T) {
	server := pdfServer(t, samplePDFContent)
	d := newTestDownloader(DownloaderConfig{})

	content, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, samplePDFContent, content)
}

func TestDownload_SendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TestBot/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/pdf, */*;q=0.8", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(samplePDFContent)
	}))
	defer server.Close()

	d := newTestDownloader(DownloaderConfig{UserAgent: "TestBot/1.0"})

	_, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
}

func TestDownload_ContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantErr     error
	}{
		{"plain pdf", "application/pdf", nil},
		{"pdf with charset", "application/pdf; charset=utf-8", nil},
		{"mixed case", "Application/PDF", nil},
		{"html page", "text/html", ErrNotPDF},
		{"missing", "", ErrNotPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				} else {
					// Suppress Go's content sniffing.
					w.Header()["Content-Type"] = nil
				}
				w.Write(samplePDFContent)
			}))
			defer server.Close()

			d := newTestDownloader(DownloaderConfig{})

			content, err := d.Download(context.Background(), server.URL)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, content)
			} else {
				require.NoError(t, err)
				assert.Equal(t, samplePDFContent, content)
			}
		})
	}
}

func TestDownload_SizeCap(t *testing.T) {
	body := make([]byte, 1024)

	t.Run("over the cap", func(t *testing.T) {
		server := pdfServer(t, body)
		d := newTestDownloader(DownloaderConfig{MaxSize: 512})

		_, err := d.Download(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrTooLarge)
		assert.Contains(t, err.Error(), "512")
	})

	t.Run("exactly at the cap", func(t *testing.T) {
		server := pdfServer(t, body)
		d := newTestDownloader(DownloaderConfig{MaxSize: 1024})

		content, err := d.Download(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Len(t, content, 1024)
	})
}

func TestDownload_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	d := newTestDownloader(DownloaderConfig{})

	_, err := d.Download(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrDownloadFailed)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestDownload_FollowsRedirects(t *testing.T) {
	final := pdfServer(t, samplePDFContent)
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer redirect.Close()

	d := newTestDownloader(DownloaderConfig{})

	content, err := d.Download(context.Background(), redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, samplePDFContent, content)
}

func TestDownload_PrivateAddressDenied(t *testing.T) {
	d := NewDownloader(DownloaderConfig{})

	tests := []struct {
		name string
		url  string
	}{
		{"loopback ip", "http://127.0.0.1:59999/paper.pdf"},
		{"localhost", "http://localhost/paper.pdf"},
		{"file scheme", "file:///etc/passwd"},
		{"ftp scheme", "ftp://archive.example/paper.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Download(context.Background(), tt.url)
			assert.ErrorIs(t, err, ErrPrivateAddress)
		})
	}
}

func TestDownload_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(samplePDFContent)
	}))
	defer server.Close()

	d := newTestDownloader(DownloaderConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.Download(ctx, server.URL)
	assert.ErrorIs(t, err, ErrDownloadFailed)
}
