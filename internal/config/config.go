// Package config provides configuration management for the literature search service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the literature search service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Search contains limits applied to each search request.
	Search SearchConfig `mapstructure:"search"`
	// Sources contains the bibliographic database client configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// CrossRef contains CrossRef metadata resolution settings.
	CrossRef CrossRefConfig `mapstructure:"crossref"`
	// Drive contains Google Drive document storage settings.
	Drive DriveConfig `mapstructure:"drive"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	// Searches page through external APIs under rate limits, so this
	// must comfortably exceed the search timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// SearchConfig holds limits applied to each search request.
type SearchConfig struct {
	// MaxRecords caps the per-source record count a single request may ask for.
	MaxRecords int `mapstructure:"max_records"`
	// Timeout bounds the total duration of one aggregated search.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SourcesConfig holds configuration for the searchable databases.
type SourcesConfig struct {
	// WoS contains Web of Science Expanded API settings.
	WoS SourceConfig `mapstructure:"wos"`
	// Scopus contains Scopus Search API settings.
	Scopus SourceConfig `mapstructure:"scopus"`
	// Scholar contains Google Scholar (SerpAPI) settings.
	Scholar SourceConfig `mapstructure:"scholar"`
}

// SourceConfig holds configuration for a single database client.
type SourceConfig struct {
	// Enabled controls whether this source is searched.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. LITSEARCH_SOURCES_WOS_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL. Ignored by the Scholar client, whose
	// endpoint is fixed by the SerpAPI library.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxRecords is the fallback bound on records fetched per search when
	// the request does not carry its own limit.
	MaxRecords int `mapstructure:"max_records"`
}

// CrossRefConfig holds CrossRef metadata resolution settings.
type CrossRefConfig struct {
	// Enabled controls whether missing DOIs are backfilled through CrossRef.
	Enabled bool `mapstructure:"enabled"`
	// Email is the contact address sent with requests for CrossRef's polite pool.
	Email string `mapstructure:"email"`
	// BaseURL is the CrossRef API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// DriveConfig holds Google Drive document storage settings.
type DriveConfig struct {
	// Enabled controls whether the stored-documents endpoint is available.
	Enabled bool `mapstructure:"enabled"`
	// CredentialsFile is the path to a service account JSON key file.
	CredentialsFile string `mapstructure:"credentials_file"`
	// FolderID is the folder scanned when a request names none.
	FolderID string `mapstructure:"folder_id"`
	// MaxFileSize is the largest PDF downloaded, in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("LITSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/literature-search-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Sources.WoS.APIKey = os.Getenv("LITSEARCH_SOURCES_WOS_API_KEY")
	cfg.Sources.Scopus.APIKey = os.Getenv("LITSEARCH_SOURCES_SCOPUS_API_KEY")
	cfg.Sources.Scholar.APIKey = os.Getenv("LITSEARCH_SOURCES_SCHOLAR_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Search defaults
	v.SetDefault("search.max_records", 100)
	v.SetDefault("search.timeout", "150s")

	// Source defaults - Web of Science (disabled by default, requires API key)
	v.SetDefault("sources.wos.enabled", false)
	v.SetDefault("sources.wos.base_url", "https://api.clarivate.com/api/wos")
	v.SetDefault("sources.wos.timeout", "30s")
	v.SetDefault("sources.wos.rate_limit", 2.0) // Clarivate allows 2 req/sec per key
	v.SetDefault("sources.wos.max_records", 5000)

	// Source defaults - Scopus (disabled by default, requires API key)
	v.SetDefault("sources.scopus.enabled", false)
	v.SetDefault("sources.scopus.base_url", "https://api.elsevier.com/content")
	v.SetDefault("sources.scopus.timeout", "30s")
	v.SetDefault("sources.scopus.rate_limit", 5.0)
	v.SetDefault("sources.scopus.max_records", 2000)

	// Source defaults - Google Scholar (disabled by default, requires SerpAPI key)
	v.SetDefault("sources.scholar.enabled", false)
	v.SetDefault("sources.scholar.timeout", "30s")
	v.SetDefault("sources.scholar.rate_limit", 1.0)
	v.SetDefault("sources.scholar.max_records", 100)

	// CrossRef defaults (no API key required)
	v.SetDefault("crossref.enabled", true)
	v.SetDefault("crossref.email", "")
	v.SetDefault("crossref.base_url", "https://api.crossref.org")
	v.SetDefault("crossref.timeout", "30s")
	v.SetDefault("crossref.rate_limit", 10.0)

	// Drive defaults (disabled until credentials are configured)
	v.SetDefault("drive.enabled", false)
	v.SetDefault("drive.credentials_file", "")
	v.SetDefault("drive.folder_id", "")
	v.SetDefault("drive.max_file_size", 50*1024*1024)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate search limits
	if c.Search.MaxRecords <= 0 {
		return fmt.Errorf("search max_records must be positive")
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("search timeout must be positive")
	}

	// Validate that every enabled source has its API key set. All three
	// databases refuse unauthenticated requests, so starting without a key
	// would only produce failed searches.
	if c.Sources.WoS.Enabled && c.Sources.WoS.APIKey == "" {
		return fmt.Errorf("source %q requires LITSEARCH_SOURCES_WOS_API_KEY to be set", "wos")
	}
	if c.Sources.Scopus.Enabled && c.Sources.Scopus.APIKey == "" {
		return fmt.Errorf("source %q requires LITSEARCH_SOURCES_SCOPUS_API_KEY to be set", "scopus")
	}
	if c.Sources.Scholar.Enabled && c.Sources.Scholar.APIKey == "" {
		return fmt.Errorf("source %q requires LITSEARCH_SOURCES_SCHOLAR_API_KEY to be set", "scholar")
	}

	// Validate Drive config
	if c.Drive.Enabled && c.Drive.CredentialsFile == "" {
		return fmt.Errorf("drive credentials_file is required when drive is enabled")
	}
	if c.Drive.MaxFileSize <= 0 {
		return fmt.Errorf("drive max_file_size must be positive")
	}

	return nil
}
