// Package main provides the entry point for the literature search service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridianlabs/literature-search-service/internal/config"
	"github.com/meridianlabs/literature-search-service/internal/drive"
	"github.com/meridianlabs/literature-search-service/internal/enrich"
	"github.com/meridianlabs/literature-search-service/internal/observability"
	"github.com/meridianlabs/literature-search-service/internal/pdfdoc"
	httpserver "github.com/meridianlabs/literature-search-service/internal/server/http"
	"github.com/meridianlabs/literature-search-service/internal/sources"
	"github.com/meridianlabs/literature-search-service/internal/sources/crossref"
	"github.com/meridianlabs/literature-search-service/internal/sources/scholar"
	"github.com/meridianlabs/literature-search-service/internal/sources/scopus"
	"github.com/meridianlabs/literature-search-service/internal/sources/wos"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A local .env file is a development convenience; absence is fine.
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "searchd").Logger()
	logger.Info().Msg("literature-search-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("litsearch")
	}

	// CrossRef backs both DOI backfill and stored-document resolution.
	var resolver *crossref.Client
	if cfg.CrossRef.Enabled {
		crossrefCfg := crossref.Config{
			BaseURL:   cfg.CrossRef.BaseURL,
			Email:     cfg.CrossRef.Email,
			Timeout:   cfg.CrossRef.Timeout,
			RateLimit: cfg.CrossRef.RateLimit,
		}
		if metrics != nil {
			crossrefCfg.Metrics = metrics
		}
		resolver = crossref.New(crossrefCfg, logger)
	}

	// Register the databases in fixed order so aggregated searches always
	// run them the same way.
	wosCfg := wos.Config{
		BaseURL:    cfg.Sources.WoS.BaseURL,
		APIKey:     cfg.Sources.WoS.APIKey,
		Timeout:    cfg.Sources.WoS.Timeout,
		RateLimit:  cfg.Sources.WoS.RateLimit,
		MaxRecords: cfg.Sources.WoS.MaxRecords,
		Enabled:    cfg.Sources.WoS.Enabled,
	}
	scopusCfg := scopus.Config{
		BaseURL:    cfg.Sources.Scopus.BaseURL,
		APIKey:     cfg.Sources.Scopus.APIKey,
		Timeout:    cfg.Sources.Scopus.Timeout,
		RateLimit:  cfg.Sources.Scopus.RateLimit,
		MaxRecords: cfg.Sources.Scopus.MaxRecords,
		Enabled:    cfg.Sources.Scopus.Enabled,
	}
	if metrics != nil {
		wosCfg.Metrics = metrics
		scopusCfg.Metrics = metrics
	}
	aggregator := sources.NewAggregator(logger)
	aggregator.Register(wos.New(wosCfg, logger))
	aggregator.Register(scopus.New(scopusCfg, logger))

	// Keep the interface nil when no resolver exists, so Scholar skips DOI
	// lookups instead of calling a nil client.
	var scholarFinder scholar.DOIFinder
	if resolver != nil {
		scholarFinder = resolver
	}
	aggregator.Register(scholar.New(scholar.Config{
		APIKey:     cfg.Sources.Scholar.APIKey,
		RateLimit:  cfg.Sources.Scholar.RateLimit,
		MaxRecords: cfg.Sources.Scholar.MaxRecords,
		Enabled:    cfg.Sources.Scholar.Enabled,
	}, scholarFinder, logger))

	for _, src := range aggregator.EnabledSources() {
		logger.Info().Str("source", src.Name()).Msg("literature database enabled")
	}

	// DOI backfill and document scanning both need the registry resolver.
	var enricher httpserver.EnrichmentService
	if resolver != nil {
		enrichCfg := enrich.Config{
			Resolver:   resolver,
			Extractor:  pdfdoc.NewExtractor(0),
			Downloader: pdfdoc.NewDownloader(pdfdoc.DownloaderConfig{}),
		}
		if metrics != nil {
			enrichCfg.Metrics = metrics
		}
		if cfg.Drive.Enabled {
			lister, err := drive.New(ctx, drive.Config{
				CredentialsFile: cfg.Drive.CredentialsFile,
				MaxFileSize:     cfg.Drive.MaxFileSize,
			}, logger)
			if err != nil {
				return fmt.Errorf("create drive client: %w", err)
			}
			enrichCfg.Lister = lister
			logger.Info().Str("folder_id", cfg.Drive.FolderID).Msg("document storage enabled")
		}
		enricher = enrich.New(enrichCfg, logger)
	} else if cfg.Drive.Enabled {
		logger.Warn().Msg("document scanning disabled: the CrossRef resolver is not enabled")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxRecords:      cfg.Search.MaxRecords,
		SearchTimeout:   cfg.Search.Timeout,
		DefaultFolderID: cfg.Drive.FolderID,
	}
	httpSrv := httpserver.NewServer(httpCfg, aggregator, enricher, metrics, logger)

	// Serve Prometheus metrics on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("literature-search-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down literature-search-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("literature-search-service shutdown complete")
	return nil
}
