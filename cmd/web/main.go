package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"retail-insights/internal/config"
	"retail-insights/internal/ingest"
	"retail-insights/internal/observability"
	"retail-insights/internal/server"
	"retail-insights/internal/services"
	"retail-insights/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	datasetTimeout = 2 * time.Minute
	cacheMaxAge    = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// prepareDataset returns the path of the workbook to load, downloading and
// extracting the public dataset first when allowed.
func prepareDataset(ctx context.Context, cfg config.DatasetConfig, logger *slog.Logger) (string, error) {
	if cfg.File != "" || !cfg.AutoDownload {
		return cfg.WorkbookPath(), nil
	}

	client := &http.Client{Timeout: cfg.DownloadTimeout}
	return ingest.EnsureDataset(ctx, client, ingest.Source{
		URL:      cfg.SourceURL,
		Dir:      cfg.Dir,
		Archive:  cfg.Archive,
		Workbook: cfg.Workbook,
	}, logger)
}

// loadDataset prepares the workbook and runs the pipeline over it.
func loadDataset(ctx context.Context, cfg config.DatasetConfig, analytics *services.Analytics, logger *slog.Logger) error {
	start := time.Now()
	path, err := prepareDataset(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("prepare dataset: %w", err)
	}
	if err := analytics.LoadFromFile(ctx, path); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded", "path", path, "duration", time.Since(start))
	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"dataset", cfg.Dataset.WorkbookPath(),
	)

	shutdownTracing, err := observability.InitTracing(cfg.Tracing, os.Stdout, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	metrics := observability.NewMetrics()
	analytics := services.NewAnalytics(
		services.WithLogger(logger),
		services.WithMetrics(metrics),
		services.WithCacheDir(cfg.Dataset.CacheDir),
	)

	srv := server.NewServer(analytics, logger, metrics, &server.TemplateHandlers{
		Dashboard: handleDashboard,
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      srv.Handler(cfg.Security),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), datasetTimeout+cfg.Dataset.DownloadTimeout)
	defer cancelLoad()

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.RegisterShutdownHook("dataset", func(context.Context) error {
		cancelLoad()
		return nil
	})
	gracefulServer.RegisterShutdownHook("tracing", func(ctx context.Context) error {
		return shutdownTracing(ctx)
	})

	// Requests are served while the dataset loads; /health reports
	// "loading" and data endpoints answer 503 until it is ready.
	go func() {
		if err := loadDataset(loadCtx, cfg.Dataset, analytics, logger); err != nil {
			logger.Error("dataset unavailable", "error", err)
		}
	}()

	if err := gracefulServer.ListenAndServe(); err != nil {
		return err
	}

	logger.Info("application stopped gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}
