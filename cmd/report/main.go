// Command report runs the insights pipeline once and prints the report for a
// tier as JSON. It mirrors the dashboard's tier selection: 1 is the overview,
// 2 adds the revenue series, 3 adds the extended series. Any other tier
// exits without running.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"retail-insights/internal/config"
	"retail-insights/internal/export"
	"retail-insights/internal/ingest"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
)

const closingMessage = "Closing the Application"

var errNoTier = errors.New("no valid tier selected")

type options struct {
	tier     int
	input    string
	xlsx     string
	noCache  bool
	download bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.tier, "tier", int(models.TierOverview), "report tier: 1 overview, 2 revenue, 3 extended")
	fs.StringVar(&opts.input, "input", "", "dataset file (.xlsx or .csv); defaults to the configured workbook")
	fs.StringVar(&opts.xlsx, "xlsx", "", "also write the report as an Excel workbook to this path")
	fs.BoolVar(&opts.noCache, "no-cache", false, "ignore and do not write the precomputed report cache")
	fs.BoolVar(&opts.download, "download", true, "download the public dataset when the workbook is missing")
	err := fs.Parse(args)
	return opts, err
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	tier := models.Tier(opts.tier)
	if !tier.Valid() {
		fmt.Fprintln(stderr, closingMessage)
		return errNoTier
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Logger.Output == "stdout" {
		cfg.Logger.Output = "stderr"
	}
	logger := observability.NewLogger(cfg.Logger)

	shutdownTracing, err := observability.InitTracing(cfg.Tracing, stderr, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.WithoutCancel(ctx))

	path := opts.input
	if path == "" {
		path = cfg.Dataset.WorkbookPath()
		if opts.download && cfg.Dataset.AutoDownload && cfg.Dataset.File == "" {
			client := &http.Client{Timeout: cfg.Dataset.DownloadTimeout}
			path, err = ingest.EnsureDataset(ctx, client, ingest.Source{
				URL:      cfg.Dataset.SourceURL,
				Dir:      cfg.Dataset.Dir,
				Archive:  cfg.Dataset.Archive,
				Workbook: cfg.Dataset.Workbook,
			}, logger)
			if err != nil {
				return fmt.Errorf("prepare dataset: %w", err)
			}
		}
	}

	cacheDir := cfg.Dataset.CacheDir
	if opts.noCache {
		cacheDir = ""
	}
	analytics := services.NewAnalytics(services.WithLogger(logger), services.WithCacheDir(cacheDir))
	if err := analytics.LoadFromFile(ctx, path); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	report, err := analytics.Report(tier)
	if err != nil {
		return err
	}

	if opts.xlsx != "" {
		data, err := export.Workbook(report)
		if err != nil {
			return fmt.Errorf("build workbook: %w", err)
		}
		if err := os.WriteFile(opts.xlsx, data, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		logger.Info("workbook written", "path", opts.xlsx, "tier", int(tier))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, errNoTier), errors.Is(err, flag.ErrHelp):
		return
	default:
		slog.Error("report failed", "error", err)
		os.Exit(1)
	}
}
