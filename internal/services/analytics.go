package services

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"retail-insights/internal/dataset"
	"retail-insights/internal/ingest"
	"retail-insights/internal/insights"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
)

const (
	cacheVersion    = "v2"
	defaultCacheDir = ".cache"
)

var (
	ErrNotLoaded   = errors.New("no dataset loaded")
	ErrInvalidTier = errors.New("invalid tier")
)

// PrecomputedData is the outcome of one pipeline run. Only aggregates are
// kept; the cleaned rows are dropped once the run ends.
type PrecomputedData struct {
	RunID          string              `json:"run_id"`
	Source         string              `json:"source,omitempty"`
	SourceModified time.Time           `json:"source_modified"`
	Overview       models.Overview     `json:"overview"`
	Tiers          []models.TierSeries `json:"tiers"`
	LastModified   time.Time           `json:"last_modified"`
	RecordCount    int64               `json:"record_count"`
	CleanCount     int64               `json:"clean_count"`
}

type Analytics struct {
	mu               sync.RWMutex
	precomputed      *PrecomputedData
	recordsProcessed atomic.Int64
	cacheDir         string
	logger           *slog.Logger
	metrics          *observability.Metrics
}

type Option func(*Analytics)

func WithLogger(l *slog.Logger) Option {
	return func(a *Analytics) { a.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analytics) { a.metrics = m }
}

// WithCacheDir sets where precomputed reports are cached. An empty dir
// disables the cache.
func WithCacheDir(dir string) Option {
	return func(a *Analytics) { a.cacheDir = dir }
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		precomputed: &PrecomputedData{},
		cacheDir:    defaultCacheDir,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetData runs the pipeline over an in-memory table and publishes the result.
func (a *Analytics) SetData(ctx context.Context, table dataset.Table) error {
	data, err := a.compute(ctx, table)
	if err != nil {
		return err
	}
	a.store(data)
	return nil
}

// LoadFromFile reads the dataset at path (XLSX or CSV) and runs the pipeline.
// A cached run for the same path and modification time is reused.
func (a *Analytics) LoadFromFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat dataset: %w", err)
	}

	if cached, err := a.loadFromCache(path); err == nil {
		if cached.Source == path && cached.SourceModified.Equal(info.ModTime()) {
			a.store(cached)
			a.logger.Info("loaded from cache", "records", cached.RecordCount, "run_id", cached.RunID)
			return nil
		}
	}

	start := time.Now()
	a.logger.Info("processing dataset", "filename", path)

	var table dataset.Table
	err = a.stage(ctx, "ingest", func(ctx context.Context) error {
		var err error
		table, err = ingest.Read(ctx, path)
		return err
	})
	if err != nil {
		a.metrics.RecordRun("ingest_error")
		return fmt.Errorf("read dataset: %w", err)
	}

	data, err := a.compute(ctx, table)
	if err != nil {
		return err
	}
	data.Source = path
	data.SourceModified = info.ModTime()
	a.store(data)

	if err := a.saveToCache(path, data); err != nil {
		a.logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	count := a.recordsProcessed.Load()
	a.logger.Info("dataset processing complete",
		"records", count,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(count)/duration.Seconds()))

	return nil
}

func (a *Analytics) compute(ctx context.Context, table dataset.Table) (*PrecomputedData, error) {
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)

	ctx, span := observability.StartSpan(ctx, "pipeline.run",
		attribute.String("run_id", runID),
		attribute.Int("rows", len(table.Rows)),
	)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var unclean dataset.Dataset
	err = a.stage(ctx, "validate", func(context.Context) error {
		var verr error
		unclean, verr = dataset.ValidateSchema(table)
		return verr
	})
	if err != nil {
		a.metrics.RecordRun("schema_mismatch")
		logger.Error("schema validation failed", "error", err)
		return nil, fmt.Errorf("validate schema: %w", err)
	}

	var (
		clean    dataset.Dataset
		summary  models.CleaningSummary
		featured dataset.Featured
	)
	err = a.stage(ctx, "clean", func(context.Context) error {
		clean, summary = dataset.Clean(unclean)
		return nil
	})
	if err != nil {
		a.metrics.RecordRun("error")
		return nil, fmt.Errorf("clean: %w", err)
	}
	a.metrics.RecordCleaning(summary)
	logger.Info("dataset cleaned",
		"input", summary.Input,
		"kept", summary.Kept,
		"missing_customer", summary.MissingCustomer,
		"cancelled", summary.Cancelled,
		"non_positive_price", summary.NonPositivePrice)

	err = a.stage(ctx, "derive", func(context.Context) error {
		featured = dataset.Derive(clean)
		return nil
	})
	if err != nil {
		a.metrics.RecordRun("error")
		return nil, fmt.Errorf("derive: %w", err)
	}

	var (
		kpis  models.KPIBundle
		tiers = []models.Tier{models.TierRevenue, models.TierExtended}
		built = make([]models.TierSeries, len(tiers))
		wg    errgroup.Group
	)
	wg.Go(func() error {
		return a.stage(ctx, "kpis", func(context.Context) error {
			kpis = insights.ComputeKPIs(unclean, featured)
			return nil
		})
	})
	for i, tier := range tiers {
		wg.Go(func() error {
			return a.stage(ctx, "tier_"+tier.String(), func(context.Context) error {
				built[i] = insights.BuildTier(tier, featured)
				return nil
			})
		})
	}
	if err = wg.Wait(); err != nil {
		a.metrics.RecordRun("error")
		return nil, err
	}

	for _, is := range kpis.Issues {
		logger.Warn("kpi undefined", "kpi", is.KPI, "reason", is.Reason)
	}
	for _, ts := range built {
		for _, s := range ts.Series {
			if s.Failed() {
				a.metrics.RecordSeriesFailure(s.Label)
				logger.Error("series failed", "label", s.Label, "error", s.Error)
			}
		}
	}

	a.metrics.RecordRun("ok")
	a.recordsProcessed.Store(int64(unclean.Len()))

	return &PrecomputedData{
		RunID:        runID,
		Overview:     insights.BuildOverview(kpis, summary),
		Tiers:        built,
		LastModified: time.Now(),
		RecordCount:  int64(unclean.Len()),
		CleanCount:   int64(featured.Len()),
	}, nil
}

// stage runs fn inside a span and records its duration.
func (a *Analytics) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "pipeline."+name)
	start := time.Now()
	err := fn(ctx)
	a.metrics.ObserveStage(name, time.Since(start))
	observability.EndSpan(span, err)
	return err
}

func (a *Analytics) store(data *PrecomputedData) {
	a.mu.Lock()
	a.precomputed = data
	a.mu.Unlock()
}

// Cache management
func (a *Analytics) getCacheFilename(path string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(path)
	return filepath.Join(a.cacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (a *Analytics) saveToCache(path string, data *PrecomputedData) error {
	if a.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.cacheDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(a.getCacheFilename(path))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(data)
}

func (a *Analytics) loadFromCache(path string) (*PrecomputedData, error) {
	if a.cacheDir == "" {
		return nil, os.ErrNotExist
	}
	file, err := os.Open(a.getCacheFilename(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data PrecomputedData
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Query methods read the published snapshot.

func (a *Analytics) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.RunID != ""
}

func (a *Analytics) Overview() models.Overview {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.Overview
}

func (a *Analytics) KPIs() models.KPIBundle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.Overview.KPIs
}

// Tier returns the series of a tier. Tier 1 is valid and has none.
func (a *Analytics) Tier(t models.Tier) (models.TierSeries, error) {
	if !t.Valid() {
		return models.TierSeries{}, fmt.Errorf("%w: %d", ErrInvalidTier, int(t))
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.precomputed.RunID == "" {
		return models.TierSeries{}, ErrNotLoaded
	}
	for _, ts := range a.precomputed.Tiers {
		if ts.Tier == t {
			return ts, nil
		}
	}
	return models.TierSeries{Tier: t, Series: []models.Series{}}, nil
}

func (a *Analytics) Series(label string) (models.Series, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, ts := range a.precomputed.Tiers {
		if s, ok := ts.Get(label); ok {
			return s, true
		}
	}
	return models.Series{}, false
}

// Report bundles the overview with every series tier up to t.
func (a *Analytics) Report(t models.Tier) (models.Report, error) {
	if !t.Valid() {
		return models.Report{}, fmt.Errorf("%w: %d", ErrInvalidTier, int(t))
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.precomputed.RunID == "" {
		return models.Report{}, ErrNotLoaded
	}

	r := models.Report{Tier: t, Overview: a.precomputed.Overview, Tiers: []models.TierSeries{}}
	for _, ts := range a.precomputed.Tiers {
		if ts.Tier <= t {
			r.Tiers = append(r.Tiers, ts)
		}
	}
	return r, nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	failed := 0
	series := 0
	for _, ts := range a.precomputed.Tiers {
		for _, s := range ts.Series {
			series++
			if s.Failed() {
				failed++
			}
		}
	}

	return map[string]any{
		"run_id":         a.precomputed.RunID,
		"source":         a.precomputed.Source,
		"record_count":   a.precomputed.RecordCount,
		"clean_count":    a.precomputed.CleanCount,
		"last_processed": a.precomputed.LastModified,
		"series":         series,
		"series_failed":  failed,
		"kpi_issues":     len(a.precomputed.Overview.KPIs.Issues),
	}
}
