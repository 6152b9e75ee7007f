package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"retail-insights/internal/dataset"
	"retail-insights/internal/insights"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
)

const csvHeader = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n"

const sampleCSV = csvHeader +
	"536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n" +
	"536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26:00,3.39,17850,United Kingdom\n" +
	"536366,22633,HAND WARMER UNION JACK,6,2011-01-04 10:00:00,1.85,12583,France\n" +
	"C536379,D,Discount,-1,2010-12-01 09:41:00,27.50,14527,United Kingdom\n" +
	"536414,22139,,56,2010-12-01 11:52:00,0,,United Kingdom\n"

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestAnalytics(t *testing.T, opts ...Option) *Analytics {
	t.Helper()
	base := []Option{WithLogger(slog.New(slog.DiscardHandler)), WithCacheDir(t.TempDir())}
	return NewAnalytics(append(base, opts...)...)
}

func sampleTable() dataset.Table {
	day := time.Date(2011, 3, 14, 10, 0, 0, 0, time.UTC)
	return dataset.Table{
		Columns: dataset.CanonicalColumns(),
		Rows: []models.RawTransaction{
			{InvoiceNo: "540001", StockCode: "22423", Description: models.StringPtr("REGENCY CAKESTAND 3 TIER"), Quantity: 2,
				InvoiceDate: day, UnitPrice: 12.75, CustomerID: models.StringPtr("12347"), Country: "Iceland"},
			{InvoiceNo: "540002", StockCode: "85099B", Description: models.StringPtr("JUMBO BAG RED RETROSPOT"), Quantity: 10,
				InvoiceDate: day.AddDate(0, 1, 0), UnitPrice: 1.95, CustomerID: models.StringPtr("12348"), Country: "Finland"},
			{InvoiceNo: "C540003", StockCode: "85099B", Quantity: -10, InvoiceDate: day, UnitPrice: 1.95,
				CustomerID: models.StringPtr("12348"), Country: "Finland"},
		},
	}
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.precomputed == nil {
		t.Error("precomputed should be initialized")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
	if a.cacheDir != defaultCacheDir {
		t.Errorf("cacheDir = %q, want %q", a.cacheDir, defaultCacheDir)
	}
	if a.Ready() {
		t.Error("new analytics should not be ready")
	}
}

func TestAnalytics_SetData(t *testing.T) {
	a := newTestAnalytics(t)

	if err := a.SetData(context.Background(), sampleTable()); err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	if !a.Ready() {
		t.Fatal("analytics should be ready after SetData")
	}

	kpis := a.KPIs()
	if kpis.TransactionsUnclean != 3 || kpis.TransactionsClean != 2 {
		t.Errorf("invoices = %d/%d, want 3/2", kpis.TransactionsUnclean, kpis.TransactionsClean)
	}
	if kpis.CancellationRatePct == nil {
		t.Error("cancellation rate should be defined")
	}

	ov := a.Overview()
	if len(ov.Facts) != 6 || len(ov.FormattedKPIs) != 4 {
		t.Errorf("overview facts=%d kpis=%d", len(ov.Facts), len(ov.FormattedKPIs))
	}
	if ov.Cleaning.Cancelled != 1 {
		t.Errorf("cleaning cancelled = %d, want 1", ov.Cleaning.Cancelled)
	}

	tier, err := a.Tier(models.TierRevenue)
	if err != nil {
		t.Fatalf("Tier(2) error = %v", err)
	}
	if len(tier.Series) != 4 {
		t.Errorf("tier 2 has %d series, want 4", len(tier.Series))
	}

	s, ok := a.Series(insights.LabelTopCountriesByRevenue)
	if !ok {
		t.Fatal("series top_10_country_by_revenue not found")
	}
	if len(s.Points) != 2 || s.Points[0].Category != "Iceland" {
		t.Errorf("unexpected top countries: %+v", s.Points)
	}
	if _, ok := a.Series("nope"); ok {
		t.Error("unknown series should not be found")
	}
}

func TestAnalytics_Report(t *testing.T) {
	a := newTestAnalytics(t)
	if err := a.SetData(context.Background(), sampleTable()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tier  models.Tier
		tiers int
	}{
		{models.TierOverview, 0},
		{models.TierRevenue, 1},
		{models.TierExtended, 2},
	}
	for _, tt := range tests {
		r, err := a.Report(tt.tier)
		if err != nil {
			t.Fatalf("Report(%d) error = %v", tt.tier, err)
		}
		if len(r.Tiers) != tt.tiers {
			t.Errorf("Report(%d) has %d tiers, want %d", tt.tier, len(r.Tiers), tt.tiers)
		}
		if r.Overview.KPIs.TransactionsClean != 2 {
			t.Errorf("Report(%d) overview missing", tt.tier)
		}
	}

	tier1, err := a.Tier(models.TierOverview)
	if err != nil || len(tier1.Series) != 0 {
		t.Errorf("Tier(1) = %+v, %v", tier1, err)
	}
}

func TestAnalytics_NotLoaded(t *testing.T) {
	a := newTestAnalytics(t)

	if _, err := a.Tier(models.TierRevenue); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Tier() error = %v, want ErrNotLoaded", err)
	}
	if _, err := a.Report(models.TierOverview); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Report() error = %v, want ErrNotLoaded", err)
	}
	if _, err := a.Report(models.Tier(4)); !errors.Is(err, ErrInvalidTier) {
		t.Errorf("Report(4) error = %v, want ErrInvalidTier", err)
	}
	if _, err := a.Tier(models.Tier(0)); !errors.Is(err, ErrInvalidTier) {
		t.Errorf("Tier(0) error = %v, want ErrInvalidTier", err)
	}
}

func TestAnalytics_SetData_SchemaMismatch(t *testing.T) {
	m := observability.NewMetrics()
	a := newTestAnalytics(t, WithMetrics(m))

	table := sampleTable()
	table.Columns = append([]string{"Index"}, table.Columns...)

	err := a.SetData(context.Background(), table)
	if !errors.Is(err, dataset.ErrSchemaMismatch) {
		t.Fatalf("SetData() error = %v, want schema mismatch", err)
	}
	if a.Ready() {
		t.Error("a failed run must not publish data")
	}

	expected := `
# HELP retail_pipeline_runs_total Report pipeline runs by outcome
# TYPE retail_pipeline_runs_total counter
retail_pipeline_runs_total{status="schema_mismatch"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "retail_pipeline_runs_total"); err != nil {
		t.Error(err)
	}
}

func TestAnalytics_SetData_RecordsMetrics(t *testing.T) {
	m := observability.NewMetrics()
	a := newTestAnalytics(t, WithMetrics(m))

	if err := a.SetData(context.Background(), sampleTable()); err != nil {
		t.Fatal(err)
	}

	expected := `
# HELP retail_rows_ingested_total Transaction rows read from the source dataset
# TYPE retail_rows_ingested_total counter
retail_rows_ingested_total 3
# HELP retail_clean_rows Rows in the current clean dataset
# TYPE retail_clean_rows gauge
retail_clean_rows 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"retail_rows_ingested_total", "retail_clean_rows"); err != nil {
		t.Error(err)
	}
	n, err := testutil.GatherAndCount(m.Registry(), "retail_pipeline_stage_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("expected a histogram per stage, got %d", n)
	}
}

func TestAnalytics_StageReturnsError(t *testing.T) {
	m := observability.NewMetrics()
	a := newTestAnalytics(t, WithMetrics(m))
	boom := errors.New("boom")

	err := a.stage(context.Background(), "clean", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("stage error = %v, want %v", err, boom)
	}

	n, err := testutil.GatherAndCount(m.Registry(), "retail_pipeline_stage_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("failed stage should still be timed, got %d series", n)
	}
}

func TestAnalytics_LoadFromFile_CSV(t *testing.T) {
	path := writeTempFile(t, "retail.csv", sampleCSV)
	cache := t.TempDir()

	a := newTestAnalytics(t, WithCacheDir(cache))
	if err := a.LoadFromFile(context.Background(), path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	kpis := a.KPIs()
	if kpis.TransactionsUnclean != 4 || kpis.TransactionsClean != 2 {
		t.Errorf("invoices = %d/%d, want 4/2", kpis.TransactionsUnclean, kpis.TransactionsClean)
	}
	if kpis.UniqueCustomersUnclean != 3 {
		t.Errorf("unique customers = %d, want 3", kpis.UniqueCustomersUnclean)
	}
	if a.Stats()["source"] != path {
		t.Errorf("stats source = %v", a.Stats()["source"])
	}

	if _, err := os.Stat(a.getCacheFilename(path)); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
}

func TestAnalytics_LoadFromFile_Cache(t *testing.T) {
	path := writeTempFile(t, "retail.csv", sampleCSV)
	cache := t.TempDir()

	first := newTestAnalytics(t, WithCacheDir(cache))
	if err := first.LoadFromFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	runID := first.Stats()["run_id"]

	second := newTestAnalytics(t, WithCacheDir(cache))
	if err := second.LoadFromFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if second.Stats()["run_id"] != runID {
		t.Error("unchanged source should be served from cache")
	}
	if second.KPIs().TransactionsClean != first.KPIs().TransactionsClean {
		t.Error("cached KPIs differ")
	}
	corr, ok := second.Series(insights.LabelCorrelationMatrix)
	if !ok || corr.Matrix == nil || len(corr.Matrix.Values) != 3 {
		t.Error("cached correlation matrix missing")
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	third := newTestAnalytics(t, WithCacheDir(cache))
	if err := third.LoadFromFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if third.Stats()["run_id"] == runID {
		t.Error("modified source should be reprocessed")
	}
}

func TestAnalytics_LoadFromFile_InvalidData(t *testing.T) {
	tests := []struct {
		name string
		file string
		csv  string
	}{
		{"empty file", "empty.csv", ""},
		{"wrong columns", "cols.csv", "h1,h2,h3\n1,2,3\n"},
		{"invalid quantity", "qty.csv", csvHeader + "536365,85123A,X,six,2010-12-01 08:26:00,2.55,17850,France\n"},
		{"invalid price", "price.csv", csvHeader + "536365,85123A,X,6,2010-12-01 08:26:00,free,17850,France\n"},
		{"unsupported format", "retail.json", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.file, tt.csv)

			a := newTestAnalytics(t)
			if err := a.LoadFromFile(context.Background(), path); err == nil {
				t.Error("LoadFromFile() should fail")
			}
			if a.Ready() {
				t.Error("failed load must not publish data")
			}
		})
	}
}

func TestAnalytics_LoadFromFile_Missing(t *testing.T) {
	a := newTestAnalytics(t)
	if err := a.LoadFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestAnalytics_HeaderOnly(t *testing.T) {
	path := writeTempFile(t, "header.csv", csvHeader)

	a := newTestAnalytics(t)
	if err := a.LoadFromFile(context.Background(), path); err != nil {
		t.Fatalf("header-only dataset is valid: %v", err)
	}
	kpis := a.KPIs()
	if kpis.AverageRevenue != nil || len(kpis.Issues) == 0 {
		t.Errorf("empty dataset should leave KPIs undefined: %+v", kpis)
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := newTestAnalytics(t)
	if err := a.SetData(context.Background(), sampleTable()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Overview()
			_, _ = a.Tier(models.TierExtended)
			_, _ = a.Report(models.TierExtended)
			_ = a.Stats()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = a.SetData(context.Background(), sampleTable())
	}()
	wg.Wait()
}

func BenchmarkAnalytics_SetData(b *testing.B) {
	a := NewAnalytics(WithLogger(slog.New(slog.DiscardHandler)), WithCacheDir(""))
	table := dataset.Table{Columns: dataset.CanonicalColumns()}
	day := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10000; i++ {
		table.Rows = append(table.Rows, models.RawTransaction{
			InvoiceNo:   fmt.Sprintf("%d", 540000+i),
			StockCode:   "22423",
			Description: models.StringPtr(fmt.Sprintf("PRODUCT %d", i%300)),
			Quantity:    1 + i%24,
			InvoiceDate: day.Add(time.Duration(i) * time.Hour),
			UnitPrice:   0.5 + float64(i%40),
			CustomerID:  models.StringPtr(fmt.Sprintf("%d", 12000+i%900)),
			Country:     fmt.Sprintf("Country %d", i%30),
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := a.SetData(context.Background(), table); err != nil {
			b.Fatal(err)
		}
	}
}
