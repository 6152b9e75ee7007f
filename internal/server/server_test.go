package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-insights/internal/config"
	"retail-insights/internal/dataset"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
)

func newTestServer(t *testing.T) (*Server, *observability.Metrics) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	analytics := services.NewAnalytics(services.WithLogger(logger), services.WithCacheDir(""))

	day := time.Date(2011, 9, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, analytics.SetData(context.Background(), dataset.Table{
		Columns: dataset.CanonicalColumns(),
		Rows: []models.RawTransaction{
			{InvoiceNo: "560001", StockCode: "23084", Description: models.StringPtr("RABBIT NIGHT LIGHT"), Quantity: 24,
				InvoiceDate: day, UnitPrice: 1.79, CustomerID: models.StringPtr("14646"), Country: "Netherlands"},
		},
	}))

	metrics := observability.NewMetrics()
	dashboard := func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("dashboard")) }
	return NewServer(analytics, logger, metrics, &TemplateHandlers{Dashboard: dashboard}), metrics
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler(config.SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 10})

	tests := []struct {
		path   string
		status int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/admin/stats", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/overview", http.StatusOK},
		{"/api/kpis", http.StatusOK},
		{"/api/tiers/2", http.StatusOK},
		{"/api/tiers/7", http.StatusBadRequest},
		{"/api/series/yearly_revenue", http.StatusOK},
		{"/api/report/3", http.StatusOK},
		{"/api/report/1/xlsx", http.StatusOK},
		{"/sse/overview", http.StatusOK},
		{"/sse/tiers/3", http.StatusOK},
		{"/sse/refresh-all", http.StatusOK},
		{"/nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/kpis", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_MetricsRecordRoutes(t *testing.T) {
	srv, metrics := newTestServer(t)
	h := srv.Handler(config.SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 10})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tiers/2", nil))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `route="GET /api/tiers/{tier}"`)
}

func TestServer_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 1})

	var last int
	for range 3 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestGracefulServer_RunsHooksOnCancel(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, logger, config.ServerConfig{ShutdownTimeout: 5 * time.Second})

	var ran atomic.Int32
	gs.RegisterShutdownHook("analytics", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	gs.RegisterShutdownHook("tracing", func(ctx context.Context) error {
		ran.Add(1)
		return errors.New("exporter unreachable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gs.Run(ctx)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "shutdown hook tracing failed"))
	assert.Equal(t, int32(2), ran.Load())
}

func TestGracefulServer_ListenError(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	gs := NewGracefulServer(&http.Server{Addr: "256.0.0.1:bad"}, logger, config.ServerConfig{ShutdownTimeout: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := gs.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
}
