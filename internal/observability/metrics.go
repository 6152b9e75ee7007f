package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retail-insights/internal/models"
)

const namespace = "retail"

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on the default registerer. All methods are safe on a
// nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	rowsIngested   prometheus.Counter
	rowsDropped    *prometheus.CounterVec
	cleanRows      prometheus.Gauge
	pipelineRuns   *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	seriesFailures *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Transaction rows read from the source dataset",
		}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed by cleaning, by the first rule they failed",
		}, []string{"reason"}),
		cleanRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clean_rows",
			Help:      "Rows in the current clean dataset",
		}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Report pipeline runs by outcome",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		seriesFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_failures_total",
			Help:      "Series that failed to build",
		}, []string{"label"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.rowsIngested, m.rowsDropped, m.cleanRows, m.pipelineRuns,
		m.stageDuration, m.seriesFailures, m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordCleaning(s models.CleaningSummary) {
	if m == nil {
		return
	}
	m.rowsIngested.Add(float64(s.Input))
	m.rowsDropped.WithLabelValues("missing_customer").Add(float64(s.MissingCustomer))
	m.rowsDropped.WithLabelValues("cancelled").Add(float64(s.Cancelled))
	m.rowsDropped.WithLabelValues("non_positive_price").Add(float64(s.NonPositivePrice))
	m.cleanRows.Set(float64(s.Kept))
}

func (m *Metrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordSeriesFailure(label string) {
	if m == nil {
		return
	}
	m.seriesFailures.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
