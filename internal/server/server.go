package server

import (
	"log/slog"
	"net/http"

	"retail-insights/internal/config"
	"retail-insights/internal/handlers"
	"retail-insights/internal/middleware"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	metrics     *observability.Metrics
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, metrics *observability.Metrics, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		metrics:     metrics,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard and operations
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	// Report API
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /api/tiers/{tier}", s.apiHandlers.HandleTier)
	s.mux.HandleFunc("GET /api/series/{label}", s.apiHandlers.HandleSeries)
	s.mux.HandleFunc("GET /api/report/{tier}", s.apiHandlers.HandleReport)
	s.mux.HandleFunc("GET /api/report/{tier}/xlsx", s.apiHandlers.HandleReportXLSX)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/overview", s.sseHandlers.HandleOverview)
	s.mux.HandleFunc("GET /sse/tiers/{tier}", s.sseHandlers.HandleTier)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler wraps the routes in the standard middleware stack. Metrics sits
// innermost so it sees the route pattern the mux matched.
func (s *Server) Handler(cfg config.SecurityConfig) http.Handler {
	chain := middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(s.logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg),
		middleware.TrustedProxy(cfg),
		middleware.RateLimit(middleware.NewRateLimiter(cfg), s.logger),
		middleware.Metrics(s.metrics),
	)
	return chain(s)
}
