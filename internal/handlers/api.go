package handlers

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"retail-insights/internal/errors"
	"retail-insights/internal/export"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
)

const (
	cacheControl = "public, max-age=300"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	version      = "1.0.0"
)

var cacheHeaders = map[string]string{"Cache-Control": cacheControl}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

// ready writes a 503 and reports false while no dataset has been processed.
func (h *APIHandlers) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.analytics.Ready() {
		return true
	}
	h.fail(w, r, errors.ServiceUnavailable("dataset is still loading"))
	return false
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.Overview(), cacheHeaders)
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.KPIs(), cacheHeaders)
}

func (h *APIHandlers) HandleTier(w http.ResponseWriter, r *http.Request) {
	tier, err := pathTier(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.ready(w, r) {
		return
	}

	ts, err := h.analytics.Tier(tier)
	if err != nil {
		h.fail(w, r, queryError(err))
		return
	}
	errors.WriteSuccessWithHeaders(w, ts, cacheHeaders)
}

func (h *APIHandlers) HandleSeries(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	label := r.PathValue("label")
	s, ok := h.analytics.Series(label)
	if !ok {
		h.fail(w, r, errors.NotFound(fmt.Sprintf("series %q not found", label)))
		return
	}
	errors.WriteSuccessWithHeaders(w, s, cacheHeaders)
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	tier, err := pathTier(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.ready(w, r) {
		return
	}

	report, err := h.analytics.Report(tier)
	if err != nil {
		h.fail(w, r, queryError(err))
		return
	}
	errors.WriteSuccessWithHeaders(w, report, cacheHeaders)
}

// HandleReportXLSX serves the report for a tier as an Excel workbook.
func (h *APIHandlers) HandleReportXLSX(w http.ResponseWriter, r *http.Request) {
	tier, err := pathTier(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.ready(w, r) {
		return
	}

	report, err := h.analytics.Report(tier)
	if err != nil {
		h.fail(w, r, queryError(err))
		return
	}

	_, span := observability.StartSpan(r.Context(), "export.workbook")
	data, err := export.Workbook(report)
	observability.EndSpan(span, err)
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "failed to build workbook"))
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="retail-report-tier-%d.xlsx"`, int(tier)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(r.Context(), "write workbook", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.analytics.Ready() {
		status = "loading"
	}

	errors.WriteSuccess(w, map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

func pathTier(r *http.Request) (models.Tier, error) {
	tier, err := models.ParseTier(r.PathValue("tier"))
	if err != nil {
		return 0, errors.BadRequestWrap(err, "tier must be 1, 2 or 3")
	}
	return tier, nil
}

func queryError(err error) error {
	switch {
	case stderrors.Is(err, services.ErrInvalidTier):
		return errors.BadRequestWrap(err, "tier must be 1, 2 or 3")
	case stderrors.Is(err, services.ErrNotLoaded):
		return errors.Wrap(err, errors.CodeServiceUnavail, "dataset is still loading")
	default:
		return errors.FromPipeline(err)
	}
}
