package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"retail-insights/internal/models"
	"retail-insights/internal/services"
	"retail-insights/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func renderHTML(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// patch renders c and sends it as an element patch.
func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) bool {
	html, err := renderHTML(ctx, c)
	if err != nil {
		h.logger.ErrorContext(ctx, "render panel", "error", err)
		return false
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.WarnContext(ctx, "patch elements", "error", err)
		return false
	}
	return true
}

func (h *SSEHandlers) signals(ctx context.Context, sse *datastar.ServerSentEventGenerator, signals map[string]any) bool {
	data, err := json.Marshal(signals)
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal signals", "error", err)
		return false
	}
	if err := sse.PatchSignals(data); err != nil {
		h.logger.WarnContext(ctx, "patch signals", "error", err)
		return false
	}
	return true
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	if !h.analytics.Ready() {
		h.patch(ctx, sse, templates.ErrorPanel("The dataset is still loading."))
		flush(w)
		return
	}

	ov := h.analytics.Overview()
	if h.patch(ctx, sse, templates.OverviewPanel(ov)) {
		h.signals(ctx, sse, map[string]any{"kpis": ov.KPIs})
	}
	flush(w)
}

func (h *SSEHandlers) HandleTier(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	tier, err := models.ParseTier(r.PathValue("tier"))
	if err != nil {
		h.patch(ctx, sse, templates.ErrorPanel(err.Error()))
		flush(w)
		return
	}

	ts, err := h.analytics.Tier(tier)
	if err != nil {
		h.patch(ctx, sse, templates.ErrorPanel(err.Error()))
		flush(w)
		return
	}

	if h.patch(ctx, sse, templates.TierPanel(ts)) {
		h.signals(ctx, sse, map[string]any{"tier": int(tier), "series": ts.Series})
	}
	flush(w)
}

// HandleRefreshAll re-sends the overview and the extended tier, which
// includes every series.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	report, err := h.analytics.Report(models.TierExtended)
	if err != nil {
		h.patch(ctx, sse, templates.ErrorPanel(err.Error()))
		flush(w)
		return
	}

	if !h.patch(ctx, sse, templates.OverviewPanel(report.Overview)) {
		return
	}

	var series []models.Series
	for _, ts := range report.Tiers {
		series = append(series, ts.Series...)
	}
	if !h.patch(ctx, sse, templates.TierPanel(models.TierSeries{Tier: models.TierExtended, Series: series})) {
		return
	}

	h.signals(ctx, sse, map[string]any{
		"tier":   int(models.TierExtended),
		"kpis":   report.Overview.KPIs,
		"series": series,
	})
	flush(w)
}
