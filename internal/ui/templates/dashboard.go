// Package templates holds the dashboard's HTML components. The page shell is
// rendered once; the overview and tier panels are re-rendered and patched in
// over SSE.
package templates

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"retail-insights/internal/insights"
	"retail-insights/internal/models"
)

const (
	OverviewID = "overview"
	TierID     = "tier-content"

	// MaxTableRows caps the rows shown per series table.
	MaxTableRows = 25

	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"
)

// Dashboard is the full page. Panels start empty and load over SSE.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>Online Retail Insights</title>`)
		p.printf(`<script type="module" src="%s"></script>`, templ.EscapeString(datastarScript))
		p.raw(`</head><body data-signals="{tier: 2, kpis: {}, series: []}">`)
		p.raw(`<header><h1>Online Retail Insights</h1>`)
		p.raw(`<nav>`)
		for _, t := range []models.Tier{models.TierOverview, models.TierRevenue, models.TierExtended} {
			p.printf(`<button data-on-click="$tier = %d; @get('/sse/tiers/%d')">Tier %d</button>`, int(t), int(t), int(t))
		}
		p.raw(`<button data-on-click="@get('/sse/refresh-all')">Refresh</button>`)
		p.printf(`<a data-attr-href="'/api/report/' + $tier + '/xlsx'" href="/api/report/%d/xlsx">Download workbook</a>`, int(models.TierRevenue))
		p.raw(`</nav></header><main>`)
		p.printf(`<section id="%s" data-on-load="@get('/sse/overview')"><p>Loading overview…</p></section>`, OverviewID)
		p.printf(`<section id="%s" data-on-load="@get('/sse/tiers/%d')"></section>`, TierID, int(models.TierRevenue))
		p.raw(`</main></body></html>`)
		return p.err
	})
}

// OverviewPanel renders the tier 1 report: headline KPIs, narrative facts,
// the cleaning summary and the column catalog.
func OverviewPanel(ov models.Overview) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<section id="%s">`, OverviewID)
		p.printf(`<p class="description">%s</p>`, templ.EscapeString(ov.Description))

		p.raw(`<table class="kpis"><tbody>`)
		for _, kv := range ov.FormattedKPIs {
			p.printf(`<tr><th>%s</th><td>%s</td></tr>`, templ.EscapeString(kv.Key), templ.EscapeString(kv.Value))
		}
		p.raw(`</tbody></table>`)

		p.raw(`<h2>Interesting facts</h2><ol class="facts">`)
		for _, fact := range ov.Facts {
			p.printf(`<li>%s</li>`, templ.EscapeString(fact))
		}
		p.raw(`</ol>`)

		c := ov.Cleaning
		p.raw(`<h2>Cleaning</h2><table class="cleaning"><tbody>`)
		for _, row := range []struct {
			label string
			n     int
		}{
			{"Input rows", c.Input},
			{"Missing Customer ID", c.MissingCustomer},
			{"Cancelled", c.Cancelled},
			{"Non-positive price", c.NonPositivePrice},
			{"Kept", c.Kept},
		} {
			p.printf(`<tr><th>%s</th><td>%s</td></tr>`, row.label, insights.FormatCount(row.n))
		}
		p.raw(`</tbody></table>`)

		p.raw(`<h2>Columns</h2><table class="columns"><thead><tr><th>Column</th><th>Description</th><th>Tags</th></tr></thead><tbody>`)
		for _, col := range ov.Columns {
			tags := strings.Join(ov.DataTypes[col], ", ")
			p.printf(`<tr><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(col), templ.EscapeString(ov.ColumnDescriptions[col]), templ.EscapeString(tags))
		}
		p.raw(`</tbody></table></section>`)
		return p.err
	})
}

// TierPanel renders one card per series of a tier.
func TierPanel(ts models.TierSeries) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<section id="%s" data-tier="%d">`, TierID, int(ts.Tier))
		if len(ts.Series) == 0 {
			p.raw(`<p class="empty">This tier has no charts.</p>`)
		}
		for _, s := range ts.Series {
			seriesCard(p, s)
		}
		p.raw(`</section>`)
		return p.err
	})
}

// ErrorPanel replaces the tier panel when a request cannot be served.
func ErrorPanel(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<section id="%s"><p class="error">%s</p></section>`, TierID, templ.EscapeString(message))
		return p.err
	})
}

func seriesCard(p *printer, s models.Series) {
	p.printf(`<article class="series" id="series-%s" data-kind="%s">`, templ.EscapeString(s.Label), templ.EscapeString(string(s.Kind)))
	p.printf(`<h3>%s</h3><p class="file">%s</p>`, templ.EscapeString(s.Title), templ.EscapeString(s.FileName()))

	switch {
	case s.Failed():
		p.printf(`<p class="error">%s</p>`, templ.EscapeString(s.Error))
	case s.Matrix != nil:
		matrixTable(p, *s.Matrix)
	case len(s.Scatter) > 0:
		p.printf(`<table><thead><tr><th>Country</th><th>%s</th><th>%s</th></tr></thead><tbody>`,
			templ.EscapeString(s.XLabel), templ.EscapeString(s.YLabel))
		for i, pt := range s.Scatter {
			if i == MaxTableRows {
				break
			}
			p.printf(`<tr><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(pt.Group), number(pt.X), number(pt.Y))
		}
		p.raw(`</tbody></table>`)
	default:
		p.printf(`<table><thead><tr><th>%s</th>`, templ.EscapeString(s.XLabel))
		grouped := len(s.Points) > 0 && s.Points[0].Group != ""
		if grouped {
			p.raw(`<th>Country</th>`)
		}
		p.printf(`<th>%s</th></tr></thead><tbody>`, templ.EscapeString(s.YLabel))
		for i, pt := range s.Points {
			if i == MaxTableRows {
				break
			}
			p.printf(`<tr><td>%s</td>`, templ.EscapeString(pt.Category))
			if grouped {
				p.printf(`<td>%s</td>`, templ.EscapeString(pt.Group))
			}
			p.printf(`<td>%s</td></tr>`, number(pt.Value))
		}
		p.raw(`</tbody></table>`)
	}
	p.raw(`</article>`)
}

func matrixTable(p *printer, m models.CorrelationMatrix) {
	p.raw(`<table class="matrix"><thead><tr><th></th>`)
	for _, c := range m.Columns {
		p.printf(`<th>%s</th>`, templ.EscapeString(c))
	}
	p.raw(`</tr></thead><tbody>`)
	for i, row := range m.Values {
		p.printf(`<tr><th>%s</th>`, templ.EscapeString(m.Columns[i]))
		for _, v := range row {
			p.printf(`<td>%s</td>`, number(v))
		}
		p.raw(`</tr>`)
	}
	p.raw(`</tbody></table>`)
}

// number prints two decimals and leaves undefined values blank.
func number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// printer stops writing after the first error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
