// Package export renders a report as an XLSX workbook: an Overview sheet plus
// one sheet per series.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"retail-insights/internal/models"
)

const (
	OverviewSheet = "Overview"
	maxSheetName  = 31
)

// Workbook returns the report as XLSX bytes.
func Workbook(r models.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), OverviewSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f, sheet: OverviewSheet, bold: bold}
	writeOverview(w, r)

	for _, ts := range r.Tiers {
		for _, s := range ts.Series {
			name := SheetName(s)
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("sheet %s: %w", name, err)
			}
			sw := &sheetWriter{f: f, sheet: name, bold: bold}
			writeSeries(sw, s)
			if sw.err != nil {
				return nil, fmt.Errorf("sheet %s: %w", name, sw.err)
			}
		}
	}
	if w.err != nil {
		return nil, fmt.Errorf("sheet %s: %w", OverviewSheet, w.err)
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetName is the worksheet name used for a series, e.g.
// "3. top_10_country_by_revenue", cut to Excel's 31 character limit.
func SheetName(s models.Series) string {
	name := []rune(fmt.Sprintf("%d. %s", s.Ordinal, s.Label))
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return string(name)
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	bold  int
	row   int
	err   error
}

func (w *sheetWriter) line(values ...any) {
	w.row++
	if w.err != nil || len(values) == 0 {
		return
	}
	cell, _ := excelize.CoordinatesToCellName(1, w.row)
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
}

func (w *sheetWriter) heading(values ...any) {
	w.line(values...)
	if w.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, w.row)
	last, _ := excelize.CoordinatesToCellName(max(len(values), 1), w.row)
	w.err = w.f.SetCellStyle(w.sheet, first, last, w.bold)
}

func writeOverview(w *sheetWriter, r models.Report) {
	ov := r.Overview
	w.heading("Online Retail Report", fmt.Sprintf("Tier %d", r.Tier))
	w.line(ov.Description)
	w.line()

	w.heading("KPI", "Value")
	for _, kv := range ov.FormattedKPIs {
		w.line(kv.Key, kv.Value)
	}
	w.line()

	w.heading("Interesting Facts")
	for _, fact := range ov.Facts {
		w.line(fact)
	}
	w.line()

	w.heading("Cleaning", "Rows")
	w.line("Input", ov.Cleaning.Input)
	w.line("Missing Customer ID", ov.Cleaning.MissingCustomer)
	w.line("Cancelled", ov.Cleaning.Cancelled)
	w.line("Non-positive Price", ov.Cleaning.NonPositivePrice)
	w.line("Kept", ov.Cleaning.Kept)
	w.line()

	w.heading("Column", "Description", "Types")
	for _, col := range ov.Columns {
		w.line(col, ov.ColumnDescriptions[col], strings.Join(ov.DataTypes[col], ", "))
	}

	if w.err == nil {
		w.err = w.f.SetColWidth(w.sheet, "A", "A", 24)
	}
	if w.err == nil {
		w.err = w.f.SetColWidth(w.sheet, "B", "B", 60)
	}
}

func writeSeries(w *sheetWriter, s models.Series) {
	w.heading(s.Title)
	if s.Failed() {
		w.line("Error", s.Error)
		return
	}

	switch {
	case s.Matrix != nil:
		header := []any{""}
		for _, c := range s.Matrix.Columns {
			header = append(header, c)
		}
		w.heading(header...)
		for i, c := range s.Matrix.Columns {
			row := []any{c}
			for _, v := range s.Matrix.Values[i] {
				row = append(row, cellFloat(v))
			}
			w.line(row...)
		}
	case s.Kind == models.ChartScatter:
		w.heading("Country", s.XLabel, s.YLabel)
		for _, p := range s.Scatter {
			w.line(p.Group, p.X, p.Y)
		}
	default:
		if hasGroups(s.Points) {
			w.heading(s.XLabel, "Country", s.YLabel)
			for _, p := range s.Points {
				w.line(p.Category, p.Group, p.Value)
			}
			return
		}
		w.heading(s.XLabel, s.YLabel)
		for _, p := range s.Points {
			w.line(p.Category, p.Value)
		}
	}
}

func hasGroups(points []models.SeriesPoint) bool {
	for _, p := range points {
		if p.Group != "" {
			return true
		}
	}
	return false
}

// cellFloat leaves undefined correlations blank.
func cellFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
