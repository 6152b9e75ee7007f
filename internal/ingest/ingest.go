// Package ingest turns Online Retail workbooks and CSV exports into the raw
// table the dataset package validates. Decoding runs in parallel batches but
// rows keep their file order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"retail-insights/internal/dataset"
	"retail-insights/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

var (
	ErrEmptyFile         = errors.New("file has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ParseError reports a cell that could not be decoded. Row is the 1-based
// line (CSV) or sheet row (XLSX) as shown by a spreadsheet program.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Read loads a table from path, choosing the decoder by file extension.
func Read(ctx context.Context, path string) (dataset.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(ctx, path)
	case ".csv":
		return ReadCSVFile(ctx, path)
	default:
		return dataset.Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

type record struct {
	line  int
	cells []string
}

func (r record) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columnIndex maps each canonical column to its position in the header, -1
// when the header lacks it.
type columnIndex map[string]int

func newColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for _, name := range dataset.CanonicalColumns() {
		idx[name] = -1
	}
	for i, h := range header {
		if _, ok := idx[h]; ok && idx[h] < 0 {
			idx[h] = i
		}
	}
	return idx
}

func (c columnIndex) cell(r record, column string) string {
	i := c[column]
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (c columnIndex) decode(r record) (models.RawTransaction, error) {
	tx := models.RawTransaction{
		InvoiceNo:   c.cell(r, dataset.ColInvoiceNo),
		StockCode:   c.cell(r, dataset.ColStockCode),
		Description: optional(c.cell(r, dataset.ColDescription)),
		CustomerID:  optional(normalizeID(c.cell(r, dataset.ColCustomerID))),
		Country:     c.cell(r, dataset.ColCountry),
	}

	fail := func(column, value string, err error) error {
		return &ParseError{Row: r.line, Column: column, Value: value, Err: err}
	}

	if v := c.cell(r, dataset.ColQuantity); v != "" {
		q, err := parseInt(v)
		if err != nil {
			return tx, fail(dataset.ColQuantity, v, err)
		}
		tx.Quantity = q
	}
	if v := c.cell(r, dataset.ColUnitPrice); v != "" {
		p, err := parseFloat(v)
		if err != nil {
			return tx, fail(dataset.ColUnitPrice, v, err)
		}
		tx.UnitPrice = p
	}
	if v := c.cell(r, dataset.ColInvoiceDate); v != "" {
		ts, err := parseDate(v)
		if err != nil {
			return tx, fail(dataset.ColInvoiceDate, v, err)
		}
		tx.InvoiceDate = ts
	}
	return tx, nil
}

// decode builds the table. Blank rows are skipped; the first undecodable
// cell aborts the read.
func decode(ctx context.Context, header []string, records []record) (dataset.Table, error) {
	table := dataset.Table{Columns: header}

	kept := records[:0:0]
	for _, r := range records {
		if !r.blank() {
			kept = append(kept, r)
		}
	}

	cols := newColumnIndex(header)
	rows := make([]models.RawTransaction, len(kept))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for start := 0; start < len(kept); start += batchSize {
		end := min(start+batchSize, len(kept))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				tx, err := cols.decode(kept[i])
				if err != nil {
					return err
				}
				rows[i] = tx
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dataset.Table{}, err
	}

	table.Rows = rows
	return table, nil
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return models.StringPtr(s)
}

// normalizeID drops the ".0" a numeric cell picks up, so 17850.0 and 17850
// name the same customer.
func normalizeID(s string) string {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || whole == "" || strings.Trim(frac, "0") != "" {
		return s
	}
	if _, err := strconv.ParseUint(whole, 10, 64); err != nil {
		return s
	}
	return whole
}

func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer")
	}
	if f < math.MinInt || f >= math.MaxInt {
		return 0, fmt.Errorf("out of range")
	}
	return int(f), nil
}

// parseFloat rejects Inf and NaN, which strconv accepts.
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02",
}

// parseDate accepts an Excel serial date (what raw XLSX cells hold) or one of
// the textual layouts CSV exports use.
func parseDate(s string) (time.Time, error) {
	if serial, err := parseFloat(s); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date")
}
