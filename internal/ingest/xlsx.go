package ingest

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"retail-insights/internal/dataset"
)

// ReadXLSX streams the first worksheet of the workbook at path. Cells are read
// raw so dates arrive as Excel serials and numbers keep full precision.
func ReadXLSX(ctx context.Context, path string) (dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.Rows(sheet)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var (
		header  []string
		records []record
		line    int
	)
	for rows.Next() {
		line++
		if line%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return dataset.Table{}, err
			}
		}

		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return dataset.Table{}, fmt.Errorf("read row %d: %w", line, err)
		}
		if header == nil {
			header = trimHeader(cells)
			continue
		}
		records = append(records, record{line: line, cells: cells})
	}
	if err := rows.Error(); err != nil {
		return dataset.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(header) == 0 {
		return dataset.Table{}, ErrEmptyFile
	}

	return decode(ctx, header, records)
}
