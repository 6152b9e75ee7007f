package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"retail-insights/internal/dataset"
)

// ReadCSVFile reads a CSV export of the dataset from path.
func ReadCSVFile(ctx context.Context, path string) (dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return ReadCSV(ctx, f)
}

// ReadCSV reads a header line followed by one transaction per line.
func ReadCSV(ctx context.Context, r io.Reader) (dataset.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return dataset.Table{}, ErrEmptyFile
	}
	if err != nil {
		return dataset.Table{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		// Excel-saved CSVs start with a byte order mark.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	header = trimHeader(header)

	var records []record
	for line := 2; ; line++ {
		if line%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return dataset.Table{}, err
			}
		}
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dataset.Table{}, fmt.Errorf("read line %d: %w", line, err)
		}
		records = append(records, record{line: line, cells: cells})
	}

	return decode(ctx, header, records)
}
