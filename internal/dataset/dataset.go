// Package dataset holds the immutable transaction datasets and the stages that
// produce them: schema validation, cleaning and feature derivation.
package dataset

import (
	"iter"
	"slices"

	"retail-insights/internal/models"
)

// Table is a parsed spreadsheet as handed over by ingestion: the header row
// and the typed data rows.
type Table struct {
	Columns []string
	Rows    []models.RawTransaction
}

// Dataset is an ordered, read-only collection of raw transactions sharing the
// canonical schema.
type Dataset struct {
	rows []models.RawTransaction
}

// New copies rows into a Dataset. It does not validate a header; use
// ValidateSchema for ingested tables.
func New(rows []models.RawTransaction) Dataset {
	return Dataset{rows: slices.Clone(rows)}
}

func (d Dataset) Len() int {
	return len(d.rows)
}

func (d Dataset) All() iter.Seq[models.RawTransaction] {
	return func(yield func(models.RawTransaction) bool) {
		for _, r := range d.rows {
			if !yield(r) {
				return
			}
		}
	}
}

// Rows returns a copy of the underlying rows.
func (d Dataset) Rows() []models.RawTransaction {
	return slices.Clone(d.rows)
}

// Featured is a cleaned dataset with derived fields attached.
type Featured struct {
	rows []models.Transaction
}

func (f Featured) Len() int {
	return len(f.rows)
}

func (f Featured) All() iter.Seq[models.Transaction] {
	return func(yield func(models.Transaction) bool) {
		for _, r := range f.rows {
			if !yield(r) {
				return
			}
		}
	}
}

func (f Featured) Rows() []models.Transaction {
	return slices.Clone(f.rows)
}

// Base strips the derived fields, returning the dataset Derive was given.
func (f Featured) Base() Dataset {
	rows := make([]models.RawTransaction, len(f.rows))
	for i, r := range f.rows {
		rows[i] = r.RawTransaction
	}
	return Dataset{rows: rows}
}
