package dataset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Canonical column names, in file order.
const (
	ColInvoiceNo   = "InvoiceNo"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColUnitPrice   = "UnitPrice"
	ColCustomerID  = "CustomerID"
	ColCountry     = "Country"
)

var canonicalColumns = []string{
	ColInvoiceNo,
	ColStockCode,
	ColDescription,
	ColQuantity,
	ColInvoiceDate,
	ColUnitPrice,
	ColCustomerID,
	ColCountry,
}

// ErrSchemaMismatch is matched by every SchemaMismatchError.
var ErrSchemaMismatch = errors.New("schema mismatch")

type SchemaMismatchError struct {
	Expected []string
	Actual   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: expected columns [%s], got [%s]",
		strings.Join(e.Expected, ", "), strings.Join(e.Actual, ", "))
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// CanonicalColumns returns the fixed, ordered column list.
func CanonicalColumns() []string {
	return slices.Clone(canonicalColumns)
}

// ValidateSchema checks that the table header is exactly the canonical column
// list (same names, same order, same count).
func ValidateSchema(t Table) (Dataset, error) {
	if !slices.Equal(t.Columns, canonicalColumns) {
		return Dataset{}, &SchemaMismatchError{
			Expected: CanonicalColumns(),
			Actual:   slices.Clone(t.Columns),
		}
	}
	return New(t.Rows), nil
}
