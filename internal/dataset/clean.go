package dataset

import (
	"strings"

	"retail-insights/internal/models"
)

// CancellationPrefix marks a cancelled invoice.
const CancellationPrefix = "C"

// Clean drops rows without a customer, cancelled invoices and rows with a
// non-positive unit price, preserving the relative order of the survivors.
// The input dataset is left untouched.
func Clean(d Dataset) (Dataset, models.CleaningSummary) {
	summary := models.CleaningSummary{Input: d.Len()}
	kept := make([]models.RawTransaction, 0, d.Len())

	for _, r := range d.rows {
		switch {
		case r.CustomerID == nil:
			summary.MissingCustomer++
		case IsCancellation(r.InvoiceNo):
			summary.Cancelled++
		case r.UnitPrice <= 0:
			summary.NonPositivePrice++
		default:
			kept = append(kept, r)
		}
	}

	summary.Kept = len(kept)
	return Dataset{rows: kept}, summary
}

func IsCancellation(invoiceNo string) bool {
	return strings.HasPrefix(invoiceNo, CancellationPrefix)
}
