package dataset

import "retail-insights/internal/models"

// USDConversionRate converts UnitPrice (GBP) to dollars.
const USDConversionRate = 1.34

const (
	monthLayout = "2006-01"
	yearLayout  = "2006"
)

// Derive attaches UnitPriceDollar, Revenue, Month and Year to every row. It is
// a pure function of the base columns.
func Derive(d Dataset) Featured {
	rows := make([]models.Transaction, len(d.rows))
	for i, r := range d.rows {
		rows[i] = deriveRow(r)
	}
	return Featured{rows: rows}
}

func deriveRow(r models.RawTransaction) models.Transaction {
	dollar := r.UnitPrice * USDConversionRate
	return models.Transaction{
		RawTransaction:  r,
		UnitPriceDollar: dollar,
		Revenue:         float64(r.Quantity) * dollar,
		Month:           r.InvoiceDate.Format(monthLayout),
		Year:            r.InvoiceDate.Format(yearLayout),
	}
}
