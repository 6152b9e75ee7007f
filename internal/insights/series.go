package insights

import (
	"iter"
	"slices"
	"strings"

	"retail-insights/internal/dataset"
	"retail-insights/internal/models"
)

// Series labels.
const (
	LabelMonthlyRevenue          = "monthly_revenue"
	LabelYearlyRevenue           = "yearly_revenue"
	LabelTopCountriesByRevenue   = "top_10_country_by_revenue"
	LabelTopCustomersByPurchase  = "top_10_customer_by_purchase"
	LabelTopCountriesByCustomers = "top_10_country_by_no_of_customers"
	LabelQuantityVsRevenue       = "top_10_country_quantity_vs_revenue"
	LabelTopProducts             = "top_10_product_by_transactions"
	LabelCorrelationMatrix       = "correlation_matrix"
)

const (
	TopN = 10

	// Scatter outlier bounds, both exclusive.
	ScatterMaxQuantity = 5000
	ScatterMaxRevenue  = 10000
)

// MonthlyRevenue sums revenue per YYYY-MM bucket in chronological order.
func MonthlyRevenue(clean dataset.Featured) []models.SeriesPoint {
	t := newTally[string]()
	for r := range clean.All() {
		t.add(r.Month, r.Revenue)
	}
	return chronological(t)
}

// YearlyRevenue sums revenue per YYYY bucket in chronological order.
func YearlyRevenue(clean dataset.Featured) []models.SeriesPoint {
	t := newTally[string]()
	for r := range clean.All() {
		t.add(r.Year, r.Revenue)
	}
	return chronological(t)
}

// chronological sorts by key; zero-padded YYYY-MM keys sort by time.
func chronological(t *tally[string]) []models.SeriesPoint {
	out := points(t.entries())
	slices.SortFunc(out, func(a, b models.SeriesPoint) int {
		return strings.Compare(a.Category, b.Category)
	})
	return out
}

// TopCountriesByRevenue ranks countries by summed revenue.
func TopCountriesByRevenue(clean dataset.Featured) []models.SeriesPoint {
	return points(countryRevenue(clean.All()).top(TopN))
}

func countryRevenue(rows iter.Seq[models.Transaction]) *tally[string] {
	t := newTally[string]()
	for r := range rows {
		t.add(r.Country, r.Revenue)
	}
	return t
}

type customerKey struct {
	customer string
	country  string
}

// TopCustomersByPurchase ranks (customer, country) pairs by summed revenue.
// Category carries the customer id and Group the country.
func TopCustomersByPurchase(clean dataset.Featured) []models.SeriesPoint {
	t := newTally[customerKey]()
	for r := range clean.All() {
		if r.CustomerID == nil {
			continue
		}
		t.add(customerKey{customer: *r.CustomerID, country: r.Country}, r.Revenue)
	}

	top := t.top(TopN)
	out := make([]models.SeriesPoint, 0, len(top))
	for _, e := range top {
		out = append(out, models.SeriesPoint{
			Category: e.key.customer,
			Group:    e.key.country,
			Value:    e.value,
		})
	}
	return out
}

// TopCountriesByCustomers ranks countries by the number of rows carrying a
// customer id.
func TopCountriesByCustomers(clean dataset.Featured) []models.SeriesPoint {
	t := newTally[string]()
	for r := range clean.All() {
		if r.CustomerID != nil {
			t.add(r.Country, 1)
		}
	}
	return points(t.top(TopN))
}

// QuantityVsRevenue removes outliers first and then keeps only rows from the
// ten highest-revenue countries of the remaining rows. Points keep input order.
func QuantityVsRevenue(clean dataset.Featured) []models.ScatterPoint {
	filtered := make([]models.Transaction, 0, clean.Len())
	for r := range clean.All() {
		if r.Quantity < ScatterMaxQuantity && r.Revenue < ScatterMaxRevenue {
			filtered = append(filtered, r)
		}
	}

	top := countryRevenue(slices.Values(filtered)).top(TopN)
	keep := make(map[string]struct{}, len(top))
	for _, e := range top {
		keep[e.key] = struct{}{}
	}

	out := make([]models.ScatterPoint, 0, len(filtered))
	for _, r := range filtered {
		if _, ok := keep[r.Country]; !ok {
			continue
		}
		out = append(out, models.ScatterPoint{
			Group: r.Country,
			X:     float64(r.Quantity),
			Y:     r.Revenue,
		})
	}
	return out
}

// TopProductsByTransactions ranks product descriptions by row count.
func TopProductsByTransactions(clean dataset.Featured) []models.SeriesPoint {
	t := newTally[string]()
	for r := range clean.All() {
		if r.Description != nil {
			t.add(*r.Description, 1)
		}
	}
	return points(t.top(TopN))
}
