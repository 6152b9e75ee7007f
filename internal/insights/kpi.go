package insights

import (
	"errors"

	"retail-insights/internal/dataset"
	"retail-insights/internal/models"
)

// KPI names used in KPIBundle.Issues.
const (
	KPIAverageRevenue        = "average_revenue"
	KPICancellationRate      = "cancellation_rate_pct"
	KPICustomerAttrition     = "customer_attrition_pct"
	KPITopProduct            = "top_product"
	KPITopCountryByCustomers = "top_country_by_customers"
)

const (
	ReasonDivisionByZero = "division_by_zero"
	ReasonEmptyDataset   = "empty_dataset"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrEmptyDataset   = errors.New("no rows to rank")
)

// ComputeKPIs builds the KPI bundle from the retained unclean dataset and the
// cleaned, featured one. An undefined KPI never aborts the rest of the bundle.
func ComputeKPIs(unclean dataset.Dataset, clean dataset.Featured) models.KPIBundle {
	var b models.KPIBundle

	uncleanInvoices := make(map[string]struct{})
	uncleanCustomers := make(map[string]struct{})
	for r := range unclean.All() {
		uncleanInvoices[r.InvoiceNo] = struct{}{}
		if r.CustomerID != nil {
			uncleanCustomers[*r.CustomerID] = struct{}{}
		}
	}

	invoices := make(map[string]struct{})
	customers := make(map[string]struct{})
	countries := newTally[string]()
	products := newTally[string]()
	for r := range clean.All() {
		invoices[r.InvoiceNo] = struct{}{}
		if r.CustomerID != nil {
			customers[*r.CustomerID] = struct{}{}
		}
		countries.add(r.Country, 1)
		if r.Description != nil {
			products.add(*r.Description, 1)
		}
		b.TotalRevenue += r.Revenue
	}

	b.TransactionsUnclean = len(uncleanInvoices)
	b.TransactionsClean = len(invoices)
	b.UniqueCustomersUnclean = len(uncleanCustomers)
	b.UniqueCustomersClean = len(customers)
	b.DistinctCountries = countries.len()

	if avg, err := ratio(b.TotalRevenue, float64(b.TransactionsClean)); err != nil {
		b.Issues = append(b.Issues, issue(KPIAverageRevenue, ReasonDivisionByZero, err))
	} else {
		b.AverageRevenue = &avg
	}

	if pct, err := lossPct(b.TransactionsClean, b.TransactionsUnclean); err != nil {
		b.Issues = append(b.Issues, issue(KPICancellationRate, ReasonDivisionByZero, err))
	} else {
		b.CancellationRatePct = &pct
	}

	if pct, err := lossPct(b.UniqueCustomersClean, b.UniqueCustomersUnclean); err != nil {
		b.Issues = append(b.Issues, issue(KPICustomerAttrition, ReasonDivisionByZero, err))
	} else {
		b.CustomerAttritionPct = &pct
	}

	if top, err := mostFrequent(products); err != nil {
		b.Issues = append(b.Issues, issue(KPITopProduct, ReasonEmptyDataset, err))
	} else {
		b.TopProduct = &top
	}

	if top, err := mostFrequent(countries); err != nil {
		b.Issues = append(b.Issues, issue(KPITopCountryByCustomers, ReasonEmptyDataset, err))
	} else {
		b.TopCountryByCustomers = &top
	}

	return b
}

func ratio(num, den float64) (float64, error) {
	if den == 0 {
		return 0, ErrDivisionByZero
	}
	return num / den, nil
}

// lossPct is the share of before that did not survive into after, in percent.
func lossPct(after, before int) (float64, error) {
	r, err := ratio(float64(after), float64(before))
	if err != nil {
		return 0, err
	}
	return 100 - r*100, nil
}

func mostFrequent(t *tally[string]) (string, error) {
	top := t.top(1)
	if len(top) == 0 {
		return "", ErrEmptyDataset
	}
	return top[0].key, nil
}

func issue(kpi, reason string, err error) models.KPIIssue {
	return models.KPIIssue{KPI: kpi, Reason: reason, Message: err.Error()}
}
