package models

import "time"

// RawTransaction is one row of the Online Retail dataset as ingested.
type RawTransaction struct {
	InvoiceNo   string
	StockCode   string
	Description *string
	Quantity    int
	InvoiceDate time.Time
	UnitPrice   float64
	CustomerID  *string
	Country     string
}

// Transaction is a cleaned row with its derived fields attached.
type Transaction struct {
	RawTransaction
	UnitPriceDollar float64
	Revenue         float64
	Month           string
	Year            string
}

// StringPtr is a helper for building nullable text columns.
func StringPtr(s string) *string {
	return &s
}

// CleaningSummary counts the rows removed by each cleaning predicate. A row is
// attributed to the first predicate it fails.
type CleaningSummary struct {
	Input            int `json:"input"`
	Kept             int `json:"kept"`
	MissingCustomer  int `json:"missing_customer"`
	Cancelled        int `json:"cancelled"`
	NonPositivePrice int `json:"non_positive_price"`
}

func (s CleaningSummary) Dropped() int {
	return s.Input - s.Kept
}
