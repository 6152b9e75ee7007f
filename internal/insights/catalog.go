package insights

import (
	"maps"

	"retail-insights/internal/dataset"
)

const datasetDescription = "This is a Transactional data set which contains all the Transactions occurring between 01/12/2010 and 09/12/2011 for a UK-based and Registered non store Online Retail. The Company mainly Sells unique all occasion gifts. Many Customers of the Company are Wholesalers."

var columnDescriptions = map[string]string{
	dataset.ColInvoiceNo:   "A 6-digit integral number uniquely assigned to each Transaction. If this code starts with letter 'c', it indicates a Cancellation",
	dataset.ColStockCode:   "A 5-digit integral number uniquely assigned to each distinct product",
	dataset.ColDescription: "Product Name",
	dataset.ColQuantity:    "The Quantities of each Product (item) per Transaction",
	dataset.ColInvoiceDate: "The day and time when each Transaction was generated",
	dataset.ColUnitPrice:   "Product Price per Unit",
	dataset.ColCustomerID:  "A 5-digit integral number uniquely assigned to each Customer",
	dataset.ColCountry:     "The name of the country where each Customer resides",
}

var columnTypes = map[string][]string{
	dataset.ColInvoiceNo:   {"Categorical", "Text"},
	dataset.ColStockCode:   {"Categorical", "Text"},
	dataset.ColDescription: {"Categorical", "Text"},
	dataset.ColQuantity:    {"Integer", "Numeric"},
	dataset.ColInvoiceDate: {"Date", "Datetime"},
	dataset.ColUnitPrice:   {"Continuous", "Numeric"},
	dataset.ColCustomerID:  {"Categorical", "Numeric"},
	dataset.ColCountry:     {"Categorical", "Text"},
}

func ColumnDescriptions() map[string]string {
	return maps.Clone(columnDescriptions)
}

func ColumnTypes() map[string][]string {
	out := make(map[string][]string, len(columnTypes))
	for k, v := range columnTypes {
		out[k] = append([]string(nil), v...)
	}
	return out
}
