package models

// KPIBundle holds the scalar aggregates of one run. Pointer fields are nil
// when the value is undefined, in which case Issues names the reason.
type KPIBundle struct {
	TransactionsUnclean    int        `json:"transactions_unclean"`
	TransactionsClean      int        `json:"transactions_clean"`
	TotalRevenue           float64    `json:"total_revenue"`
	AverageRevenue         *float64   `json:"average_revenue"`
	UniqueCustomersUnclean int        `json:"unique_customers_unclean"`
	UniqueCustomersClean   int        `json:"unique_customers_clean"`
	CancellationRatePct    *float64   `json:"cancellation_rate_pct"`
	CustomerAttritionPct   *float64   `json:"customer_attrition_pct"`
	DistinctCountries      int        `json:"distinct_countries"`
	TopProduct             *string    `json:"top_product"`
	TopCountryByCustomers  *string    `json:"top_country_by_customers"`
	Issues                 []KPIIssue `json:"issues,omitempty"`
}

// KPIIssue records a KPI that could not be computed.
type KPIIssue struct {
	KPI     string `json:"kpi"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Issue returns the recorded issue for the named KPI, if any.
func (b KPIBundle) Issue(kpi string) (KPIIssue, bool) {
	for _, is := range b.Issues {
		if is.KPI == kpi {
			return is, true
		}
	}
	return KPIIssue{}, false
}

// KeyValue is an ordered label/value pair used for formatted report tables.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Overview is the tier 1 payload handed to the report writer.
type Overview struct {
	Description        string              `json:"description"`
	Columns            []string            `json:"columns"`
	ColumnDescriptions map[string]string   `json:"column_descriptions"`
	DataTypes          map[string][]string `json:"data_types"`
	KPIs               KPIBundle           `json:"kpis"`
	FormattedKPIs      []KeyValue          `json:"formatted_kpis"`
	Facts              []string            `json:"interesting_facts"`
	Cleaning           CleaningSummary     `json:"cleaning"`
}
