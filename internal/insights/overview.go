package insights

import (
	"fmt"

	"retail-insights/internal/dataset"
	"retail-insights/internal/models"
)

// BuildOverview assembles the tier 1 payload: dataset catalog, KPIs in raw
// and display form, and the narrative facts.
func BuildOverview(kpis models.KPIBundle, cleaning models.CleaningSummary) models.Overview {
	return models.Overview{
		Description:        datasetDescription,
		Columns:            dataset.CanonicalColumns(),
		ColumnDescriptions: ColumnDescriptions(),
		DataTypes:          ColumnTypes(),
		KPIs:               kpis,
		FormattedKPIs:      FormatKPIs(kpis),
		Facts:              Facts(kpis),
		Cleaning:           cleaning,
	}
}

// FormatKPIs renders the headline KPIs for the report table.
func FormatKPIs(k models.KPIBundle) []models.KeyValue {
	return []models.KeyValue{
		{Key: "Total Transaction", Value: FormatCount(k.TransactionsClean)},
		{Key: "Total Revenue", Value: FormatCurrency(k.TotalRevenue)},
		{Key: "Average Revenue", Value: formatOptional(k.AverageRevenue, FormatCurrency)},
		{Key: "Unique Customers", Value: FormatCount(k.UniqueCustomersUnclean)},
	}
}

// Facts returns the narrative sentences of the overview report.
func Facts(k models.KPIBundle) []string {
	return []string{
		fmt.Sprintf("The dataset originally contained %s transaction records. After cleaning, %s records remain. A total of %s records were removed due to negative prices or quantities (representing canceled transactions) and missing Customer IDs.",
			FormatCount(k.TransactionsUnclean), FormatCount(k.TransactionsClean), FormatCount(k.TransactionsUnclean-k.TransactionsClean)),
		fmt.Sprintf("The percentage of canceled orders in the dataset is %s%%, which involves only %s%% of the customers.",
			formatOptional(k.CancellationRatePct, FormatDecimal), formatOptional(k.CustomerAttritionPct, FormatDecimal)),
		fmt.Sprintf("The dataset contains %s unique countries.", FormatCount(k.DistinctCountries)),
		fmt.Sprintf("The most frequently purchased product in the dataset is %s.", textOrNA(k.TopProduct)),
		fmt.Sprintf("The country with the highest number of customers is %s.", textOrNA(k.TopCountryByCustomers)),
		fmt.Sprintf("The dataset originally contained %s unique customers. After data cleaning, %s unique customers remain.",
			FormatCount(k.UniqueCustomersUnclean), FormatCount(k.UniqueCustomersClean)),
	}
}
