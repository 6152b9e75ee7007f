package insights

import (
	"fmt"

	"retail-insights/internal/dataset"
	"retail-insights/internal/models"
)

type seriesSpec struct {
	ordinal int
	label   string
	title   string
	kind    models.ChartKind
	xLabel  string
	yLabel  string
	build   func(dataset.Featured, *models.Series)
}

var tierSpecs = map[models.Tier][]seriesSpec{
	models.TierRevenue: {
		{1, LabelMonthlyRevenue, "Monthly Revenue Trend", models.ChartLine, "Month", "Total Revenue ($)",
			func(d dataset.Featured, s *models.Series) { s.Points = MonthlyRevenue(d) }},
		{2, LabelYearlyRevenue, "Yearly Revenue Trend", models.ChartBar, "Year", "Total Revenue ($)",
			func(d dataset.Featured, s *models.Series) { s.Points = YearlyRevenue(d) }},
		{3, LabelTopCountriesByRevenue, "Top 10 Countries by Revenue", models.ChartBar, "Country", "Total Revenue ($)",
			func(d dataset.Featured, s *models.Series) { s.Points = TopCountriesByRevenue(d) }},
		{4, LabelTopCustomersByPurchase, "Top 10 Customer by Purchase by Country", models.ChartBar, "Customer ID", "Total Purchase ($)",
			func(d dataset.Featured, s *models.Series) { s.Points = TopCustomersByPurchase(d) }},
	},
	models.TierExtended: {
		{5, LabelTopCountriesByCustomers, "Top 10 Country by No. of Customers", models.ChartBar, "Country", "No. of Customers",
			func(d dataset.Featured, s *models.Series) { s.Points = TopCountriesByCustomers(d) }},
		{6, LabelQuantityVsRevenue, "Quantity VS Revenue for Top 10 Countries", models.ChartScatter, "Quantity", "Revenue",
			func(d dataset.Featured, s *models.Series) { s.Scatter = QuantityVsRevenue(d) }},
		{7, LabelTopProducts, "Top 10 Products by Transactions", models.ChartBar, "Transactions", "Product Description",
			func(d dataset.Featured, s *models.Series) { s.Points = TopProductsByTransactions(d) }},
		{8, LabelCorrelationMatrix, "Correlation Matrix", models.ChartHeatmap, "", "",
			func(d dataset.Featured, s *models.Series) {
				m := Correlation(d)
				s.Matrix = &m
			}},
	},
}

// Labels lists the series labels produced for a tier, in order.
func Labels(tier models.Tier) []string {
	specs := tierSpecs[tier]
	out := make([]string, 0, len(specs))
	for _, sp := range specs {
		out = append(out, sp.label)
	}
	return out
}

// TierOf reports which tier produces the labelled series.
func TierOf(label string) (models.Tier, bool) {
	for tier, specs := range tierSpecs {
		for _, sp := range specs {
			if sp.label == label {
				return tier, true
			}
		}
	}
	return 0, false
}

// BuildTier computes every series of the tier. A failing series carries its
// error and does not stop the others. Tier 1 has no series.
func BuildTier(tier models.Tier, clean dataset.Featured) models.TierSeries {
	specs := tierSpecs[tier]
	out := models.TierSeries{Tier: tier, Series: make([]models.Series, 0, len(specs))}
	for _, sp := range specs {
		out.Series = append(out.Series, buildSeries(sp, clean))
	}
	return out
}

func buildSeries(sp seriesSpec, clean dataset.Featured) (s models.Series) {
	s = models.Series{
		Ordinal: sp.ordinal,
		Label:   sp.label,
		Title:   sp.title,
		Kind:    sp.kind,
		XLabel:  sp.xLabel,
		YLabel:  sp.yLabel,
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.Points, s.Scatter, s.Matrix = nil, nil, nil
			s.Error = fmt.Sprintf("build %s: %v", sp.label, rec)
		}
	}()
	sp.build(clean, &s)
	return s
}
