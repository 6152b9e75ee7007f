package export

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"retail-insights/internal/dataset"
	"retail-insights/internal/insights"
	"retail-insights/internal/models"
)

func sampleReport(t *testing.T, tier models.Tier) models.Report {
	t.Helper()
	rows := []models.RawTransaction{
		{InvoiceNo: "536365", StockCode: "85123A", Description: models.StringPtr("WHITE HANGING HEART T-LIGHT HOLDER"),
			Quantity: 6, InvoiceDate: time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), UnitPrice: 2.55,
			CustomerID: models.StringPtr("17850"), Country: "United Kingdom"},
		{InvoiceNo: "536366", StockCode: "22633", Description: models.StringPtr("HAND WARMER UNION JACK"),
			Quantity: 12, InvoiceDate: time.Date(2011, 1, 4, 10, 0, 0, 0, time.UTC), UnitPrice: 1.85,
			CustomerID: models.StringPtr("12583"), Country: "France"},
		{InvoiceNo: "C536379", StockCode: "D", Quantity: -1, UnitPrice: 27.5,
			CustomerID: models.StringPtr("14527"), Country: "United Kingdom"},
	}
	unclean := dataset.New(rows)
	clean, summary := dataset.Clean(unclean)
	featured := dataset.Derive(clean)

	r := models.Report{Tier: tier, Overview: insights.BuildOverview(insights.ComputeKPIs(unclean, featured), summary)}
	for tr := models.TierRevenue; tr <= tier; tr++ {
		r.Tiers = append(r.Tiers, insights.BuildTier(tr, featured))
	}
	return r
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWorkbook_Sheets(t *testing.T) {
	tests := []struct {
		tier   models.Tier
		sheets int
	}{
		{models.TierOverview, 1},
		{models.TierRevenue, 5},
		{models.TierExtended, 9},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			b, err := Workbook(sampleReport(t, tt.tier))
			require.NoError(t, err)

			f := open(t, b)
			list := f.GetSheetList()
			require.Len(t, list, tt.sheets)
			assert.Equal(t, OverviewSheet, list[0])
		})
	}
}

func TestWorkbook_Overview(t *testing.T) {
	b, err := Workbook(sampleReport(t, models.TierOverview))
	require.NoError(t, err)

	rows, err := open(t, b).GetRows(OverviewSheet)
	require.NoError(t, err)

	var kpis = map[string]string{}
	for _, r := range rows {
		if len(r) == 2 {
			kpis[r[0]] = r[1]
		}
	}
	assert.Equal(t, "2", kpis["Total Transaction"])
	assert.Equal(t, "3", kpis["Unique Customers"])
	assert.Equal(t, "1", kpis["Cancelled"])
}

func TestWorkbook_SeriesSheet(t *testing.T) {
	r := sampleReport(t, models.TierRevenue)
	b, err := Workbook(r)
	require.NoError(t, err)

	f := open(t, b)
	monthly, _ := r.Tiers[0].Get(insights.LabelMonthlyRevenue)
	rows, err := f.GetRows(SheetName(monthly))
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Month", "Total Revenue ($)"}, rows[1])
	assert.Equal(t, "2010-12", rows[2][0])
	assert.Equal(t, "2011-01", rows[3][0])

	customers, _ := r.Tiers[0].Get(insights.LabelTopCustomersByPurchase)
	rows, err = f.GetRows(SheetName(customers))
	require.NoError(t, err)
	assert.Equal(t, []string{"Customer ID", "Country", "Total Purchase ($)"}, rows[1])
}

func TestWorkbook_UndefinedCorrelationsAreBlank(t *testing.T) {
	r := sampleReport(t, models.TierExtended)
	corr, ok := r.Tiers[1].Get(insights.LabelCorrelationMatrix)
	require.True(t, ok)
	for i := range corr.Matrix.Values {
		for j := range corr.Matrix.Values[i] {
			corr.Matrix.Values[i][j] = math.NaN()
		}
	}

	b, err := Workbook(r)
	require.NoError(t, err)

	rows, err := open(t, b).GetRows(SheetName(corr))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Quantity"}, rows[2])
}

func TestWorkbook_FailedSeries(t *testing.T) {
	r := sampleReport(t, models.TierRevenue)
	r.Tiers[0].Series[1].Points = nil
	r.Tiers[0].Series[1].Error = "build yearly_revenue: boom"

	b, err := Workbook(r)
	require.NoError(t, err)

	rows, err := open(t, b).GetRows(SheetName(r.Tiers[0].Series[1]))
	require.NoError(t, err)
	assert.Equal(t, []string{"Error", "build yearly_revenue: boom"}, rows[1])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "3. top_10_country_by_revenue", SheetName(models.Series{Ordinal: 3, Label: "top_10_country_by_revenue"}))

	long := SheetName(models.Series{Ordinal: 6, Label: "top_10_country_quantity_vs_revenue"})
	assert.Len(t, long, 31)
}
