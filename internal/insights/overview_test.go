package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-insights/internal/dataset"
	"retail-insights/internal/models"
)

func TestFormatting(t *testing.T) {
	assert.Equal(t, "541,909", FormatCount(541909))
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "$ 1,234,567.89", FormatCurrency(1234567.891))
	assert.Equal(t, "$ 0.00", FormatCurrency(0))
	assert.Equal(t, "16.05", FormatDecimal(16.0499999))
}

func TestBuildOverview(t *testing.T) {
	unclean := dataset.New([]models.RawTransaction{
		tx("536365", 6, 2.55, withDescription("WHITE HANGING HEART T-LIGHT HOLDER")),
		tx("C536379", -1, 27.50),
	})
	clean, summary := dataset.Clean(unclean)
	kpis := ComputeKPIs(unclean, dataset.Derive(clean))

	ov := BuildOverview(kpis, summary)

	assert.Equal(t, dataset.CanonicalColumns(), ov.Columns)
	assert.Len(t, ov.ColumnDescriptions, 8)
	assert.Equal(t, []string{"Date", "Datetime"}, ov.DataTypes[dataset.ColInvoiceDate])
	assert.Equal(t, 1, ov.Cleaning.Cancelled)

	require.Len(t, ov.FormattedKPIs, 4)
	assert.Equal(t, models.KeyValue{Key: "Total Transaction", Value: "1"}, ov.FormattedKPIs[0])
	assert.Equal(t, models.KeyValue{Key: "Total Revenue", Value: "$ 20.50"}, ov.FormattedKPIs[1])

	require.Len(t, ov.Facts, 6)
	assert.Contains(t, ov.Facts[0], "originally contained 2 transaction records")
	assert.Contains(t, ov.Facts[1], "is 50.00%")
	assert.Contains(t, ov.Facts[3], "WHITE HANGING HEART T-LIGHT HOLDER")
}

func TestFormatKPIs_UniqueCustomersCountsInput(t *testing.T) {
	kpis := FormatKPIs(models.KPIBundle{UniqueCustomersUnclean: 4372, UniqueCustomersClean: 4338})

	assert.Equal(t, models.KeyValue{Key: "Unique Customers", Value: "4,372"}, kpis[3])
}

func TestFacts_UndefinedValues(t *testing.T) {
	facts := Facts(models.KPIBundle{})

	assert.Contains(t, facts[1], "is n/a%")
	assert.Contains(t, facts[3], "is n/a.")
	assert.Contains(t, facts[4], "is n/a.")
}

func TestCatalogIsCopied(t *testing.T) {
	d := ColumnDescriptions()
	d[dataset.ColCountry] = "changed"
	ty := ColumnTypes()
	ty[dataset.ColCountry][0] = "changed"

	assert.NotEqual(t, "changed", ColumnDescriptions()[dataset.ColCountry])
	assert.Equal(t, "Categorical", ColumnTypes()[dataset.ColCountry][0])
}
