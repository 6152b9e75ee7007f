package insights

import (
	"math"

	"retail-insights/internal/dataset"
	"retail-insights/internal/models"
)

// correlationColumns are the numeric columns compared by Correlation.
var correlationColumns = []string{dataset.ColQuantity, "Revenue", dataset.ColUnitPrice}

// Correlation computes pairwise Pearson coefficients among Quantity, Revenue
// and UnitPrice. Pairs involving a column without variance, or datasets with
// fewer than two rows, are NaN.
func Correlation(clean dataset.Featured) models.CorrelationMatrix {
	cols := make([][]float64, len(correlationColumns))
	for i := range cols {
		cols[i] = make([]float64, 0, clean.Len())
	}
	for r := range clean.All() {
		cols[0] = append(cols[0], float64(r.Quantity))
		cols[1] = append(cols[1], r.Revenue)
		cols[2] = append(cols[2], r.UnitPrice)
	}

	n := len(cols)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}
	for i := range n {
		for j := i; j < n; j++ {
			r := pearson(cols[i], cols[j])
			values[i][j] = r
			values[j][i] = r
		}
	}

	names := make([]string, n)
	copy(names, correlationColumns)
	return models.CorrelationMatrix{Columns: names, Values: values}
}

func pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return math.NaN()
	}

	var mx, my float64
	for i := range n {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx, syy float64
	for i := range n {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}

	r := sxy / math.Sqrt(sxx*syy)
	// clamp rounding drift
	return math.Max(-1, math.Min(1, r))
}
