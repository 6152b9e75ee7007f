package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Tier int

const (
	TierOverview Tier = iota + 1
	TierRevenue
	TierExtended
)

// ParseTier accepts "1", "2" or "3".
func ParseTier(s string) (Tier, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid tier %q", s)
	}
	t := Tier(n)
	if !t.Valid() {
		return 0, fmt.Errorf("tier %d out of range 1-3", n)
	}
	return t, nil
}

func (t Tier) Valid() bool {
	return t >= TierOverview && t <= TierExtended
}

func (t Tier) String() string {
	switch t {
	case TierOverview:
		return "overview"
	case TierRevenue:
		return "revenue"
	case TierExtended:
		return "extended"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ChartKind tells the renderer which plot a series maps to.
type ChartKind string

const (
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartScatter ChartKind = "scatter"
	ChartHeatmap ChartKind = "heatmap"
)

type SeriesPoint struct {
	Category string  `json:"category"`
	Group    string  `json:"group,omitempty"`
	Value    float64 `json:"value"`
}

type ScatterPoint struct {
	Group string  `json:"group"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// CorrelationMatrix is a symmetric Pearson matrix, row-major.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"-"`
}

// At returns the coefficient for the named pair.
func (m CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// MarshalJSON writes undefined coefficients as null.
func (m CorrelationMatrix) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			values[i][j] = &v
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, values})
}

// Series is one aggregate prepared for a single chart. Exactly one of Points,
// Scatter or Matrix is populated, according to Kind.
type Series struct {
	Ordinal int                `json:"ordinal"`
	Label   string             `json:"label"`
	Title   string             `json:"title"`
	Kind    ChartKind          `json:"kind"`
	XLabel  string             `json:"x_label"`
	YLabel  string             `json:"y_label"`
	Points  []SeriesPoint      `json:"points,omitempty"`
	Scatter []ScatterPoint     `json:"scatter,omitempty"`
	Matrix  *CorrelationMatrix `json:"matrix,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// FileName is the image name a renderer writes the series to.
func (s Series) FileName() string {
	return fmt.Sprintf("%d. %s.png", s.Ordinal, s.Label)
}

func (s Series) Failed() bool {
	return s.Error != ""
}

type TierSeries struct {
	Tier   Tier     `json:"tier"`
	Series []Series `json:"series"`
}

func (t TierSeries) Get(label string) (Series, bool) {
	for _, s := range t.Series {
		if s.Label == label {
			return s, true
		}
	}
	return Series{}, false
}

// Report bundles everything produced for a requested tier: the overview and
// every series tier up to and including it.
type Report struct {
	Tier     Tier         `json:"tier"`
	Overview Overview     `json:"overview"`
	Tiers    []TierSeries `json:"tiers"`
}
