package render

import (
	"math"
	"sort"
)

// Contribution is one row of the exportable contribution table.
type Contribution struct {
	Feature     string  `json:"feature" yaml:"feature"`
	Attribution float64 `json:"shap_value" yaml:"shap_value"`
	Value       float64 `json:"feature_value" yaml:"feature_value"`
}

// Table lists every feature's contribution, largest absolute attribution first.
type Table []Contribution

// NewTable builds the contribution table. Rows are ordered by descending
// absolute attribution with ties kept in schema order, then rounded to 4
// decimals (attribution) and 2 decimals (feature value).
func NewTable(e Explanation) Table {
	idx := byAbsDesc(e.Values)

	t := make(Table, 0, len(idx))
	for _, i := range idx {
		t = append(t, Contribution{
			Feature:     e.Features[i],
			Attribution: round(e.Values[i], 4),
			Value:       round(e.Data[i], 2),
		})
	}
	return t
}

// Sum totals the rounded attributions.
func (t Table) Sum() float64 {
	s := 0.0
	for _, c := range t {
		s += c.Attribution
	}
	return s
}

func byAbsDesc(values []float64) []int {
	idx := indices(len(values))
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(values[idx[a]]) > math.Abs(values[idx[b]])
	})
	return idx
}

func bySignedDesc(values []float64) []int {
	idx := indices(len(values))
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	return idx
}

func indices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
