package render

import (
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
)

// Artifact kinds.
const (
	KindForce     = "force"
	KindWaterfall = "waterfall"
)

// Bar signs, matching the two colours the charts use.
const (
	SignNegative = "negative"
	SignPositive = "positive"
)

// Explanation is the input every rendering method receives: one explained
// prediction with feature names, attributions and raw feature values aligned
// by index.
type Explanation struct {
	Features []string
	Values   []float64
	Data     []float64
	Baseline float64
}

// NewExplanation aligns a canonical attribution with the schema names and the
// feature values, keeping only the common prefix if their lengths differ.
func NewExplanation(features []string, c attribution.Canonical, data []float64) Explanation {
	n := min(len(features), len(c.Values), len(data))
	return Explanation{
		Features: append([]string(nil), features[:n]...),
		Values:   append([]float64(nil), c.Values[:n]...),
		Data:     append([]float64(nil), data[:n]...),
		Baseline: c.Baseline,
	}
}

func (e Explanation) Len() int { return len(e.Values) }

// Output is the model output the attribution decomposes.
func (e Explanation) Output() float64 {
	out := e.Baseline
	for _, v := range e.Values {
		out += v
	}
	return out
}

// Bar is one signed per-feature bar.
type Bar struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Sign    string  `json:"sign"`
}

// Step is one point of the running cumulative sum from baseline to output.
type Step struct {
	Feature    string  `json:"feature"`
	Value      float64 `json:"value"`
	Cumulative float64 `json:"cumulative"`
}

// Attempt records a rendering method that failed before the one that produced
// the artifact.
type Attempt struct {
	Method string `json:"method"`
	Error  string `json:"error"`
}

// Artifact is the chart-equivalent output of a render chain: the structured
// data behind the chart plus the drawn chart when a plotter produced one.
type Artifact struct {
	Kind      string    `json:"kind"`
	Method    string    `json:"method"`
	Fallback  bool      `json:"fallback"`
	Attempts  []Attempt `json:"attempts,omitempty"`
	Baseline  float64   `json:"baseline"`
	Output    float64   `json:"output"`
	Reference float64   `json:"reference"`
	Bars      []Bar     `json:"bars"`
	Steps     []Step    `json:"steps,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// Result is everything rendered for one explanation. Force and Waterfall are
// nil only if a chain was exhausted, which the chain constructor rules out.
type Result struct {
	Force     *Artifact `json:"force,omitempty"`
	Waterfall *Artifact `json:"waterfall,omitempty"`
	Table     Table     `json:"table"`
}

func sign(v float64) string {
	if v < 0 {
		return SignNegative
	}
	return SignPositive
}
