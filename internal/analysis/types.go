package analysis

import (
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/render"
)

type RiskTier string

const (
	TierLow    RiskTier = "Low"
	TierMedium RiskTier = "Medium"
	TierHigh   RiskTier = "High"
)

// Label is the display form shown next to the score.
func (t RiskTier) Label() string { return string(t) + " Risk" }

type Prediction struct {
	Probability float64  `json:"probability"`
	Score       float64  `json:"score"`
	Tier        RiskTier `json:"risk_tier"`
	Label       string   `json:"risk_label"`
}

// Warning codes surfaced on an assessment.
const (
	WarningAttributionUnavailable = "attribution_unavailable"
	WarningAttributionReconciled  = "attribution_reconciled"
)

// Warning is a non-fatal problem the caller must be told about.
type Warning struct {
	Code    string `json:"code"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type Explanation struct {
	Features      []string              `json:"features"`
	Attribution   attribution.Canonical `json:"attribution"`
	Space         attribution.Space     `json:"space"`
	ModelOutput   float64               `json:"model_output"`
	AdditivityGap float64               `json:"additivity_gap"`
	Force         *render.Artifact      `json:"force,omitempty"`
	Waterfall     *render.Artifact      `json:"waterfall,omitempty"`
	Contributions render.Table          `json:"contributions"`
}

// Assessment is the full answer for one feature vector. Explanation is nil
// when attribution failed; the reason is then in Warnings.
type Assessment struct {
	Prediction  Prediction   `json:"prediction"`
	Explanation *Explanation `json:"explanation,omitempty"`
	Warnings    []Warning    `json:"warnings,omitempty"`
}
