package analysis

import "math"

var (
	// tier boundaries on the 0-100 score, each inclusive on the low side
	mediumFrom float64 = 30
	highFrom   float64 = 60
)

// TierFor maps a probability to its risk tier.
func TierFor(p float64) RiskTier {
	score := p * 100
	switch {
	case score < mediumFrom:
		return TierLow
	case score < highFrom:
		return TierMedium
	default:
		return TierHigh
	}
}

// NewPrediction derives the score and tier for probability p.
func NewPrediction(p float64) Prediction {
	tier := TierFor(p)
	return Prediction{
		Probability: p,
		Score:       math.Round(p*100*100) / 100,
		Tier:        tier,
		Label:       tier.Label(),
	}
}
