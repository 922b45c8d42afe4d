package model

import (
	"errors"
	"fmt"
	"math"
)

// Model kinds as written in the model artifact.
const (
	KindRandomForest = "random_forest"
	KindLogistic     = "logistic"
)

var (
	ErrFeatureCount = errors.New("feature count mismatch")
	ErrNonFinite    = errors.New("non-finite feature value")
	ErrInvalidModel = errors.New("invalid model")
)

// Classifier is a fitted binary classifier that consumes rows in schema order.
type Classifier interface {
	// PredictProba returns class probabilities for classes {0, 1}.
	PredictProba(row []float64) ([]float64, error)
	NumFeatures() int
	Kind() string
}

// Artifact is the serialized form of a classifier produced by the training job.
type Artifact struct {
	Kind         string    `json:"kind" yaml:"kind"`
	Classes      []int     `json:"classes,omitempty" yaml:"classes,omitempty"`
	FeatureNames []string  `json:"feature_names,omitempty" yaml:"feature_names,omitempty"`
	Trees        []Tree    `json:"trees,omitempty" yaml:"trees,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
}

// FromArtifact builds and validates the classifier described by a.
func FromArtifact(a Artifact) (Classifier, error) {
	n := len(a.FeatureNames)

	switch a.Kind {
	case KindRandomForest:
		if n == 0 {
			n = inferFeatureCount(a.Trees)
		}
		f, err := NewForest(a.Trees, n)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindLogistic:
		if n != 0 && n != len(a.Coefficients) {
			return nil, fmt.Errorf("%w: %d feature names for %d coefficients", ErrInvalidModel, n, len(a.Coefficients))
		}
		l, err := NewLogistic(a.Coefficients, a.Intercept)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidModel, a.Kind)
	}
}

func inferFeatureCount(trees []Tree) int {
	hi := -1
	for _, t := range trees {
		for _, n := range t.Nodes {
			if !n.IsLeaf() && n.Feature > hi {
				hi = n.Feature
			}
		}
	}
	return hi + 1
}

func checkRow(row []float64, n int) error {
	if len(row) != n {
		return fmt.Errorf("%w: expected %d features, got %d", ErrFeatureCount, n, len(row))
	}
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at position %d", ErrNonFinite, i)
		}
	}
	return nil
}

// Sigmoid maps log-odds to probability.
func Sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Logit maps probability to log-odds, clamped away from 0 and 1.
func Logit(p float64) float64 {
	const eps = 1e-12
	p = math.Min(math.Max(p, eps), 1-eps)
	return math.Log(p / (1 - p))
}
