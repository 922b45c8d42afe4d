package attribution

import (
	"errors"
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/model"
)

// Output selects the raw shape an engine reports. Different releases of the
// attribution tooling disagree on it, so the artifact records which one the
// explainer was built with.
type Output string

const (
	OutputPerClass Output = "per_class"
	OutputMatrix   Output = "matrix"
	OutputSequence Output = "sequence"
)

// Space is the model output scale an attribution decomposes.
type Space string

const (
	SpaceProbability Space = "probability"
	SpaceLogOdds     Space = "log_odds"
)

// Explainer kinds as written in the explainer artifact.
const (
	KindTree   = "tree"
	KindLinear = "linear"
)

var ErrIncompatibleModel = errors.New("explainer is incompatible with model")

// Engine computes per-feature attributions for one schema-ordered row.
type Engine interface {
	Explain(row []float64) (RawAttribution, RawBaseline, error)
	Space() Space
	Name() string
}

// Artifact is the serialized explainer bound to a trained classifier.
type Artifact struct {
	Kind           string    `json:"kind" yaml:"kind"`
	Output         Output    `json:"output,omitempty" yaml:"output,omitempty"`
	ExpectedValue  []float64 `json:"expected_value,omitempty" yaml:"expected_value,omitempty"`
	BackgroundMean []float64 `json:"background_mean,omitempty" yaml:"background_mean,omitempty"`
}

// FromArtifact builds the engine described by a for classifier c.
func FromArtifact(a Artifact, c model.Classifier) (Engine, error) {
	out := a.Output
	if out == "" {
		out = OutputPerClass
	}
	if err := out.validate(); err != nil {
		return nil, err
	}

	switch a.Kind {
	case KindTree:
		f, ok := c.(*model.Forest)
		if !ok {
			return nil, fmt.Errorf("%w: tree explainer needs a random forest, got %s", ErrIncompatibleModel, c.Kind())
		}
		e, err := NewTreeExplainer(f, out)
		if err != nil {
			return nil, err
		}
		if len(a.ExpectedValue) > 0 {
			// the stored expected value must come from the same trees
			got := e.ExpectedValue()[PositiveClass]
			want := a.ExpectedValue[len(a.ExpectedValue)-1]
			if math.Abs(got-want) > 1e-6 {
				return nil, fmt.Errorf("%w: expected value %g does not match model (%g)", ErrIncompatibleModel, want, got)
			}
		}
		return e, nil
	case KindLinear:
		l, ok := c.(*model.Logistic)
		if !ok {
			return nil, fmt.Errorf("%w: linear explainer needs a logistic model, got %s", ErrIncompatibleModel, c.Kind())
		}
		e, err := NewLinearExplainer(l, a.BackgroundMean, out)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown explainer kind %q", a.Kind)
	}
}

func (o Output) validate() error {
	switch o {
	case OutputPerClass, OutputMatrix, OutputSequence:
		return nil
	default:
		return fmt.Errorf("unknown explainer output %q", o)
	}
}

// shape packs binary-class attributions the way the configured output does.
func (o Output) shape(phi [2][]float64, expected [2]float64) (RawAttribution, RawBaseline) {
	switch o {
	case OutputMatrix:
		return Matrix([][]float64{phi[PositiveClass]}), Sequence([]float64{expected[PositiveClass]})
	case OutputSequence:
		return Sequence(phi[PositiveClass]), Scalar(expected[PositiveClass])
	default:
		return PerClass(Sequence(phi[0]), Sequence(phi[1])), Sequence([]float64{expected[0], expected[1]})
	}
}
