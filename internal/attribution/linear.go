package attribution

import (
	"fmt"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/model"
)

// LinearExplainer attributes a logistic model in log-odds space assuming
// independent features: phi_i = coef_i * (x_i - mean_i).
type LinearExplainer struct {
	model    *model.Logistic
	coef     []float64
	mean     []float64
	output   Output
	expected float64
}

func NewLinearExplainer(l *model.Logistic, backgroundMean []float64, output Output) (*LinearExplainer, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: nil logistic model", ErrIncompatibleModel)
	}

	coef := l.Coefficients()
	mean := backgroundMean
	if mean == nil {
		mean = make([]float64, len(coef))
	}
	if len(mean) != len(coef) {
		return nil, fmt.Errorf("%w: background mean has %d values for %d coefficients", ErrIncompatibleModel, len(mean), len(coef))
	}

	expected := l.Intercept()
	for i, c := range coef {
		expected += c * mean[i]
	}

	return &LinearExplainer{
		model:    l,
		coef:     coef,
		mean:     append([]float64(nil), mean...),
		output:   output,
		expected: expected,
	}, nil
}

func (e *LinearExplainer) Name() string   { return KindLinear }
func (e *LinearExplainer) Space() Space   { return SpaceLogOdds }
func (e *LinearExplainer) Output() Output { return e.output }

func (e *LinearExplainer) Explain(row []float64) (RawAttribution, RawBaseline, error) {
	if len(row) != len(e.coef) {
		return RawAttribution{}, RawBaseline{}, fmt.Errorf("expected %d features, got %d", len(e.coef), len(row))
	}

	var phi [2][]float64
	phi[0] = make([]float64, len(row))
	phi[1] = make([]float64, len(row))
	for i, c := range e.coef {
		v := c * (row[i] - e.mean[i])
		phi[1][i] = v
		phi[0][i] = -v
	}

	raw, base := e.output.shape(phi, [2]float64{-e.expected, e.expected})
	return raw, base, nil
}
