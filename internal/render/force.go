package render

import "fmt"

// Force chart method names.
const (
	MethodNativeForce = "native_force"
	MethodLegacyForce = "legacy_force"
	MethodBarFallback = "bar_fallback"
)

// NativeForce draws through the explanation-object API.
type NativeForce struct {
	Plotter ExplanationPlotter
}

func (NativeForce) Name() string   { return MethodNativeForce }
func (NativeForce) Terminal() bool { return false }

func (s NativeForce) Attempt(e Explanation) (Artifact, error) {
	if s.Plotter == nil {
		return Artifact{}, ErrUnavailable
	}
	text, err := s.Plotter.PlotForce(e)
	if err != nil {
		return Artifact{}, err
	}
	art := forceData(e)
	art.Text = text
	return art, nil
}

// LegacyForce draws through the direct-array API.
type LegacyForce struct {
	Plotter ArrayPlotter
}

func (LegacyForce) Name() string   { return MethodLegacyForce }
func (LegacyForce) Terminal() bool { return false }

func (s LegacyForce) Attempt(e Explanation) (Artifact, error) {
	if s.Plotter == nil {
		return Artifact{}, ErrUnavailable
	}
	text, err := s.Plotter.PlotForceArrays(e.Baseline, e.Values, e.Data, e.Features)
	if err != nil {
		return Artifact{}, err
	}
	art := forceData(e)
	art.Text = text
	return art, nil
}

// BarFallback is the dependency-free force chart: one signed bar per feature,
// largest magnitude first, against a reference line at zero.
type BarFallback struct{}

func (BarFallback) Name() string   { return MethodBarFallback }
func (BarFallback) Terminal() bool { return true }

func (BarFallback) Attempt(e Explanation) (Artifact, error) {
	if len(e.Features) != len(e.Values) {
		return Artifact{}, fmt.Errorf("%d features for %d values", len(e.Features), len(e.Values))
	}
	return forceData(e), nil
}

func forceData(e Explanation) Artifact {
	idx := byAbsDesc(e.Values)
	bars := make([]Bar, 0, len(idx))
	for _, i := range idx {
		bars = append(bars, Bar{Feature: e.Features[i], Value: e.Values[i], Sign: sign(e.Values[i])})
	}
	return Artifact{
		Baseline:  e.Baseline,
		Output:    e.Output(),
		Reference: 0,
		Bars:      bars,
	}
}
