package render

import "fmt"

// Waterfall chart method names.
const (
	MethodWaterfallPlots   = "native_waterfall"
	MethodWaterfallLegacy  = "native_waterfall_plot"
	MethodTwoPanelFallback = "two_panel_fallback"
)

// NativeWaterfall draws through one waterfall entry point of the plotter.
type NativeWaterfall struct {
	Plotter WaterfallPlotter
	Variant WaterfallVariant
}

func (s NativeWaterfall) Name() string {
	if s.Variant == VariantWaterfall {
		return MethodWaterfallLegacy
	}
	return MethodWaterfallPlots
}

func (NativeWaterfall) Terminal() bool { return false }

func (s NativeWaterfall) Attempt(e Explanation) (Artifact, error) {
	if s.Plotter == nil {
		return Artifact{}, ErrUnavailable
	}
	text, err := s.Plotter.PlotWaterfall(e, s.Variant)
	if err != nil {
		return Artifact{}, err
	}
	// native waterfalls step through features by magnitude
	art := waterfallData(e, byAbsDesc(e.Values))
	art.Text = text
	return art, nil
}

// TwoPanelFallback is the dependency-free waterfall: signed bars in descending
// signed order on top, and below them the running sum from the baseline in the
// same order, with the baseline as reference line.
type TwoPanelFallback struct{}

func (TwoPanelFallback) Name() string   { return MethodTwoPanelFallback }
func (TwoPanelFallback) Terminal() bool { return true }

func (TwoPanelFallback) Attempt(e Explanation) (Artifact, error) {
	if len(e.Features) != len(e.Values) {
		return Artifact{}, fmt.Errorf("%d features for %d values", len(e.Features), len(e.Values))
	}
	return waterfallData(e, bySignedDesc(e.Values)), nil
}

func waterfallData(e Explanation, order []int) Artifact {
	bars := make([]Bar, 0, len(order))
	steps := make([]Step, 0, len(order))
	cum := e.Baseline
	for _, i := range order {
		cum += e.Values[i]
		bars = append(bars, Bar{Feature: e.Features[i], Value: e.Values[i], Sign: sign(e.Values[i])})
		steps = append(steps, Step{Feature: e.Features[i], Value: e.Values[i], Cumulative: cum})
	}
	return Artifact{
		Baseline:  e.Baseline,
		Output:    cum,
		Reference: e.Baseline,
		Bars:      bars,
		Steps:     steps,
	}
}
