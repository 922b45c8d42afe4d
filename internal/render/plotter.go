package render

// WaterfallVariant names one of the waterfall plotting entry points. Plotting
// library releases expose either or both.
type WaterfallVariant string

const (
	VariantPlots     WaterfallVariant = "plots.waterfall"
	VariantWaterfall WaterfallVariant = "waterfall_plot"
)

// ExplanationPlotter draws a force chart from an explanation object.
type ExplanationPlotter interface {
	PlotForce(e Explanation) (string, error)
}

// ArrayPlotter draws a force chart from bare arrays, the older entry point.
type ArrayPlotter interface {
	PlotForceArrays(baseline float64, values, data []float64, features []string) (string, error)
}

// WaterfallPlotter draws a waterfall chart through the given entry point.
type WaterfallPlotter interface {
	PlotWaterfall(e Explanation, variant WaterfallVariant) (string, error)
}
