package render

import (
	"log/slog"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
)

// Renderer produces the force chart, the waterfall chart and the contribution
// table for one explanation.
type Renderer struct {
	force     *Chain
	waterfall *Chain
	logger    *slog.Logger
}

type options struct {
	native    ExplanationPlotter
	legacy    ArrayPlotter
	waterfall WaterfallPlotter
	observers []Observer
	logger    *slog.Logger
}

type Option func(*options)

// WithTerminalPlotter serves every native method from p.
func WithTerminalPlotter(p *TerminalPlotter) Option {
	return func(o *options) {
		o.native = p
		o.legacy = p
		o.waterfall = p
	}
}

// WithForcePlotters sets the explanation-object and direct-array force plotters.
// Either may be nil.
func WithForcePlotters(native ExplanationPlotter, legacy ArrayPlotter) Option {
	return func(o *options) {
		o.native = native
		o.legacy = legacy
	}
}

func WithWaterfallPlotter(p WaterfallPlotter) Option {
	return func(o *options) { o.waterfall = p }
}

func WithObserver(obs ...Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewRenderer assembles the force and waterfall chains. Without plotters the
// native methods report ErrUnavailable and the data fallbacks are used.
func NewRenderer(opts ...Option) (*Renderer, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	force, err := NewChain(KindForce,
		NativeForce{Plotter: o.native},
		LegacyForce{Plotter: o.legacy},
		BarFallback{},
	)
	if err != nil {
		return nil, err
	}

	waterfall, err := NewChain(KindWaterfall,
		NativeWaterfall{Plotter: o.waterfall, Variant: VariantPlots},
		NativeWaterfall{Plotter: o.waterfall, Variant: VariantWaterfall},
		TwoPanelFallback{},
	)
	if err != nil {
		return nil, err
	}

	force.Observe(o.observers...)
	waterfall.Observe(o.observers...)

	return &Renderer{force: force, waterfall: waterfall, logger: o.logger}, nil
}

// Render never fails. The table is always produced; each chart comes from the
// first method in its chain that succeeds.
func (r *Renderer) Render(features []string, c attribution.Canonical, data []float64) Result {
	e := NewExplanation(features, c, data)

	res := Result{Table: NewTable(e)}
	res.Force = r.run(r.force, e)
	res.Waterfall = r.run(r.waterfall, e)
	return res
}

// Chains exposes the chains in render order.
func (r *Renderer) Chains() []*Chain { return []*Chain{r.force, r.waterfall} }

func (r *Renderer) run(c *Chain, e Explanation) *Artifact {
	art, err := c.Run(e)
	if err != nil {
		apperrors.Log(r.logger, apperrors.ToAppError(err))
		return nil
	}
	return &art
}
