package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/model"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/render"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
)

var errNoEngine = errors.New("no attribution engine configured")

// RiskClassifier orchestrates prediction, attribution and rendering for one
// feature vector. Its dependencies are loaded once and shared read-only, so a
// single instance serves concurrent requests.
type RiskClassifier struct {
	schema     *schema.Schema
	classifier model.Classifier
	engine     attribution.Engine
	renderer   *render.Renderer
	logger     *monitoring.Logger
	metrics    *monitoring.Metrics
}

type Option func(*RiskClassifier)

func WithLogger(l *monitoring.Logger) Option {
	return func(rc *RiskClassifier) { rc.logger = l }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(rc *RiskClassifier) { rc.metrics = m }
}

// NewRiskClassifier wires the pipeline. engine may be nil, in which case every
// assessment carries an attribution_unavailable warning.
func NewRiskClassifier(s *schema.Schema, c model.Classifier, e attribution.Engine, r *render.Renderer, opts ...Option) (*RiskClassifier, error) {
	if s == nil || c == nil || r == nil {
		return nil, apperrors.NewConfigurationError("risk classifier needs a schema, a classifier and a renderer", nil)
	}

	rc := &RiskClassifier{
		schema:     s,
		classifier: c,
		engine:     e,
		renderer:   r,
		logger:     monitoring.FromSlog(nil),
	}
	for _, opt := range opts {
		opt(rc)
	}

	if c.NumFeatures() != s.Len() {
		rc.logger.Warn("Classifier arity differs from schema",
			"model_features", c.NumFeatures(),
			"schema_features", s.Len(),
		)
	}
	return rc, nil
}

func (rc *RiskClassifier) Schema() *schema.Schema { return rc.schema }

// ModelKind names the loaded classifier.
func (rc *RiskClassifier) ModelKind() string { return rc.classifier.Kind() }

// EngineName names the attribution engine, or "none".
func (rc *RiskClassifier) EngineName() string {
	if rc.engine == nil {
		return "none"
	}
	return rc.engine.Name()
}

// Predict computes the positive-class probability and its tier. Failures are
// returned as inference errors and are not retried.
func (rc *RiskClassifier) Predict(ctx context.Context, v schema.FeatureVector) (Prediction, error) {
	start := time.Now()

	proba, err := rc.classifier.PredictProba(v.Values())
	if err != nil {
		return Prediction{}, apperrors.NewInferenceError(rc.classifier.Kind(), err)
	}
	if len(proba) <= attribution.PositiveClass {
		return Prediction{}, apperrors.NewInferenceError(rc.classifier.Kind(),
			fmt.Errorf("classifier returned %d class probabilities", len(proba)))
	}

	p := proba[attribution.PositiveClass]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Prediction{}, apperrors.NewInferenceError(rc.classifier.Kind(),
			fmt.Errorf("probability %v outside [0, 1]", p))
	}

	pred := NewPrediction(p)
	if rc.metrics != nil {
		rc.metrics.RecordPrediction(string(pred.Tier), p)
	}
	rc.logger.Debug("Prediction computed",
		"model", rc.classifier.Kind(),
		"probability", p,
		"risk_tier", pred.Tier,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pred, nil
}

// Explain computes the canonical attribution for v. Length mismatches are
// repaired and flagged in the result, never raised.
func (rc *RiskClassifier) Explain(ctx context.Context, v schema.FeatureVector) (attribution.Canonical, error) {
	name := rc.EngineName()
	start := time.Now()

	raw, base, err := rc.attribute(v.Values())
	duration := time.Since(start)
	if rc.metrics != nil {
		rc.metrics.RecordAttribution(name, duration, err)
	}
	if err != nil {
		rc.logger.AttributionLogger(name, rc.schema.Len(), duration, err)
		return attribution.Canonical{}, apperrors.NewAttributionError(name, err)
	}

	c := attribution.Normalize(raw, base, rc.schema.Len())
	rc.logger.AttributionLogger(name, len(c.Values), duration, nil)
	if rec := c.Reconciliation; rec.Repaired() {
		rc.logger.ReconciliationLogger(name, rec.SourceLength, rec.TargetLength, rec.Truncated, rec.Padded, rec.ClassFallback)
		if rc.metrics != nil {
			rc.metrics.RecordReconciliation(rec.Truncated, rec.Padded, rec.ClassFallback)
		}
	}
	return c, nil
}

func (rc *RiskClassifier) attribute(row []float64) (raw attribution.RawAttribution, base attribution.RawBaseline, err error) {
	if rc.engine == nil {
		return raw, base, errNoEngine
	}
	apperrors.SafeExecute(func() {
		raw, base, err = rc.engine.Explain(row)
	}, func(r interface{}) {
		err = fmt.Errorf("attribution engine panicked: %v", r)
	})
	return raw, base, err
}

// Assess predicts, explains and renders. Only a prediction failure is fatal;
// an attribution failure leaves Explanation nil and adds a warning.
func (rc *RiskClassifier) Assess(ctx context.Context, v schema.FeatureVector) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}

	pred, err := rc.Predict(ctx, v)
	if err != nil {
		return Assessment{}, err
	}
	out := Assessment{Prediction: pred}

	c, err := rc.Explain(ctx, v)
	if err != nil {
		out.Warnings = append(out.Warnings, Warning{
			Code:    WarningAttributionUnavailable,
			Stage:   apperrors.StageAttribution,
			Message: err.Error(),
		})
		return out, nil
	}

	if rec := c.Reconciliation; rec.Repaired() {
		out.Warnings = append(out.Warnings, Warning{
			Code:  WarningAttributionReconciled,
			Stage: apperrors.StageAttribution,
			Message: reconciliationMessage(rec),
		})
	}

	features := rc.schema.Names()
	res := rc.renderer.Render(features, c, v.Values())

	space := rc.engine.Space()
	output := pred.Probability
	if space == attribution.SpaceLogOdds {
		output = model.Logit(pred.Probability)
	}

	out.Explanation = &Explanation{
		Features:      features,
		Attribution:   c,
		Space:         space,
		ModelOutput:   output,
		AdditivityGap: output - c.Output(),
		Force:         res.Force,
		Waterfall:     res.Waterfall,
		Contributions: res.Table,
	}
	return out, nil
}

// AssessValues builds the feature vector from named values, then assesses it.
func (rc *RiskClassifier) AssessValues(ctx context.Context, values map[string]float64) (Assessment, error) {
	v, err := schema.NewFeatureVector(rc.schema, values)
	if err != nil {
		return Assessment{}, err
	}
	return rc.Assess(ctx, v)
}

func reconciliationMessage(rec attribution.Reconciliation) string {
	var parts []string
	switch {
	case rec.Truncated:
		parts = append(parts, fmt.Sprintf("attribution had %d values for %d features and was truncated", rec.SourceLength, rec.TargetLength))
	case rec.Padded:
		parts = append(parts, fmt.Sprintf("attribution had %d values for %d features and was zero-padded", rec.SourceLength, rec.TargetLength))
	}
	if rec.ClassFallback {
		parts = append(parts, "positive class missing from per-class output, last reported class explained instead")
	}
	return strings.Join(parts, "; ")
}
