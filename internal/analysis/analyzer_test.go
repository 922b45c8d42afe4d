package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/artifacts"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/model"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/render"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
)

type stubEngine struct {
	raw  attribution.RawAttribution
	base attribution.RawBaseline
	err  error
}

func (e stubEngine) Explain([]float64) (attribution.RawAttribution, attribution.RawBaseline, error) {
	return e.raw, e.base, e.err
}
func (e stubEngine) Space() attribution.Space { return attribution.SpaceProbability }
func (e stubEngine) Name() string             { return "stub" }

type panicEngine struct{ stubEngine }

func (panicEngine) Explain([]float64) (attribution.RawAttribution, attribution.RawBaseline, error) {
	panic("boom")
}

func demoForest(t testing.TB) *model.Forest {
	t.Helper()
	a, err := artifacts.DemoModel(schema.Default())
	require.NoError(t, err)
	clf, err := model.FromArtifact(*a)
	require.NoError(t, err)
	return clf.(*model.Forest)
}

func newClassifier(t testing.TB, engine attribution.Engine) *RiskClassifier {
	t.Helper()
	r, err := render.NewRenderer(render.WithTerminalPlotter(render.NewTerminalPlotter()))
	require.NoError(t, err)
	rc, err := NewRiskClassifier(schema.Default(), demoForest(t), engine, r)
	require.NoError(t, err)
	return rc
}

func treeEngine(t testing.TB) attribution.Engine {
	t.Helper()
	e, err := attribution.NewTreeExplainer(demoForest(t), attribution.OutputPerClass)
	require.NoError(t, err)
	return e
}

func highRiskValues() map[string]float64 {
	in := schema.Default().Defaults()
	in["SOFA"] = 12
	in["MV"] = 1
	in["NBPS"] = 85
	in["NOR"] = 1
	in["BUN"] = 60
	in["CRRT"] = 1
	in["OASIS"] = 45
	in["T"] = 39
	in["WBC"] = 15
	in["RR"] = 30
	in["BS"] = 200
	return in
}

func TestAssessDefaults(t *testing.T) {
	rc := newClassifier(t, treeEngine(t))

	out, err := rc.AssessValues(context.Background(), schema.Default().Defaults())
	require.NoError(t, err)

	assert.InDelta(t, 0.9/7, out.Prediction.Probability, 1e-9)
	assert.Equal(t, TierLow, out.Prediction.Tier)
	assert.Empty(t, out.Warnings)

	require.NotNil(t, out.Explanation)
	e := out.Explanation
	assert.Len(t, e.Attribution.Values, 20)
	assert.Len(t, e.Contributions, 20)
	assert.Equal(t, attribution.SpaceProbability, e.Space)
	assert.InDelta(t, 0, e.AdditivityGap, 1e-9)
	assert.InDelta(t, out.Prediction.Probability-e.Attribution.Baseline, e.Attribution.Sum(), 1e-9)

	require.NotNil(t, e.Force)
	require.NotNil(t, e.Waterfall)
	assert.Equal(t, render.MethodNativeForce, e.Force.Method)
	assert.False(t, e.Force.Fallback)
}

func TestAssessHighRisk(t *testing.T) {
	rc := newClassifier(t, treeEngine(t))

	out, err := rc.AssessValues(context.Background(), highRiskValues())
	require.NoError(t, err)

	assert.Equal(t, TierHigh, out.Prediction.Tier)
	assert.Equal(t, "High Risk", out.Prediction.Label)
	require.NotNil(t, out.Explanation)

	// the strongest contributor leads the table
	top := out.Explanation.Contributions[0]
	for _, c := range out.Explanation.Contributions[1:] {
		assert.GreaterOrEqual(t, abs(top.Attribution), abs(c.Attribution))
	}
}

func TestAssessIsIdempotent(t *testing.T) {
	rc := newClassifier(t, treeEngine(t))
	ctx := context.Background()

	first, err := rc.AssessValues(ctx, highRiskValues())
	require.NoError(t, err)
	second, err := rc.AssessValues(ctx, highRiskValues())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssessWithoutEngine(t *testing.T) {
	rc := newClassifier(t, nil)
	assert.Equal(t, "none", rc.EngineName())

	out, err := rc.AssessValues(context.Background(), schema.Default().Defaults())
	require.NoError(t, err)

	assert.InDelta(t, 0.9/7, out.Prediction.Probability, 1e-9)
	assert.Nil(t, out.Explanation)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, WarningAttributionUnavailable, out.Warnings[0].Code)
	assert.Equal(t, apperrors.StageAttribution, out.Warnings[0].Stage)
}

func TestAssessAttributionFailureKeepsPrediction(t *testing.T) {
	tests := []struct {
		name   string
		engine attribution.Engine
	}{
		{name: "engine error", engine: stubEngine{err: errors.New("explainer exploded")}},
		{name: "engine panic", engine: panicEngine{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := newClassifier(t, tt.engine)

			out, err := rc.AssessValues(context.Background(), highRiskValues())
			require.NoError(t, err)
			assert.Equal(t, TierHigh, out.Prediction.Tier)
			assert.Nil(t, out.Explanation)
			require.Len(t, out.Warnings, 1)
			assert.Equal(t, WarningAttributionUnavailable, out.Warnings[0].Code)
		})
	}
}

func TestExplainReturnsAttributionError(t *testing.T) {
	rc := newClassifier(t, stubEngine{err: errors.New("nope")})
	v, err := schema.NewFeatureVector(rc.Schema(), schema.Default().Defaults())
	require.NoError(t, err)

	_, err = rc.Explain(context.Background(), v)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryAttribution))
}

func TestAssessFlagsReconciledAttribution(t *testing.T) {
	short := make([]float64, 18)
	short[0] = 0.05
	rc := newClassifier(t, stubEngine{
		raw:  attribution.Sequence(short),
		base: attribution.Scalar(0.1),
	})

	out, err := rc.AssessValues(context.Background(), schema.Default().Defaults())
	require.NoError(t, err)

	require.NotNil(t, out.Explanation)
	assert.Len(t, out.Explanation.Attribution.Values, 20)
	assert.True(t, out.Explanation.Attribution.Reconciliation.Padded)
	assert.Len(t, out.Explanation.Contributions, 20)

	require.Len(t, out.Warnings, 1)
	assert.Equal(t, WarningAttributionReconciled, out.Warnings[0].Code)
	assert.Contains(t, out.Warnings[0].Message, "18 values for 20 features")
}

func TestAssessFlagsMissingPositiveClass(t *testing.T) {
	only := make([]float64, 20)
	only[0] = -0.3
	rc := newClassifier(t, stubEngine{
		raw:  attribution.PerClass(attribution.Sequence(only)),
		base: attribution.Sequence([]float64{0.7}),
	})

	out, err := rc.AssessValues(context.Background(), schema.Default().Defaults())
	require.NoError(t, err)

	require.NotNil(t, out.Explanation)
	rec := out.Explanation.Attribution.Reconciliation
	assert.True(t, rec.ClassFallback)
	assert.False(t, rec.Padded)
	assert.InDelta(t, 0.7, out.Explanation.Attribution.Baseline, 1e-12)

	require.Len(t, out.Warnings, 1)
	assert.Equal(t, WarningAttributionReconciled, out.Warnings[0].Code)
	assert.Contains(t, out.Warnings[0].Message, "positive class missing")
	assert.NotContains(t, out.Warnings[0].Message, "values for")
}

func TestAssessSchemaMismatch(t *testing.T) {
	rc := newClassifier(t, treeEngine(t))
	in := schema.Default().Defaults()
	delete(in, "GCS")
	in["AGE"] = 70

	_, err := rc.AssessValues(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategorySchema))
	assert.Contains(t, err.Error(), "missing [GCS]")
	assert.Contains(t, err.Error(), "unexpected [AGE]")
}

func TestPredictInferenceError(t *testing.T) {
	s, err := schema.New([]string{"A", "B"}, "Y")
	require.NoError(t, err)
	r, err := render.NewRenderer()
	require.NoError(t, err)

	// a 20-feature forest cannot score a 2-feature row
	rc, err := NewRiskClassifier(s, demoForest(t), nil, r)
	require.NoError(t, err)
	v, err := schema.NewFeatureVector(s, map[string]float64{"A": 1, "B": 2})
	require.NoError(t, err)

	_, err = rc.Predict(context.Background(), v)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryInference))
	assert.ErrorIs(t, err, model.ErrFeatureCount)
}

func TestAssessCancelledContext(t *testing.T) {
	rc := newClassifier(t, treeEngine(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rc.AssessValues(ctx, schema.Default().Defaults())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssessLinearModelInLogOdds(t *testing.T) {
	s := schema.Default()
	coef := make([]float64, s.Len())
	sofa, _ := s.Index("SOFA")
	gcs, _ := s.Index("GCS")
	coef[sofa] = 0.3
	coef[gcs] = -0.2
	lr, err := model.NewLogistic(coef, -1)
	require.NoError(t, err)

	mean := make([]float64, s.Len())
	mean[sofa] = 4
	mean[gcs] = 13
	engine, err := attribution.NewLinearExplainer(lr, mean, attribution.OutputSequence)
	require.NoError(t, err)

	r, err := render.NewRenderer()
	require.NoError(t, err)
	rc, err := NewRiskClassifier(s, lr, engine, r)
	require.NoError(t, err)

	out, err := rc.AssessValues(context.Background(), highRiskValues())
	require.NoError(t, err)
	require.NotNil(t, out.Explanation)
	assert.Equal(t, attribution.SpaceLogOdds, out.Explanation.Space)
	assert.InDelta(t, model.Logit(out.Prediction.Probability), out.Explanation.ModelOutput, 1e-12)
	assert.InDelta(t, 0, out.Explanation.AdditivityGap, 1e-9)
	assert.True(t, out.Explanation.Force.Fallback)
}

func TestNewRiskClassifierRequiresDependencies(t *testing.T) {
	_, err := NewRiskClassifier(nil, demoForest(t), nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
