package analysis

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
)

// BenchmarkAssess benchmarks the full predict, explain and render pipeline
func BenchmarkAssess(b *testing.B) {
	rc := newClassifier(b, treeEngine(b))
	ctx := context.Background()
	in := highRiskValues()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := rc.AssessValues(ctx, in); err != nil {
			b.Fatalf("assessment failed: %v", err)
		}
	}
}

// BenchmarkPredict benchmarks prediction alone
func BenchmarkPredict(b *testing.B) {
	rc := newClassifier(b, nil)
	ctx := context.Background()
	v, err := schema.NewFeatureVector(rc.Schema(), highRiskValues())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := rc.Predict(ctx, v); err != nil {
			b.Fatalf("prediction failed: %v", err)
		}
	}
}
