package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
)

// Assessments caches assessments by feature vector. Prediction and attribution
// are pure functions of the vector, so a hit is indistinguishable from a fresh
// computation.
type Assessments struct {
	store   Store
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
}

func NewAssessments(store Store, logger *monitoring.Logger, metrics *monitoring.Metrics) *Assessments {
	if logger == nil {
		logger = monitoring.FromSlog(nil)
	}
	return &Assessments{store: store, logger: logger, metrics: metrics}
}

func (a *Assessments) Backend() string { return a.store.Name() }

// Key hashes the schema-ordered names and values, so a reordered or renamed
// schema never hits entries written under another one.
func Key(v schema.FeatureVector) string {
	h := md5.New()
	names := v.Schema().Names()
	for i, x := range v.Values() {
		h.Write([]byte(names[i]))
		h.Write([]byte{'='})
		h.Write([]byte(strconv.FormatFloat(x, 'g', -1, 64)))
		h.Write([]byte{';'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (a *Assessments) Get(ctx context.Context, v schema.FeatureVector) (analysis.Assessment, bool) {
	key := Key(v)

	if data, ok := a.store.Get(ctx, key); ok {
		var out analysis.Assessment
		err := json.Unmarshal(data, &out)
		if err == nil {
			a.record(key, true)
			return out, true
		}
		a.logger.Warn("Dropping undecodable cache entry", "error", err)
	}

	a.record(key, false)
	return analysis.Assessment{}, false
}

// Put stores out unless its attribution failed; that failure may be transient.
func (a *Assessments) Put(ctx context.Context, v schema.FeatureVector, out analysis.Assessment) {
	if out.Explanation == nil {
		return
	}

	data, err := json.Marshal(out)
	if err != nil {
		a.logger.Warn("Assessment not cacheable", "error", err)
		return
	}
	a.store.Set(ctx, Key(v), data)
}

func (a *Assessments) record(key string, hit bool) {
	a.logger.CacheLogger("get", key, hit)
	if a.metrics != nil {
		a.metrics.RecordCacheLookup(a.store.Name(), hit)
	}
}
