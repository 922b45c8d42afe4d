package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sepsis_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sepsis_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"route"})

	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sepsis_predictions_total",
		Help: "Predictions by risk tier",
	}, []string{"tier"})

	predictionProbability = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sepsis_prediction_probability",
		Help:    "Distribution of predicted probabilities",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
	})

	attributionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sepsis_attribution_duration_seconds",
		Help:    "Attribution computation time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	}, []string{"engine"})

	attributionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sepsis_attribution_failures_total",
		Help: "Attribution computations that failed",
	}, []string{"engine"})

	reconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sepsis_attribution_reconciliations_total",
		Help: "Attributions whose length was repaired to fit the schema",
	}, []string{"repair"})

	renderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sepsis_render_attempts_total",
		Help: "Render method attempts by artifact, method and result",
	}, []string{"artifact", "method", "result"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sepsis_cache_lookups_total",
		Help: "Assessment cache lookups by backend and result",
	}, []string{"backend", "result"})

	rateLimitBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sepsis_rate_limit_blocks_total",
		Help: "Requests rejected by the per-IP rate limiter",
	})
)

// Metrics records service metrics into the default Prometheus registry.
type Metrics struct {
	StartTime time.Time
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RecordRequest records one served HTTP request
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordPrediction records a prediction and its tier
func (m *Metrics) RecordPrediction(tier string, probability float64) {
	predictionsTotal.WithLabelValues(tier).Inc()
	predictionProbability.Observe(probability)
}

// RecordAttribution records an attribution computation
func (m *Metrics) RecordAttribution(engine string, duration time.Duration, err error) {
	if err != nil {
		attributionFailures.WithLabelValues(engine).Inc()
		return
	}
	attributionDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordReconciliation counts each repair applied to an attribution
func (m *Metrics) RecordReconciliation(truncated, padded, classFallback bool) {
	switch {
	case truncated:
		reconciliationsTotal.WithLabelValues("truncated").Inc()
	case padded:
		reconciliationsTotal.WithLabelValues("padded").Inc()
	}
	if classFallback {
		reconciliationsTotal.WithLabelValues("class_fallback").Inc()
	}
}

// ObserveRender counts render chain attempts
func (m *Metrics) ObserveRender(kind, method string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	renderAttempts.WithLabelValues(kind, method, result).Inc()
}

// RecordCacheLookup counts an assessment cache hit or miss
func (m *Metrics) RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(backend, result).Inc()
}

// IncrementRateLimitBlock counts a rejected request
func (m *Metrics) IncrementRateLimitBlock() {
	rateLimitBlocks.Inc()
}

// Uptime returns time since the metrics were created
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.StartTime)
}
