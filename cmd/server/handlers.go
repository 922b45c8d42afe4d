package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/resilience"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/security"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/types"
)

// handleHealth reports the degradation state of every tracked service
// @Summary      Service health
// @Description  Degradation level of inference, attribution, each render method and the cache
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Failure      503  {object}  types.HealthResponse
// @Router       /health [get]
func (s *server) handleHealth(c *gin.Context) {
	status := s.degradation.Status()

	resp := types.HealthResponse{
		Status:      status,
		Timestamp:   time.Now().Format(time.RFC3339),
		Version:     version,
		Uptime:      s.uptime(),
		Services:    s.degradation.GetAllServiceHealth(),
		Cache:       s.cacheStats(),
		Compression: s.compression.GetStats(),
	}

	code := http.StatusOK
	if status == resilience.StatusUnavailable {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// handleSchema describes the feature vector the loaded model expects
// @Summary      Feature schema
// @Description  Ordered features with labels, units, form ranges and defaults
// @Tags         prediction
// @Produce      json
// @Success      200  {object}  types.SchemaResponse
// @Router       /api/v1/schema [get]
func (s *server) handleSchema(c *gin.Context) {
	sch := s.classifier.Schema()
	c.JSON(http.StatusOK, types.SchemaResponse{
		Features: sch.Specs(),
		Target:   sch.Target(),
		Defaults: sch.Defaults(),
		Model:    s.classifier.ModelKind(),
		Engine:   s.classifier.EngineName(),
	})
}

// handlePredict scores one feature vector and explains the score
// @Summary      Predict risk
// @Description  Probability, risk tier, per-feature attributions and chart data for one patient
// @Tags         prediction
// @Accept       json
// @Produce      json
// @Param        request  body      types.PredictRequest  true  "Feature values keyed by name"
// @Success      200      {object}  analysis.Assessment
// @Failure      400      {object}  map[string]interface{}
// @Failure      415      {object}  map[string]interface{}
// @Failure      429      {object}  map[string]interface{}
// @Failure      500      {object}  map[string]interface{}
// @Router       /api/v1/predict [post]
func (s *server) handlePredict(c *gin.Context) {
	req := c.MustGet(security.PredictRequestKey).(types.PredictRequest)
	ctx := c.Request.Context()
	start := time.Now()

	if s.cfg.EnforceRanges {
		if err := s.classifier.Schema().ValidateRanges(req.Features); err != nil {
			_ = c.Error(err)
			return
		}
	}

	v, err := schema.NewFeatureVector(s.classifier.Schema(), req.Features)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if out, ok := s.cache.Get(ctx, v); ok {
		s.logger.PredictionLogger(s.classifier.ModelKind(), out.Prediction.Probability, string(out.Prediction.Tier), time.Since(start), true)
		c.JSON(http.StatusOK, out)
		return
	}

	out, err := s.classifier.Assess(ctx, v)
	s.recordOutcome(out, err)
	if err != nil {
		_ = c.Error(apperrors.ToAppError(err))
		return
	}

	s.cache.Put(ctx, v, out)
	s.logger.PredictionLogger(s.classifier.ModelKind(), out.Prediction.Probability, string(out.Prediction.Tier), time.Since(start), false)
	c.JSON(http.StatusOK, out)
}
