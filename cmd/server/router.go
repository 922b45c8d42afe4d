package main

import (
	"net/http/pprof"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/sepsis-risk-o-meter/docs"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/monitoring"
)

// routes builds the gin engine. Monitoring runs first so every request is
// counted, then error handling, then the security middleware.
func (s *server) routes() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.security.Config().TrustedProxies); err != nil {
		s.logger.Warn("Invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger, s.security.Config().MaxBodyBytes))
	r.Use(s.compression.Handler())

	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	if origins := s.cfg.AllowedOrigins; len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", monitoring.RequestIDHeader},
			ExposeHeaders: []string{monitoring.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.Use(s.security.SecurityHeaders)
	r.Use(s.security.RequestTimeout)

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(s.limiter.IPRateLimitMiddleware())
	{
		api.GET("/schema", s.handleSchema)
		api.POST("/predict",
			s.security.ValidateContentType,
			s.security.LimitBody,
			s.security.ValidatePredictRequest,
			s.handlePredict,
		)
	}

	if s.cfg.EnableProfiling {
		s.logger.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*filepath", handlePprof)
	}

	return r
}

// handlePprof serves every pprof endpoint from one wildcard route, since gin
// cannot mix static children with a catch-all under the same prefix.
func handlePprof(c *gin.Context) {
	switch c.Param("filepath") {
	case "/cmdline":
		pprof.Cmdline(c.Writer, c.Request)
	case "/profile":
		pprof.Profile(c.Writer, c.Request)
	case "/symbol":
		pprof.Symbol(c.Writer, c.Request)
	case "/trace":
		pprof.Trace(c.Writer, c.Request)
	default:
		pprof.Index(c.Writer, c.Request)
	}
}
