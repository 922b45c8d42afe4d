package main

import (
	"context"
	"errors"
	"time"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/artifacts"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/config"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/middleware"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/render"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/resilience"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/security"
)

// Services tracked by the degradation manager besides the render methods,
// which register themselves.
const (
	serviceInference   = "inference"
	serviceAttribution = "attribution"
	serviceRedis       = "cache.redis"
)

const assessmentKeyPrefix = "sepsis:assessment:"

// server holds the process-lifetime dependencies shared by every request.
type server struct {
	cfg         *config.Config
	classifier  *analysis.RiskClassifier
	cache       *cache.Assessments
	memory      *cache.Cache
	redis       *cache.RedisClient
	limiter     *ratelimit.RateLimiter
	security    *security.SecurityMiddleware
	compression *middleware.CompressionMiddleware
	degradation *resilience.DegradationManager
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
}

// newServer loads the artifacts and wires every component. Redis being
// unreachable is not fatal; missing or inconsistent artifacts are.
func newServer(cfg *config.Config, logger *monitoring.Logger) (*server, error) {
	metrics := monitoring.NewMetrics()
	degradation := resilience.NewDegradationManager(resilience.DefaultDegradationConfig())

	store := artifacts.NewStore(cfg.ArtifactsDir)
	if cfg.BootstrapDemo && !store.HasModel() {
		logger.SystemLogger("bootstrap", "writing demo artifacts to "+store.Dir())
		if err := store.Bootstrap(schema.Default(), cfg.Output()); err != nil {
			return nil, apperrors.NewConfigurationError("failed to bootstrap demo artifacts", err)
		}
	}

	bundle, err := store.Load()
	if err != nil {
		return nil, err
	}
	if bundle.EngineErr != nil {
		logger.Warn("Attribution engine unavailable, predictions will carry a warning", "error", bundle.EngineErr)
	}

	renderer, err := render.NewRenderer(
		render.WithTerminalPlotter(render.NewTerminalPlotter()),
		render.WithObserver(metrics, logger, degradation),
		render.WithLogger(logger.Logger),
	)
	if err != nil {
		return nil, err
	}

	classifier, err := analysis.NewRiskClassifier(bundle.Schema, bundle.Classifier, bundle.Engine, renderer,
		analysis.WithLogger(logger),
		analysis.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Continuing without Redis", "error", err)
	}

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = cfg.AllowedOrigins
	securityConfig.RequestTimeout = cfg.RequestTimeout

	s := &server{
		cfg:         cfg,
		classifier:  classifier,
		redis:       redisClient,
		degradation: degradation,
		metrics:     metrics,
		logger:      logger,
		security:    security.NewSecurityMiddleware(securityConfig),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		limiter: ratelimit.NewRateLimiter(redisClient.Client(), ratelimit.Config{
			IPLimitPerMin:   cfg.RateLimit.PerMinute,
			BurstMultiplier: cfg.RateLimit.BurstMultiplier,
		}, metrics),
	}

	if redisClient.IsEnabled() {
		s.cache = cache.NewAssessments(cache.NewRedisCache(redisClient, cfg.Cache.TTL, assessmentKeyPrefix), logger, metrics)
		degradation.RegisterService(serviceRedis, false, redisClient.HealthCheck)
	} else {
		s.memory = cache.NewCache(cfg.Cache.TTL, cfg.Cache.MaxItems)
		s.cache = cache.NewAssessments(s.memory, logger, metrics)
	}

	degradation.RegisterService(serviceInference, true, s.checkInference)
	degradation.RegisterService(serviceAttribution, false, nil)
	for _, chain := range renderer.Chains() {
		for _, method := range chain.Methods() {
			degradation.RegisterService("render."+chain.Kind()+"."+method, false, nil)
		}
	}

	return s, nil
}

// checkInference scores the documented defaults, which must always succeed.
func (s *server) checkInference(ctx context.Context) error {
	v, err := schema.NewFeatureVector(s.classifier.Schema(), s.classifier.Schema().Defaults())
	if err != nil {
		return err
	}
	_, err = s.classifier.Predict(ctx, v)
	return err
}

// recordOutcome feeds a fresh assessment into the degradation manager.
// Schema errors are the caller's fault and do not count against inference.
func (s *server) recordOutcome(out analysis.Assessment, err error) {
	if err != nil {
		if apperrors.IsCategory(err, apperrors.CategoryInference) {
			s.degradation.RecordError(serviceInference, err)
		}
		return
	}
	s.degradation.RecordRequest(serviceInference, true)

	if out.Explanation == nil {
		for _, w := range out.Warnings {
			if w.Code == analysis.WarningAttributionUnavailable {
				s.degradation.RecordError(serviceAttribution, errors.New(w.Message))
			}
		}
		return
	}
	s.degradation.RecordRequest(serviceAttribution, true)
}

func (s *server) cacheStats() map[string]interface{} {
	if s.memory != nil {
		return s.memory.Stats()
	}
	stats := s.redis.PoolStats()
	stats["backend"] = s.cache.Backend()
	return stats
}

func (s *server) uptime() string {
	return s.metrics.Uptime().Round(time.Second).String()
}

// Close releases background goroutines and connections
func (s *server) Close() {
	s.limiter.Close()
	if s.memory != nil {
		s.memory.Close()
	}
	apperrors.SafeClose(s.redis, "redis")
	s.degradation.GracefulShutdown()
}
