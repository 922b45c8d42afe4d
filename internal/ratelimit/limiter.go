package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin   int           // requests per minute per client IP
	BurstMultiplier int           // in-memory burst as a multiple of the per-period limit
	IdleTimeout     time.Duration // in-memory buckets unused this long are dropped
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:   60,
		BurstMultiplier: 1,
		IdleTimeout:     10 * time.Minute,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests through Redis when a client is given, so limits
// hold across replicas, and through in-process token buckets otherwise or
// whenever Redis errors.
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	config       Config
	metrics      *monitoring.Metrics

	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.BurstMultiplier < 1 {
		config.BurstMultiplier = 1
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}

	rl := &RateLimiter{
		config:  config,
		metrics: metrics,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}

	if client != nil {
		rl.redisLimiter = redis_rate.NewLimiter(client)
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Info("Using in-memory rate limiting")
	}

	go rl.cleanup()

	return rl
}

// AllowIP checks the per-minute limit for a client IP
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, "ratelimit:ip:"+ip, rl.config.IPLimitPerMin, time.Minute)
}

// Allow checks key against limit requests per period.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	if limit <= 0 || period <= 0 {
		return nil, fmt.Errorf("invalid rate limit %d per %s", limit, period)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, limit, period)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
	}

	return rl.allowFallback(key, limit, period), nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit,
		Burst:  limit,
		Period: period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: max(res.RetryAfter, 0),
	}, nil
}

// allowFallback uses an in-memory token bucket refilled at limit per period
func (rl *RateLimiter) allowFallback(key string, limit int, period time.Duration) *Result {
	now := time.Now()
	every := period / time.Duration(limit)

	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), limit*rl.config.BurstMultiplier)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	remaining := max(int(b.limiter.TokensAt(now)), 0)

	result := &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(every * time.Duration(b.limiter.Burst()-remaining)),
	}
	if !allowed {
		result.RetryAfter = every
	}
	return result
}

// cleanup periodically drops idle in-memory buckets
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.IdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.config.IdleTimeout {
			delete(rl.buckets, key)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("Dropped idle rate limit buckets", "count", evicted)
	}
	return evicted
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// Stats returns rate limiter statistics
func (rl *RateLimiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	fallbackCount := len(rl.buckets)
	rl.mu.Unlock()

	return map[string]interface{}{
		"redis_enabled":     rl.redisLimiter != nil,
		"fallback_limiters": fallbackCount,
		"ip_limit_per_min":  rl.config.IPLimitPerMin,
	}
}
