package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFallbackLimiter(t *testing.T, perMin int) *RateLimiter {
	t.Helper()
	config := DefaultConfig()
	config.IPLimitPerMin = perMin
	rl := NewRateLimiter(nil, config, nil)
	t.Cleanup(rl.Close)
	return rl
}

func TestRateLimiterFallbackMode(t *testing.T) {
	rl := newFallbackLimiter(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := rl.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 4-i, result.Remaining)
	}

	result, err := rl.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed, "6th request should be blocked")
	assert.Equal(t, 12*time.Second, result.RetryAfter)
}

func TestRateLimiterMultipleKeys(t *testing.T) {
	rl := newFallbackLimiter(t, 3)
	ctx := context.Background()

	for _, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		for i := 0; i < 3; i++ {
			result, err := rl.AllowIP(ctx, ip)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "%s request %d should be allowed", ip, i+1)
		}

		result, err := rl.AllowIP(ctx, ip)
		require.NoError(t, err)
		assert.False(t, result.Allowed, "%s 4th request should be blocked", ip)
	}

	assert.Equal(t, 3, rl.Stats()["fallback_limiters"])
	assert.Equal(t, false, rl.Stats()["redis_enabled"])
}

func TestRateLimiterBurstMultiplier(t *testing.T) {
	config := DefaultConfig()
	config.BurstMultiplier = 2
	rl := NewRateLimiter(nil, config, nil)
	defer rl.Close()

	allowed := 0
	for i := 0; i < 15; i++ {
		result, err := rl.Allow(context.Background(), "k", 5, time.Hour)
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)
}

func TestRateLimiterRejectsBadInput(t *testing.T) {
	rl := newFallbackLimiter(t, 5)

	_, err := rl.Allow(context.Background(), "k", 0, time.Minute)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rl.AllowIP(ctx, "10.0.0.1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := newFallbackLimiter(t, 5)
	_, err := rl.AllowIP(context.Background(), "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, 0, rl.evictIdle(time.Now()))
	assert.Equal(t, 1, rl.evictIdle(time.Now().Add(time.Hour)))
	assert.Equal(t, 0, rl.Stats()["fallback_limiters"])
}

func TestRateLimiterConcurrency(t *testing.T) {
	rl := newFallbackLimiter(t, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := rl.AllowIP(context.Background(), "10.0.0.9")
			if err == nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, allowed, 50)
	assert.LessOrEqual(t, allowed, 51)
}

func TestIPRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := newFallbackLimiter(t, 2)

	r := gin.New()
	r.Use(rl.IPRateLimitMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		last = w
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "30", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "rate_limit")
}
