package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/types"
)

// PredictRequestKey is the context key holding the validated predict request.
const PredictRequestKey = "predict_request"

var featureNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxFeatures    int           `json:"max_features"`
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	AllowedOrigins []string      `json:"allowed_origins"`
	TrustedProxies []string      `json:"trusted_proxies"`
	RequestTimeout time.Duration `json:"request_timeout"`
	EnableHSTS     bool          `json:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxFeatures:    64,
		MaxBodyBytes:   16 << 10,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8501"},
		TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout: 10 * time.Second,
	}
}

// SecurityMiddleware provides the request hardening middleware
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

func (sm *SecurityMiddleware) Config() SecurityConfig { return sm.config }

// ValidateFeatures checks the shape of a feature map before it reaches the
// schema: bounded size and well-formed names. Value ranges are not checked here.
func (sm *SecurityMiddleware) ValidateFeatures(features map[string]float64) error {
	if len(features) == 0 {
		return fmt.Errorf("features must not be empty")
	}
	if len(features) > sm.config.MaxFeatures {
		return fmt.Errorf("too many features: %d exceeds limit of %d", len(features), sm.config.MaxFeatures)
	}
	for name := range features {
		if !featureNamePattern.MatchString(name) {
			return fmt.Errorf("invalid feature name %q", name)
		}
	}
	return nil
}

// SecurityHeaders adds security headers to responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

	if sm.config.EnableHSTS || c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// ValidateContentType rejects request bodies that are not JSON
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if !strings.HasPrefix(contentType, "application/json") {
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "unsupported content type, expected application/json",
		})
		return
	}

	c.Next()
}

// LimitBody caps the request body size
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if c.Request.Body != nil && sm.config.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// ValidatePredictRequest binds and checks the predict body, storing it in the
// context for the handler.
func (sm *SecurityMiddleware) ValidatePredictRequest(c *gin.Context) {
	var req types.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := apperrors.NewValidationError("invalid JSON body", err.Error())
		appErr.RequestID = c.GetString("request_id")
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
		return
	}

	if err := sm.ValidateFeatures(req.Features); err != nil {
		appErr := apperrors.NewValidationError(err.Error())
		appErr.RequestID = c.GetString("request_id")
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Set(PredictRequestKey, req)
	c.Next()
}
