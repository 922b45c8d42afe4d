package security

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/types"
)

func TestSecurityConfig(t *testing.T) {
	config := DefaultSecurityConfig()

	assert.Equal(t, 64, config.MaxFeatures)
	assert.Equal(t, int64(16<<10), config.MaxBodyBytes)
	assert.Contains(t, config.AllowedOrigins, "http://localhost:8501")
	assert.Equal(t, 10*time.Second, config.RequestTimeout)
	assert.False(t, config.EnableHSTS)
}

func TestValidateFeatures(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	many := map[string]float64{}
	for i := 0; i < 65; i++ {
		many["F"+strings.Repeat("X", i)] = 1
	}

	tests := []struct {
		name     string
		input    map[string]float64
		errorMsg string
	}{
		{name: "valid features", input: map[string]float64{"GCS": 15, "ANION_GAP": 12}},
		{name: "empty", input: map[string]float64{}, errorMsg: "must not be empty"},
		{name: "too many", input: many, errorMsg: "too many features"},
		{name: "leading digit", input: map[string]float64{"1GCS": 1}, errorMsg: "invalid feature name"},
		{name: "injection attempt", input: map[string]float64{"GCS'; DROP": 1}, errorMsg: "invalid feature name"},
		{name: "too long", input: map[string]float64{"A" + strings.Repeat("B", 64): 1}, errorMsg: "invalid feature name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidateFeatures(tt.input)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	r := gin.New()
	r.Use(sm.SecurityHeaders)
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	headers := w.Header()
	assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", headers.Get("Referrer-Policy"))
	assert.Equal(t, "no-store", headers.Get("Cache-Control"))
	assert.Contains(t, headers.Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, headers.Get("Strict-Transport-Security"))
}

func TestSecurityHeadersHSTS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config := DefaultSecurityConfig()
	config.EnableHSTS = true
	sm := NewSecurityMiddleware(config)

	r := gin.New()
	r.Use(sm.SecurityHeaders)
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestValidateContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	r := gin.New()
	r.Use(sm.ValidateContentType)
	r.POST("/test", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "success"}) })
	r.GET("/test", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "success"}) })

	tests := []struct {
		name           string
		method         string
		contentType    string
		expectedStatus int
	}{
		{name: "valid JSON", method: "POST", contentType: "application/json", expectedStatus: http.StatusOK},
		{name: "JSON with charset", method: "POST", contentType: "application/json; charset=utf-8", expectedStatus: http.StatusOK},
		{name: "form data", method: "POST", contentType: "application/x-www-form-urlencoded", expectedStatus: http.StatusUnsupportedMediaType},
		{name: "no content type", method: "POST", contentType: "", expectedStatus: http.StatusUnsupportedMediaType},
		{name: "GET ignores content type", method: "GET", contentType: "text/plain", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, "/test", bytes.NewBufferString("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestValidatePredictRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	r := gin.New()
	r.POST("/predict", sm.ValidatePredictRequest, func(c *gin.Context) {
		req := c.MustGet(PredictRequestKey).(types.PredictRequest)
		c.JSON(http.StatusOK, gin.H{"count": len(req.Features)})
	})

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{name: "valid request", body: `{"features":{"GCS":15,"SOFA":2}}`, expectedStatus: http.StatusOK, expectedBody: `"count":2`},
		{name: "missing features", body: `{}`, expectedStatus: http.StatusBadRequest, expectedBody: "invalid JSON body"},
		{name: "malformed JSON", body: `{"features":`, expectedStatus: http.StatusBadRequest, expectedBody: "invalid JSON body"},
		{name: "non-numeric value", body: `{"features":{"GCS":"fifteen"}}`, expectedStatus: http.StatusBadRequest, expectedBody: "invalid JSON body"},
		{name: "bad feature name", body: `{"features":{"<script>":1}}`, expectedStatus: http.StatusBadRequest, expectedBody: "invalid feature name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/predict", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config := DefaultSecurityConfig()
	config.MaxBodyBytes = 32
	sm := NewSecurityMiddleware(config)

	r := gin.New()
	r.Use(sm.LimitBody)
	r.POST("/predict", sm.ValidatePredictRequest, func(c *gin.Context) { c.Status(http.StatusOK) })

	body, err := json.Marshal(types.PredictRequest{Features: map[string]float64{
		"ANION_GAP": 12, "BALANCE": 0, "CHLORIDE": 105,
	}})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/predict", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config := DefaultSecurityConfig()
	config.RequestTimeout = 5 * time.Millisecond
	sm := NewSecurityMiddleware(config)

	var ctxErr error
	r := gin.New()
	r.Use(sm.RequestTimeout)
	r.GET("/test", func(c *gin.Context) {
		<-c.Request.Context().Done()
		ctxErr = c.Request.Context().Err()
		c.Status(http.StatusGatewayTimeout)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
	assert.Equal(t, "0", w.Header().Get("X-Timeout"))
}
