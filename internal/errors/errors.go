package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategorySchema        ErrorCategory = "schema"
	CategoryValidation    ErrorCategory = "validation"
	CategoryInference     ErrorCategory = "inference"
	CategoryAttribution   ErrorCategory = "attribution"
	CategoryRender        ErrorCategory = "render"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryInternal      ErrorCategory = "internal"
	CategoryConfiguration ErrorCategory = "configuration"
)

// Pipeline stages reported on errors so callers can tell where a request failed.
const (
	StageSchema      = "schema"
	StageInference   = "inference"
	StageAttribution = "attribution"
	StageRender      = "render"
	StageArtifacts   = "artifacts"
)

// AppError wraps errbuilder error with additional context
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	Stage      string        `json:"stage,omitempty"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
	RequestID  string        `json:"request_id,omitempty"`
	StackTrace string        `json:"stack_trace,omitempty"`
}

// Code is the stable machine-readable code for the category
func (e *AppError) Code() string {
	switch e.Category {
	case CategorySchema:
		return "SCHEMA_ERROR"
	case CategoryValidation:
		return "VALIDATION_ERROR"
	case CategoryInference:
		return "INFERENCE_ERROR"
	case CategoryAttribution:
		return "ATTRIBUTION_ERROR"
	case CategoryRender:
		return "RENDER_FALLBACK_EXHAUSTED"
	case CategoryRateLimit:
		return "RATE_LIMIT_EXCEEDED"
	case CategoryInternal:
		return "INTERNAL_ERROR"
	case CategoryConfiguration:
		return "CONFIGURATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if cause := e.ErrBuilder.Unwrap(); cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code(), e.ErrBuilder.Msg, cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code(), e.ErrBuilder.Msg)
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Stage     string            `json:"stage,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// MarshalJSON writes the response body. The stack trace and the wrapped
// cause stay in the logs.
func (e *AppError) MarshalJSON() ([]byte, error) {
	body := errorBody{
		Error:     e.ErrBuilder.Msg,
		Code:      e.Code(),
		Category:  e.Category,
		Stage:     e.Stage,
		RequestID: e.RequestID,
		Timestamp: e.Timestamp,
	}
	if errs := e.ErrBuilder.Details.Errors; len(errs) > 0 {
		body.Details = make(map[string]string, len(errs))
		for field, detail := range errs {
			body.Details[fmt.Sprint(field)] = fmt.Sprint(detail)
		}
	}
	return json.Marshal(body)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewSchemaError reports a feature vector that is missing required names or
// carries names the schema does not know. Both lists are reported sorted.
func NewSchemaError(missing, unexpected []string) *AppError {
	missing = sortedCopy(missing)
	unexpected = sortedCopy(unexpected)

	errorMap := errbuilder.ErrorMap{}
	if len(missing) > 0 {
		errorMap.Set("missing", errors.New(strings.Join(missing, ",")))
	}
	if len(unexpected) > 0 {
		errorMap.Set("unexpected", errors.New(strings.Join(unexpected, ",")))
	}

	msg := "feature vector does not match schema"
	switch {
	case len(missing) > 0 && len(unexpected) > 0:
		msg = fmt.Sprintf("feature vector does not match schema: missing %v, unexpected %v", missing, unexpected)
	case len(missing) > 0:
		msg = fmt.Sprintf("feature vector does not match schema: missing %v", missing)
	case len(unexpected) > 0:
		msg = fmt.Sprintf("feature vector does not match schema: unexpected %v", unexpected)
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(msg).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	appErr := NewAppError(builder, CategorySchema, http.StatusBadRequest)
	appErr.Stage = StageSchema
	return appErr
}

// NewValidationError creates a validation error using errbuilder
func NewValidationError(message string, details ...interface{}) *AppError {
	detailStr := ""
	if len(details) > 0 {
		detailStr = fmt.Sprintf("%v", details[0])
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if detailStr != "" {
		errorMap := errbuilder.ErrorMap{}
		errorMap.Set("validation_details", errors.New(detailStr))
		builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewValidationErrorWithMap creates a validation error using ErrorMap for multiple validation issues
func NewValidationErrorWithMap(validationErrors map[string]string) *AppError {
	errMap := errbuilder.ErrorMap{}

	for field, message := range validationErrors {
		errMap.Set(field, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(message))
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("%d feature values out of range", len(validationErrors))).
		WithDetails(errbuilder.NewErrDetails(errMap))

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewInferenceError reports that the classifier rejected a structurally valid vector.
func NewInferenceError(model string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("model", errors.New(model))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("classifier rejected feature vector").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInference, http.StatusInternalServerError)
	appErr.Stage = StageInference
	return appErr
}

// NewAttributionError reports that the attribution engine failed entirely.
// The prediction for the same request remains valid.
func NewAttributionError(engine string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("engine", errors.New(engine))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg("attribution computation failed").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryAttribution, http.StatusServiceUnavailable)
	appErr.Stage = StageAttribution
	return appErr
}

// NewRenderFallbackExhausted signals a render chain without a dependency-free
// final tier. Reaching it means the chain was assembled incorrectly.
func NewRenderFallbackExhausted(artifact string, attempted []string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("artifact", errors.New(artifact))
	errorMap.Set("attempted", errors.New(strings.Join(attempted, ",")))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("no rendering method succeeded for %s", artifact)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	appErr := NewAppError(builder, CategoryRender, http.StatusInternalServerError)
	appErr.Stage = StageRender
	return appErr
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("retry_after", errors.New(retryAfter))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	// Capture stack trace in development/debug mode
	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewConfigurationError creates a configuration error using errbuilder
func NewConfigurationError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("config_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
	appErr.Stage = StageArtifacts
	return appErr
}

// captureStackTrace captures a stack trace for debugging
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// ErrorHandler is a Gin middleware that provides centralized error handling
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			appErr := ToAppError(c.Errors.Last().Err)
			appErr.RequestID = c.GetString("request_id")

			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()
		appErr.RequestID = c.GetString("request_id")

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		builder := errbuilder.New().
			WithCode(errbuilder.CodeDeadlineExceeded).
			WithMsg("Request cancelled").
			WithCause(err)
		return NewAppError(builder, CategoryInternal, http.StatusGatewayTimeout)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// IsCategory reports whether err is an AppError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == category
	}
	return false
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"stage", err.Stage,
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString("request_id"),
	)
	logAppError(logEntry, err)
}

// Log logs an AppError outside of a request context, e.g. from the CLI.
func Log(logger *slog.Logger, err *AppError) {
	if logger == nil {
		logger = slog.Default()
	}
	logAppError(logger.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"stage", err.Stage,
	), err)
}

func logAppError(logEntry *slog.Logger, err *AppError) {
	errorMsg := err.ErrBuilder.Msg
	errorDetails := err.ErrBuilder.Details

	switch err.Category {
	case CategorySchema, CategoryValidation, CategoryRateLimit:
		if len(errorDetails.Errors) > 0 {
			logEntry.Warn(errorMsg, "details", errorDetails.Errors)
		} else {
			logEntry.Warn(errorMsg)
		}
	case CategoryAttribution:
		// attribution failures degrade the response rather than fail it
		logEntry.Warn(errorMsg, "cause", err.ErrBuilder.Unwrap())
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(errorMsg, "cause", cause)
		} else {
			logEntry.Error(errorMsg)
		}
	}

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	contextMsg := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", contextMsg, err)
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}

// SafeExecute executes a function and recovers from panics
func SafeExecute(fn func(), panicHandler func(interface{})) {
	defer func() {
		if r := recover(); r != nil {
			if panicHandler != nil {
				panicHandler(r)
			} else {
				slog.Error("Panic in safe execution", "panic", r)
			}
		}
	}()

	fn()
}
