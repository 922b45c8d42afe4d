package monitoring

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Logger provides enhanced structured logging with context
type Logger struct {
	*slog.Logger
}

// NewLoggerWithOptions creates a logger writing to w. JSON output uses RFC3339
// timestamps; text output is meant for the CLI.
func NewLoggerWithOptions(w io.Writer, level slog.Level, json bool) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && json {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if json {
		opts.AddSource = true
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// FromSlog wraps an existing slog logger; nil means slog.Default().
func FromSlog(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{Logger: l}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(requestID, method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// PredictionLogger logs a completed prediction
func (l *Logger) PredictionLogger(model string, probability float64, tier string, duration time.Duration, cacheHit bool) {
	l.Info("Prediction Completed",
		"model", model,
		"probability", probability,
		"risk_tier", tier,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// AttributionLogger logs the outcome of an attribution computation
func (l *Logger) AttributionLogger(engine string, features int, duration time.Duration, err error) {
	if err != nil {
		l.Warn("Attribution Unavailable",
			"engine", engine,
			"error", err.Error(),
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	l.Debug("Attribution Completed",
		"engine", engine,
		"features", features,
		"duration_ms", duration.Milliseconds(),
	)
}

// ReconciliationLogger flags an attribution that had to be repaired to fit the
// schema. It means the explainer and the feature schema have drifted apart.
func (l *Logger) ReconciliationLogger(engine string, sourceLength, targetLength int, truncated, padded, classFallback bool) {
	l.Warn("Attribution Reconciled",
		"engine", engine,
		"source_length", sourceLength,
		"target_length", targetLength,
		"truncated", truncated,
		"padded", padded,
		"class_fallback", classFallback,
	)
}

// RenderFallbackLogger logs a rendering method failure before falling through
func (l *Logger) RenderFallbackLogger(artifact, method string, err error) {
	l.Log(context.Background(), slog.LevelDebug, "Render Method Failed",
		"artifact", artifact,
		"method", method,
		"error", err.Error(),
	)
}

// ObserveRender lets the logger watch render chains.
func (l *Logger) ObserveRender(kind, method string, err error) {
	if err != nil {
		l.RenderFallbackLogger(kind, method, err)
	}
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool) {
	if len(key) > 8 {
		key = key[:8] + "..."
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"key_hash", key,
		"hit", hit,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// SecurityLogger logs security-related events
func (l *Logger) SecurityLogger(event, ip, userAgent string, details map[string]interface{}) {
	attrs := []any{
		"event", event,
		"ip", ip,
		"user_agent", userAgent,
	}

	for key, value := range details {
		attrs = append(attrs, key, value)
	}

	l.Warn("Security Event", attrs...)
}

var startTime = time.Now()
