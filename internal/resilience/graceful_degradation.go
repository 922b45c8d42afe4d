package resilience

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

func (l DegradationLevel) MarshalJSON() ([]byte, error) { return json.Marshal(l.String()) }

func (l *DegradationLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for level := LevelNormal; level <= LevelEmergency; level++ {
		if level.String() == s {
			*l = level
			return nil
		}
	}
	return fmt.Errorf("unknown degradation level %q", s)
}

// Overall statuses reported by Status.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// DegradationConfig holds configuration for graceful degradation
type DegradationConfig struct {
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DegradedThreshold   float64       `json:"degraded_threshold"`
	CriticalThreshold   float64       `json:"critical_threshold"`
	EmergencyThreshold  float64       `json:"emergency_threshold"`
	Window              time.Duration `json:"window"`     // error rates are computed over this window
	MinRequests         int64         `json:"min_requests"` // below this many requests a window never degrades
	HealthCheckTimeout  time.Duration `json:"health_check_timeout"`
}

// DefaultDegradationConfig returns sensible defaults
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		Window:              5 * time.Minute,
		MinRequests:         5,
		HealthCheckTimeout:  5 * time.Second,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Critical      bool             `json:"critical"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime *time.Time       `json:"last_error_time,omitempty"`
	DegradedSince *time.Time       `json:"degraded_since,omitempty"`
	StatusMessage string           `json:"status_message"`

	windowStart time.Time
}

// HealthCheckFunc represents a function that checks service health
type HealthCheckFunc func(ctx context.Context) error

// DegradationManager tracks per-service error rates. It only observes: callers
// decide what to do with a degraded service. Services are registered up front;
// render methods register themselves on first observation.
type DegradationManager struct {
	config       DegradationConfig
	services     map[string]*ServiceHealth
	healthChecks map[string]HealthCheckFunc
	mutex        sync.RWMutex
}

// NewDegradationManager creates a new degradation manager
func NewDegradationManager(config DegradationConfig) *DegradationManager {
	return &DegradationManager{
		config:       config,
		services:     make(map[string]*ServiceHealth),
		healthChecks: make(map[string]HealthCheckFunc),
	}
}

// RegisterService registers a service with an optional health check. A
// critical service in emergency makes the whole process unavailable.
func (dm *DegradationManager) RegisterService(serviceName string, critical bool, healthCheck HealthCheckFunc) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.services[serviceName] = newServiceHealth(serviceName, critical)
	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}

	slog.Info("Registered service for degradation management", "service", serviceName, "critical", critical)
}

func newServiceHealth(name string, critical bool) *ServiceHealth {
	return &ServiceHealth{
		ServiceName:   name,
		Critical:      critical,
		Level:         LevelNormal,
		StatusMessage: "Service is healthy",
		windowStart:   time.Now(),
	}
}

// RecordRequest records a successful request, or a failed one without cause
func (dm *DegradationManager) RecordRequest(serviceName string, success bool) {
	if success {
		dm.record(serviceName, nil, false)
		return
	}
	dm.record(serviceName, errors.NewInternalError("Service request failed", nil), false)
}

// RecordError records an error for a service
func (dm *DegradationManager) RecordError(serviceName string, err error) {
	dm.record(serviceName, err, false)
}

// ObserveRender tracks every render method as its own service, so a native
// plotter that keeps failing shows up even though the chain still succeeds.
func (dm *DegradationManager) ObserveRender(kind, method string, err error) {
	dm.record("render."+kind+"."+method, err, true)
}

func (dm *DegradationManager) record(serviceName string, err error, autoRegister bool) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		if !autoRegister {
			return
		}
		service = newServiceHealth(serviceName, false)
		dm.services[serviceName] = service
	}

	now := time.Now()
	if dm.config.Window > 0 && now.Sub(service.windowStart) > dm.config.Window {
		service.TotalRequests = 0
		service.ErrorCount = 0
		service.windowStart = now
	}

	service.TotalRequests++
	if err != nil {
		service.ErrorCount++
		service.LastError = err.Error()
		service.LastErrorTime = &now
	}

	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)
	dm.updateDegradationLevel(service, now)
}

// updateDegradationLevel updates the degradation level based on current metrics
func (dm *DegradationManager) updateDegradationLevel(service *ServiceHealth, now time.Time) {
	oldLevel := service.Level

	var newLevel DegradationLevel
	var statusMessage string

	switch {
	case service.TotalRequests < dm.config.MinRequests && service.ErrorCount < service.TotalRequests:
		newLevel = LevelNormal
		statusMessage = "Service is healthy"
	case service.ErrorRate >= dm.config.EmergencyThreshold:
		newLevel = LevelEmergency
		statusMessage = "Service is in emergency state - high error rate"
	case service.ErrorRate >= dm.config.CriticalThreshold:
		newLevel = LevelCritical
		statusMessage = "Service is in critical state - elevated error rate"
	case service.ErrorRate >= dm.config.DegradedThreshold:
		newLevel = LevelDegraded
		statusMessage = "Service is degraded - moderate error rate"
	default:
		newLevel = LevelNormal
		statusMessage = "Service is healthy"
	}

	if newLevel == LevelNormal {
		service.DegradedSince = nil
	} else if service.DegradedSince == nil {
		service.DegradedSince = &now
	}

	service.Level = newLevel
	service.StatusMessage = statusMessage

	if oldLevel != newLevel {
		slog.Warn("Service degradation level changed",
			"service", service.ServiceName,
			"old_level", oldLevel.String(),
			"new_level", newLevel.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests,
			"error_count", service.ErrorCount)
	}
}

// GetServiceHealth returns a copy of the health status of a service
func (dm *DegradationManager) GetServiceHealth(serviceName string) (*ServiceHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return nil, false
	}

	cp := *service
	return &cp, true
}

// GetAllServiceHealth returns health status for all services, sorted by name
func (dm *DegradationManager) GetAllServiceHealth() []ServiceHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	result := make([]ServiceHealth, 0, len(dm.services))
	for _, service := range dm.services {
		result = append(result, *service)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ServiceName < result[j].ServiceName })

	return result
}

// IsServiceAvailable checks if a service is available for use
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return false
	}

	return service.Level != LevelEmergency
}

// Status summarises every service: unavailable if a critical service is in
// emergency, degraded if anything is above normal, ok otherwise.
func (dm *DegradationManager) Status() string {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	status := StatusOK
	for _, service := range dm.services {
		if service.Critical && service.Level == LevelEmergency {
			return StatusUnavailable
		}
		if service.Level != LevelNormal {
			status = StatusDegraded
		}
	}
	return status
}

// StartHealthChecks runs the registered health checks until ctx is done
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	dm.performHealthChecks(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.performHealthChecks(ctx)
		}
	}
}

// performHealthChecks runs every health check concurrently and waits for them
func (dm *DegradationManager) performHealthChecks(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	var wg sync.WaitGroup
	for serviceName, healthCheck := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				dm.RecordError(name, errors.WrapError(err, "health check failed for service %s", name))
			} else {
				dm.RecordRequest(name, true)
			}
		}(serviceName, healthCheck)
	}
	wg.Wait()
}

// ResetService resets a service's health status
func (dm *DegradationManager) ResetService(serviceName string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if service, exists := dm.services[serviceName]; exists {
		dm.services[serviceName] = newServiceHealth(serviceName, service.Critical)
		slog.Info("Service health reset", "service", serviceName)
	}
}

// GracefulShutdown logs the final status of every service
func (dm *DegradationManager) GracefulShutdown() {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	slog.Info("Degradation manager shutting down", "services", len(dm.services))

	for name, service := range dm.services {
		slog.Info("Final service status",
			"service", name,
			"level", service.Level.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests,
			"error_count", service.ErrorCount)
	}
}
