package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() DegradationConfig {
	cfg := DefaultDegradationConfig()
	cfg.MinRequests = 1
	return cfg
}

func TestDegradationLevels(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		total    int
		expected DegradationLevel
	}{
		{name: "healthy", failures: 0, total: 10, expected: LevelNormal},
		{name: "degraded", failures: 1, total: 10, expected: LevelDegraded},
		{name: "critical", failures: 3, total: 10, expected: LevelCritical},
		{name: "emergency", failures: 5, total: 10, expected: LevelEmergency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm := NewDegradationManager(testConfig())
			dm.RegisterService("attribution", false, nil)

			for i := 0; i < tt.total-tt.failures; i++ {
				dm.RecordRequest("attribution", true)
			}
			for i := 0; i < tt.failures; i++ {
				dm.RecordError("attribution", errors.New("explainer failed"))
			}

			h, ok := dm.GetServiceHealth("attribution")
			require.True(t, ok)
			assert.Equal(t, tt.expected, h.Level)
			assert.Equal(t, int64(tt.total), h.TotalRequests)
			assert.Equal(t, tt.expected != LevelEmergency, dm.IsServiceAvailable("attribution"))
		})
	}
}

func TestMinRequestsHoldsOffDegradation(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService("inference", true, nil)

	dm.RecordRequest("inference", true)
	dm.RecordError("inference", errors.New("bad row"))

	h, _ := dm.GetServiceHealth("inference")
	assert.Equal(t, LevelNormal, h.Level)
	assert.Equal(t, "bad row", h.LastError)
}

func TestUnknownServiceIsIgnored(t *testing.T) {
	dm := NewDegradationManager(testConfig())
	dm.RecordError("nope", errors.New("x"))

	_, ok := dm.GetServiceHealth("nope")
	assert.False(t, ok)
	assert.False(t, dm.IsServiceAvailable("nope"))
}

func TestObserveRenderRegistersMethods(t *testing.T) {
	dm := NewDegradationManager(testConfig())

	dm.ObserveRender("force", "native_force", errors.New("no plotter"))
	dm.ObserveRender("force", "bar_fallback", nil)

	native, ok := dm.GetServiceHealth("render.force.native_force")
	require.True(t, ok)
	assert.Equal(t, LevelEmergency, native.Level)
	assert.False(t, native.Critical)

	fallback, ok := dm.GetServiceHealth("render.force.bar_fallback")
	require.True(t, ok)
	assert.Equal(t, LevelNormal, fallback.Level)

	// a failing optional renderer degrades but never takes the process down
	assert.Equal(t, StatusDegraded, dm.Status())
}

func TestStatus(t *testing.T) {
	dm := NewDegradationManager(testConfig())
	dm.RegisterService("inference", true, nil)
	dm.RegisterService("cache.redis", false, nil)
	assert.Equal(t, StatusOK, dm.Status())

	dm.RecordError("cache.redis", errors.New("down"))
	assert.Equal(t, StatusDegraded, dm.Status())

	dm.RecordError("inference", errors.New("down"))
	assert.Equal(t, StatusUnavailable, dm.Status())

	dm.ResetService("inference")
	assert.Equal(t, StatusDegraded, dm.Status())
}

func TestWindowResetsCounters(t *testing.T) {
	cfg := testConfig()
	cfg.Window = 10 * time.Millisecond
	dm := NewDegradationManager(cfg)
	dm.RegisterService("attribution", false, nil)

	dm.RecordError("attribution", errors.New("x"))
	time.Sleep(20 * time.Millisecond)
	dm.RecordRequest("attribution", true)

	h, _ := dm.GetServiceHealth("attribution")
	assert.Equal(t, int64(1), h.TotalRequests)
	assert.Equal(t, LevelNormal, h.Level)
	assert.Nil(t, h.DegradedSince)
}

func TestHealthChecks(t *testing.T) {
	dm := NewDegradationManager(testConfig())
	dm.RegisterService("ok", false, func(context.Context) error { return nil })
	dm.RegisterService("broken", false, func(context.Context) error { return errors.New("ping failed") })

	dm.performHealthChecks(context.Background())

	ok, _ := dm.GetServiceHealth("ok")
	assert.Equal(t, LevelNormal, ok.Level)
	broken, _ := dm.GetServiceHealth("broken")
	assert.Equal(t, LevelEmergency, broken.Level)
	assert.Contains(t, broken.LastError, "health check failed for service broken")
}

func TestGetAllServiceHealthSorted(t *testing.T) {
	dm := NewDegradationManager(testConfig())
	dm.RegisterService("b", false, nil)
	dm.RegisterService("a", false, nil)

	all := dm.GetAllServiceHealth()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ServiceName)

	data, err := json.Marshal(all[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"normal"`)
}

func TestDegradationLevelJSON(t *testing.T) {
	for level := LevelNormal; level <= LevelEmergency; level++ {
		data, err := json.Marshal(level)
		require.NoError(t, err)

		var back DegradationLevel
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, level, back)
	}

	var bad DegradationLevel
	assert.Error(t, json.Unmarshal([]byte(`"melted"`), &bad))
}
