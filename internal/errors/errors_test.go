package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaError(t *testing.T) {
	err := NewSchemaError([]string{"SOFA", "GCS"}, []string{"AGE"})
	require.NotNil(t, err)

	assert.Equal(t, CategorySchema, err.Category)
	assert.Equal(t, StageSchema, err.Stage)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "[SCHEMA_ERROR] feature vector does not match schema: missing [GCS SOFA], unexpected [AGE]", err.Error())
}

func TestNewSchemaErrorMissingOnly(t *testing.T) {
	err := NewSchemaError([]string{"T"}, nil)
	assert.Equal(t, "[SCHEMA_ERROR] feature vector does not match schema: missing [T]", err.Error())
}

func TestInferenceErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("expected 20 features, got 19")
	err := NewInferenceError("random_forest", cause)

	assert.Equal(t, CategoryInference, err.Category)
	assert.Equal(t, StageInference, err.Stage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INFERENCE_ERROR")
	assert.Contains(t, err.Error(), "expected 20 features")
}

func TestAttributionErrorIsDistinct(t *testing.T) {
	err := NewAttributionError("tree", fmt.Errorf("incompatible model"))

	assert.True(t, IsCategory(err, CategoryAttribution))
	assert.False(t, IsCategory(err, CategoryInference))
	assert.Equal(t, StageAttribution, err.Stage)
}

func TestRenderFallbackExhausted(t *testing.T) {
	err := NewRenderFallbackExhausted("force", []string{"native", "legacy"})

	assert.Equal(t, CategoryRender, err.Category)
	assert.Equal(t, "[RENDER_FALLBACK_EXHAUSTED] no rendering method succeeded for force", err.Error())
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		status   int
	}{
		{
			name:     "passes through app errors",
			err:      NewValidationError("bad input"),
			category: CategoryValidation,
			status:   http.StatusBadRequest,
		},
		{
			name:     "finds wrapped app errors",
			err:      WrapError(NewSchemaError([]string{"BUN"}, nil), "building vector"),
			category: CategorySchema,
			status:   http.StatusBadRequest,
		},
		{
			name:     "maps context cancellation",
			err:      context.Canceled,
			category: CategoryInternal,
			status:   http.StatusGatewayTimeout,
		},
		{
			name:     "defaults to internal",
			err:      fmt.Errorf("boom"),
			category: CategoryInternal,
			status:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.category, appErr.Category)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
		})
	}

	assert.Nil(t, ToAppError(nil))
}

func TestValidationErrorWithMap(t *testing.T) {
	err := NewValidationErrorWithMap(map[string]string{
		"GCS": "must be between 3 and 15",
		"T":   "must be between 30 and 45",
	})

	assert.Equal(t, "[VALIDATION_ERROR] 2 feature values out of range", err.Error())
}

func TestSafeExecuteRecovers(t *testing.T) {
	var recovered interface{}
	SafeExecute(func() {
		panic("renderer exploded")
	}, func(r interface{}) {
		recovered = r
	})

	assert.Equal(t, "renderer exploded", recovered)
}

func TestWrapErrorNil(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ignored"))
}

func TestAppErrorJSONBody(t *testing.T) {
	err := NewSchemaError([]string{"GCS"}, nil)
	err.RequestID = "req-1"

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "SCHEMA_ERROR", body["code"])
	assert.Equal(t, "schema", body["category"])
	assert.Equal(t, "schema", body["stage"])
	assert.Equal(t, "req-1", body["request_id"])
	assert.Contains(t, body["error"], "missing [GCS]")
	assert.NotContains(t, body, "stack_trace")
}
