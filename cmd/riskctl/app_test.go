package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/types"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"riskctl"}, args...))
	return stdout.String(), stderr.String(), err
}

func bootstrapped(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, _, err := run(t, "--artifacts", dir, "bootstrap")
	require.NoError(t, err)
	return dir
}

func TestBootstrapRefusesToOverwrite(t *testing.T) {
	dir := bootstrapped(t)

	_, _, err := run(t, "--artifacts", dir, "bootstrap")
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryValidation))

	_, _, err = run(t, "--artifacts", dir, "bootstrap", "--force", "--output", "matrix")
	assert.NoError(t, err)
}

func TestBootstrapRejectsUnknownOutput(t *testing.T) {
	_, _, err := run(t, "--artifacts", t.TempDir(), "bootstrap", "--output", "tensor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tensor")
}

func TestPredictDefaults(t *testing.T) {
	dir := bootstrapped(t)

	stdout, _, err := run(t, "--artifacts", dir, "predict", "--defaults")
	require.NoError(t, err)

	var out analysis.Assessment
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.InDelta(t, 0.9/7, out.Prediction.Probability, 1e-9)
	assert.Equal(t, analysis.TierLow, out.Prediction.Tier)
	require.NotNil(t, out.Explanation)
	assert.Len(t, out.Explanation.Contributions, 20)
}

func TestPredictFromFileWithOverrides(t *testing.T) {
	dir := bootstrapped(t)

	stdout, _, err := run(t, "--artifacts", dir, "schema")
	require.NoError(t, err)
	var sch types.SchemaResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &sch))

	body, err := json.Marshal(types.PredictRequest{Features: sch.Defaults})
	require.NoError(t, err)
	input := filepath.Join(t.TempDir(), "patient.json")
	require.NoError(t, os.WriteFile(input, body, 0644))

	stdout, stderr, err := run(t, "--artifacts", dir, "predict",
		"--input", input,
		"--set", "SOFA=12", "--set", "MV=1", "--set", "NBPS=85", "--set", "NOR=1",
		"--set", "BUN=60", "--set", "CRRT=1", "--set", "OASIS=45", "--set", "T=39",
		"--set", "WBC=15", "--set", "RR=30", "--set", "BS=200",
		"--charts",
	)
	require.NoError(t, err)

	var out analysis.Assessment
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, analysis.TierHigh, out.Prediction.Tier)
	assert.NotEmpty(t, stderr)
}

func TestPredictFlatYAMLInput(t *testing.T) {
	dir := bootstrapped(t)

	stdout, _, err := run(t, "--artifacts", dir, "--format", "yaml", "schema")
	require.NoError(t, err)
	var sch struct {
		Defaults map[string]float64 `yaml:"defaults"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &sch))
	require.Len(t, sch.Defaults, 20)

	data, err := yaml.Marshal(sch.Defaults)
	require.NoError(t, err)
	input := filepath.Join(t.TempDir(), "patient.yaml")
	require.NoError(t, os.WriteFile(input, data, 0644))

	_, _, err = run(t, "--artifacts", dir, "predict", "--input", input)
	assert.NoError(t, err)
}

func TestPredictErrors(t *testing.T) {
	dir := bootstrapped(t)

	tests := []struct {
		name     string
		args     []string
		category apperrors.ErrorCategory
	}{
		{name: "missing features", args: []string{"predict", "--set", "GCS=15"}, category: apperrors.CategorySchema},
		{name: "malformed set", args: []string{"predict", "--defaults", "--set", "GCS"}, category: apperrors.CategoryValidation},
		{name: "non numeric set", args: []string{"predict", "--defaults", "--set", "GCS=high"}, category: apperrors.CategoryValidation},
		{name: "out of range", args: []string{"predict", "--defaults", "--set", "GCS=40", "--enforce-ranges"}, category: apperrors.CategoryValidation},
		{name: "missing input file", args: []string{"predict", "--input", filepath.Join(dir, "nope.json")}, category: apperrors.CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, append([]string{"--artifacts", dir}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, apperrors.IsCategory(err, tt.category), err.Error())
		})
	}
}

func TestPredictWithoutArtifacts(t *testing.T) {
	_, _, err := run(t, "--artifacts", t.TempDir(), "predict", "--defaults")
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))
}

func TestSchemaBuiltin(t *testing.T) {
	stdout, _, err := run(t, "--artifacts", t.TempDir(), "schema", "--builtin")
	require.NoError(t, err)

	var sch types.SchemaResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &sch))
	assert.Len(t, sch.Features, 20)
	assert.Equal(t, "SEPSIS_PI", sch.Target)
}

func TestUnknownFormat(t *testing.T) {
	_, _, err := run(t, "--format", "xml", "schema", "--builtin")
	assert.Error(t, err)
}
