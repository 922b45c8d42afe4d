package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
)

func TestDefaultSchemaOrder(t *testing.T) {
	s := Default()

	require.Equal(t, 20, s.Len())
	assert.Equal(t, "ANION_GAP", s.Names()[0])
	assert.Equal(t, "WBC", s.Names()[19])
	assert.Equal(t, DefaultTarget, s.Target())

	i, ok := s.Index("SOFA")
	assert.True(t, ok)
	assert.Equal(t, 17, i)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]string{"A", "B", "A"}, "y")
	assert.Error(t, err)

	_, err = New(nil, "y")
	assert.Error(t, err)
}

func TestNamesReturnsCopy(t *testing.T) {
	s := Default()
	names := s.Names()
	names[0] = "CHANGED"
	assert.Equal(t, "ANION_GAP", s.Names()[0])
}

func TestNewFeatureVectorReordersToSchema(t *testing.T) {
	s, err := New([]string{"A", "B", "C"}, "y")
	require.NoError(t, err)

	v, err := NewFeatureVector(s, map[string]float64{"C": 3, "A": 1, "B": 2})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3}, v.Values())
	got, ok := v.Get("B")
	assert.True(t, ok)
	assert.Equal(t, 2.0, got)
	assert.Equal(t, map[string]float64{"A": 1, "B": 2, "C": 3}, v.Map())
}

func TestNewFeatureVectorSchemaErrors(t *testing.T) {
	s, err := New([]string{"A", "B", "C"}, "y")
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   map[string]float64
		message string
	}{
		{
			name:    "missing name",
			input:   map[string]float64{"A": 1, "B": 2},
			message: "missing [C]",
		},
		{
			name:    "unexpected name",
			input:   map[string]float64{"A": 1, "B": 2, "C": 3, "D": 4},
			message: "unexpected [D]",
		},
		{
			name:    "both",
			input:   map[string]float64{"A": 1, "Z": 2},
			message: "missing [B C], unexpected [Z]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFeatureVector(s, tt.input)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategorySchema))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestFeatureVectorIsImmutable(t *testing.T) {
	s := Default()
	v, err := NewFeatureVector(s, s.Defaults())
	require.NoError(t, err)

	values := v.Values()
	values[0] = 999
	assert.NotEqual(t, 999.0, v.Values()[0])
}

func TestDefaultsMatchForm(t *testing.T) {
	d := Default().Defaults()

	assert.Len(t, d, 20)
	assert.Equal(t, 15.0, d["GCS"])
	assert.Equal(t, 37.0, d["T"])
	assert.Equal(t, 140.0, d["SODIUM"])
	assert.Equal(t, 0.0, d["NOR"])
}

func TestSpecsCarryGroups(t *testing.T) {
	specs := Default().Specs()
	require.Len(t, specs, 20)

	spec, ok := Default().Spec("MV")
	require.True(t, ok)
	assert.True(t, spec.Binary)
	assert.Equal(t, GroupTreatment, spec.Group)

	_, ok = Default().Spec("AGE")
	assert.False(t, ok)
}

func TestValidateRanges(t *testing.T) {
	s := Default()

	assert.NoError(t, s.ValidateRanges(s.Defaults()))

	in := s.Defaults()
	in["GCS"] = 2
	in["MV"] = 0.5
	in["BALANCE"] = -50000
	err := s.ValidateRanges(in)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "2 feature values out of range")
}

func TestNewWithSpecsOverridesCatalog(t *testing.T) {
	s, err := NewWithSpecs([]Spec{
		{Name: "GCS", Min: 3, Max: 15, Default: 14},
		{Name: "LACTATE", Min: 0, Max: 30, Default: 1.5},
	}, "y")
	require.NoError(t, err)

	assert.Equal(t, []string{"GCS", "LACTATE"}, s.Names())
	assert.Equal(t, map[string]float64{"GCS": 14, "LACTATE": 1.5}, s.Defaults())

	spec, ok := s.Spec("LACTATE")
	require.True(t, ok)
	assert.Equal(t, "LACTATE", spec.Label)

	_, err = NewWithSpecs([]Spec{{Name: "X", Min: 5, Max: 1}}, "y")
	assert.Error(t, err)
}
