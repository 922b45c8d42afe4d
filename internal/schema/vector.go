package schema

import (
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
)

// FeatureVector holds one patient's values in schema order. It is created per
// request and never mutated.
type FeatureVector struct {
	schema *Schema
	values []float64
}

// NewFeatureVector reorders named values into schema order. Any missing or
// unexpected name fails with a schema error listing every offender.
func NewFeatureVector(s *Schema, in map[string]float64) (FeatureVector, error) {
	var missing, unexpected []string

	for name := range in {
		if _, ok := s.index[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}

	values := make([]float64, len(s.names))
	for i, name := range s.names {
		v, ok := in[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		values[i] = v
	}

	if len(missing) > 0 || len(unexpected) > 0 {
		return FeatureVector{}, errors.NewSchemaError(missing, unexpected)
	}

	return FeatureVector{schema: s, values: values}, nil
}

// Schema returns the schema the vector was built against.
func (v FeatureVector) Schema() *Schema { return v.schema }

// Values returns a copy of the values in schema order.
func (v FeatureVector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

// Get returns the value of a named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	if v.schema == nil {
		return 0, false
	}
	i, ok := v.schema.index[name]
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// Map returns the vector as name -> value.
func (v FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	if v.schema == nil {
		return out
	}
	for i, name := range v.schema.names {
		out[name] = v.values[i]
	}
	return out
}

// Len returns the number of values.
func (v FeatureVector) Len() int { return len(v.values) }
