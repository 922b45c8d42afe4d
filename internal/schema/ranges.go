package schema

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
)

var validate = validator.New()

// ValidateRanges checks each supplied value against the documented form range.
// Range enforcement belongs to the input collaborator; the HTTP layer calls
// this only when configured to. Names unknown to the schema are ignored here
// since NewFeatureVector reports them.
func (s *Schema) ValidateRanges(in map[string]float64) error {
	problems := make(map[string]string)

	for name, v := range in {
		spec, ok := s.Spec(name)
		if !ok || (spec.Min == 0 && spec.Max == 0) {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			problems[name] = "must be a finite number"
			continue
		}

		tag := "gte=" + strconv.FormatFloat(spec.Min, 'g', -1, 64) +
			",lte=" + strconv.FormatFloat(spec.Max, 'g', -1, 64)
		if err := validate.Var(v, tag); err != nil {
			problems[name] = fmt.Sprintf("must be between %g and %g", spec.Min, spec.Max)
			continue
		}

		if spec.Binary && v != 0 && v != 1 {
			problems[name] = "must be 0 or 1"
		}
	}

	if len(problems) > 0 {
		return errors.NewValidationErrorWithMap(problems)
	}
	return nil
}
