package attribution

// PositiveClass is the class index explained for binary classifiers.
const PositiveClass = 1

// Canonical is an attribution aligned index-for-index with the feature schema.
type Canonical struct {
	Values         []float64      `json:"values"`
	Baseline       float64        `json:"baseline"`
	Reconciliation Reconciliation `json:"reconciliation"`
}

// Reconciliation records whether the raw attribution had to be repaired to fit
// the schema. A repair means the engine and the schema have drifted.
// ClassFallback is set when per-class output lacked the positive class and the
// last reported class was explained instead.
type Reconciliation struct {
	SourceLength  int  `json:"source_length"`
	TargetLength  int  `json:"target_length"`
	Truncated     bool `json:"truncated,omitempty"`
	Padded        bool `json:"padded,omitempty"`
	ClassFallback bool `json:"class_fallback,omitempty"`
}

func (r Reconciliation) Repaired() bool { return r.Truncated || r.Padded || r.ClassFallback }

// Sum is the total attribution across features.
func (c Canonical) Sum() float64 {
	s := 0.0
	for _, v := range c.Values {
		s += v
	}
	return s
}

// Output is baseline plus every attribution: the model output the attribution
// decomposes.
func (c Canonical) Output() float64 { return c.Baseline + c.Sum() }

// Normalize reduces raw engine output to a canonical attribution of exactly n
// values. It never fails: per-class output selects the positive class, a matrix
// contributes its first row, and length mismatches are truncated or zero-padded.
func Normalize(raw RawAttribution, baseline RawBaseline, n int) Canonical {
	fallback := false
	if raw.Kind == KindPerClass {
		fallback = len(raw.PerClass) <= PositiveClass
		raw = pick(raw.PerClass, PositiveClass)
		if isCollection(baseline) {
			fallback = fallback || collectionLen(baseline) <= PositiveClass
			baseline = element(baseline, PositiveClass)
		}
	}

	flat := flatten(raw)
	values, rec := reconcile(flat, n)
	rec.ClassFallback = fallback

	return Canonical{
		Values:         values,
		Baseline:       scalarize(baseline),
		Reconciliation: rec,
	}
}

// pick returns entries[i], or the last entry when fewer classes were reported.
func pick(entries []RawAttribution, i int) RawAttribution {
	if len(entries) == 0 {
		return Sequence(nil)
	}
	if i >= len(entries) {
		i = len(entries) - 1
	}
	return entries[i]
}

func isCollection(r RawAttribution) bool {
	return r.Kind != KindScalar
}

func collectionLen(r RawAttribution) int {
	switch r.Kind {
	case KindSequence:
		return len(r.Sequence)
	case KindPerClass:
		return len(r.PerClass)
	case KindMatrix:
		return len(r.Matrix)
	default:
		return 1
	}
}

func element(r RawAttribution, i int) RawAttribution {
	switch r.Kind {
	case KindSequence:
		if len(r.Sequence) == 0 {
			return r
		}
		if i >= len(r.Sequence) {
			i = len(r.Sequence) - 1
		}
		return Scalar(r.Sequence[i])
	case KindPerClass:
		return pick(r.PerClass, i)
	case KindMatrix:
		if len(r.Matrix) == 0 {
			return r
		}
		if i >= len(r.Matrix) {
			i = len(r.Matrix) - 1
		}
		return Sequence(r.Matrix[i])
	default:
		return r
	}
}

func flatten(r RawAttribution) []float64 {
	switch r.Kind {
	case KindScalar:
		return []float64{r.Scalar}
	case KindSequence:
		return r.Sequence
	case KindMatrix:
		// one sample is explained at a time
		if len(r.Matrix) == 0 {
			return nil
		}
		return r.Matrix[0]
	case KindPerClass:
		return flatten(pick(r.PerClass, PositiveClass))
	default:
		return nil
	}
}

func reconcile(flat []float64, n int) ([]float64, Reconciliation) {
	rec := Reconciliation{SourceLength: len(flat), TargetLength: n}
	values := make([]float64, n)
	copy(values, flat)

	switch {
	case len(flat) > n:
		rec.Truncated = true
	case len(flat) < n:
		rec.Padded = true
	}
	return values, rec
}

func scalarize(b RawBaseline) float64 {
	switch b.Kind {
	case KindScalar:
		return b.Scalar
	case KindSequence:
		if len(b.Sequence) == 0 {
			return 0
		}
		return b.Sequence[0]
	case KindMatrix:
		if len(b.Matrix) == 0 || len(b.Matrix[0]) == 0 {
			return 0
		}
		return b.Matrix[0][0]
	case KindPerClass:
		if len(b.PerClass) == 0 {
			return 0
		}
		return scalarize(b.PerClass[0])
	default:
		return 0
	}
}
