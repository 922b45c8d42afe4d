package attribution

import "fmt"

// Kind tags the shape of an engine's raw output.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindPerClass
	KindMatrix
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindPerClass:
		return "per_class"
	case KindMatrix:
		return "matrix"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RawAttribution is the unprocessed output of an attribution engine. Exactly one
// payload field is meaningful, selected by Kind.
type RawAttribution struct {
	Kind     Kind
	Scalar   float64
	Sequence []float64
	PerClass []RawAttribution
	Matrix   [][]float64
}

// RawBaseline uses the same variants as attributions: engines report the
// expected value as a scalar, a per-class list, or a one-element array.
type RawBaseline = RawAttribution

func Scalar(x float64) RawAttribution {
	return RawAttribution{Kind: KindScalar, Scalar: x}
}

func Sequence(v []float64) RawAttribution {
	return RawAttribution{Kind: KindSequence, Sequence: v}
}

func PerClass(entries ...RawAttribution) RawAttribution {
	return RawAttribution{Kind: KindPerClass, PerClass: entries}
}

func Matrix(rows [][]float64) RawAttribution {
	return RawAttribution{Kind: KindMatrix, Matrix: rows}
}

// Len is the number of top-level entries.
func (r RawAttribution) Len() int {
	switch r.Kind {
	case KindScalar:
		return 1
	case KindSequence:
		return len(r.Sequence)
	case KindPerClass:
		return len(r.PerClass)
	case KindMatrix:
		return len(r.Matrix)
	default:
		return 0
	}
}

func (r RawAttribution) String() string {
	switch r.Kind {
	case KindScalar:
		return fmt.Sprintf("scalar(%g)", r.Scalar)
	case KindMatrix:
		cols := 0
		if len(r.Matrix) > 0 {
			cols = len(r.Matrix[0])
		}
		return fmt.Sprintf("matrix(%dx%d)", len(r.Matrix), cols)
	default:
		return fmt.Sprintf("%s(%d)", r.Kind, r.Len())
	}
}
