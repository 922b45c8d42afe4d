package attribution

import (
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/model"
)

// TreeExplainer computes exact path-dependent Shapley values for a random
// forest. Attributions are in probability space and sum, with the expected
// value, to the forest's predicted probability.
type TreeExplainer struct {
	forest   *model.Forest
	output   Output
	expected [2]float64
}

func NewTreeExplainer(f *model.Forest, output Output) (*TreeExplainer, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil forest", ErrIncompatibleModel)
	}

	e := &TreeExplainer{forest: f, output: output}
	for i, t := range f.Trees() {
		if err := checkCover(t); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		ev := treeExpectation(t, 0)
		e.expected[0] += ev[0]
		e.expected[1] += ev[1]
	}
	n := float64(f.NumTrees())
	e.expected[0] /= n
	e.expected[1] /= n
	return e, nil
}

func (e *TreeExplainer) Name() string   { return KindTree }
func (e *TreeExplainer) Space() Space   { return SpaceProbability }
func (e *TreeExplainer) Output() Output { return e.output }

// ExpectedValue is the cover-weighted mean leaf value per class.
func (e *TreeExplainer) ExpectedValue() [2]float64 { return e.expected }

func (e *TreeExplainer) Explain(row []float64) (RawAttribution, RawBaseline, error) {
	if len(row) != e.forest.NumFeatures() {
		return RawAttribution{}, RawBaseline{}, fmt.Errorf("expected %d features, got %d", e.forest.NumFeatures(), len(row))
	}

	var phi [2][]float64
	phi[0] = make([]float64, len(row))
	phi[1] = make([]float64, len(row))

	for _, t := range e.forest.Trees() {
		treeShap(t, row, phi, 0, 0, nil, 1, 1, -1)
	}

	n := float64(e.forest.NumTrees())
	for c := range phi {
		for i := range phi[c] {
			phi[c][i] /= n
		}
	}

	raw, base := e.output.shape(phi, e.expected)
	return raw, base, nil
}

type pathElem struct {
	feature int
	zero    float64
	one     float64
	weight  float64
}

// treeShap walks one tree, tracking the unique feature path to every leaf and
// the proportion of subsets that flow through it.
func treeShap(t model.Tree, x []float64, phi [2][]float64, node, depth int, parent []pathElem, zero, one float64, feature int) {
	path := make([]pathElem, depth+1)
	copy(path, parent)
	extendPath(path, depth, zero, one, feature)

	n := t.Nodes[node]
	if n.IsLeaf() {
		for i := 1; i <= depth; i++ {
			w := unwoundPathSum(path, depth, i)
			el := path[i]
			scale := w * (el.one - el.zero)
			phi[0][el.feature] += scale * n.Value[0]
			phi[1][el.feature] += scale * n.Value[1]
		}
		return
	}

	hot, cold := n.Right, n.Left
	if x[n.Feature] <= n.Threshold {
		hot, cold = n.Left, n.Right
	}
	hotZero := t.Nodes[hot].Cover / n.Cover
	coldZero := t.Nodes[cold].Cover / n.Cover
	inZero, inOne := 1.0, 1.0

	// a feature already on the path is undone and redone at this split
	k := 0
	for ; k <= depth; k++ {
		if path[k].feature == n.Feature {
			break
		}
	}
	if k != depth+1 {
		inZero = path[k].zero
		inOne = path[k].one
		unwindPath(path, depth, k)
		depth--
	}

	treeShap(t, x, phi, hot, depth+1, path, hotZero*inZero, inOne, n.Feature)
	treeShap(t, x, phi, cold, depth+1, path, coldZero*inZero, 0, n.Feature)
}

func extendPath(path []pathElem, depth int, zero, one float64, feature int) {
	path[depth] = pathElem{feature: feature, zero: zero, one: one}
	if depth == 0 {
		path[depth].weight = 1
	}
	d := float64(depth + 1)
	for i := depth - 1; i >= 0; i-- {
		path[i+1].weight += one * path[i].weight * float64(i+1) / d
		path[i].weight = zero * path[i].weight * float64(depth-i) / d
	}
}

func unwindPath(path []pathElem, depth, k int) {
	one := path[k].one
	zero := path[k].zero
	next := path[depth].weight
	d := float64(depth + 1)

	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := path[i].weight
			path[i].weight = next * d / (float64(i+1) * one)
			next = tmp - path[i].weight*zero*float64(depth-i)/d
		} else {
			path[i].weight = path[i].weight * d / (zero * float64(depth-i))
		}
	}

	for i := k; i < depth; i++ {
		path[i].feature = path[i+1].feature
		path[i].zero = path[i+1].zero
		path[i].one = path[i+1].one
	}
}

func unwoundPathSum(path []pathElem, depth, k int) float64 {
	one := path[k].one
	zero := path[k].zero
	next := path[depth].weight
	d := float64(depth + 1)
	total := 0.0

	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := next * d / (float64(i+1) * one)
			total += tmp
			next = path[i].weight - tmp*zero*float64(depth-i)/d
		} else {
			total += path[i].weight / zero / (float64(depth-i) / d)
		}
	}
	return total
}

func treeExpectation(t model.Tree, node int) [2]float64 {
	n := t.Nodes[node]
	if n.IsLeaf() {
		return [2]float64{n.Value[0], n.Value[1]}
	}
	l := treeExpectation(t, n.Left)
	r := treeExpectation(t, n.Right)
	wl := t.Nodes[n.Left].Cover / n.Cover
	wr := t.Nodes[n.Right].Cover / n.Cover
	return [2]float64{wl*l[0] + wr*r[0], wl*l[1] + wr*r[1]}
}

// checkCover rejects empty nodes and children whose covers do not add up to
// the parent's; attributions would not sum to the prediction otherwise.
func checkCover(t model.Tree) error {
	for i, n := range t.Nodes {
		if n.Cover <= 0 {
			return fmt.Errorf("%w: node %d has no cover", ErrIncompatibleModel, i)
		}
		if n.IsLeaf() {
			continue
		}
		sum := t.Nodes[n.Left].Cover + t.Nodes[n.Right].Cover
		if math.Abs(sum-n.Cover) > 1e-9*math.Max(1, n.Cover) {
			return fmt.Errorf("%w: node %d cover %g, children sum to %g", ErrIncompatibleModel, i, n.Cover, sum)
		}
	}
	return nil
}
