package model

import (
	"fmt"
)

// Node is one node of a fitted decision tree. Leaves have Left == Right == -1 and
// carry the class distribution of their training samples in Value.
type Node struct {
	Feature   int       `json:"feature" yaml:"feature"`
	Threshold float64   `json:"threshold" yaml:"threshold"`
	Left      int       `json:"left" yaml:"left"`
	Right     int       `json:"right" yaml:"right"`
	Cover     float64   `json:"cover" yaml:"cover"`
	Value     []float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

func (n Node) IsLeaf() bool { return n.Left < 0 }

// Tree is a fitted decision tree stored as a flat node table rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Leaf walks the tree for row and returns the index of the leaf reached.
// x[feature] <= threshold goes left.
func (t Tree) Leaf(row []float64) int {
	i := 0
	for !t.Nodes[i].IsLeaf() {
		n := t.Nodes[i]
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return i
}

func (t Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Cover < 0 {
			return fmt.Errorf("node %d: negative cover", i)
		}
		if n.IsLeaf() {
			if n.Right >= 0 {
				return fmt.Errorf("node %d: leaf with right child", i)
			}
			if len(n.Value) != 2 {
				return fmt.Errorf("node %d: leaf value has %d classes, want 2", i, len(n.Value))
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		// children after parents keeps every walk finite
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
		if n.Cover == 0 {
			return fmt.Errorf("node %d: internal node without cover", i)
		}
	}
	return nil
}

// Forest is a random forest classifier: class probabilities are the mean of the
// per-tree leaf distributions.
type Forest struct {
	trees       []Tree
	numFeatures int
}

// NewForest validates trees and returns a forest over numFeatures inputs.
func NewForest(trees []Tree, numFeatures int) (*Forest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrInvalidModel)
	}
	if numFeatures <= 0 {
		return nil, fmt.Errorf("%w: forest has no features", ErrInvalidModel)
	}
	for i, t := range trees {
		if err := t.validate(numFeatures); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrInvalidModel, i, err)
		}
	}
	return &Forest{trees: trees, numFeatures: numFeatures}, nil
}

func (f *Forest) Kind() string     { return KindRandomForest }
func (f *Forest) NumFeatures() int { return f.numFeatures }
func (f *Forest) Trees() []Tree    { return f.trees }
func (f *Forest) NumTrees() int    { return len(f.trees) }

func (f *Forest) PredictProba(row []float64) ([]float64, error) {
	if err := checkRow(row, f.numFeatures); err != nil {
		return nil, err
	}

	proba := make([]float64, 2)
	for _, t := range f.trees {
		leaf := t.Nodes[t.Leaf(row)]
		proba[0] += leaf.Value[0]
		proba[1] += leaf.Value[1]
	}
	n := float64(len(f.trees))
	proba[0] /= n
	proba[1] /= n
	return proba, nil
}
