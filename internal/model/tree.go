package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Leaf marks a missing child in ChildrenLeft / ChildrenRight.
const Leaf = -1

// DecisionTree is a fitted binary tree in array form. Node 0 is the root.
// A sample goes left when x[Feature[i]] <= Threshold[i]. Value holds the
// (weighted) class counts that reached each node during training.
type DecisionTree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
	Impurity      []float64   `json:"impurity,omitempty"`
	NodeSamples   []float64   `json:"weighted_n_node_samples,omitempty"`
}

// NodeCount returns the number of nodes in the tree.
func (t *DecisionTree) NodeCount() int { return len(t.ChildrenLeft) }

// IsLeaf reports whether node i has no children.
func (t *DecisionTree) IsLeaf(i int) bool { return t.ChildrenLeft[i] == Leaf }

// Depth returns the length of the longest root-to-leaf path.
func (t *DecisionTree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		if t.IsLeaf(i) {
			return 0
		}
		l, r := walk(t.ChildrenLeft[i]), walk(t.ChildrenRight[i])
		if l > r {
			return l + 1
		}
		return r + 1
	}
	if t.NodeCount() == 0 {
		return 0
	}
	return walk(0)
}

func (t *DecisionTree) apply(x []float64) int {
	i := 0
	for !t.IsLeaf(i) {
		if x[t.Feature[i]] <= t.Threshold[i] {
			i = t.ChildrenLeft[i]
		} else {
			i = t.ChildrenRight[i]
		}
	}
	return i
}

func (t *DecisionTree) leafProba(x []float64) []float64 {
	counts := t.Value[t.apply(x)]
	out := make([]float64, len(counts))
	copy(out, counts)
	if s := floats.Sum(out); s > 0 {
		floats.Scale(1/s, out)
	}
	return out
}

// importances accumulates weighted impurity decrease per feature.
func (t *DecisionTree) importances(nFeatures int) []float64 {
	imp := make([]float64, nFeatures)
	if len(t.Impurity) != t.NodeCount() || len(t.NodeSamples) != t.NodeCount() {
		return imp
	}
	for i := 0; i < t.NodeCount(); i++ {
		if t.IsLeaf(i) {
			continue
		}
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		imp[t.Feature[i]] += t.NodeSamples[i]*t.Impurity[i] -
			t.NodeSamples[l]*t.Impurity[l] -
			t.NodeSamples[r]*t.Impurity[r]
	}
	return imp
}

func (t *DecisionTree) validate(nFeatures, nClasses int) error {
	n := t.NodeCount()
	if n == 0 {
		return fmt.Errorf("%w: empty tree", ErrInvalidModel)
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("%w: node arrays have different lengths", ErrInvalidModel)
	}
	for i := 0; i < n; i++ {
		if len(t.Value[i]) != nClasses {
			return fmt.Errorf("%w: node %d has %d class counts, want %d", ErrInvalidModel, i, len(t.Value[i]), nClasses)
		}
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == Leaf {
			if r != Leaf {
				return fmt.Errorf("%w: node %d has only a right child", ErrInvalidModel, i)
			}
			continue
		}
		// children always come after their parent, which also rules out cycles
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("%w: node %d has out-of-range children %d/%d", ErrInvalidModel, i, l, r)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidModel, i, t.Feature[i], nFeatures)
		}
	}
	return nil
}
