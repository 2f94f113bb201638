// Package train fits the tree models served by the API: CART decision
// trees, bootstrap random forests, the standard scaler and label encoders,
// and evaluates them on held-out data.
package train

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"ml-api/internal/model"
)

// minImpurity is the impurity below which a node is treated as pure.
const minImpurity = 1e-7

var ErrEmptyTrainingSet = errors.New("empty training set")

// TreeParams controls tree induction. Zero values mean: unlimited depth,
// MinSamplesSplit 2, MinSamplesLeaf 1 and every feature considered at each
// split.
type TreeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
}

func (p TreeParams) withDefaults(nFeatures int) TreeParams {
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	if p.MaxFeatures <= 0 || p.MaxFeatures > nFeatures {
		p.MaxFeatures = nFeatures
	}
	return p
}

// treeBuilder grows one tree into the array layout of model.DecisionTree.
type treeBuilder struct {
	X        [][]float64
	y        []int
	w        []float64
	nClasses int
	params   TreeParams
	rng      *rand.Rand
	tree     *model.DecisionTree
}

// FitTree grows a CART classifier on the rows of X. weights may be nil for
// unit weights; rows with zero weight are ignored. rng orders the candidate
// features at each node and picks the subset when MaxFeatures is set.
func FitTree(X [][]float64, y []int, weights []float64, nClasses int, params TreeParams, rng *rand.Rand) (*model.DecisionTree, error) {
	if len(X) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(y) != len(X) {
		return nil, fmt.Errorf("%d rows but %d labels", len(X), len(y))
	}
	if weights == nil {
		weights = make([]float64, len(X))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(X) {
		return nil, fmt.Errorf("%d rows but %d weights", len(X), len(weights))
	}
	nFeatures := len(X[0])
	for i, row := range X {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", model.ErrFeatureCount, i, len(row), nFeatures)
		}
	}
	for i, c := range y {
		if c < 0 || c >= nClasses {
			return nil, fmt.Errorf("row %d: class %d outside [0, %d)", i, c, nClasses)
		}
	}

	var idx []int
	for i, w := range weights {
		if w > 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, ErrEmptyTrainingSet
	}

	b := &treeBuilder{
		X:        X,
		y:        y,
		w:        weights,
		nClasses: nClasses,
		params:   params.withDefaults(nFeatures),
		rng:      rng,
		tree:     &model.DecisionTree{},
	}
	b.grow(idx, 0)
	return b.tree, nil
}

func (b *treeBuilder) counts(idx []int) []float64 {
	c := make([]float64, b.nClasses)
	for _, i := range idx {
		c[b.y[i]] += b.w[i]
	}
	return c
}

// gini returns the Gini impurity of weighted class counts.
func gini(counts []float64) float64 {
	total := floats.Sum(counts)
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}

func (b *treeBuilder) addNode(counts []float64) int {
	t := b.tree
	t.ChildrenLeft = append(t.ChildrenLeft, model.Leaf)
	t.ChildrenRight = append(t.ChildrenRight, model.Leaf)
	t.Feature = append(t.Feature, -2)
	t.Threshold = append(t.Threshold, -2)
	t.Value = append(t.Value, counts)
	t.Impurity = append(t.Impurity, gini(counts))
	t.NodeSamples = append(t.NodeSamples, floats.Sum(counts))
	return len(t.ChildrenLeft) - 1
}

// grow adds the node for idx and its subtree depth-first, so every child
// index is larger than its parent's.
func (b *treeBuilder) grow(idx []int, depth int) int {
	counts := b.counts(idx)
	node := b.addNode(counts)
	p := b.params

	if (p.MaxDepth > 0 && depth >= p.MaxDepth) ||
		len(idx) < p.MinSamplesSplit ||
		len(idx) < 2*p.MinSamplesLeaf ||
		b.tree.Impurity[node] <= minImpurity {
		return node
	}

	s, ok := b.bestSplit(idx, counts)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.tree.Feature[node] = s.feature
	b.tree.Threshold[node] = s.threshold
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.ChildrenLeft[node] = l
	b.tree.ChildrenRight[node] = r
	return node
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

// bestSplit scans candidate features for the threshold minimizing the
// weighted child impurity. Ties keep the first candidate found.
func (b *treeBuilder) bestSplit(idx []int, parent []float64) (split, bool) {
	nFeatures := len(b.X[0])
	features := b.rng.Perm(nFeatures)[:b.params.MaxFeatures]

	total := floats.Sum(parent)
	best := split{score: math.Inf(1)}
	found := false

	sorted := make([]int, len(idx))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)
	for _, f := range features {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}

		for k := range left {
			left[k] = 0
		}
		copy(right, parent)
		minLeaf := b.params.MinSamplesLeaf
		for pos := 0; pos < len(sorted)-1; pos++ {
			i := sorted[pos]
			left[b.y[i]] += b.w[i]
			right[b.y[i]] -= b.w[i]

			cur, next := b.X[i][f], b.X[sorted[pos+1]][f]
			if cur == next {
				continue
			}
			if pos+1 < minLeaf || len(sorted)-pos-1 < minLeaf {
				continue
			}
			wl, wr := floats.Sum(left), floats.Sum(right)
			score := (wl*gini(left) + wr*gini(right)) / total
			if score < best.score-1e-12 {
				threshold := cur + (next-cur)/2
				if threshold >= next {
					threshold = cur
				}
				best = split{feature: f, threshold: threshold, score: score}
				found = true
			}
		}
	}
	return best, found
}
