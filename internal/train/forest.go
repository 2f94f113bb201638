package train

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"ml-api/internal/model"
)

// ClassWeightBalanced weights each class by n / (nClasses * count).
const ClassWeightBalanced = "balanced"

// ForestParams configures FitForest.
type ForestParams struct {
	NTrees      int
	Tree        TreeParams
	ClassWeight string
	Seed        int64
	// Workers bounds concurrent tree fits; 0 uses GOMAXPROCS.
	Workers int
}

// ClassWeights returns the per-class weights for mode. An empty mode gives
// every class weight one.
func ClassWeights(y []int, nClasses int, mode string) ([]float64, error) {
	w := make([]float64, nClasses)
	switch mode {
	case "":
		for i := range w {
			w[i] = 1
		}
	case ClassWeightBalanced:
		counts := make([]float64, nClasses)
		for _, c := range y {
			counts[c]++
		}
		for i, c := range counts {
			if c > 0 {
				w[i] = float64(len(y)) / (float64(nClasses) * c)
			}
		}
	default:
		return nil, fmt.Errorf("unknown class weight %q", mode)
	}
	return w, nil
}

// SqrtFeatures is the feature subset size forests use by default.
func SqrtFeatures(nFeatures int) int {
	k := int(math.Sqrt(float64(nFeatures)))
	if k < 1 {
		k = 1
	}
	return k
}

// FitForest grows NTrees trees, each on a bootstrap sample of the rows with
// the class weights applied on top of the bootstrap counts. Every tree gets
// its own RNG seeded from Seed, so the result does not depend on scheduling.
func FitForest(X [][]float64, y []int, nClasses int, p ForestParams) ([]*model.DecisionTree, error) {
	if len(X) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if p.NTrees <= 0 {
		return nil, fmt.Errorf("forest needs at least one tree, got %d", p.NTrees)
	}
	classWeight, err := ClassWeights(y, nClasses, p.ClassWeight)
	if err != nil {
		return nil, err
	}
	if p.Tree.MaxFeatures == 0 {
		p.Tree.MaxFeatures = SqrtFeatures(len(X[0]))
	}

	master := rand.New(rand.NewSource(p.Seed))
	seeds := make([]int64, p.NTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*model.DecisionTree, p.NTrees)
	errs := make([]error, p.NTrees)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for t := 0; t < p.NTrees; t++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(t int) {
			defer wg.Done()
			defer func() { <-sem }()

			rng := rand.New(rand.NewSource(seeds[t]))
			weights := make([]float64, len(X))
			for n := 0; n < len(X); n++ {
				weights[rng.Intn(len(X))]++
			}
			for i := range weights {
				weights[i] *= classWeight[y[i]]
			}
			trees[t], errs[t] = FitTree(X, y, weights, nClasses, p.Tree, rng)
		}(t)
	}
	wg.Wait()

	for t, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", t, err)
		}
	}
	return trees, nil
}
