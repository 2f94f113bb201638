package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SplitIndex holds the row indices of a train/test partition.
type SplitIndex struct {
	Train []int
	Test  []int
}

func testCount(n int, frac float64) int {
	return int(math.Ceil(frac * float64(n)))
}

func checkFrac(n int, frac float64) error {
	if frac <= 0 || frac >= 1 {
		return fmt.Errorf("test fraction %v outside (0, 1)", frac)
	}
	t := testCount(n, frac)
	if t < 1 || n-t < 1 {
		return fmt.Errorf("cannot split %d rows with test fraction %v", n, frac)
	}
	return nil
}

// Split shuffles n row indices with seed and puts ceil(frac*n) of them in
// the test set.
func Split(n int, frac float64, seed int64) (SplitIndex, error) {
	if err := checkFrac(n, frac); err != nil {
		return SplitIndex{}, err
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	t := testCount(n, frac)
	return SplitIndex{Train: perm[t:], Test: perm[:t]}, nil
}

// StratifiedSplit splits so that each class in y keeps its share in both
// sets. Per class, the test rows are frac of the class rounded to nearest,
// topped up or trimmed so the total matches Split.
func StratifiedSplit(y []int, frac float64, seed int64) (SplitIndex, error) {
	n := len(y)
	if err := checkFrac(n, frac); err != nil {
		return SplitIndex{}, err
	}
	rng := rand.New(rand.NewSource(seed))

	byClass := make(map[int][]int)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		if len(byClass[c]) < 2 {
			return SplitIndex{}, fmt.Errorf("class %d has fewer than 2 rows", c)
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	want := testCount(n, frac)
	take := make(map[int]int, len(classes))
	total := 0
	for _, c := range classes {
		k := int(math.Round(frac * float64(len(byClass[c]))))
		if k < 1 {
			k = 1
		}
		if k > len(byClass[c])-1 {
			k = len(byClass[c]) - 1
		}
		take[c] = k
		total += k
	}
	// adjust largest classes first until the total matches
	sort.SliceStable(classes, func(a, b int) bool { return len(byClass[classes[a]]) > len(byClass[classes[b]]) })
	for total != want {
		moved := false
		for _, c := range classes {
			if total < want && take[c] < len(byClass[c])-1 {
				take[c]++
				total++
				moved = true
			} else if total > want && take[c] > 1 {
				take[c]--
				total--
				moved = true
			}
			if total == want {
				break
			}
		}
		if !moved {
			break
		}
	}
	sort.Ints(classes)

	var split SplitIndex
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		split.Test = append(split.Test, idx[:take[c]]...)
		split.Train = append(split.Train, idx[take[c]:]...)
	}
	rng.Shuffle(len(split.Test), func(a, b int) { split.Test[a], split.Test[b] = split.Test[b], split.Test[a] })
	rng.Shuffle(len(split.Train), func(a, b int) { split.Train[a], split.Train[b] = split.Train[b], split.Train[a] })
	return split, nil
}

// Rows picks rows of X by index.
func Rows[T any](X []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}
