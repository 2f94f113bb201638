package dataset

import (
	"fmt"
	"math"
	"sort"
)

// Quantile returns the q-th quantile of sorted values, interpolating
// linearly between the two closest ranks at position q*(n-1).
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// Bounds are the inclusive limits a value must fall within to be kept.
type Bounds struct {
	Lower, Upper float64
}

// IQRBounds computes [Q1 - k*IQR, Q3 + k*IQR] for values. NaNs are ignored.
func IQRBounds(values []float64, k float64) Bounds {
	s := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			s = append(s, v)
		}
	}
	sort.Float64s(s)
	q1 := Quantile(s, 0.25)
	q3 := Quantile(s, 0.75)
	iqr := q3 - q1
	return Bounds{Lower: q1 - k*iqr, Upper: q3 + k*iqr}
}

// IQRMask marks rows whose value in every listed column lies within that
// column's IQR bounds. The bounds of all columns are computed on the
// unfiltered frame.
func (f *Frame) IQRMask(cols []string, k float64) ([]bool, error) {
	keep := make([]bool, f.n)
	for i := range keep {
		keep[i] = true
	}
	for _, col := range cols {
		v, err := f.Floats(col)
		if err != nil {
			return nil, err
		}
		b := IQRBounds(v, k)
		for i, x := range v {
			if math.IsNaN(x) {
				return nil, fmt.Errorf("column %s row %d is not a number", col, i)
			}
			if x < b.Lower || x > b.Upper {
				keep[i] = false
			}
		}
	}
	return keep, nil
}
