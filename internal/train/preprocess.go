package train

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"ml-api/internal/model"
)

// FitScaler computes the per-column mean and population standard deviation
// of X.
func FitScaler(X [][]float64) (*model.StandardScaler, error) {
	if len(X) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	nFeatures := len(X[0])
	s := &model.StandardScaler{
		Mean:  make([]float64, nFeatures),
		Scale: make([]float64, nFeatures),
	}
	col := make([]float64, len(X))
	for j := 0; j < nFeatures; j++ {
		for i, row := range X {
			if len(row) != nFeatures {
				return nil, fmt.Errorf("%w: row %d has %d features, want %d", model.ErrFeatureCount, i, len(row), nFeatures)
			}
			col[i] = row[j]
		}
		s.Mean[j], s.Scale[j] = stat.PopMeanStdDev(col, nil)
	}
	return s, nil
}

// TransformAll scales every row of X.
func TransformAll(s *model.StandardScaler, X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = s.Transform(x)
	}
	return out
}

// EncodeLabels fits a label encoder on values and returns the codes.
func EncodeLabels(values []string) (*model.LabelEncoder, []int, error) {
	enc := model.FitLabelEncoder(values)
	codes := make([]int, len(values))
	for i, v := range values {
		c, err := enc.Transform(v)
		if err != nil {
			return nil, nil, err
		}
		codes[i] = c
	}
	return enc, codes, nil
}
