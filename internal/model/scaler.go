package model

import "fmt"

// StandardScaler centers each column on its training mean and divides by the
// training standard deviation. A zero scale leaves the column unscaled.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform returns a scaled copy of x.
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out
}

func (s *StandardScaler) validate(nFeatures int) error {
	if len(s.Mean) != nFeatures || len(s.Scale) != nFeatures {
		return fmt.Errorf("%w: scaler has %d/%d columns, want %d", ErrInvalidModel, len(s.Mean), len(s.Scale), nFeatures)
	}
	return nil
}
