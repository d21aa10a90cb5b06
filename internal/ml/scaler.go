package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// StandardScaler centers each column on its mean and divides by its
// population standard deviation. Columns with zero variance keep scale 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler learns per-column statistics from X.
func FitStandardScaler(X [][]float64) (*StandardScaler, error) {
	d, err := checkMatrix(X)
	if err != nil {
		return nil, err
	}
	s := &StandardScaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	for j := 0; j < d; j++ {
		mean, std := stat.PopMeanStdDev(column(X, j), nil)
		s.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s, nil
}

// Width is the number of features the scaler was fit on.
func (s *StandardScaler) Width() int { return len(s.Mean) }

// TransformRow standardizes a single feature vector.
func (s *StandardScaler) TransformRow(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d features, scaler has %d", apperr.ErrFeatureMismatch, len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Transform standardizes every row of X into a new matrix.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		z, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = z
	}
	return out, nil
}
