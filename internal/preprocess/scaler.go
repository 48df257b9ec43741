// Package preprocess standardizes feature matrices before clustering.
package preprocess

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Common errors.
var (
	ErrEmpty     = errors.New("no rows to fit")
	ErrNotFitted = errors.New("scaler is not fitted")
)

// StandardScaler centers each column on its mean and divides by its population
// standard deviation. Columns with zero variance are only centered.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// Fit computes per-column mean and scale from x.
func (s *StandardScaler) Fit(x mat.Matrix) error {
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return ErrEmpty
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := range c {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return nil
}

// Transform returns a standardized copy of x.
func (s *StandardScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	if s.Mean == nil {
		return nil, ErrNotFitted
	}
	r, c := x.Dims()
	if c != len(s.Mean) {
		return nil, fmt.Errorf("transform: got %d columns, scaler fitted on %d", c, len(s.Mean))
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out, nil
}

// FitTransform fits the scaler on x and returns the standardized matrix.
func (s *StandardScaler) FitTransform(x mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}

// Standardize is a shorthand for a one-off FitTransform.
func Standardize(x mat.Matrix) (*mat.Dense, error) {
	var s StandardScaler
	return s.FitTransform(x)
}
