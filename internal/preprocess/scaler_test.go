package preprocess

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestStandardize(t *testing.T) {
	x := mat.NewDense(5, 3, []float64{
		0.7, -5.1, 120,
		0.4, -4.0, 140,
		0.8, -6.0, 95,
		0.9, -3.0, 126,
		0.6, -7.0, 101,
	})

	z, err := Standardize(x)
	if err != nil {
		t.Fatalf("Standardize() error = %v", err)
	}

	col := make([]float64, 5)
	for j := range 3 {
		mat.Col(col, j, z)
		mean, std := stat.PopMeanStdDev(col, nil)
		if math.Abs(mean) > 1e-12 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}
		if math.Abs(std-1) > 1e-12 {
			t.Errorf("column %d std = %v, want 1", j, std)
		}
	}
}

func TestStandardizeConstantColumn(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
	})

	var s StandardScaler
	z, err := s.FitTransform(x)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	if s.Scale[1] != 1 {
		t.Errorf("Scale[1] = %v, want 1 for zero variance", s.Scale[1])
	}
	for i := range 3 {
		if z.At(i, 1) != 0 {
			t.Errorf("z[%d][1] = %v, want 0", i, z.At(i, 1))
		}
	}
	want := []float64{-math.Sqrt(1.5), 0, math.Sqrt(1.5)}
	for i, w := range want {
		if math.Abs(z.At(i, 0)-w) > 1e-12 {
			t.Errorf("z[%d][0] = %v, want %v", i, z.At(i, 0), w)
		}
	}
}

func TestScalerErrors(t *testing.T) {
	var s StandardScaler
	if _, err := s.Transform(mat.NewDense(1, 1, nil)); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Transform() before Fit error = %v, want %v", err, ErrNotFitted)
	}

	if err := s.Fit(mat.NewDense(2, 2, nil)); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if _, err := s.Transform(mat.NewDense(2, 3, nil)); err == nil {
		t.Error("Transform() with wrong width error = nil, want error")
	}
}
