// Package projection reduces feature matrices to a few principal components for plotting.
package projection

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Common errors.
var (
	ErrTooFewRows  = errors.New("principal components need at least two rows")
	ErrFactorizing = errors.New("principal components factorization failed")
)

// Result holds a fitted projection.
type Result struct {
	Scores     *mat.Dense // n×k coordinates of each row
	Components *mat.Dense // d×k loading vectors, one per column
	Explained  []float64  // Fraction of total variance carried by each component
}

// PCA projects the rows of x onto its first k principal components. The sign
// of each component is fixed so its largest-magnitude loading is positive.
func PCA(x mat.Matrix, k int) (*Result, error) {
	n, d := x.Dims()
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewRows, n)
	}
	if k < 1 || k > min(n, d) {
		return nil, fmt.Errorf("cannot extract %d components from a %dx%d matrix", k, n, d)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, ErrFactorizing
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	components := mat.DenseCopyOf(vecs.Slice(0, d, 0, k))
	col := make([]float64, d)
	for j := range k {
		mat.Col(col, j, components)
		if col[floats.MaxIdx(absAll(col))] < 0 {
			floats.Scale(-1, col)
			components.SetCol(j, col)
		}
	}

	centered := mat.DenseCopyOf(x)
	colVals := make([]float64, n)
	for j := range d {
		mat.Col(colVals, j, centered)
		mean := stat.Mean(colVals, nil)
		floats.AddConst(-mean, colVals)
		centered.SetCol(j, colVals)
	}

	var scores mat.Dense
	scores.Mul(centered, components)

	total := floats.Sum(vars)
	explained := make([]float64, k)
	if total > 0 {
		for j := range k {
			explained[j] = vars[j] / total
		}
	}

	return &Result{
		Scores:     &scores,
		Components: components,
		Explained:  explained,
	}, nil
}

func absAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}
