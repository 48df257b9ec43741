// Package metrics scores clusterings without ground truth.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateLabels is returned when a labeling has fewer than two clusters,
// or as many clusters as points.
var ErrDegenerateLabels = errors.New("number of labels must be between 2 and n-1")

// Silhouette returns the mean silhouette coefficient over all points, in [-1, 1].
// Every distinct label, including noise, counts as a cluster. A point alone in
// its cluster scores 0.
func Silhouette(x mat.Matrix, labels []int) (float64, error) {
	points, ids, err := prepare(x, labels)
	if err != nil {
		return 0, err
	}

	index := make(map[int]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	sizes := make([]int, len(ids))
	for _, l := range labels {
		sizes[index[l]]++
	}

	sums := make([]float64, len(ids))
	var total float64
	for i, p := range points {
		clear(sums)
		for j, q := range points {
			if i == j {
				continue
			}
			sums[index[labels[j]]] += floats.Distance(p, q, 2)
		}

		own := index[labels[i]]
		if sizes[own] == 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)

		b := math.Inf(1)
		for c := range ids {
			if c == own {
				continue
			}
			b = math.Min(b, sums[c]/float64(sizes[c]))
		}

		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}

	return total / float64(len(points)), nil
}

// DaviesBouldin returns the Davies-Bouldin index: the mean, over clusters, of the
// worst ratio of summed spread to centroid separation. Lower is better; 0 means
// every cluster is a single repeated point or every centroid coincides.
func DaviesBouldin(x mat.Matrix, labels []int) (float64, error) {
	points, ids, err := prepare(x, labels)
	if err != nil {
		return 0, err
	}

	k := len(ids)
	dim := len(points[0])
	index := make(map[int]int, k)
	for i, id := range ids {
		index[id] = i
	}

	centroids := make([][]float64, k)
	counts := make([]float64, k)
	for c := range centroids {
		centroids[c] = make([]float64, dim)
	}
	for i, p := range points {
		c := index[labels[i]]
		floats.Add(centroids[c], p)
		counts[c]++
	}
	for c := range centroids {
		floats.Scale(1/counts[c], centroids[c])
	}

	spread := make([]float64, k)
	for i, p := range points {
		c := index[labels[i]]
		spread[c] += floats.Distance(p, centroids[c], 2)
	}
	for c := range spread {
		spread[c] /= counts[c]
	}

	separation := make([][]float64, k)
	allSame := true
	for i := range separation {
		separation[i] = make([]float64, k)
		for j := range separation[i] {
			separation[i][j] = floats.Distance(centroids[i], centroids[j], 2)
			if i != j && !nearZero(separation[i][j]) {
				allSame = false
			}
		}
	}

	if allSame || allNearZero(spread) {
		return 0, nil
	}

	var total float64
	for i := range k {
		worst := math.Inf(-1)
		for j := range k {
			if i == j {
				continue
			}
			var r float64
			if separation[i][j] == 0 {
				r = math.Inf(1)
			} else {
				r = (spread[i] + spread[j]) / separation[i][j]
			}
			worst = math.Max(worst, r)
		}
		total += worst
	}
	return total / float64(k), nil
}

// prepare validates labels against x and returns its rows with the distinct labels.
func prepare(x mat.Matrix, labels []int) ([][]float64, []int, error) {
	r, c := x.Dims()
	if r != len(labels) {
		return nil, nil, fmt.Errorf("got %d labels for %d points", len(labels), r)
	}

	ids := slices.Clone(labels)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) < 2 || len(ids) > r-1 {
		return nil, nil, fmt.Errorf("%w: got %d labels for %d points", ErrDegenerateLabels, len(ids), r)
	}

	points := make([][]float64, r)
	for i := range r {
		points[i] = make([]float64, c)
		mat.Row(points[i], i, x)
	}
	return points, ids, nil
}

func nearZero(v float64) bool {
	return math.Abs(v) <= 1e-8
}

func allNearZero(vs []float64) bool {
	for _, v := range vs {
		if !nearZero(v) {
			return false
		}
	}
	return true
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
