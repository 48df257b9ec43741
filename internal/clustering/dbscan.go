package clustering

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DBSCAN groups points that lie in dense regions. A point is a core point when
// at least MinSamples points (itself included) lie within Eps of it. Points
// reachable from no core point are labelled Noise.
type DBSCAN struct {
	Eps        float64 // Neighbourhood radius (euclidean)
	MinSamples int     // Neighbourhood size that makes a core point
}

// DefaultDBSCAN returns the configuration used by the comparison run.
func DefaultDBSCAN() DBSCAN {
	return DBSCAN{Eps: 1.2, MinSamples: 5}
}

func (d DBSCAN) Name() string { return "DBSCAN" }

// FitPredict labels each row with a cluster id from 0, or Noise.
// Clusters are numbered in the order their first core point appears.
func (d DBSCAN) FitPredict(x mat.Matrix) ([]int, error) {
	if d.Eps <= 0 {
		return nil, fmt.Errorf("%w: eps must be positive, got %v", ErrInvalidParam, d.Eps)
	}
	if d.MinSamples < 1 {
		return nil, fmt.Errorf("%w: min samples must be >= 1, got %d", ErrInvalidParam, d.MinSamples)
	}

	points := rows(x)
	n := len(points)
	if n == 0 {
		return nil, fmt.Errorf("%w: no points", ErrTooFewPoints)
	}

	const unvisited = -2

	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	clusterID := 0
	for i := range n {
		if labels[i] != unvisited {
			continue
		}

		neighbors := d.region(points, i)
		if len(neighbors) < d.MinSamples {
			labels[i] = Noise
			continue
		}

		labels[i] = clusterID

		seed := make([]int, 0, len(neighbors))
		for _, j := range neighbors {
			if j != i {
				seed = append(seed, j)
			}
		}

		for len(seed) > 0 {
			q := seed[0]
			seed = seed[1:]

			if labels[q] == Noise {
				labels[q] = clusterID
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = clusterID

			if qn := d.region(points, q); len(qn) >= d.MinSamples {
				seed = append(seed, qn...)
			}
		}

		clusterID++
	}

	return labels, nil
}

// region returns the indices of every point within Eps of points[idx], idx included.
func (d DBSCAN) region(points [][]float64, idx int) []int {
	var out []int
	p := points[idx]
	for i, q := range points {
		if floats.Distance(p, q, 2) <= d.Eps {
			out = append(out, i)
		}
	}
	return out
}
