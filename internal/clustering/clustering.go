// Package clustering implements the song clustering models and mood labelling.
package clustering

import (
	"errors"
	"fmt"
	"slices"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/mat"
)

// Noise is the label DBSCAN gives to points that belong to no cluster.
const Noise = -1

// Common errors.
var (
	ErrTooFewPoints = errors.New("not enough points for the requested clusters")
	ErrInvalidParam = errors.New("invalid model parameter")
)

// Model is a clustering algorithm that assigns one integer label per row.
type Model interface {
	Name() string
	FitPredict(x mat.Matrix) ([]int, error)
}

// songObservation wraps one matrix row to implement clusters.Observation.
type songObservation struct {
	row    int
	coords clusters.Coordinates
}

func (o songObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

// Distance returns the squared euclidean distance to point.
func (o songObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// observations converts the rows of x into clusters.Observations.
func observations(x mat.Matrix) clusters.Observations {
	r, c := x.Dims()
	obs := make(clusters.Observations, r)
	for i := range r {
		coords := make(clusters.Coordinates, c)
		mat.Row(coords, i, x)
		obs[i] = songObservation{row: i, coords: coords}
	}
	return obs
}

// rows copies x into a slice of row vectors.
func rows(x mat.Matrix) [][]float64 {
	r, c := x.Dims()
	out := make([][]float64, r)
	for i := range r {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, x)
	}
	return out
}

// relabel renumbers labels 0..k-1 by order of first appearance. Noise is kept.
func relabel(labels []int) []int {
	next := 0
	seen := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		if l == Noise {
			out[i] = Noise
			continue
		}
		id, ok := seen[l]
		if !ok {
			id = next
			seen[l] = id
			next++
		}
		out[i] = id
	}
	return out
}

// Labels returns the distinct labels in ascending order.
func Labels(labels []int) []int {
	out := slices.Clone(labels)
	slices.Sort(out)
	return slices.Compact(out)
}

// Sizes counts the members of each label.
func Sizes(labels []int) map[int]int {
	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	return sizes
}

// Centroids returns the mean row of each label. Noise points are skipped.
func Centroids(x mat.Matrix, labels []int) (map[int][]float64, error) {
	r, c := x.Dims()
	if r != len(labels) {
		return nil, fmt.Errorf("centroids: %d rows, %d labels", r, len(labels))
	}

	groups := make(map[int]clusters.Observations)
	for _, o := range observations(x) {
		so := o.(songObservation)
		l := labels[so.row]
		if l == Noise {
			continue
		}
		groups[l] = append(groups[l], o)
	}

	out := make(map[int][]float64, len(groups))
	for l, obs := range groups {
		center, err := obs.Center()
		if err != nil {
			return nil, fmt.Errorf("centroid of cluster %d: %w", l, err)
		}
		if len(center) != c {
			return nil, fmt.Errorf("centroid of cluster %d has %d dims, want %d", l, len(center), c)
		}
		out[l] = center
	}
	return out, nil
}
