// Package charts renders 2-D cluster scatter plots as PNG images and interactive HTML.
package charts

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Axis labels shared by every projection chart.
const (
	XLabel = "PCA Component 1"
	YLabel = "PCA Component 2"
)

// ErrNoPoints is returned when a chart has nothing to draw.
var ErrNoPoints = errors.New("chart has no points")

// Group is one legend entry: a named set of points drawn in the same colour.
type Group struct {
	Name string
	X, Y []float64
}

// Chart is a scatter plot of grouped 2-D points.
type Chart struct {
	Title  string
	XLabel string
	YLabel string
	Width  float64 // Inches
	Height float64 // Inches
	Groups []Group
}

// Size in inches used when a chart leaves Width or Height unset.
const (
	defaultWidth  = 8
	defaultHeight = 6
)

func (c Chart) size() (float64, float64) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func (c Chart) points() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.X)
	}
	return n
}

// ClusterGroups splits the first two columns of coords by cluster label,
// ordered by label. Noise (-1) is named "Noise".
func ClusterGroups(coords mat.Matrix, labels []int) ([]Group, error) {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = clusterName(l)
	}

	ids := slices.Clone(labels)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	order := make([]string, len(ids))
	for i, id := range ids {
		order[i] = clusterName(id)
	}

	return NamedGroups(coords, names, order)
}

func clusterName(l int) string {
	if l < 0 {
		return "Noise"
	}
	return fmt.Sprintf("Cluster %d", l)
}

// NamedGroups splits the first two columns of coords by name. Groups follow
// order; names missing from order are appended in order of first appearance.
func NamedGroups(coords mat.Matrix, names []string, order []string) ([]Group, error) {
	r, c := coords.Dims()
	if r != len(names) {
		return nil, fmt.Errorf("got %d names for %d points", len(names), r)
	}
	if c < 2 {
		return nil, fmt.Errorf("need two coordinates per point, got %d", c)
	}

	order = slices.Clone(order)
	for _, n := range names {
		if !slices.Contains(order, n) {
			order = append(order, n)
		}
	}

	index := make(map[string]int, len(order))
	groups := make([]Group, len(order))
	for i, n := range order {
		index[n] = i
		groups[i].Name = n
	}
	for i, n := range names {
		g := &groups[index[n]]
		g.X = append(g.X, coords.At(i, 0))
		g.Y = append(g.Y, coords.At(i, 1))
	}

	return slices.DeleteFunc(groups, func(g Group) bool { return len(g.X) == 0 }), nil
}
