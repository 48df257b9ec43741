package clustering

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Linkage selects how the distance between two clusters is measured.
type Linkage string

// Supported linkages.
const (
	Ward     Linkage = "ward"
	Average  Linkage = "average"
	Complete Linkage = "complete"
	Single   Linkage = "single"
)

// ParseLinkage converts a name into a Linkage. An empty name means Ward.
func ParseLinkage(s string) (Linkage, error) {
	switch l := Linkage(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return Ward, nil
	case Ward, Average, Complete, Single:
		return l, nil
	default:
		return "", fmt.Errorf("%w: unknown linkage %q", ErrInvalidParam, s)
	}
}

// Agglomerative builds a bottom-up merge tree and cuts it into K clusters.
// The tree is built with the nearest-neighbour chain algorithm over a full
// pairwise distance matrix, so memory grows with the square of the row count.
type Agglomerative struct {
	K       int
	Linkage Linkage // default: Ward
}

// DefaultAgglomerative returns the configuration used by the comparison run.
func DefaultAgglomerative() Agglomerative {
	return Agglomerative{K: 4, Linkage: Average}
}

func (a Agglomerative) Name() string { return "Agglomerative" }

// merge records one step of the tree: clusters represented by rows x and y
// joined at the given height.
type merge struct {
	x, y   int
	height float64
}

// FitPredict returns labels numbered by first appearance in row order.
func (a Agglomerative) FitPredict(x mat.Matrix) ([]int, error) {
	linkage := a.Linkage
	if linkage == "" {
		linkage = Ward
	}
	if _, err := ParseLinkage(string(linkage)); err != nil {
		return nil, err
	}
	if a.K < 1 {
		return nil, fmt.Errorf("%w: agglomerative needs k >= 1, got %d", ErrInvalidParam, a.K)
	}

	points := rows(x)
	n := len(points)
	if n < a.K {
		return nil, fmt.Errorf("%w: %d points, k=%d", ErrTooFewPoints, n, a.K)
	}

	merges := nnChain(newDistances(points, linkage == Ward), linkage)

	slices.SortStableFunc(merges, func(p, q merge) int {
		switch {
		case p.height < q.height:
			return -1
		case p.height > q.height:
			return 1
		}
		return 0
	})

	uf := newUnionFind(n)
	for _, m := range merges[:n-a.K] {
		uf.union(m.x, m.y)
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = uf.find(i)
	}
	return relabel(labels), nil
}

// distances is a condensed symmetric distance matrix.
type distances struct {
	n int
	d []float64
}

// newDistances computes pairwise euclidean distances, squared when squared is set.
func newDistances(points [][]float64, squared bool) *distances {
	n := len(points)
	dm := &distances{n: n, d: make([]float64, n*(n-1)/2)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var s float64
			for k := range points[i] {
				diff := points[i][k] - points[j][k]
				s += diff * diff
			}
			if !squared {
				s = math.Sqrt(s)
			}
			dm.d[dm.index(i, j)] = s
		}
	}
	return dm
}

func (dm *distances) index(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return dm.n*i - i*(i+1)/2 + (j - i - 1)
}

func (dm *distances) at(i, j int) float64 { return dm.d[dm.index(i, j)] }

func (dm *distances) set(i, j int, v float64) { dm.d[dm.index(i, j)] = v }

// nnChain merges clusters until one remains and returns the n-1 merges in the
// order they were performed. The merged cluster takes over row y's slot.
func nnChain(dm *distances, linkage Linkage) []merge {
	n := dm.n
	size := make([]int, n)
	for i := range size {
		size[i] = 1
	}

	merges := make([]merge, 0, n-1)
	chain := make([]int, 0, n)

	for len(merges) < n-1 {
		if len(chain) == 0 {
			for i := range size {
				if size[i] > 0 {
					chain = append(chain, i)
					break
				}
			}
		}

		var x, y int
		var best float64
		for {
			x = chain[len(chain)-1]
			y = -1
			best = math.Inf(1)
			if len(chain) > 1 {
				y = chain[len(chain)-2]
				best = dm.at(x, y)
			}

			for i := range size {
				if size[i] == 0 || i == x {
					continue
				}
				if d := dm.at(x, i); d < best {
					best, y = d, i
				}
			}

			if len(chain) > 1 && y == chain[len(chain)-2] {
				break
			}
			chain = append(chain, y)
		}

		chain = chain[:len(chain)-2]
		if x > y {
			x, y = y, x
		}

		height := best
		if linkage == Ward {
			height = math.Sqrt(best)
		}
		merges = append(merges, merge{x: x, y: y, height: height})

		nx, ny := size[x], size[y]
		for k := range size {
			if size[k] == 0 || k == x || k == y {
				continue
			}
			dm.set(k, y, lanceWilliams(linkage, dm.at(k, x), dm.at(k, y), best, nx, ny, size[k]))
		}
		size[x] = 0
		size[y] = nx + ny
	}

	return merges
}

// lanceWilliams returns the distance from cluster k to the union of x and y.
// For Ward the inputs and result are squared distances.
func lanceWilliams(linkage Linkage, dkx, dky, dxy float64, nx, ny, nk int) float64 {
	switch linkage {
	case Single:
		return math.Min(dkx, dky)
	case Complete:
		return math.Max(dkx, dky)
	case Average:
		return (float64(nx)*dkx + float64(ny)*dky) / float64(nx+ny)
	default:
		t := float64(nx + ny + nk)
		return (float64(nx+nk)*dkx + float64(ny+nk)*dky - float64(nk)*dxy) / t
	}
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
