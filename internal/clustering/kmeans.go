package clustering

import (
	"fmt"
	"math/rand/v2"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/mat"
)

// KMeans partitions rows into K clusters with Lloyd's algorithm.
// Centers are seeded with k-means++ from a fixed seed, so results repeat
// exactly for the same input.
type KMeans struct {
	K             int    // Number of clusters
	Seed          uint64 // PRNG seed for center initialisation
	Restarts      int    // Independent runs; the lowest inertia wins (default: 10)
	MaxIterations int    // Lloyd iterations per run (default: 300)
}

// DefaultKMeans returns the configuration used by the comparison run.
func DefaultKMeans() KMeans {
	return KMeans{
		K:             4,
		Seed:          42,
		Restarts:      10,
		MaxIterations: 300,
	}
}

func (k KMeans) Name() string { return "KMeans" }

// FitPredict clusters the rows of x and returns labels numbered by first appearance.
func (k KMeans) FitPredict(x mat.Matrix) ([]int, error) {
	obs := observations(x)
	n := len(obs)
	if k.K < 1 {
		return nil, fmt.Errorf("%w: k-means needs k >= 1, got %d", ErrInvalidParam, k.K)
	}
	if n < k.K {
		return nil, fmt.Errorf("%w: %d points, k=%d", ErrTooFewPoints, n, k.K)
	}

	restarts := k.Restarts
	if restarts <= 0 {
		restarts = DefaultKMeans().Restarts
	}
	maxIter := k.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultKMeans().MaxIterations
	}

	rng := rand.New(rand.NewPCG(k.Seed, k.Seed))

	var best []int
	var bestInertia float64
	for r := range restarts {
		labels, inertia := k.partition(obs, rng, maxIter)
		if r == 0 || inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}

	return relabel(best), nil
}

// partition runs a single seeded Lloyd's loop and returns labels with their inertia.
func (k KMeans) partition(obs clusters.Observations, rng *rand.Rand, maxIter int) ([]int, float64) {
	cc := seedPlusPlus(obs, k.K, rng)

	points := make([]int, len(obs))
	for i := range points {
		points[i] = -1
	}

	for range maxIter {
		changes := 0
		cc.Reset()
		for p, o := range obs {
			ci := cc.Nearest(o)
			cc[ci].Append(o)
			if points[p] != ci {
				points[p] = ci
				changes++
			}
		}

		if relocateEmpty(cc, obs, points) {
			cc.Reset()
			for p, o := range obs {
				cc[points[p]].Append(o)
			}
			changes++
		}

		cc.Recenter()
		if changes == 0 {
			break
		}
	}

	var inertia float64
	for p, o := range obs {
		inertia += o.Distance(cc[points[p]].Center)
	}
	return points, inertia
}

// seedPlusPlus picks k initial centers, each new one sampled with probability
// proportional to its squared distance from the centers chosen so far.
func seedPlusPlus(obs clusters.Observations, k int, rng *rand.Rand) clusters.Clusters {
	n := len(obs)
	cc := make(clusters.Clusters, 0, k)
	cc = append(cc, clusters.Cluster{Center: clone(obs[rng.IntN(n)].Coordinates())})

	dist := make([]float64, n)
	for i, o := range obs {
		dist[i] = o.Distance(cc[0].Center)
	}

	for len(cc) < k {
		var sum float64
		for _, d := range dist {
			sum += d
		}

		next := rng.IntN(n)
		if sum > 0 {
			target := rng.Float64() * sum
			var acc float64
			for i, d := range dist {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
			}
		}

		center := clone(obs[next].Coordinates())
		cc = append(cc, clusters.Cluster{Center: center})
		for i, o := range obs {
			if d := o.Distance(center); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return cc
}

// relocateEmpty moves the point farthest from its center into each empty cluster.
// Reports whether any assignment changed.
func relocateEmpty(cc clusters.Clusters, obs clusters.Observations, points []int) bool {
	counts := make([]int, len(cc))
	for _, p := range points {
		counts[p]++
	}

	moved := false
	for ci := range cc {
		if counts[ci] > 0 {
			continue
		}

		far, farDist := -1, -1.0
		for p, o := range obs {
			owner := points[p]
			if counts[owner] <= 1 {
				continue
			}
			if d := o.Distance(cc[owner].Center); d > farDist {
				far, farDist = p, d
			}
		}
		if far < 0 {
			continue
		}

		counts[points[far]]--
		counts[ci]++
		points[far] = ci
		cc[ci].Center = clone(obs[far].Coordinates())
		moved = true
	}
	return moved
}

func clone(c clusters.Coordinates) clusters.Coordinates {
	out := make(clusters.Coordinates, len(c))
	copy(out, c)
	return out
}
