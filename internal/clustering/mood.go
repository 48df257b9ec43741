package clustering

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Mood labels.
const (
	Chill     = "Chill"
	Happy     = "Happy"
	Energetic = "Energetic"
	Sad       = "Sad"
)

// Moods lists every mood label in display order.
var Moods = []string{Chill, Happy, Energetic, Sad}

// Mood mapping errors.
var (
	ErrMoodClusterCount = errors.New("mood mapping needs exactly one cluster per mood")
	ErrUnknownCluster   = errors.New("cluster has no mood")
	ErrMissingFeature   = errors.New("feature needed for mood mapping is absent")
)

// Strategy selects how cluster ids are turned into moods.
type Strategy string

const (
	// StrategyCentroid names clusters from their average energy and valence.
	StrategyCentroid Strategy = "centroid"
	// StrategyPositional uses the fixed id table {0: Chill, 1: Happy, 2: Energetic, 3: Sad}.
	// Cluster ids carry no meaning, so the labels it produces are arbitrary.
	StrategyPositional Strategy = "positional"
)

// ParseStrategy converts a name into a Strategy. An empty name means StrategyCentroid.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyCentroid, nil
	case StrategyCentroid, StrategyPositional:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown mood strategy %q", ErrInvalidParam, s)
	}
}

// positionalMoods is the fixed id-to-mood table.
var positionalMoods = map[int]string{
	0: Chill,
	1: Happy,
	2: Energetic,
	3: Sad,
}

// MoodMapper assigns a mood to each cluster of a labelled feature matrix.
type MoodMapper struct {
	Strategy Strategy
	Features []string // Column names of the matrix; must include energy and valence for StrategyCentroid
}

// Map returns the mood of every row and the cluster-to-mood table.
func (m MoodMapper) Map(x mat.Matrix, labels []int) ([]string, map[int]string, error) {
	var table map[int]string
	var err error

	switch m.Strategy {
	case StrategyPositional:
		table, err = positionalTable(labels)
	case StrategyCentroid, "":
		table, err = m.centroidTable(x, labels)
	default:
		err = fmt.Errorf("%w: unknown mood strategy %q", ErrInvalidParam, m.Strategy)
	}
	if err != nil {
		return nil, nil, err
	}

	moods := make([]string, len(labels))
	for i, l := range labels {
		mood, ok := table[l]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %d", ErrUnknownCluster, l)
		}
		moods[i] = mood
	}
	return moods, table, nil
}

func positionalTable(labels []int) (map[int]string, error) {
	table := make(map[int]string)
	for _, l := range Labels(labels) {
		mood, ok := positionalMoods[l]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCluster, l)
		}
		table[l] = mood
	}
	return table, nil
}

// centroidTable matches clusters to moods one-to-one. Each (mood, cluster) pair
// is scored from the cluster's centroid: Energetic by energy, Happy by valence,
// Sad by low valence, Chill by low energy. Pairs are taken best score first,
// ties going to the earlier mood in Moods and then the lower cluster id.
func (m MoodMapper) centroidTable(x mat.Matrix, labels []int) (map[int]string, error) {
	energy := slices.Index(m.Features, "energy")
	valence := slices.Index(m.Features, "valence")
	if energy < 0 || valence < 0 {
		return nil, fmt.Errorf("%w: need energy and valence", ErrMissingFeature)
	}

	ids := Labels(labels)
	if len(ids) != len(Moods) || slices.Contains(ids, Noise) {
		return nil, fmt.Errorf("%w: got %d clusters", ErrMoodClusterCount, len(ids))
	}

	centroids, err := Centroids(x, labels)
	if err != nil {
		return nil, err
	}

	score := func(mood string, c []float64) float64 {
		switch mood {
		case Energetic:
			return c[energy]
		case Happy:
			return c[valence]
		case Sad:
			return -c[valence]
		default:
			return -c[energy]
		}
	}

	type pair struct {
		mood    int
		cluster int
		score   float64
	}
	var pairs []pair
	for mi, mood := range Moods {
		for _, id := range ids {
			pairs = append(pairs, pair{mood: mi, cluster: id, score: score(mood, centroids[id])})
		}
	}
	slices.SortStableFunc(pairs, func(a, b pair) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		case a.mood != b.mood:
			return a.mood - b.mood
		}
		return a.cluster - b.cluster
	})

	table := make(map[int]string, len(ids))
	used := make(map[int]bool, len(Moods))
	for _, p := range pairs {
		if used[p.mood] {
			continue
		}
		if _, taken := table[p.cluster]; taken {
			continue
		}
		table[p.cluster] = Moods[p.mood]
		used[p.mood] = true
	}
	return table, nil
}

// IsMood reports whether s is one of the mood labels, ignoring case, and returns
// its canonical spelling.
func IsMood(s string) (string, bool) {
	for _, m := range Moods {
		if strings.EqualFold(m, strings.TrimSpace(s)) {
			return m, true
		}
	}
	return "", false
}
