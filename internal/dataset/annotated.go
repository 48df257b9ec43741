package dataset

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// AnnotatedSong is a song read back from an annotated CSV.
type AnnotatedSong struct {
	Song
	Cluster int
	Mood    string
	PCA1    float64
	PCA2    float64
}

// LoadAnnotated reads a CSV previously produced by WriteAnnotated.
func LoadAnnotated(path string) ([]AnnotatedSong, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening annotated dataset: %w", err)
	}
	defer f.Close()

	songs, err := ReadAnnotated(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return songs, nil
}

// ReadAnnotated parses an annotated CSV. The cluster and mood columns are required;
// projection columns are optional.
func ReadAnnotated(r io.Reader) ([]AnnotatedSong, error) {
	ds, err := Read(r)
	if err != nil {
		return nil, err
	}

	names := ds.frame.Names()
	for _, col := range []string{ColCluster, ColMood} {
		if !slices.Contains(names, col) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	clusters := ds.frame.Col(ColCluster).Records()
	moods := textCells(ds.frame.Col(ColMood))
	var pca1, pca2 []string
	if slices.Contains(names, ColPCA1) && slices.Contains(names, ColPCA2) {
		pca1 = ds.frame.Col(ColPCA1).Records()
		pca2 = ds.frame.Col(ColPCA2).Records()
	}

	out := make([]AnnotatedSong, len(ds.Songs))
	for i, s := range ds.Songs {
		cluster, err := strconv.Atoi(strings.TrimSpace(clusters[i]))
		if err != nil {
			return nil, fmt.Errorf("row %d column %s: invalid cluster %q", i+1, ColCluster, clusters[i])
		}
		out[i] = AnnotatedSong{Song: s, Cluster: cluster, Mood: moods[i]}
		if pca1 != nil {
			if out[i].PCA1, err = parseCoordinate(pca1[i]); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, ColPCA1, err)
			}
			if out[i].PCA2, err = parseCoordinate(pca2[i]); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, ColPCA2, err)
			}
		}
	}
	return out, nil
}

func parseCoordinate(cell string) (float64, error) {
	v, err := parseFeature(cell)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}
