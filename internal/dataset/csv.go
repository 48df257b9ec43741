package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// Common errors.
var (
	ErrMissingColumn  = errors.New("missing required column")
	ErrLengthMismatch = errors.New("annotation length does not match songs")
)

// missingTokens are the cell values read as "no value", matching the usual dataframe defaults.
var missingTokens = []string{
	"", "NA", "N/A", "n/a", "NaN", "-NaN", "nan", "-nan", "null", "NULL",
	"None", "<NA>", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "1.#IND", "1.#QNAN",
}

// Dataset is a loaded catalogue: the raw frame (every original column as text)
// plus the parsed songs, one per data row.
type Dataset struct {
	frame dataframe.DataFrame
	Songs []Song
}

// Columns returns the original column names.
func (d *Dataset) Columns() []string {
	return d.frame.Names()
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.Songs)
}

// Complete returns the songs that have every clustering feature, in file order.
func (d *Dataset) Complete() []Song {
	var out []Song
	for i := range d.Songs {
		if d.Songs[i].HasAudioFeatures() {
			out = append(out, d.Songs[i])
		}
	}
	return out
}

// Load reads a CSV catalogue from path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ds, nil
}

// Read parses a CSV catalogue. Every column is kept as text; the feature
// columns must exist and hold numbers or missing-value markers.
func Read(r io.Reader) (*Dataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parsing csv: %w", df.Err)
	}

	names := df.Names()
	for _, name := range FeatureNames {
		if !slices.Contains(names, name) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	n := df.Nrow()
	songs := make([]Song, n)
	for i := range songs {
		songs[i].Row = i
	}

	for j, name := range FeatureNames {
		for i, cell := range df.Col(name).Records() {
			v, err := parseFeature(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, name, err)
			}
			*songs[i].features()[j] = v
		}
	}

	meta := []struct {
		col string
		set func(*Song, string)
	}{
		{ColTrackID, func(s *Song, v string) { s.TrackID = v }},
		{ColName, func(s *Song, v string) { s.Name = v }},
		{ColArtist, func(s *Song, v string) { s.Artist = v }},
		{ColGenre, func(s *Song, v string) { s.Genre = v }},
		{ColSubgenre, func(s *Song, v string) { s.Subgenre = v }},
	}
	for _, m := range meta {
		if !slices.Contains(names, m.col) {
			continue
		}
		for i, cell := range textCells(df.Col(m.col)) {
			m.set(&songs[i], cell)
		}
	}

	return &Dataset{frame: df, Songs: songs}, nil
}

// parseFeature converts a cell to a feature value. Missing markers yield nil.
func parseFeature(cell string) (*float64, error) {
	s := strings.TrimSpace(cell)
	if isMissing(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", cell)
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	if math.IsInf(v, 0) {
		return nil, fmt.Errorf("non-finite value %q", cell)
	}
	return &v, nil
}

func isMissing(s string) bool {
	return slices.Contains(missingTokens, s)
}

// textCells returns the column as text, with missing markers blanked.
func textCells(s series.Series) []string {
	out := make([]string, s.Len())
	for i := range out {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		v := e.String()
		if isMissing(strings.TrimSpace(v)) {
			continue
		}
		out[i] = v
	}
	return out
}

// Annotations are the per-song results appended to an annotated CSV.
// All slices align with the songs passed to WriteAnnotated.
type Annotations struct {
	Clusters   []int
	Moods      []string
	Projection mat.Matrix // n×2
}

// WriteAnnotated writes songs with every original column plus cluster, mood,
// pca1 and pca2. Existing columns with those names are replaced.
func WriteAnnotated(path string, ds *Dataset, songs []Song, a Annotations) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := writeAnnotated(f, ds, songs, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeAnnotated(w io.Writer, ds *Dataset, songs []Song, a Annotations) error {
	n := len(songs)
	if len(a.Clusters) != n || len(a.Moods) != n {
		return fmt.Errorf("%w: %d songs, %d clusters, %d moods", ErrLengthMismatch, n, len(a.Clusters), len(a.Moods))
	}
	if a.Projection != nil {
		if r, c := a.Projection.Dims(); r != n || c < 2 {
			return fmt.Errorf("%w: projection is %dx%d for %d songs", ErrLengthMismatch, r, c, n)
		}
	}

	rows := make([]int, n)
	for i, s := range songs {
		rows[i] = s.Row
	}
	out := ds.frame.Subset(rows)

	pca1 := make([]string, n)
	pca2 := make([]string, n)
	if a.Projection != nil {
		for i := range n {
			pca1[i] = formatFloat(a.Projection.At(i, 0))
			pca2[i] = formatFloat(a.Projection.At(i, 1))
		}
	}

	out = out.
		Mutate(series.New(a.Clusters, series.Int, ColCluster)).
		Mutate(series.New(a.Moods, series.String, ColMood)).
		Mutate(series.New(pca1, series.String, ColPCA1)).
		Mutate(series.New(pca2, series.String, ColPCA2))
	if out.Err != nil {
		return fmt.Errorf("building annotated frame: %w", out.Err)
	}

	if err := out.WriteCSV(w); err != nil {
		return fmt.Errorf("writing annotated csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
