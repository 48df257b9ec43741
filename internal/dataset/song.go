// Package dataset loads song catalogues from CSV and writes annotated results back out.
package dataset

import "gonum.org/v1/gonum/mat"

// FeatureNames lists the audio features used for clustering, in matrix column order.
var FeatureNames = []string{
	"danceability",
	"energy",
	"loudness",
	"speechiness",
	"acousticness",
	"instrumentalness",
	"liveness",
	"valence",
	"tempo",
}

// Metadata column names.
const (
	ColTrackID  = "track_id"
	ColName     = "track_name"
	ColArtist   = "track_artist"
	ColGenre    = "playlist_genre"
	ColSubgenre = "playlist_subgenre"
)

// Annotation column names appended by WriteAnnotated.
const (
	ColCluster = "cluster"
	ColMood    = "mood"
	ColPCA1    = "pca1"
	ColPCA2    = "pca2"
)

// Song represents one catalogue row with its metadata and audio features.
type Song struct {
	Row      int // Zero-based data row in the source file
	TrackID  string
	Name     string
	Artist   string
	Genre    string
	Subgenre string
	// Audio features (nil if missing in the source)
	Danceability     *float64
	Energy           *float64
	Loudness         *float64
	Speechiness      *float64
	Acousticness     *float64
	Instrumentalness *float64
	Liveness         *float64
	Valence          *float64
	Tempo            *float64
}

// features returns pointers to the feature fields in FeatureNames order.
func (s *Song) features() []**float64 {
	return []**float64{
		&s.Danceability,
		&s.Energy,
		&s.Loudness,
		&s.Speechiness,
		&s.Acousticness,
		&s.Instrumentalness,
		&s.Liveness,
		&s.Valence,
		&s.Tempo,
	}
}

// HasAudioFeatures reports whether every clustering feature is present.
func (s *Song) HasAudioFeatures() bool {
	for _, f := range s.features() {
		if *f == nil {
			return false
		}
	}
	return true
}

// Vector returns the feature values in FeatureNames order.
// It panics if a feature is missing; check HasAudioFeatures first.
func (s *Song) Vector() []float64 {
	fs := s.features()
	v := make([]float64, len(fs))
	for i, f := range fs {
		v[i] = **f
	}
	return v
}

// Feature returns the named feature value, or nil when it is missing or unknown.
func (s *Song) Feature(name string) *float64 {
	for i, n := range FeatureNames {
		if n == name {
			return *s.features()[i]
		}
	}
	return nil
}

// SetFeature sets the named feature. Unknown names are ignored.
func (s *Song) SetFeature(name string, v *float64) {
	for i, n := range FeatureNames {
		if n == name {
			*s.features()[i] = v
			return
		}
	}
}

// Matrix stacks the feature vectors of songs into an n×len(FeatureNames) matrix.
// Returns nil for an empty slice.
func Matrix(songs []Song) *mat.Dense {
	if len(songs) == 0 {
		return nil
	}
	m := mat.NewDense(len(songs), len(FeatureNames), nil)
	for i := range songs {
		m.SetRow(i, songs[i].Vector())
	}
	return m
}
