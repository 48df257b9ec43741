package web

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/dataset"
	"github.com/justestif/go-spotify-mood-clusters/internal/db"
)

// DefaultSongLimit caps filtered song responses.
const DefaultSongLimit = 100

// Filter errors.
var (
	ErrUnknownMood   = errors.New("unknown mood")
	ErrInvalidFilter = errors.New("invalid filter")
)

// SongSource provides the labelled catalogue served by the API.
type SongSource interface {
	Songs(ctx context.Context) ([]dataset.AnnotatedSong, error)
}

// StaticSource serves a catalogue held in memory.
type StaticSource []dataset.AnnotatedSong

// Songs returns the catalogue.
func (s StaticSource) Songs(context.Context) ([]dataset.AnnotatedSong, error) {
	return s, nil
}

// LoadCSVSource reads an annotated CSV once into memory.
func LoadCSVSource(path string) (StaticSource, error) {
	songs, err := dataset.LoadAnnotated(path)
	if err != nil {
		return nil, fmt.Errorf("loading clustered songs: %w", err)
	}
	return StaticSource(songs), nil
}

// DBSource serves the songs of the latest stored moods run.
type DBSource struct {
	database *db.DB
}

// NewDBSource creates a database-backed song source.
func NewDBSource(database *db.DB) *DBSource {
	return &DBSource{database: database}
}

// Songs returns the latest run's songs, or none when no run is stored.
func (s *DBSource) Songs(ctx context.Context) ([]dataset.AnnotatedSong, error) {
	rows, err := s.database.SongMoods().ForLatestRun(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	songs := make([]dataset.AnnotatedSong, len(rows))
	for i, r := range rows {
		songs[i] = annotatedFromDB(r)
	}
	return songs, nil
}

func annotatedFromDB(r db.SongMood) dataset.AnnotatedSong {
	song := dataset.Song{
		Row:      r.Row,
		TrackID:  r.TrackID,
		Name:     r.Name,
		Artist:   r.Artist,
		Genre:    r.Genre,
		Subgenre: r.Subgenre,
	}
	for j, name := range dataset.FeatureNames {
		if j < len(r.Features) {
			v := r.Features[j]
			song.SetFeature(name, &v)
		}
	}
	return dataset.AnnotatedSong{
		Song:    song,
		Cluster: r.Cluster,
		Mood:    r.Mood,
		PCA1:    r.PCA1,
		PCA2:    r.PCA2,
	}
}

// songJSON is the wire form of a song, keyed like the annotated CSV.
type songJSON struct {
	TrackID          string   `json:"track_id"`
	Name             string   `json:"track_name"`
	Artist           string   `json:"track_artist"`
	Genre            string   `json:"playlist_genre"`
	Subgenre         string   `json:"playlist_subgenre"`
	Danceability     *float64 `json:"danceability"`
	Energy           *float64 `json:"energy"`
	Loudness         *float64 `json:"loudness"`
	Speechiness      *float64 `json:"speechiness"`
	Acousticness     *float64 `json:"acousticness"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Liveness         *float64 `json:"liveness"`
	Valence          *float64 `json:"valence"`
	Tempo            *float64 `json:"tempo"`
	Cluster          int      `json:"cluster"`
	Mood             string   `json:"mood"`
	PCA1             float64  `json:"pca1"`
	PCA2             float64  `json:"pca2"`
}

func toJSON(s dataset.AnnotatedSong) songJSON {
	return songJSON{
		TrackID:          s.TrackID,
		Name:             s.Name,
		Artist:           s.Artist,
		Genre:            s.Genre,
		Subgenre:         s.Subgenre,
		Danceability:     s.Danceability,
		Energy:           s.Energy,
		Loudness:         s.Loudness,
		Speechiness:      s.Speechiness,
		Acousticness:     s.Acousticness,
		Instrumentalness: s.Instrumentalness,
		Liveness:         s.Liveness,
		Valence:          s.Valence,
		Tempo:            s.Tempo,
		Cluster:          s.Cluster,
		Mood:             s.Mood,
		PCA1:             s.PCA1,
		PCA2:             s.PCA2,
	}
}

// danceableThreshold splits danceable from not danceable songs.
const danceableThreshold = 0.6

// songFilter selects songs for /api/songs. Zero fields match everything.
type songFilter struct {
	mood      string
	cluster   *int
	genre     string
	danceable *bool
	minTempo  *float64
	maxTempo  *float64
}

func (f songFilter) empty() bool {
	return f == songFilter{}
}

// parseFilter reads the mood, genre, danceability, min_tempo and max_tempo
// query parameters. mood accepts a mood name or a cluster index.
func parseFilter(q url.Values) (songFilter, error) {
	var f songFilter

	if m := strings.TrimSpace(q.Get("mood")); m != "" {
		if name, ok := clustering.IsMood(m); ok {
			f.mood = name
		} else if n, err := strconv.Atoi(m); err == nil && n >= 0 {
			f.cluster = &n
		} else {
			return f, fmt.Errorf("%w: %q", ErrUnknownMood, m)
		}
	}

	f.genre = strings.TrimSpace(q.Get("genre"))

	switch d := q.Get("danceability"); d {
	case "":
	case "danceable":
		f.danceable = ptr(true)
	case "not_danceable":
		f.danceable = ptr(false)
	default:
		return f, fmt.Errorf("%w: danceability %q", ErrInvalidFilter, d)
	}

	var err error
	if f.minTempo, err = floatParam(q, "min_tempo"); err != nil {
		return f, err
	}
	if f.maxTempo, err = floatParam(q, "max_tempo"); err != nil {
		return f, err
	}
	return f, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", ErrInvalidFilter, key, s)
	}
	return &v, nil
}

func (f songFilter) match(s dataset.AnnotatedSong) bool {
	if f.mood != "" && s.Mood != f.mood {
		return false
	}
	if f.cluster != nil && s.Cluster != *f.cluster {
		return false
	}
	if f.genre != "" && !strings.EqualFold(s.Genre, f.genre) {
		return false
	}
	if f.danceable != nil {
		if s.Danceability == nil || (*s.Danceability >= danceableThreshold) != *f.danceable {
			return false
		}
	}
	if f.minTempo != nil || f.maxTempo != nil {
		if s.Tempo == nil {
			return false
		}
		if f.minTempo != nil && *s.Tempo < *f.minTempo {
			return false
		}
		if f.maxTempo != nil && *s.Tempo > *f.maxTempo {
			return false
		}
	}
	return true
}

// selectSongs returns every song when f is empty, otherwise up to limit
// matching songs in random order.
func selectSongs(songs []dataset.AnnotatedSong, f songFilter, limit int) []songJSON {
	if f.empty() {
		out := make([]songJSON, len(songs))
		for i, s := range songs {
			out[i] = toJSON(s)
		}
		return out
	}

	out := []songJSON{}
	for _, s := range songs {
		if f.match(s) {
			out = append(out, toJSON(s))
		}
	}
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// moodCount is one row of /api/moods.
type moodCount struct {
	Mood  string `json:"mood"`
	Count int    `json:"count"`
}

// countMoods counts songs per mood, known moods first in their usual order.
func countMoods(songs []dataset.AnnotatedSong) []moodCount {
	counts := make(map[string]int)
	var extra []string
	for _, s := range songs {
		if _, seen := counts[s.Mood]; !seen && !isKnownMood(s.Mood) {
			extra = append(extra, s.Mood)
		}
		counts[s.Mood]++
	}

	out := []moodCount{}
	for _, m := range slices.Concat(clustering.Moods, extra) {
		if n := counts[m]; n > 0 {
			out = append(out, moodCount{Mood: m, Count: n})
		}
	}
	return out
}

func isKnownMood(m string) bool {
	name, ok := clustering.IsMood(m)
	return ok && name == m
}

func ptr[T any](v T) *T { return &v }
