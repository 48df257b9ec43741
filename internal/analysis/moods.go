package analysis

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-mood-clusters/internal/charts"
	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/dataset"
	"github.com/justestif/go-spotify-mood-clusters/internal/db"
	"github.com/justestif/go-spotify-mood-clusters/internal/report"
)

// Default outputs of the moods pipeline.
const (
	DefaultMoodOutput = "clustered_spotify_songs1.csv"
	DefaultMoodPlot   = "cluster_plot.png"
	MoodChartTitle    = "Spotify Songs Clustered by Mood (Agglomerative + PCA)"
)

// MoodOptions configures a mood labelling run.
type MoodOptions struct {
	Input    string
	Output   string // Annotated CSV; defaults to DefaultMoodOutput
	Plot     string // Defaults to DefaultMoodPlot
	Clusters int    // Defaults to one per mood
	Linkage  clustering.Linkage
	Strategy clustering.Strategy
	Samples  int // Songs shown per mood; defaults to report.DefaultSampleCount
	HTML     bool
	Persist  bool
}

// MoodResult contains the outcome of a mood labelling run.
type MoodResult struct {
	RunID    uuid.UUID // Nil unless persisted
	Rows     int
	Skipped  int
	Songs    []dataset.Song
	Labels   []int
	Moods    []string       // Mood of each song
	Table    map[int]string // Cluster to mood
	Profiles []clustering.MoodProfile
	Samples  []report.MoodGroup
	Output   string
	Plot     string
	HTMLPlot string
}

// Moods clusters the catalogue with agglomerative clustering, names each
// cluster with a mood, and writes the annotated CSV and mood chart.
func (s *Service) Moods(ctx context.Context, opts MoodOptions) (*MoodResult, error) {
	if opts.Persist && s.store == nil {
		return nil, ErrNoStore
	}
	if opts.Output == "" {
		opts.Output = DefaultMoodOutput
	}
	if opts.Plot == "" {
		opts.Plot = DefaultMoodPlot
	}
	if opts.Clusters == 0 {
		opts.Clusters = len(clustering.Moods)
	}
	if opts.Linkage == "" {
		opts.Linkage = clustering.Ward
	}
	if opts.Samples <= 0 {
		opts.Samples = report.DefaultSampleCount
	}

	p, err := s.prepare(ctx, opts.Input)
	if err != nil {
		return nil, err
	}

	model := clustering.Agglomerative{K: opts.Clusters, Linkage: opts.Linkage}
	labels, err := model.FitPredict(p.scaled)
	if err != nil {
		return nil, fmt.Errorf("fitting %s: %w", model.Name(), err)
	}
	s.logger.Info("fitted model", "model", model.Name(), "linkage", opts.Linkage, "clusters", opts.Clusters)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mapper := clustering.MoodMapper{Strategy: opts.Strategy, Features: dataset.FeatureNames}
	moods, table, err := mapper.Map(p.scaled, labels)
	if err != nil {
		return nil, fmt.Errorf("assigning moods: %w", err)
	}
	for cluster, mood := range table {
		s.logger.Debug("assigned mood", "cluster", cluster, "mood", mood)
	}

	profiles, err := moodProfiles(p, labels, table)
	if err != nil {
		return nil, err
	}

	err = dataset.WriteAnnotated(opts.Output, p.dataset, p.songs, dataset.Annotations{
		Clusters:   labels,
		Moods:      moods,
		Projection: p.projection.Scores,
	})
	if err != nil {
		return nil, fmt.Errorf("writing annotated songs: %w", err)
	}
	s.logger.Info("saved annotated songs", "path", opts.Output, "rows", len(p.songs))

	groups, err := charts.NamedGroups(p.projection.Scores, moods, clustering.Moods)
	if err != nil {
		return nil, fmt.Errorf("grouping mood points: %w", err)
	}
	chart := charts.Chart{
		Title:  MoodChartTitle,
		XLabel: charts.XLabel,
		YLabel: charts.YLabel,
		Width:  10,
		Height: 6,
		Groups: groups,
	}
	htmlPlot, err := s.saveChart(opts.Plot, chart, opts.HTML)
	if err != nil {
		return nil, fmt.Errorf("plotting moods: %w", err)
	}

	result := &MoodResult{
		Rows:     len(p.songs),
		Skipped:  p.skipped(),
		Songs:    p.songs,
		Labels:   labels,
		Moods:    moods,
		Table:    table,
		Profiles: profiles,
		Samples:  report.GroupByMood(p.songs, moods, opts.Samples),
		Output:   opts.Output,
		Plot:     opts.Plot,
		HTMLPlot: htmlPlot,
	}

	if opts.Persist {
		run := &db.Run{Input: opts.Input, Rows: result.Rows, Skipped: result.Skipped}
		if err := s.store.SaveMoods(ctx, run, songMoods(p, labels, moods)); err != nil {
			return nil, fmt.Errorf("saving song moods: %w", err)
		}
		result.RunID = run.ID
		s.logger.Info("saved run", "id", run.ID)
	}

	return result, nil
}

// moodProfiles describes each cluster from its unscaled centroid, in mood order.
func moodProfiles(p *prepared, labels []int, table map[int]string) ([]clustering.MoodProfile, error) {
	centroids, err := clustering.Centroids(p.raw, labels)
	if err != nil {
		return nil, fmt.Errorf("computing centroids: %w", err)
	}
	sizes := clustering.Sizes(labels)

	profiles := make([]clustering.MoodProfile, 0, len(table))
	for cluster, mood := range table {
		named := make(map[string]float64, len(dataset.FeatureNames))
		for j, name := range dataset.FeatureNames {
			named[name] = centroids[cluster][j]
		}
		profiles = append(profiles, clustering.Profile(mood, cluster, sizes[cluster], named))
	}

	slices.SortFunc(profiles, func(a, b clustering.MoodProfile) int {
		if d := slices.Index(clustering.Moods, a.Mood) - slices.Index(clustering.Moods, b.Mood); d != 0 {
			return d
		}
		return a.Cluster - b.Cluster
	})
	return profiles, nil
}

func songMoods(p *prepared, labels []int, moods []string) []db.SongMood {
	out := make([]db.SongMood, len(p.songs))
	for i, song := range p.songs {
		out[i] = db.SongMood{
			Row:      song.Row,
			TrackID:  song.TrackID,
			Name:     song.Name,
			Artist:   song.Artist,
			Genre:    song.Genre,
			Subgenre: song.Subgenre,
			Features: song.Vector(),
			Cluster:  labels[i],
			Mood:     moods[i],
			PCA1:     p.projection.Scores.At(i, 0),
			PCA2:     p.projection.Scores.At(i, 1),
		}
	}
	return out
}
