package analysis

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-mood-clusters/internal/charts"
	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/db"
	"github.com/justestif/go-spotify-mood-clusters/internal/metrics"
	"github.com/justestif/go-spotify-mood-clusters/internal/report"
)

// DefaultPlotsDir is where compare writes its charts.
const DefaultPlotsDir = "plots"

// CompareOptions configures a model comparison run.
type CompareOptions struct {
	Input    string
	PlotsDir string             // Defaults to DefaultPlotsDir
	Models   []clustering.Model // Defaults to DefaultModels()
	HTML     bool               // Also write interactive charts
	Persist  bool               // Save scores through the Store
}

// DefaultModels returns KMeans, DBSCAN and average-linkage Agglomerative with
// their standard parameters.
func DefaultModels() []clustering.Model {
	return []clustering.Model{
		clustering.DefaultKMeans(),
		clustering.DefaultDBSCAN(),
		clustering.DefaultAgglomerative(),
	}
}

// ModelResult is one fitted model's assignment, scores and chart.
type ModelResult struct {
	Model         string
	Labels        []int
	Clusters      int // Distinct labels excluding noise
	Noise         int
	Silhouette    float64
	DaviesBouldin float64
	Plot          string
	HTMLPlot      string // Empty unless HTML was requested
}

// CompareResult contains the outcome of a comparison run.
type CompareResult struct {
	RunID     uuid.UUID // Nil unless persisted
	Rows      int       // Songs clustered
	Skipped   int       // Songs dropped for missing features
	Explained []float64 // Variance ratio of each plotted component
	Models    []ModelResult
}

// Scores returns the summary rows in model order.
func (r *CompareResult) Scores() []report.Score {
	scores := make([]report.Score, len(r.Models))
	for i, m := range r.Models {
		scores[i] = report.Score{
			Model:         m.Model,
			Silhouette:    m.Silhouette,
			DaviesBouldin: m.DaviesBouldin,
		}
	}
	return scores
}

// Compare fits every model on the standardized catalogue, scores each with
// silhouette and Davies-Bouldin, and plots each on the shared projection.
// Any model whose labelling cannot be scored aborts the run.
func (s *Service) Compare(ctx context.Context, opts CompareOptions) (*CompareResult, error) {
	if opts.Persist && s.store == nil {
		return nil, ErrNoStore
	}
	if opts.PlotsDir == "" {
		opts.PlotsDir = DefaultPlotsDir
	}
	if len(opts.Models) == 0 {
		opts.Models = DefaultModels()
	}

	p, err := s.prepare(ctx, opts.Input)
	if err != nil {
		return nil, err
	}

	result := &CompareResult{
		Rows:      len(p.songs),
		Skipped:   p.skipped(),
		Explained: p.projection.Explained,
	}

	for _, model := range opts.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mr, err := s.runModel(p, model, opts)
		if err != nil {
			return nil, err
		}
		result.Models = append(result.Models, *mr)
	}

	if opts.Persist {
		run := &db.Run{Input: opts.Input, Rows: result.Rows, Skipped: result.Skipped}
		if err := s.store.SaveCompare(ctx, run, dbScores(result.Models)); err != nil {
			return nil, fmt.Errorf("saving scores: %w", err)
		}
		result.RunID = run.ID
		s.logger.Info("saved run", "id", run.ID)
	}

	return result, nil
}

func (s *Service) runModel(p *prepared, model clustering.Model, opts CompareOptions) (*ModelResult, error) {
	name := model.Name()
	logger := s.logger.With("model", name)

	labels, err := model.FitPredict(p.scaled)
	if err != nil {
		return nil, fmt.Errorf("fitting %s: %w", name, err)
	}

	sizes := clustering.Sizes(labels)
	mr := &ModelResult{
		Model:    name,
		Labels:   labels,
		Clusters: len(sizes),
		Noise:    sizes[clustering.Noise],
	}
	if mr.Noise > 0 {
		mr.Clusters--
	}
	logger.Info("fitted model", "clusters", mr.Clusters, "noise", mr.Noise)

	if mr.Silhouette, err = metrics.Silhouette(p.scaled, labels); err != nil {
		return nil, fmt.Errorf("scoring %s: %w", name, err)
	}
	if mr.DaviesBouldin, err = metrics.DaviesBouldin(p.scaled, labels); err != nil {
		return nil, fmt.Errorf("scoring %s: %w", name, err)
	}
	logger.Debug("scored model", "silhouette", mr.Silhouette, "davies_bouldin", mr.DaviesBouldin)

	groups, err := charts.ClusterGroups(p.projection.Scores, labels)
	if err != nil {
		return nil, fmt.Errorf("grouping %s points: %w", name, err)
	}
	mr.Plot = filepath.Join(opts.PlotsDir, charts.FileName(name))
	chart := charts.Chart{
		Title:  fmt.Sprintf("%s Clustering (PCA)", name),
		XLabel: charts.XLabel,
		YLabel: charts.YLabel,
		Groups: groups,
	}
	if mr.HTMLPlot, err = s.saveChart(mr.Plot, chart, opts.HTML); err != nil {
		return nil, fmt.Errorf("plotting %s: %w", name, err)
	}

	return mr, nil
}

func dbScores(models []ModelResult) []db.Score {
	scores := make([]db.Score, len(models))
	for i, m := range models {
		scores[i] = db.Score{
			Model:         m.Model,
			Clusters:      m.Clusters,
			Silhouette:    m.Silhouette,
			DaviesBouldin: m.DaviesBouldin,
		}
	}
	return scores
}
