// Package analysis runs the clustering pipelines and persists their results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"

	"github.com/justestif/go-spotify-mood-clusters/internal/charts"
	"github.com/justestif/go-spotify-mood-clusters/internal/dataset"
	"github.com/justestif/go-spotify-mood-clusters/internal/db"
	"github.com/justestif/go-spotify-mood-clusters/internal/preprocess"
	"github.com/justestif/go-spotify-mood-clusters/internal/projection"
)

// Errors returned by the pipelines.
var (
	ErrNoCompleteRows = errors.New("no rows have every audio feature")
	ErrNoStore        = errors.New("persistence requested but no database is configured")
)

// Store persists pipeline results. *db.DB satisfies it.
type Store interface {
	SaveCompare(ctx context.Context, run *db.Run, scores []db.Score) error
	SaveMoods(ctx context.Context, run *db.Run, songs []db.SongMood) error
}

// Service runs the compare and moods pipelines.
type Service struct {
	logger *log.Logger
	store  Store
}

// New creates a new analysis service. store may be nil when nothing is persisted.
func New(logger *log.Logger, store Store) *Service {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Service{logger: logger, store: store}
}

// prepared is a loaded catalogue reduced to the songs that can be clustered.
type prepared struct {
	dataset    *dataset.Dataset
	songs      []dataset.Song
	raw        *mat.Dense // unscaled features of songs
	scaled     *mat.Dense
	projection *projection.Result
}

func (p *prepared) skipped() int {
	return p.dataset.Len() - len(p.songs)
}

// prepare loads input, keeps rows with every feature, standardizes them and
// projects them onto two principal components.
func (s *Service) prepare(ctx context.Context, input string) (*prepared, error) {
	ds, err := dataset.Load(input)
	if err != nil {
		return nil, fmt.Errorf("loading songs: %w", err)
	}

	songs := ds.Complete()
	s.logger.Info("loaded songs", "path", input, "rows", ds.Len(), "complete", len(songs))
	if len(songs) == 0 {
		return nil, fmt.Errorf("%s: %w", input, ErrNoCompleteRows)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := dataset.Matrix(songs)
	scaled, err := preprocess.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("standardizing features: %w", err)
	}

	proj, err := projection.PCA(scaled, 2)
	if err != nil {
		return nil, fmt.Errorf("projecting features: %w", err)
	}
	s.logger.Debug("projected features", "explained", proj.Explained)

	return &prepared{
		dataset:    ds,
		songs:      songs,
		raw:        raw,
		scaled:     scaled,
		projection: proj,
	}, nil
}

// saveChart writes c as a PNG to path and, when html is set, as an
// interactive page next to it.
func (s *Service) saveChart(path string, c charts.Chart, html bool) (string, error) {
	if err := charts.SavePNG(path, c); err != nil {
		return "", err
	}
	s.logger.Info("saved plot", "path", path)

	if !html {
		return "", nil
	}
	htmlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
	if err := charts.SaveHTML(htmlPath, c); err != nil {
		return "", err
	}
	s.logger.Info("saved interactive plot", "path", htmlPath)
	return htmlPath, nil
}
