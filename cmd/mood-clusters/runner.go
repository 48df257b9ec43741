package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-mood-clusters/internal/analysis"
	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/config"
	"github.com/justestif/go-spotify-mood-clusters/internal/db"
	"github.com/justestif/go-spotify-mood-clusters/internal/report"
	"github.com/justestif/go-spotify-mood-clusters/internal/web"
)

var errNoDatabase = errors.New("no database configured: set DATABASE_URL or [database] url")

// runner holds the output streams shared by every command action.
type runner struct {
	stdout io.Writer
	stderr io.Writer
}

// setup loads the config named by --config and builds a logger from it.
func (r *runner) setup(cmd *cli.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	return cfg, config.NewLogger(r.stderr, cfg.Log.Level), nil
}

// openDB connects and migrates when a database is configured. It returns a
// nil DB otherwise.
func openDB(ctx context.Context, cfg *config.Config, logger *log.Logger) (*db.DB, error) {
	if !cfg.Database.Enabled() {
		return nil, nil
	}

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	logger.Debug("connected to database")
	return database, nil
}

// service builds the analysis service, backed by the database when persist is set.
func service(ctx context.Context, cfg *config.Config, logger *log.Logger, persist bool) (*analysis.Service, func(), error) {
	if !persist {
		return analysis.New(logger, nil), func() {}, nil
	}
	if !cfg.Database.Enabled() {
		return nil, nil, errNoDatabase
	}

	database, err := openDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return analysis.New(logger, database), database.Close, nil
}

// songSource reads labelled songs from the database when one is configured,
// otherwise from the annotated CSV.
func songSource(ctx context.Context, cfg *config.Config, logger *log.Logger) (web.SongSource, func(), error) {
	database, err := openDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if database != nil {
		return web.NewDBSource(database), database.Close, nil
	}

	songs, err := web.LoadCSVSource(cfg.Server.Songs)
	if err != nil {
		return nil, nil, err
	}
	return songs, func() {}, nil
}

// Compare runs the model comparison and prints the score table.
func (r *runner) Compare(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}

	overrideString(cmd, "input", &cfg.Compare.Input)
	overrideString(cmd, "plots-dir", &cfg.Compare.PlotsDir)
	overrideBool(cmd, "html", &cfg.Compare.HTML)
	overrideBool(cmd, "persist", &cfg.Compare.Persist)

	opts, err := compareOptions(cfg)
	if err != nil {
		return err
	}

	svc, closeDB, err := service(ctx, cfg, logger, opts.Persist)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := svc.Compare(ctx, opts)
	if err != nil {
		return err
	}

	for _, m := range result.Models {
		logger.Info("saved plot", "model", m.Model, "path", m.Plot, "clusters", m.Clusters, "noise", m.Noise)
	}
	fmt.Fprintf(r.stdout, "Clustered %d songs (%d skipped)\n", result.Rows, result.Skipped)
	fmt.Fprintln(r.stdout, report.ScoreTable(result.Scores()))
	return nil
}

// Moods labels the songs, writes the annotated CSV and prints samples per mood.
func (r *runner) Moods(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}

	overrideString(cmd, "input", &cfg.Moods.Input)
	overrideString(cmd, "output", &cfg.Moods.Output)
	overrideString(cmd, "plot", &cfg.Moods.Plot)
	overrideString(cmd, "linkage", &cfg.Moods.Linkage)
	overrideString(cmd, "strategy", &cfg.Moods.Strategy)
	if cmd.IsSet("samples") {
		cfg.Moods.Samples = int(cmd.Int("samples"))
	}
	overrideBool(cmd, "html", &cfg.Moods.HTML)
	overrideBool(cmd, "persist", &cfg.Moods.Persist)

	opts, err := moodOptions(cfg)
	if err != nil {
		return err
	}

	svc, closeDB, err := service(ctx, cfg, logger, opts.Persist)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := svc.Moods(ctx, opts)
	if err != nil {
		return err
	}

	logger.Info("wrote moods", "csv", result.Output, "plot", result.Plot)
	fmt.Fprint(r.stdout, report.FormatMoodSummary(result.Profiles, result.Skipped))
	fmt.Fprint(r.stdout, report.FormatMoodSamples(result.Samples))
	return nil
}

// Serve starts the HTTP API until SIGINT or SIGTERM.
func (r *runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Spotify.Validate(); err != nil {
		return err
	}

	overrideString(cmd, "addr", &cfg.Server.Addr)
	overrideString(cmd, "songs", &cfg.Server.Songs)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverCfg := web.ServerConfig{
		Addr:          cfg.Server.Addr,
		ClientID:      cfg.Spotify.ClientID,
		ClientSecret:  cfg.Spotify.ClientSecret,
		RedirectURI:   cfg.Server.RedirectURI,
		FrontendURI:   cfg.Server.FrontendURI,
		PlaylistLimit: cfg.Server.PlaylistLimit,
		Logger:        logger,
	}

	database, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
		serverCfg.Songs = web.NewDBSource(database)
		sessions := web.NewDBSessionStore(database)
		if n, err := sessions.Prune(ctx); err != nil {
			logger.Warn("pruning sessions", "err", err)
		} else if n > 0 {
			logger.Info("pruned expired sessions", "count", n)
		}
		serverCfg.Sessions = sessions
		logger.Info("serving songs from database")
	} else {
		songs, err := web.LoadCSVSource(cfg.Server.Songs)
		if err != nil {
			return err
		}
		serverCfg.Songs = songs
		logger.Info("serving songs from csv", "path", cfg.Server.Songs, "songs", len(songs))
	}

	server, err := web.NewServer(serverCfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return server.Run(ctx)
}

// ConfigInit writes the example config to the --config path.
func (r *runner) ConfigInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := config.CreateConfigFile(path); err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "Wrote %s\n", path)
	return nil
}

// overrideString replaces *dst with the flag value when the flag was given.
func overrideString(cmd *cli.Command, name string, dst *string) {
	if cmd.IsSet(name) {
		*dst = cmd.String(name)
	}
}

func overrideBool(cmd *cli.Command, name string, dst *bool) {
	if cmd.IsSet(name) {
		*dst = cmd.Bool(name)
	}
}

// compareOptions turns the compare config into the three models it names.
func compareOptions(cfg *config.Config) (analysis.CompareOptions, error) {
	c := cfg.Compare
	linkage, err := clustering.ParseLinkage(c.Agglomerative.Linkage)
	if err != nil {
		return analysis.CompareOptions{}, err
	}

	return analysis.CompareOptions{
		Input:    c.Input,
		PlotsDir: c.PlotsDir,
		HTML:     c.HTML,
		Persist:  c.Persist,
		Models: []clustering.Model{
			clustering.KMeans{
				K:             c.KMeans.Clusters,
				Seed:          c.KMeans.Seed,
				Restarts:      c.KMeans.Restarts,
				MaxIterations: c.KMeans.MaxIterations,
			},
			clustering.DBSCAN{Eps: c.DBSCAN.Eps, MinSamples: c.DBSCAN.MinSamples},
			clustering.Agglomerative{K: c.Agglomerative.Clusters, Linkage: linkage},
		},
	}, nil
}

func moodOptions(cfg *config.Config) (analysis.MoodOptions, error) {
	m := cfg.Moods
	linkage, err := clustering.ParseLinkage(m.Linkage)
	if err != nil {
		return analysis.MoodOptions{}, err
	}
	strategy, err := clustering.ParseStrategy(m.Strategy)
	if err != nil {
		return analysis.MoodOptions{}, err
	}

	return analysis.MoodOptions{
		Input:    m.Input,
		Output:   m.Output,
		Plot:     m.Plot,
		Clusters: m.Clusters,
		Linkage:  linkage,
		Strategy: strategy,
		Samples:  m.Samples,
		HTML:     m.HTML,
		Persist:  m.Persist,
	}, nil
}
