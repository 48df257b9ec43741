package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/db"
	"github.com/justestif/go-spotify-mood-clusters/internal/report"
)

// Runs prints the latest stored compare and moods runs.
func (r *runner) Runs(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errNoDatabase
	}
	database, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := database.Runs().Latest(ctx, db.RunCompare)
	switch {
	case errors.Is(err, db.ErrNotFound):
		fmt.Fprintln(r.stdout, "No compare runs stored")
	case err != nil:
		return err
	default:
		scores, err := database.Scores().ForRun(ctx, run.ID)
		if err != nil {
			return err
		}
		r.printRun(run)
		fmt.Fprintln(r.stdout, report.ScoreTable(reportScores(scores)))
	}

	run, err = database.Runs().Latest(ctx, db.RunMoods)
	switch {
	case errors.Is(err, db.ErrNotFound):
		fmt.Fprintln(r.stdout, "No moods runs stored")
	case err != nil:
		return err
	default:
		songs, err := database.SongMoods().ForRun(ctx, run.ID)
		if err != nil {
			return err
		}
		r.printRun(run)
		fmt.Fprintln(r.stdout, report.MoodCountTable(moodCounts(songs)))
	}
	return nil
}

// DeleteRun removes one stored run and its rows.
func (r *runner) DeleteRun(ctx context.Context, cmd *cli.Command) error {
	id, err := uuid.Parse(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", cmd.Args().First(), err)
	}

	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errNoDatabase
	}
	database, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Runs().Delete(ctx, id); err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}
	fmt.Fprintf(r.stdout, "Deleted run %s\n", id)
	return nil
}

func (r *runner) printRun(run *db.Run) {
	fmt.Fprintf(r.stdout, "\n%s run %s (%s)\n  %s: %d songs, %d skipped\n",
		run.Kind, run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Input, run.Rows, run.Skipped)
}

func reportScores(scores []db.Score) []report.Score {
	out := make([]report.Score, len(scores))
	for i, s := range scores {
		out[i] = report.Score{Model: s.Model, Silhouette: s.Silhouette, DaviesBouldin: s.DaviesBouldin}
	}
	return out
}

// moodCounts tallies songs per mood, known moods first in display order.
func moodCounts(songs []db.SongMood) []report.MoodCount {
	counts := make(map[string]int)
	var order []string
	for _, s := range songs {
		if counts[s.Mood] == 0 && !slices.Contains(clustering.Moods, s.Mood) {
			order = append(order, s.Mood)
		}
		counts[s.Mood]++
	}

	var out []report.MoodCount
	for _, m := range slices.Concat(clustering.Moods, order) {
		if counts[m] > 0 {
			out = append(out, report.MoodCount{Mood: m, Songs: counts[m]})
		}
	}
	return out
}
