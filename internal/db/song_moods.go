package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// songMoodColumns is the COPY column order used by songMoodRows.
var songMoodColumns = []string{
	"run_id", "row_index", "track_id", "track_name", "track_artist",
	"playlist_genre", "playlist_subgenre", "features",
	"cluster", "mood", "pca1", "pca2",
}

// SongMoodRepository handles labelled song database operations.
type SongMoodRepository struct {
	db dbtx
}

// ReplaceForRun deletes any songs stored for the run and copies in the given ones.
func (r *SongMoodRepository) ReplaceForRun(ctx context.Context, runID uuid.UUID, songs []SongMood) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM song_moods WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("deleting run songs: %w", err)
	}

	if len(songs) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"song_moods"}, songMoodColumns, songMoodRows(runID, songs)); err != nil {
			return fmt.Errorf("copying run songs: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// songMoodRows feeds songs to COPY in songMoodColumns order.
func songMoodRows(runID uuid.UUID, songs []SongMood) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(songs), func(i int) ([]any, error) {
		s := songs[i]
		return []any{
			runID, s.Row, s.TrackID, s.Name, s.Artist,
			s.Genre, s.Subgenre, s.Features,
			s.Cluster, s.Mood, s.PCA1, s.PCA2,
		}, nil
	})
}

// ForRun retrieves every song of a run in source row order.
func (r *SongMoodRepository) ForRun(ctx context.Context, runID uuid.UUID) ([]SongMood, error) {
	query := `
		SELECT run_id, row_index, track_id, track_name, track_artist,
		       playlist_genre, playlist_subgenre, features, cluster, mood, pca1, pca2
		FROM song_moods
		WHERE run_id = $1
		ORDER BY row_index
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run songs: %w", err)
	}
	defer rows.Close()

	var songs []SongMood
	for rows.Next() {
		var s SongMood
		if err := rows.Scan(
			&s.RunID,
			&s.Row,
			&s.TrackID,
			&s.Name,
			&s.Artist,
			&s.Genre,
			&s.Subgenre,
			&s.Features,
			&s.Cluster,
			&s.Mood,
			&s.PCA1,
			&s.PCA2,
		); err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// ForLatestRun retrieves the songs of the most recent moods run.
// Returns ErrNotFound when no moods run has been stored.
func (r *SongMoodRepository) ForLatestRun(ctx context.Context) ([]SongMood, error) {
	run, err := (&RunRepository{db: r.db}).Latest(ctx, RunMoods)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.ForRun(ctx, run.ID)
}
