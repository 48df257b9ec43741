package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RunRepository handles run database operations.
type RunRepository struct {
	db dbtx
}

// Create inserts a new run, assigning an ID when unset.
func (r *RunRepository) Create(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, kind, input, row_count, skipped, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, query,
		run.ID,
		run.Kind,
		run.Input,
		run.Rows,
		run.Skipped,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Latest retrieves the most recent run of the given kind.
func (r *RunRepository) Latest(ctx context.Context, kind string) (*Run, error) {
	query := `
		SELECT id, kind, input, row_count, skipped, created_at
		FROM runs
		WHERE kind = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var run Run
	err := r.db.QueryRow(ctx, query, kind).Scan(
		&run.ID,
		&run.Kind,
		&run.Input,
		&run.Rows,
		&run.Skipped,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return &run, nil
}

// Delete removes a run and, by cascade, its scores and songs.
func (r *RunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM runs WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ScoreRepository handles model score database operations.
type ScoreRepository struct {
	db dbtx
}

// InsertBatch inserts the scores of one run efficiently.
func (r *ScoreRepository) InsertBatch(ctx context.Context, runID uuid.UUID, scores []Score) error {
	if len(scores) == 0 {
		return nil
	}

	query := `
		INSERT INTO scores (run_id, model, clusters, silhouette, davies_bouldin)
		SELECT $1, * FROM unnest($2::text[], $3::int[], $4::float8[], $5::float8[])
	`

	models := make([]string, len(scores))
	clusters := make([]int, len(scores))
	silhouettes := make([]float64, len(scores))
	daviesBouldins := make([]float64, len(scores))
	for i, s := range scores {
		models[i] = s.Model
		clusters[i] = s.Clusters
		silhouettes[i] = s.Silhouette
		daviesBouldins[i] = s.DaviesBouldin
	}

	_, err := r.db.Exec(ctx, query, runID, models, clusters, silhouettes, daviesBouldins)
	if err != nil {
		return fmt.Errorf("batch inserting scores: %w", err)
	}
	return nil
}

// ForRun retrieves the scores of a run ordered by model name.
func (r *ScoreRepository) ForRun(ctx context.Context, runID uuid.UUID) ([]Score, error) {
	query := `
		SELECT run_id, model, clusters, silhouette, davies_bouldin
		FROM scores
		WHERE run_id = $1
		ORDER BY model
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying scores: %w", err)
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		var s Score
		if err := rows.Scan(
			&s.RunID,
			&s.Model,
			&s.Clusters,
			&s.Silhouette,
			&s.DaviesBouldin,
		); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
