// Package db provides PostgreSQL persistence for clustering runs and labelled songs.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can
// run inside or outside a transaction.
type dbtx interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Runs returns a RunRepository.
func (db *DB) Runs() *RunRepository {
	return &RunRepository{db: db.pool}
}

// Scores returns a ScoreRepository.
func (db *DB) Scores() *ScoreRepository {
	return &ScoreRepository{db: db.pool}
}

// SongMoods returns a SongMoodRepository.
func (db *DB) SongMoods() *SongMoodRepository {
	return &SongMoodRepository{db: db.pool}
}

// Sessions returns a SessionRepository.
func (db *DB) Sessions() *SessionRepository {
	return &SessionRepository{db: db.pool}
}

// SaveCompare stores a comparison run and its scores in one transaction.
func (db *DB) SaveCompare(ctx context.Context, run *Run, scores []Score) error {
	run.Kind = RunCompare
	return db.inTx(ctx, func(tx pgx.Tx) error {
		if err := (&RunRepository{db: tx}).Create(ctx, run); err != nil {
			return err
		}
		return (&ScoreRepository{db: tx}).InsertBatch(ctx, run.ID, scores)
	})
}

// SaveMoods stores a mood run and every labelled song in one transaction.
func (db *DB) SaveMoods(ctx context.Context, run *Run, songs []SongMood) error {
	run.Kind = RunMoods
	return db.inTx(ctx, func(tx pgx.Tx) error {
		if err := (&RunRepository{db: tx}).Create(ctx, run); err != nil {
			return err
		}
		return (&SongMoodRepository{db: tx}).ReplaceForRun(ctx, run.ID, songs)
	})
}

func (db *DB) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
