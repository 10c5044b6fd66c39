package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/prdump/prdump/internal/store"
)

// Store implements the store.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path, creating parent
// directories as needed. Use ":memory:" for an in-memory database (useful
// for testing).
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- Stores metadata about each archive run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		repository TEXT NOT NULL,
		pr_number INTEGER NOT NULL,
		format TEXT NOT NULL,
		output_path TEXT NOT NULL,
		files_changed INTEGER NOT NULL DEFAULT 0,
		inline_comments INTEGER NOT NULL DEFAULT 0,
		orphaned_comments INTEGER NOT NULL DEFAULT 0,
		general_comments INTEGER NOT NULL DEFAULT 0,
		reviews INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_repository_pr ON runs(repository, pr_number);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores a completed archive run.
func (s *Store) RecordRun(ctx context.Context, run store.Run) error {
	query := `
		INSERT INTO runs (
			run_id, timestamp, repository, pr_number, format, output_path,
			files_changed, inline_comments, orphaned_comments, general_comments, reviews
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.Timestamp.Unix(),
		run.Repository,
		run.PRNumber,
		run.Format,
		run.OutputPath,
		run.FilesChanged,
		run.InlineComments,
		run.OrphanedComments,
		run.GeneralComments,
		run.Reviews,
	)

	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// ListRuns retrieves the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, timestamp, repository, pr_number, format, output_path,
		       files_changed, inline_comments, orphaned_comments, general_comments, reviews
		FROM runs
		ORDER BY timestamp DESC, run_id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var run store.Run
		var timestamp int64

		err := rows.Scan(
			&run.RunID,
			&timestamp,
			&run.Repository,
			&run.PRNumber,
			&run.Format,
			&run.OutputPath,
			&run.FilesChanged,
			&run.InlineComments,
			&run.OrphanedComments,
			&run.GeneralComments,
			&run.Reviews,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Timestamp = time.Unix(timestamp, 0).UTC()
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
