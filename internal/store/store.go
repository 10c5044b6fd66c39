package store

import (
	"context"
	"time"
)

// Store defines the persistence layer interface for run history.
type Store interface {
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Run represents a single archive execution.
type Run struct {
	RunID            string
	Timestamp        time.Time
	Repository       string
	PRNumber         int
	Format           string
	OutputPath       string
	FilesChanged     int
	InlineComments   int
	OrphanedComments int
	GeneralComments  int
	Reviews          int
}
