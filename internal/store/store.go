// Package store persists the run history: one row per launch with the
// command, the SLURM job ID when known, and the mirrored exit code.
package store

import (
	"context"
	"time"
)

// Run is one recorded launch.
type Run struct {
	ID         string   // uuid assigned by the run command
	JobID      string   // SLURM job ID, empty outside an allocation
	Command    []string // external command argv
	ExitCode   *int     // nil until the run finishes
	LogPath    string   // command log artifact
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store defines the run-history persistence layer.
type Store interface {
	RecordStart(ctx context.Context, run *Run) error
	RecordResult(ctx context.Context, id string, exitCode int, finishedAt time.Time) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
