package cli

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashiklom/veda-data-processing/internal/config"
	"github.com/ashiklom/veda-data-processing/internal/launcher"
	rt "github.com/ashiklom/veda-data-processing/internal/runtime"
	"github.com/ashiklom/veda-data-processing/internal/store"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Activate the runtime environment and execute the conversion once",
		Long: `run is what the sbatch launch script executes on the compute node.
It activates the configured modules and conda environment, runs the
conversion program with its output redirected to the log artifact, writes
one status line to stdout, and exits with the program's exit code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runJob(cmd.Context(), cfg, cmd)
		},
	}
}

func runJob(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	var activator launcher.Activator
	if len(cfg.Environment.Modules) > 0 || cfg.Environment.CondaEnv != "" {
		env := rt.New(cfg.Environment.Modules, cfg.Environment.CondaEnv)
		env.Shell = cfg.Environment.Shell
		env.Extra = cfg.Environment.Extra
		activator = env
	}

	l := launcher.New(launcher.Config{
		Logger:    logger,
		Status:    cmd.OutOrStdout(),
		Activator: activator,
		Command:   launcher.Command{Argv: cfg.Command},
		LogPath:   cfg.Log.Artifact,
	})

	run := &store.Run{
		ID:        uuid.NewString(),
		JobID:     os.Getenv("SLURM_JOB_ID"),
		Command:   cfg.Command,
		LogPath:   cfg.Log.Artifact,
		StartedAt: time.Now().UTC(),
	}
	history := openHistory(ctx, cfg, run)

	res, runErr := l.Run(ctx)

	if history != nil {
		if err := history.RecordResult(ctx, run.ID, res.ExitCode, time.Now().UTC()); err != nil {
			logger.Warn("record run result", "error", err)
		}
		if err := history.Close(); err != nil {
			logger.Warn("close history", "error", err)
		}
	}

	return runErr
}

// openHistory records the run start, best effort. History must never alter
// the exit-status contract, so every failure is logged and swallowed.
func openHistory(ctx context.Context, cfg *config.Config, run *store.Run) store.Store {
	history, err := store.NewSQLiteStore(cfg.History.Path, logger)
	if err != nil {
		logger.Warn("open history", "error", err)
		return nil
	}
	if err := history.Migrate(ctx); err != nil {
		logger.Warn("migrate history", "error", err)
		history.Close()
		return nil
	}
	if err := history.RecordStart(ctx, run); err != nil {
		logger.Warn("record run start", "error", err)
		history.Close()
		return nil
	}
	return history
}
