// Package cli implements the lisjob command surface: submit renders the
// launch script and hands it to sbatch on the login node; run is what the
// rendered script executes on the compute node.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashiklom/veda-data-processing/internal/config"
	"github.com/ashiklom/veda-data-processing/internal/logging"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// defaultConfigPath checks the LISJOB_CONFIG env var before falling back
// to the conventional profile name.
func defaultConfigPath() string {
	if p := os.Getenv("LISJOB_CONFIG"); p != "" {
		return p
	}
	return "lisjob.yml"
}

// NewRootCmd creates the root cobra command for the lisjob CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lisjob",
		Short: "lisjob — SLURM submission wrapper for the LIS NetCDF→Zarr conversion",
		Long: `lisjob declares SLURM resources for one conversion job, activates the
Python runtime environment on the compute node, runs the conversion
program exactly once, and exits with the program's own status.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(logging.Options{Level: flagLogLevel, Format: flagLogFormat})
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "Job profile YAML (or LISJOB_CONFIG env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newSubmitCmd(),
		newScriptCmd(),
		newStatusCmd(),
		newHistoryCmd(),
	)

	return root
}

// loadConfig reads the profile named by --config and applies its logging
// settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	logger = logging.New(resolveLogOptions(cmd, cfg))
	return cfg, nil
}

// resolveLogOptions merges profile and flag logging settings. Flags the
// user set explicitly (including --debug) win over the profile.
func resolveLogOptions(cmd *cobra.Command, cfg *config.Config) logging.Options {
	opts := logging.Options{Level: flagLogLevel, Format: flagLogFormat}
	flags := cmd.Root().PersistentFlags()
	if !flagDebug && !flags.Changed("log-level") && cfg.Log.Level != "" {
		opts.Level = cfg.Log.Level
	}
	if !flags.Changed("log-format") && cfg.Log.Format != "" {
		opts.Format = cfg.Log.Format
	}
	return opts
}
