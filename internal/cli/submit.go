package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ashiklom/veda-data-processing/internal/batch"
	"github.com/ashiklom/veda-data-processing/internal/config"
	"github.com/ashiklom/veda-data-processing/internal/preflight"
)

func newSubmitCmd() *cobra.Command {
	var noPreflight bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Render the launch script and submit it with sbatch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if cfg.Preflight.Enabled && !noPreflight {
				api, err := preflight.NewClient(cmd.Context(), cfg.Preflight.Region)
				if err != nil {
					return err
				}
				if err := preflight.Check(cmd.Context(), api, cfg.Preflight, logger); err != nil {
					return fmt.Errorf("preflight: %w", err)
				}
			}

			script, err := launchScript(cfg)
			if err != nil {
				return err
			}

			submitter, err := batch.NewSubmitter(logger)
			if err != nil {
				return err
			}
			jobID, err := submitter.Submit(cmd.Context(), script)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), jobID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noPreflight, "no-preflight", false, "Skip the S3 preflight checks")

	return cmd
}

func newScriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "script",
		Short: "Print the rendered launch script without submitting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			script, err := launchScript(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), script)
			return nil
		},
	}
}

// launchScript renders the sbatch script whose payload is this wrapper's
// own run command, so the status-mirroring contract holds on the node.
func launchScript(cfg *config.Config) (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate own executable: %w", err)
	}
	configPath, err := filepath.Abs(flagConfig)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}

	command := []string{self, "run", "--config", configPath}
	return batch.RenderScript(cfg.Resources, command), nil
}
