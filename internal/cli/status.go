package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashiklom/veda-data-processing/internal/batch"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the scheduler state of a submitted job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			submitter, err := batch.NewSubmitter(logger)
			if err != nil {
				return err
			}
			state, err := submitter.JobState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}
}
