package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ashiklom/veda-data-processing/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			history, err := store.NewSQLiteStore(cfg.History.Path, logger)
			if err != nil {
				return err
			}
			defer history.Close()
			if err := history.Migrate(cmd.Context()); err != nil {
				return err
			}

			runs, err := history.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tJOB\tEXIT\tSTARTED\tDURATION\tCOMMAND")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					shortID(run.ID),
					orDash(run.JobID),
					exitCell(run),
					humanize.Time(run.StartedAt),
					durationCell(run),
					strings.Join(run.Command, " "),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func exitCell(run *store.Run) string {
	if run.ExitCode == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *run.ExitCode)
}

func durationCell(run *store.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}
