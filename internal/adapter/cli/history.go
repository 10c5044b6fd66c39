package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prdump/prdump/internal/store"
)

// HistoryLister reads recorded runs for the history command.
type HistoryLister interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

func historyCommand(history HistoryLister) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent archive runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return errors.New("run history is disabled; enable it in the configuration file")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			runs, err := history.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			writeRunTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

// writeRunTable renders the run list as an aligned table, newest first.
func writeRunTable(out io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No runs recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN ID\tWHEN\tREPOSITORY\tPR\tFORMAT\tFILES\tCOMMENTS\tOUTPUT")
	for _, run := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t#%d\t%s\t%d\t%d\t%s\n",
			run.RunID,
			run.Timestamp.UTC().Format("2006-01-02 15:04"),
			run.Repository,
			run.PRNumber,
			run.Format,
			run.FilesChanged,
			run.InlineComments+run.GeneralComments+run.Reviews,
			run.OutputPath,
		)
	}
	_ = w.Flush()
}
