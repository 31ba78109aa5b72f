package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/caseforge/internal/model"
	"github.com/sells-group/caseforge/internal/store"
)

// caseStates lists every state in lifecycle order for display.
var caseStates = []model.CaseState{
	model.CaseStatePending,
	model.CaseStateNeedsRevision,
	model.CaseStateAccepted,
	model.CaseStateRejected,
	model.CaseStateDropped,
	model.CaseStateFinal,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline phase, case counts, and the last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		cp, err := st.LoadCheckpoint(ctx)
		if err != nil {
			return eris.Wrap(err, "load checkpoint")
		}

		counts := make(map[model.CaseState]int, len(caseStates))
		for _, state := range caseStates {
			recs, err := st.ListCases(ctx, store.CaseFilter{States: []model.CaseState{state}})
			if err != nil {
				return eris.Wrap(err, "count cases")
			}
			counts[state] = len(recs)
		}

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 1})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		var last *model.Run
		if len(runs) > 0 {
			last = &runs[0]
		}

		formatStatus(os.Stdout, cp, counts, last)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatStatus writes the checkpoint, per-state counts, and the most
// recent run to w.
func formatStatus(out io.Writer, cp *model.Checkpoint, counts map[model.CaseState]int, last *model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if cp == nil {
		_, _ = fmt.Fprintln(w, "Phase:\t(not started)")
	} else {
		_, _ = fmt.Fprintf(w, "Phase:\t%s (%s)\n", cp.Phase, cp.Status)
		if cp.Cycle > 0 {
			_, _ = fmt.Fprintf(w, "Revision cycle:\t%d\n", cp.Cycle)
		}
	}

	total := 0
	for _, state := range caseStates {
		total += counts[state]
	}
	_, _ = fmt.Fprintf(w, "Cases:\t%d\n", total)
	for _, state := range caseStates {
		if counts[state] > 0 {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", state, counts[state])
		}
	}

	if last != nil {
		_, _ = fmt.Fprintf(w, "Last run:\t%s %s (%s)\n", last.Operation, last.Status, last.StartedAt.Format("2006-01-02 15:04"))
	}

	_ = w.Flush()
}
