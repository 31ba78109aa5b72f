package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/caseforge/internal/model"
	"github.com/sells-group/caseforge/internal/report"
	"github.com/sells-group/caseforge/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the case ledger and last run summary as an xlsx workbook",
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

		records, err := st.ListCases(ctx, store.CaseFilter{})
		if err != nil {
			return eris.Wrap(err, "list cases")
		}

		// Use the last completed run's summary; an empty workbook
		// summary is still useful before any run has finished.
		summary := &model.RunSummary{}
		runs, err := st.ListRuns(ctx, store.RunFilter{Status: store.RunStatusComplete, Limit: 1})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		if len(runs) > 0 && runs[0].Summary != nil {
			summary = runs[0].Summary
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(cfg.Output.ReportDir, "export.xlsx")
		}

		if err := report.ExportXLSX(out, summary, nil, records); err != nil {
			return err
		}

		zap.L().Info("export written",
			zap.String("path", out),
			zap.Int("cases", len(records)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default <report_dir>/export.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
