package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/caseforge/internal/model"
	"github.com/sells-group/caseforge/internal/report"
	"github.com/sells-group/caseforge/internal/store"
)

// writeReports renders the markdown run report and the YAML case
// history into the configured report directory.
func writeReports(ctx context.Context, st store.Store, summary *model.RunSummary, corpus *model.CorpusReport) error {
	dir := cfg.Output.ReportDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create report dir")
	}

	reportPath := filepath.Join(dir, "report.md")
	if err := os.WriteFile(reportPath, []byte(report.FormatSummary(summary, corpus)), 0o644); err != nil {
		return eris.Wrap(err, "write run report")
	}

	records, err := st.ListCases(ctx, store.CaseFilter{})
	if err != nil {
		return eris.Wrap(err, "list cases for history")
	}

	historyPath := filepath.Join(dir, "history.yaml")
	if err := report.WriteHistory(historyPath, records); err != nil {
		return err
	}

	zap.L().Info("reports written",
		zap.String("report", reportPath),
		zap.String("history", historyPath),
	)
	return nil
}
