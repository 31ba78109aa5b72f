package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Run the full pipeline: generate, validate, revise, finalize",
	Long:  "Runs every phase in order, resuming from the last checkpoint. Safe to re-run after a crash: completed phases are skipped and no case ids are reissued.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, corpus, err := env.Controller.RunAll(ctx)
		if err != nil {
			return eris.Wrap(err, "run pipeline")
		}

		zap.L().Info("pipeline complete",
			zap.Int("generated", summary.Generated),
			zap.Int("accepted", summary.Accepted),
			zap.Int("rejected", summary.Rejected),
			zap.Int("dropped", summary.Dropped),
			zap.Int("revision_loops", summary.RevisionLoops),
			zap.String("corpus", cfg.Output.CorpusPath),
		)

		if err := writeReports(ctx, env.Store, summary, corpus); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(runAllCmd)
}
