package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Dedup accepted cases, renumber, and write the corpus file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Controller.Setup(ctx); err != nil {
			return eris.Wrap(err, "setup")
		}

		summary, corpus, err := env.Controller.Finalize(ctx)
		if err != nil {
			return eris.Wrap(err, "finalize")
		}

		zap.L().Info("finalization complete",
			zap.Int("accepted", summary.Accepted),
			zap.Int("dropped", summary.Dropped),
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
	rootCmd.AddCommand(finalizeCmd)
}
