package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reviseCmd = &cobra.Command{
	Use:   "revise",
	Short: "Run one revision cycle over cases that failed validation",
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

		summary, err := env.Controller.Revise(ctx)
		if err != nil {
			return eris.Wrap(err, "revise")
		}

		zap.L().Info("revision cycle complete",
			zap.Int("revision_loops", summary.RevisionLoops),
			zap.Int("rejected", summary.Rejected),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(reviseCmd)
}
