package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate pending cases against structural and quality rules",
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

		summary, err := env.Controller.Validate(ctx)
		if err != nil {
			return eris.Wrap(err, "validate")
		}

		zap.L().Info("validation complete",
			zap.Int("accepted", summary.Accepted),
			zap.Int("rejected", summary.Rejected),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
