package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/caseforge/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "caseforge",
	Short: "Causal-reasoning case dataset curation pipeline",
	Long:  "Generates causal-reasoning cases from category templates, validates their graph structure and quality, revises failures, and publishes a deduplicated, densely renumbered corpus.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
