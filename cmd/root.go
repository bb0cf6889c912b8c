package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgeline-eng/docqc/internal/config"
)

var cfg *config.Config

// flaggedExit is set by commands that completed successfully but surfaced
// items needing attention (open conflicts, revision conflicts, failed
// tasks). Exit codes: 0 clean, 2 flagged, 1 failed.
var flaggedExit bool

var rootCmd = &cobra.Command{
	Use:   "docqc",
	Short: "Revision-aware document ingestion and extraction QC pipeline",
	Long:  "Tracks engineering document revisions, extracts structured entities via a tiered external service, shadow-reviews extraction quality, and cross-checks documents for conflicting data.",
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
	if flaggedExit {
		os.Exit(2)
	}
}
