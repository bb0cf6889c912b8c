package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ridgeline-eng/docqc/internal/monitoring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a health snapshot: queue depth, conflicts, accuracy state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx)
		if err != nil {
			return eris.Wrap(err, "collect metrics")
		}

		if snap.QueueFailed > 0 || snap.OpenHighConflicts > 0 ||
			snap.OpenRevisionConflicts > 0 || len(snap.CriticalCategories) > 0 {
			flaggedExit = true
		}
		return printJSON(snap)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
