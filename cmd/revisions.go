package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ridgeline-eng/docqc/internal/model"
)

var (
	revisionsProject string
	revisionsKey     string
)

var revisionsCmd = &cobra.Command{
	Use:   "revisions",
	Short: "Show the revision history for a logical document key",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if revisionsProject == "" || revisionsKey == "" {
			return eris.New("--project and --key are required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		revisions, err := st.ListRevisions(ctx, revisionsProject, revisionsKey)
		if err != nil {
			return eris.Wrap(err, "list revisions")
		}
		return printJSON(revisions)
	},
}

var deltasCmd = &cobra.Command{
	Use:   "deltas <document-id>",
	Short: "Show what changed in a document revision",
	Args:  cobra.ExactArgs(1),
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

		deltas, err := st.ListDeltas(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "list deltas")
		}
		for _, d := range deltas {
			if d.Significance == model.SeverityHigh {
				flaggedExit = true
				break
			}
		}
		return printJSON(deltas)
	},
}

var revisionConflictsCmd = &cobra.Command{
	Use:   "revision-conflicts",
	Short: "List revision conflicts awaiting manual disambiguation",
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

		conflicts, err := st.ListRevisionConflicts(ctx, revisionsProject, false)
		if err != nil {
			return eris.Wrap(err, "list revision conflicts")
		}
		if len(conflicts) > 0 {
			flaggedExit = true
		}
		return printJSON(conflicts)
	},
}

func init() {
	revisionsCmd.PersistentFlags().StringVar(&revisionsProject, "project", "", "project identifier")
	revisionsCmd.Flags().StringVar(&revisionsKey, "key", "", "logical document key")
	revisionsCmd.AddCommand(deltasCmd)
	revisionsCmd.AddCommand(revisionConflictsCmd)
	rootCmd.AddCommand(revisionsCmd)
}
