package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/store"
)

var (
	conflictsProject  string
	conflictsSeverity string
	conflictsAll      bool
	conflictsLimit    int
	resolveNote       string
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List cross-document data conflicts",
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

		conflicts, err := st.ListConflicts(ctx, store.ConflictFilter{
			ProjectID: conflictsProject,
			Severity:  model.Severity(conflictsSeverity),
			OnlyOpen:  !conflictsAll,
			Limit:     conflictsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list conflicts")
		}
		for _, c := range conflicts {
			if !c.Resolved {
				flaggedExit = true
				break
			}
		}
		return printJSON(conflicts)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Mark a conflict resolved with a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if resolveNote == "" {
			return eris.New("--note is required; resolution is an audited action")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if err := st.ResolveConflict(ctx, args[0], resolveNote); err != nil {
			return eris.Wrap(err, "resolve conflict")
		}
		zap.L().Info("conflict resolved", zap.String("conflict_id", args[0]))
		return nil
	},
}

func init() {
	conflictsCmd.Flags().StringVar(&conflictsProject, "project", "", "filter by project")
	conflictsCmd.Flags().StringVar(&conflictsSeverity, "severity", "", "filter by severity (high, medium, low)")
	conflictsCmd.Flags().BoolVar(&conflictsAll, "all", false, "include resolved conflicts")
	conflictsCmd.Flags().IntVar(&conflictsLimit, "limit", 100, "max conflicts to list")
	resolveCmd.Flags().StringVar(&resolveNote, "note", "", "resolution note")
	conflictsCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(conflictsCmd)
}
