package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/store"
)

var queueFailedLimit int

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show queue depth by status",
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

		counts, err := st.CountTasks(ctx)
		if err != nil {
			return eris.Wrap(err, "count tasks")
		}
		if counts[model.TaskFailed] > 0 {
			flaggedExit = true
		}
		return printJSON(counts)
	},
}

var queueFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List permanently failed tasks",
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

		tasks, err := st.ListTasks(ctx, store.TaskFilter{
			Status: model.TaskFailed,
			Limit:  queueFailedLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list failed tasks")
		}
		if len(tasks) > 0 {
			flaggedExit = true
		}
		return printJSON(tasks)
	},
}

func init() {
	queueFailedCmd.Flags().IntVar(&queueFailedLimit, "limit", 50, "max tasks to list")
	queueCmd.AddCommand(queueFailedCmd)
	rootCmd.AddCommand(queueCmd)
}
