package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ridgeline-eng/docqc/internal/model"
)

var accuracyRoutingLimit int

var accuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Show rolling extraction accuracy per category and tier",
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

		records, err := st.ListAccuracyRecords(ctx)
		if err != nil {
			return eris.Wrap(err, "list accuracy records")
		}
		for _, rec := range records {
			if rec.State == model.AccuracyCritical {
				flaggedExit = true
			}
		}
		return printJSON(records)
	},
}

var routingCmd = &cobra.Command{
	Use:   "routing [category]",
	Short: "Show routing decisions, or the decision history for one category",
	Args:  cobra.MaximumNArgs(1),
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

		category := ""
		if len(args) == 1 {
			category = args[0]
		}
		decisions, err := st.ListRoutingDecisions(ctx, category, accuracyRoutingLimit)
		if err != nil {
			return eris.Wrap(err, "list routing decisions")
		}
		return printJSON(decisions)
	},
}

func init() {
	routingCmd.Flags().IntVar(&accuracyRoutingLimit, "limit", 50, "max decisions to list")
	accuracyCmd.AddCommand(routingCmd)
	rootCmd.AddCommand(accuracyCmd)
}
