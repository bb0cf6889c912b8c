package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgeline-eng/docqc/internal/monitoring"
	"github.com/ridgeline-eng/docqc/internal/queue"
)

var workerDrain bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the extraction pipeline worker pool",
	Long:  "Claims queued tasks (extract, diff, cross_check, shadow_review) and processes them until interrupted. With --drain, exits once the queue is empty.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		orch, err := buildOrchestrator(st)
		if err != nil {
			return err
		}

		dispatcher := queue.NewDispatcher(st, queueConfig())
		orch.Register(dispatcher)

		if workerDrain {
			zap.L().Info("draining task queue", zap.Int("workers", cfg.Queue.Workers))
			if err := dispatcher.Drain(ctx); err != nil {
				return eris.Wrap(err, "drain queue")
			}
			zap.L().Info("queue drained")
			return nil
		}

		// Long-running mode: health checks run alongside the workers.
		checker := monitoring.NewChecker(
			monitoring.NewCollector(st),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		go checker.Run(ctx)

		zap.L().Info("worker pool started", zap.Int("workers", cfg.Queue.Workers))
		return dispatcher.Run(ctx)
	},
}

func init() {
	workerCmd.Flags().BoolVar(&workerDrain, "drain", false, "process until the queue is empty, then exit")
	rootCmd.AddCommand(workerCmd)
}
