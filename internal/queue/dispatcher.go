// Package queue runs the worker pool over the durable task queue. Claim
// atomicity lives in the store; this package is the polling, dispatch, and
// lease-reaping loop around it.
package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/store"
)

// Handler processes one claimed task. A nil return completes the task; an
// error fails it and the attempt counter decides whether it retries.
type Handler func(ctx context.Context, task *model.QueueTask) error

// Config tunes the worker pool.
type Config struct {
	Workers      int           `yaml:"workers" mapstructure:"workers"`
	LeaseTTL     time.Duration `yaml:"lease_ttl" mapstructure:"lease_ttl"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	ReapInterval time.Duration `yaml:"reap_interval" mapstructure:"reap_interval"`
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 5 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// Dispatcher claims tasks and routes them to registered handlers.
type Dispatcher struct {
	store    store.Store
	cfg      Config
	handlers map[model.TaskKind]Handler
	kinds    []model.TaskKind
	inFlight atomic.Int64
}

// NewDispatcher creates a dispatcher over the given store.
func NewDispatcher(st store.Store, cfg Config) *Dispatcher {
	return &Dispatcher{
		store:    st,
		cfg:      cfg.withDefaults(),
		handlers: make(map[model.TaskKind]Handler),
	}
}

// Register installs the handler for a task kind. Must be called before Run
// or Drain.
func (d *Dispatcher) Register(kind model.TaskKind, h Handler) {
	d.handlers[kind] = h
	d.kinds = append(d.kinds, kind)
}

// Run processes tasks continuously until the context is cancelled. The
// reaper runs alongside the workers so leases abandoned by crashed workers
// are re-queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	if len(d.kinds) == 0 {
		return eris.New("queue: no handlers registered")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.reapLoop(ctx) })
	for i := 0; i < d.cfg.Workers; i++ {
		workerID := fmt.Sprintf("worker-%d-%s", i, uuid.New().String()[:8])
		g.Go(func() error { return d.workerLoop(ctx, workerID, false) })
	}

	err := g.Wait()
	if eris.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Drain processes tasks until the queue is idle: every worker has observed
// an empty queue with no task in flight anywhere in the pool. Used by the
// CLI's one-shot worker mode and by tests.
func (d *Dispatcher) Drain(ctx context.Context) error {
	if len(d.kinds) == 0 {
		return eris.New("queue: no handlers registered")
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		workerID := fmt.Sprintf("drain-%d-%s", i, uuid.New().String()[:8])
		g.Go(func() error { return d.workerLoop(ctx, workerID, true) })
	}
	return g.Wait()
}

func (d *Dispatcher) workerLoop(ctx context.Context, workerID string, drain bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		task, err := d.store.ClaimTask(ctx, workerID, d.kinds, d.cfg.LeaseTTL)
		if err != nil {
			if drain {
				return eris.Wrap(err, "queue: claim")
			}
			// A transient store error must not take down a long-running
			// worker; back off and poll again, like the reaper does.
			zap.L().Error("claim task", zap.String("worker", workerID), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.PollInterval):
			}
			continue
		}

		if task == nil {
			if drain {
				// Another worker may still produce follow-up tasks.
				if d.inFlight.Load() == 0 {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(50 * time.Millisecond):
				}
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.PollInterval):
			}
			continue
		}

		d.inFlight.Add(1)
		d.process(ctx, workerID, task)
		d.inFlight.Add(-1)
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID string, task *model.QueueTask) {
	handler, ok := d.handlers[task.Kind]
	if !ok {
		// Registered kinds drive the claim, so this indicates a bug.
		d.failTask(ctx, task, eris.Errorf("no handler for kind %s", task.Kind))
		return
	}

	start := time.Now()
	err := handler(ctx, task)
	elapsed := time.Since(start)

	if err != nil {
		zap.L().Warn("task failed",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.String("worker", workerID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		d.failTask(ctx, task, err)
		return
	}

	if err := d.store.CompleteTask(ctx, task.ID); err != nil {
		zap.L().Error("complete task", zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	zap.L().Debug("task done",
		zap.String("task_id", task.ID),
		zap.String("kind", string(task.Kind)),
		zap.Duration("elapsed", elapsed),
	)
}

func (d *Dispatcher) failTask(ctx context.Context, task *model.QueueTask, cause error) {
	terminal, err := d.store.FailTask(ctx, task.ID, cause.Error(), d.cfg.MaxAttempts)
	if err != nil {
		zap.L().Error("fail task", zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	if terminal {
		zap.L().Error("task permanently failed; flagged for manual handling",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.String("document_id", task.DocumentID),
			zap.Int("attempts", task.Attempts+1),
			zap.Error(cause),
		)
	}
}

func (d *Dispatcher) reapLoop(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := d.store.ReapExpiredLeases(ctx, d.cfg.MaxAttempts)
			if err != nil {
				zap.L().Error("reap expired leases", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Warn("re-queued expired leases", zap.Int("count", n))
			}
		}
	}
}
