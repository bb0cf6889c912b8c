package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/store"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Queue depth by status.
	QueuePending int `json:"queue_pending"`
	QueueClaimed int `json:"queue_claimed"`
	QueueFailed  int `json:"queue_failed"`
	QueueDone    int `json:"queue_done"`

	// Open conflicts by severity.
	OpenConflicts     int `json:"open_conflicts"`
	OpenHighConflicts int `json:"open_high_conflicts"`

	// Unresolved revision conflicts awaiting manual disambiguation.
	OpenRevisionConflicts int `json:"open_revision_conflicts"`

	// Categories whose rolling accuracy is below the critical threshold,
	// and below the warning threshold.
	CriticalCategories []string `json:"critical_categories,omitempty"`
	WarningCategories  []string `json:"warning_categories,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of pipeline metrics.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{CollectedAt: time.Now().UTC()}

	counts, err := c.store.CountTasks(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count tasks")
	}
	snap.QueuePending = counts[model.TaskPending]
	snap.QueueClaimed = counts[model.TaskClaimed]
	snap.QueueFailed = counts[model.TaskFailed]
	snap.QueueDone = counts[model.TaskDone]

	conflicts, err := c.store.ListConflicts(ctx, store.ConflictFilter{OnlyOpen: true})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list open conflicts")
	}
	snap.OpenConflicts = len(conflicts)
	for _, cf := range conflicts {
		if cf.Severity == model.SeverityHigh {
			snap.OpenHighConflicts++
		}
	}

	revConflicts, err := c.store.ListRevisionConflicts(ctx, "", false)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list revision conflicts")
	}
	snap.OpenRevisionConflicts = len(revConflicts)

	records, err := c.store.ListAccuracyRecords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list accuracy records")
	}
	for _, rec := range records {
		switch rec.State {
		case model.AccuracyCritical:
			snap.CriticalCategories = append(snap.CriticalCategories, rec.Category)
		case model.AccuracyWarning:
			snap.WarningCategories = append(snap.WarningCategories, rec.Category)
		}
	}

	return snap, nil
}
