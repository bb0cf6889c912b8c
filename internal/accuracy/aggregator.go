// Package accuracy maintains rolling extraction accuracy per document
// category and adjusts routing tiers when a category degrades. Escalation
// is immediate on critical accuracy and hysteresis-guarded on the way back
// down so routing does not oscillate.
package accuracy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/store"
)

const (
	criticalThreshold = 0.90
	warningThreshold  = 0.95
	recoveryThreshold = 0.97
)

// Config tunes the rolling-accuracy update and the hysteresis windows.
type Config struct {
	// Alpha is the EWMA weight given to each new shadow review.
	Alpha float64 `yaml:"alpha" mapstructure:"alpha"`
	// WarnWindow is how many consecutive warning-state reviews trigger an
	// escalation.
	WarnWindow int `yaml:"warn_window" mapstructure:"warn_window"`
	// RecoveryWindow is how many consecutive reviews above the recovery
	// threshold are required before stepping a category back down a tier.
	RecoveryWindow int `yaml:"recovery_window" mapstructure:"recovery_window"`
}

func (c Config) withDefaults() Config {
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = 0.2
	}
	if c.WarnWindow <= 0 {
		c.WarnWindow = 3
	}
	if c.RecoveryWindow <= 0 {
		c.RecoveryWindow = 6
	}
	return c
}

// Notifier receives accuracy alerts. Routing changes are never silent.
type Notifier interface {
	NotifyRoutingChange(ctx context.Context, rec *model.AccuracyRecord, decision *model.RoutingDecision)
}

// Aggregator folds shadow reviews into per-(category, tier) accuracy
// records and writes routing decisions. The fold itself is serialized in
// the store, so concurrent reviews never lose samples even when worker
// processes run their own aggregators; the mutex only orders routing
// decisions within this process.
type Aggregator struct {
	store    store.Store
	cfg      Config
	notifier Notifier

	mu sync.Mutex
}

func NewAggregator(st store.Store, cfg Config, notifier Notifier) *Aggregator {
	return &Aggregator{store: st, cfg: cfg.withDefaults(), notifier: notifier}
}

// OnShadowReview folds one review into the rolling record for the
// production run's category and tier, then re-evaluates routing.
func (a *Aggregator) OnShadowReview(ctx context.Context, review *model.ShadowReview, category string, tier model.Tier) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.store.UpdateAccuracyRecord(ctx, category, tier, func(rec *model.AccuracyRecord) {
		if rec.SampleCount == 0 {
			rec.RollingAccuracy = review.Accuracy
			rec.MissRate = missRate(review)
		} else {
			alpha := a.cfg.Alpha
			rec.RollingAccuracy = alpha*review.Accuracy + (1-alpha)*rec.RollingAccuracy
			rec.MissRate = alpha*missRate(review) + (1-alpha)*rec.MissRate
		}
		rec.SampleCount++
		rec.State = stateOf(rec.RollingAccuracy)

		switch {
		case rec.State == model.AccuracyWarning:
			rec.WarnStreak++
		default:
			rec.WarnStreak = 0
		}
		if review.Accuracy >= recoveryThreshold && rec.State == model.AccuracyOK {
			rec.RecoveryStreak++
		} else {
			rec.RecoveryStreak = 0
		}
	})
	if err != nil {
		return eris.Wrap(err, "accuracy: fold review")
	}

	return a.adjustRouting(ctx, rec)
}

// CurrentRouting returns the tier future extractions of the category should
// use. Categories with no recorded decision route to the standard tier.
func (a *Aggregator) CurrentRouting(ctx context.Context, category string) (model.Tier, error) {
	decision, err := a.store.CurrentRoutingDecision(ctx, category)
	if err != nil {
		return 0, eris.Wrap(err, "accuracy: current routing")
	}
	if decision == nil {
		return model.MinTier, nil
	}
	return decision.Tier, nil
}

func (a *Aggregator) adjustRouting(ctx context.Context, rec *model.AccuracyRecord) error {
	current, err := a.store.CurrentRoutingDecision(ctx, rec.Category)
	if err != nil {
		return eris.Wrap(err, "accuracy: load routing")
	}
	currentTier := model.MinTier
	if current != nil {
		currentTier = current.Tier
	}

	var (
		target model.Tier
		reason string
	)
	switch {
	case rec.State == model.AccuracyCritical && currentTier < model.MaxTier:
		target = currentTier.Next()
		reason = fmt.Sprintf("rolling accuracy %.3f below critical threshold %.2f", rec.RollingAccuracy, criticalThreshold)
	case rec.WarnStreak >= a.cfg.WarnWindow && currentTier < model.MaxTier:
		target = currentTier.Next()
		reason = fmt.Sprintf("rolling accuracy %.3f in warning band for %d consecutive reviews", rec.RollingAccuracy, rec.WarnStreak)
	case rec.RecoveryStreak >= a.cfg.RecoveryWindow && currentTier > model.MinTier:
		target = currentTier.Prev()
		reason = fmt.Sprintf("accuracy held above %.2f for %d consecutive reviews", recoveryThreshold, rec.RecoveryStreak)
	default:
		return nil
	}

	decision := &model.RoutingDecision{
		ID:               uuid.New().String(),
		Category:         rec.Category,
		Tier:             target,
		PreviousTier:     currentTier,
		Reason:           reason,
		AccuracyRecordID: rec.ID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := a.store.InsertRoutingDecision(ctx, decision); err != nil {
		return eris.Wrap(err, "accuracy: insert routing decision")
	}

	// Streaks reset after a decision so one degradation episode produces
	// one escalation, not one per subsequent review.
	rec.WarnStreak = 0
	rec.RecoveryStreak = 0
	if _, err := a.store.UpdateAccuracyRecord(ctx, rec.Category, rec.Tier, func(r *model.AccuracyRecord) {
		r.WarnStreak = 0
		r.RecoveryStreak = 0
	}); err != nil {
		return eris.Wrap(err, "accuracy: reset streaks")
	}

	zap.L().Warn("routing tier changed",
		zap.String("category", rec.Category),
		zap.Int("previous_tier", int(decision.PreviousTier)),
		zap.Int("tier", int(decision.Tier)),
		zap.String("reason", decision.Reason),
	)
	if a.notifier != nil {
		a.notifier.NotifyRoutingChange(ctx, rec, decision)
	}
	return nil
}

func stateOf(accuracy float64) model.AccuracyState {
	switch {
	case accuracy < criticalThreshold:
		return model.AccuracyCritical
	case accuracy < warningThreshold:
		return model.AccuracyWarning
	default:
		return model.AccuracyOK
	}
}

func missRate(review *model.ShadowReview) float64 {
	denom := review.Matched + review.Missed + review.Incorrect
	if denom == 0 {
		return 0
	}
	return float64(review.Missed) / float64(denom)
}
