package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ridgeline-eng/docqc/internal/config"
	"github.com/ridgeline-eng/docqc/internal/model"
)

// Checker runs periodic alert checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		log.Error("monitoring: failed to collect metrics", zap.Error(err))
		return
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered")
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
}

// NotifyRoutingChange sends an immediate webhook for a routing escalation or
// recovery, outside the periodic check cycle.
func (a *Alerter) NotifyRoutingChange(ctx context.Context, rec *model.AccuracyRecord, decision *model.RoutingDecision) {
	alert := Alert{
		Type:     AlertAccuracyCritical,
		Severity: "high",
		Message: fmt.Sprintf("Routing for category %q changed tier %d -> %d: %s",
			decision.Category, decision.PreviousTier, decision.Tier, decision.Reason),
		Details: map[string]any{
			"category":         decision.Category,
			"previous_tier":    int(decision.PreviousTier),
			"tier":             int(decision.Tier),
			"rolling_accuracy": rec.RollingAccuracy,
			"sample_count":     rec.SampleCount,
		},
		Timestamp: time.Now().UTC(),
	}
	if decision.Tier < decision.PreviousTier {
		alert.Severity = "info"
	}
	a.SendAlerts(ctx, []Alert{alert})
}
