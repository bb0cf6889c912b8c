package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgeline-eng/docqc/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailedTasks       AlertType = "failed_tasks"
	AlertQueueBacklog      AlertType = "queue_backlog"
	AlertHighConflicts     AlertType = "high_conflicts"
	AlertRevisionConflicts AlertType = "revision_conflicts"
	AlertAccuracyCritical  AlertType = "accuracy_critical"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds and
// sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.FailedTaskThreshold > 0 && snap.QueueFailed >= a.cfg.FailedTaskThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailedTasks,
			Severity: "high",
			Message:  fmt.Sprintf("%d task(s) permanently failed and need manual handling", snap.QueueFailed),
			Details: map[string]any{
				"failed":    snap.QueueFailed,
				"threshold": a.cfg.FailedTaskThreshold,
			},
			Timestamp: now,
		})
	}

	if a.cfg.PendingDepthWarn > 0 && snap.QueuePending >= a.cfg.PendingDepthWarn {
		alerts = append(alerts, Alert{
			Type:     AlertQueueBacklog,
			Severity: "medium",
			Message:  fmt.Sprintf("Queue backlog at %d pending tasks (warn at %d)", snap.QueuePending, a.cfg.PendingDepthWarn),
			Details: map[string]any{
				"pending":   snap.QueuePending,
				"claimed":   snap.QueueClaimed,
				"threshold": a.cfg.PendingDepthWarn,
			},
			Timestamp: now,
		})
	}

	if a.cfg.HighConflictWarn > 0 && snap.OpenHighConflicts >= a.cfg.HighConflictWarn {
		alerts = append(alerts, Alert{
			Type:     AlertHighConflicts,
			Severity: "high",
			Message:  fmt.Sprintf("%d open high-severity cross-document conflicts", snap.OpenHighConflicts),
			Details: map[string]any{
				"open_high": snap.OpenHighConflicts,
				"open":      snap.OpenConflicts,
			},
			Timestamp: now,
		})
	}

	if snap.OpenRevisionConflicts > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertRevisionConflicts,
			Severity: "high",
			Message:  fmt.Sprintf("%d revision conflict(s) awaiting manual disambiguation", snap.OpenRevisionConflicts),
			Details: map[string]any{
				"open": snap.OpenRevisionConflicts,
			},
			Timestamp: now,
		})
	}

	if len(snap.CriticalCategories) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertAccuracyCritical,
			Severity: "high",
			Message: fmt.Sprintf("Extraction accuracy critical for categories: %s",
				strings.Join(snap.CriticalCategories, ", ")),
			Details: map[string]any{
				"critical": snap.CriticalCategories,
				"warning":  snap.WarningCategories,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
