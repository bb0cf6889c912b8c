package model

import "time"

// AccuracyState classifies a rolling accuracy figure against the acceptance
// thresholds.
type AccuracyState string

const (
	AccuracyOK       AccuracyState = "ok"
	AccuracyWarning  AccuracyState = "warning"  // 0.90 <= accuracy < 0.95
	AccuracyCritical AccuracyState = "critical" // accuracy < 0.90
)

// AccuracyRecord is the rolling aggregate for one (category, tier) pair,
// updated incrementally as shadow reviews land.
type AccuracyRecord struct {
	ID              string        `json:"id"`
	Category        string        `json:"category"`
	Tier            Tier          `json:"tier"`
	SampleCount     int           `json:"sample_count"`
	RollingAccuracy float64       `json:"rolling_accuracy"`
	MissRate        float64       `json:"miss_rate"`
	State           AccuracyState `json:"state"`
	WarnStreak      int           `json:"warn_streak"`
	RecoveryStreak  int           `json:"recovery_streak"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// RoutingDecision is the currently recommended extraction tier for a
// document category, with the prior tier and the accuracy record that
// justified the change kept for audit.
type RoutingDecision struct {
	ID               string    `json:"id"`
	Category         string    `json:"category"`
	Tier             Tier      `json:"tier"`
	PreviousTier     Tier      `json:"previous_tier"`
	Reason           string    `json:"reason"`
	AccuracyRecordID string    `json:"accuracy_record_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
