package model

import "time"

// ShadowReview compares a production extraction run against a higher-tier
// re-run of the same document. The shadow run's entities are treated as
// ground truth for scoring the production run.
type ShadowReview struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id"`
	ProductionRun  string    `json:"production_run"`
	ShadowRun      string    `json:"shadow_run"`
	Category       string    `json:"category"`
	ProductionTier Tier      `json:"production_tier"`
	ShadowTier     Tier      `json:"shadow_tier"`
	Matched        int       `json:"matched"`
	Missed         int       `json:"missed"`
	Incorrect      int       `json:"incorrect"`
	FalsePositives int       `json:"false_positives"`
	Accuracy       float64   `json:"accuracy"`
	CreatedAt      time.Time `json:"created_at"`
}
