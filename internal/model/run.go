package model

import "time"

// Tier is a quality/cost level of the external extraction service.
// Higher tiers are slower and more expensive but more accurate.
type Tier int

const (
	TierStandard Tier = 1
	TierEnhanced Tier = 2
	TierPremium  Tier = 3

	// MinTier and MaxTier bound routing decisions and shadow escalation.
	MinTier = TierStandard
	MaxTier = TierPremium
)

// Next returns the next-higher tier, capped at MaxTier.
func (t Tier) Next() Tier {
	if t >= MaxTier {
		return MaxTier
	}
	return t + 1
}

// Prev returns the next-lower tier, capped at MinTier.
func (t Tier) Prev() Tier {
	if t <= MinTier {
		return MinTier
	}
	return t - 1
}

// RunOutcome is the terminal state of an extraction run.
type RunOutcome string

const (
	RunSuccess RunOutcome = "success"
	RunFailure RunOutcome = "failure"
	RunTimeout RunOutcome = "timeout"
)

// RunPurpose distinguishes production extractions from shadow re-runs.
type RunPurpose string

const (
	RunPurposeProduction RunPurpose = "production"
	RunPurposeShadow     RunPurpose = "shadow"
)

// ExtractionRun records one invocation of the extraction service against a
// document. Terminal once the outcome is recorded. Only the latest
// successful production run per document is authoritative.
type ExtractionRun struct {
	ID            string     `json:"id"`
	DocumentID    string     `json:"document_id"`
	Tier          Tier       `json:"tier"`
	Purpose       RunPurpose `json:"purpose"`
	Outcome       RunOutcome `json:"outcome"`
	Authoritative bool       `json:"authoritative"`
	Confidence    float64    `json:"confidence"`
	EntityCount   int        `json:"entity_count"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
}
