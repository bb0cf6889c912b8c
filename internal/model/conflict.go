package model

import "time"

// Severity classifies how much a mismatch matters. Safety/identity
// attributes (material, rating, size) are high; location and descriptive
// attributes medium; everything else low.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ConflictScope tags whether the two documents share a discipline.
type ConflictScope string

const (
	ScopeSameDiscipline  ConflictScope = "same_discipline"
	ScopeCrossDiscipline ConflictScope = "cross_discipline"
)

// Conflict is a detected disagreement between two extracted entities that
// share a natural key within a project. Deduplicated by
// (project, natural key, attribute, entity pair); closed only by explicit
// resolution.
type Conflict struct {
	ID             string        `json:"id"`
	ProjectID      string        `json:"project_id"`
	EntityType     string        `json:"entity_type"`
	NaturalKey     string        `json:"natural_key"`
	Attribute      string        `json:"attribute"`
	EntityA        string        `json:"entity_a"`
	EntityB        string        `json:"entity_b"`
	DocumentA      string        `json:"document_a"`
	DocumentB      string        `json:"document_b"`
	ValueA         string        `json:"value_a"`
	ValueB         string        `json:"value_b"`
	Scope          ConflictScope `json:"scope"`
	Severity       Severity      `json:"severity"`
	Resolved       bool          `json:"resolved"`
	ResolutionNote string        `json:"resolution_note,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
}
