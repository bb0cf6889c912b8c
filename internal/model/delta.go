package model

import "time"

// DeltaKind classifies a revision change.
type DeltaKind string

const (
	DeltaAdded    DeltaKind = "added"
	DeltaRemoved  DeltaKind = "removed"
	DeltaModified DeltaKind = "modified"
)

// RevisionDelta is one change between a document's current and prior
// authoritative entity sets. One delta per changed attribute for modified
// entities; old and new values are both retained. Deltas are append-only:
// a re-run produces a new batch tied to the new run pair.
type RevisionDelta struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	PriorRunID   string    `json:"prior_run_id"`
	CurrentRunID string    `json:"current_run_id"`
	Kind         DeltaKind `json:"kind"`
	EntityType   string    `json:"entity_type"`
	NaturalKey   string    `json:"natural_key"`
	Attribute    string    `json:"attribute,omitempty"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	Significance Severity  `json:"significance"`
	CreatedAt    time.Time `json:"created_at"`
}
