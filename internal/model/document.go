package model

import "time"

// Document is one version of a logical engineering document. A lineage is
// identified by (ProjectID, LogicalKey); each upload that changes content
// creates a new Document row linked to its predecessor via Supersedes.
type Document struct {
	ID               string     `json:"id"`
	ProjectID        string     `json:"project_id"`
	LogicalKey       string     `json:"logical_key"`
	Category         string     `json:"category"`
	Discipline       string     `json:"discipline,omitempty"`
	ContentHash      string     `json:"content_hash"`
	RevisionLabel    string     `json:"revision_label"`
	RevisionSequence int        `json:"revision_sequence"`
	IsCurrent        bool       `json:"is_current"`
	Supersedes       string     `json:"supersedes,omitempty"`
	SupersededBy     string     `json:"superseded_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	SupersededAt     *time.Time `json:"superseded_at,omitempty"`
}

// IngestDescriptor is what the intake collaborator supplies per file.
// The pipeline never parses file contents itself.
type IngestDescriptor struct {
	ProjectID     string `json:"project_id"`
	LogicalKey    string `json:"logical_key"`
	ContentHash   string `json:"content_hash"`
	RevisionLabel string `json:"revision_label"`
	Category      string `json:"category"`
	Discipline    string `json:"discipline,omitempty"`
}

// IngestOutcome classifies the result of ingesting a descriptor.
type IngestOutcome string

const (
	IngestNewDocument      IngestOutcome = "new_document"
	IngestNewRevision      IngestOutcome = "new_revision"
	IngestDuplicate        IngestOutcome = "duplicate"
	IngestRevisionConflict IngestOutcome = "revision_conflict"
)

// RevisionConflictRecord is the surfaced audit row for a re-submission that
// claims an existing revision label with different content. Never
// auto-resolved; disambiguation is a human action.
type RevisionConflictRecord struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	LogicalKey     string    `json:"logical_key"`
	RevisionLabel  string    `json:"revision_label"`
	ExistingDocID  string    `json:"existing_doc_id"`
	SubmittedHash  string    `json:"submitted_hash"`
	ExistingHash   string    `json:"existing_hash"`
	Resolved       bool      `json:"resolved"`
	ResolutionNote string    `json:"resolution_note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
