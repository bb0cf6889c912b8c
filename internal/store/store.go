package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ridgeline-eng/docqc/internal/model"
)

// TaskFilter specifies criteria for listing queue tasks.
type TaskFilter struct {
	Status model.TaskStatus `json:"status,omitempty"`
	Kind   model.TaskKind   `json:"kind,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// ConflictFilter specifies criteria for listing conflicts.
type ConflictFilter struct {
	ProjectID  string         `json:"project_id,omitempty"`
	Severity   model.Severity `json:"severity,omitempty"`
	OnlyOpen   bool           `json:"only_open,omitempty"`
	NaturalKey string         `json:"natural_key,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// ProjectEntity is an authoritative extracted entity joined with the
// document version that owns it, as needed by cross-document checks.
type ProjectEntity struct {
	Entity     model.ExtractedEntity
	DocumentID string
	LogicalKey string
	Category   string
	Discipline string
}

// Store defines the persistence interface for the ingestion and
// extraction-QC pipeline. Both implementations back every mutation that the
// design requires to be atomic (revision flips, task claims, run+entity
// persistence) with a single transaction.
type Store interface {
	// Documents and revision chains
	CreateDocument(ctx context.Context, doc *model.Document) error
	InsertRevision(ctx context.Context, doc *model.Document, priorID string) error
	// GetDocument and GetCurrentDocument return (nil, nil) when no row
	// matches.
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetCurrentDocument(ctx context.Context, projectID, logicalKey string) (*model.Document, error)
	ListRevisions(ctx context.Context, projectID, logicalKey string) ([]model.Document, error)

	// Revision conflicts (surfaced, never auto-resolved)
	CreateRevisionConflict(ctx context.Context, rc *model.RevisionConflictRecord) error
	ListRevisionConflicts(ctx context.Context, projectID string, includeResolved bool) ([]model.RevisionConflictRecord, error)

	// Task queue
	EnqueueTask(ctx context.Context, task *model.QueueTask) error
	ClaimTask(ctx context.Context, workerID string, kinds []model.TaskKind, lease time.Duration) (*model.QueueTask, error)
	CompleteTask(ctx context.Context, taskID string) error
	FailTask(ctx context.Context, taskID, errMsg string, maxAttempts int) (terminal bool, err error)
	ReapExpiredLeases(ctx context.Context, maxAttempts int) (int, error)
	CountTasks(ctx context.Context) (map[model.TaskStatus]int, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.QueueTask, error)

	// Extraction runs and entities
	CreateRun(ctx context.Context, run *model.ExtractionRun, entities []model.ExtractedEntity) error
	GetRun(ctx context.Context, id string) (*model.ExtractionRun, error)
	AuthoritativeRun(ctx context.Context, documentID string) (*model.ExtractionRun, error)
	RunEntities(ctx context.Context, runID string) ([]model.ExtractedEntity, error)
	ProjectEntitiesByKey(ctx context.Context, projectID, entityType, naturalKey, excludeDocumentID string) ([]ProjectEntity, error)

	// Shadow reviews
	CreateShadowReview(ctx context.Context, review *model.ShadowReview) error
	ListShadowReviews(ctx context.Context, category string, limit int) ([]model.ShadowReview, error)

	// Accuracy and routing
	GetAccuracyRecord(ctx context.Context, category string, tier model.Tier) (*model.AccuracyRecord, error)
	UpsertAccuracyRecord(ctx context.Context, rec *model.AccuracyRecord) error
	// UpdateAccuracyRecord loads the (category, tier) record, applies the
	// given function, and persists the result, all in one transaction
	// serialized in the database. Worker processes share no memory, so this
	// is the only safe way to fold a sample into the rolling figures. When
	// no record exists yet, apply receives a fresh one with SampleCount 0.
	UpdateAccuracyRecord(ctx context.Context, category string, tier model.Tier, apply func(rec *model.AccuracyRecord)) (*model.AccuracyRecord, error)
	ListAccuracyRecords(ctx context.Context) ([]model.AccuracyRecord, error)
	InsertRoutingDecision(ctx context.Context, dec *model.RoutingDecision) error
	CurrentRoutingDecision(ctx context.Context, category string) (*model.RoutingDecision, error)
	ListRoutingDecisions(ctx context.Context, category string, limit int) ([]model.RoutingDecision, error)

	// Revision deltas
	InsertDeltas(ctx context.Context, deltas []model.RevisionDelta) error
	ListDeltas(ctx context.Context, documentID string) ([]model.RevisionDelta, error)

	// Conflicts
	InsertConflicts(ctx context.Context, conflicts []model.Conflict) (int, error)
	ListConflicts(ctx context.Context, filter ConflictFilter) ([]model.Conflict, error)
	ResolveConflict(ctx context.Context, id, note string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// IsUniqueViolation reports whether err is a unique-constraint violation
// from either backend. Callers that race on an insert use it to fall back
// to a fresh lookup instead of surfacing the raw driver error.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
