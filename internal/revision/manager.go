// Package revision implements the revision chain manager: it decides whether
// an incoming document descriptor is new, a genuine revision, a duplicate, or
// a conflicting re-submission, and maintains the supersession chain.
package revision

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/store"
)

// Manager ingests document descriptors against the revision chain.
type Manager struct {
	store store.Store
}

// NewManager creates a revision chain manager.
func NewManager(st store.Store) *Manager {
	return &Manager{store: st}
}

// IngestResult reports what Ingest decided. Document is set for every
// outcome except RevisionConflict, where Conflict carries the surfaced
// event instead.
type IngestResult struct {
	Outcome  model.IngestOutcome
	Document *model.Document
	Conflict *model.RevisionConflictRecord
}

// Ingest classifies the descriptor against the current document for its
// logical key and applies the outcome:
//
//   - no current document: create one and enqueue an extract task
//   - same content hash: duplicate, nothing written, existing row returned
//   - different hash, different revision label: new revision; the is_current
//     flip is one store transaction, then extract and diff tasks are enqueued
//   - same revision label, different hash: revision conflict; no row is
//     altered, the event is persisted for manual disambiguation
//
// Two concurrent ingests of the same logical key can both observe the chain
// before the other's write lands; the loser's insert hits a unique index and
// is reclassified against the winner's row instead of surfacing the error.
func (m *Manager) Ingest(ctx context.Context, desc model.IngestDescriptor) (*IngestResult, error) {
	if desc.ProjectID == "" || desc.LogicalKey == "" {
		return nil, eris.New("revision: descriptor requires project id and logical key")
	}
	if desc.ContentHash == "" {
		return nil, eris.New("revision: descriptor requires a content hash")
	}

	res, err := m.ingest(ctx, desc)
	if err != nil && store.IsUniqueViolation(err) {
		zap.L().Info("ingest lost a write race; reclassifying",
			zap.String("project_id", desc.ProjectID),
			zap.String("logical_key", desc.LogicalKey),
		)
		return m.ingest(ctx, desc)
	}
	return res, err
}

func (m *Manager) ingest(ctx context.Context, desc model.IngestDescriptor) (*IngestResult, error) {
	current, err := m.store.GetCurrentDocument(ctx, desc.ProjectID, desc.LogicalKey)
	if err != nil {
		return nil, eris.Wrap(err, "revision: lookup current document")
	}

	if current == nil {
		doc := descToDocument(desc)
		if err := m.store.CreateDocument(ctx, doc); err != nil {
			return nil, eris.Wrap(err, "revision: create document")
		}
		if err := m.enqueueExtract(ctx, doc.ID); err != nil {
			return nil, err
		}
		zap.L().Info("ingested new document",
			zap.String("document_id", doc.ID),
			zap.String("logical_key", doc.LogicalKey),
			zap.String("revision", doc.RevisionLabel),
		)
		return &IngestResult{Outcome: model.IngestNewDocument, Document: doc}, nil
	}

	if current.ContentHash == desc.ContentHash {
		// Identical bytes re-submitted: idempotent no-op.
		return &IngestResult{Outcome: model.IngestDuplicate, Document: current}, nil
	}

	if current.RevisionLabel == desc.RevisionLabel {
		rc := &model.RevisionConflictRecord{
			ProjectID:     desc.ProjectID,
			LogicalKey:    desc.LogicalKey,
			RevisionLabel: desc.RevisionLabel,
			ExistingDocID: current.ID,
			SubmittedHash: desc.ContentHash,
			ExistingHash:  current.ContentHash,
		}
		if err := m.store.CreateRevisionConflict(ctx, rc); err != nil {
			return nil, eris.Wrap(err, "revision: record revision conflict")
		}
		zap.L().Warn("revision conflict: same label, different content",
			zap.String("logical_key", desc.LogicalKey),
			zap.String("revision", desc.RevisionLabel),
			zap.String("existing_doc", current.ID),
		)
		return &IngestResult{Outcome: model.IngestRevisionConflict, Conflict: rc}, nil
	}

	doc := descToDocument(desc)
	if err := m.store.InsertRevision(ctx, doc, current.ID); err != nil {
		return nil, eris.Wrap(err, "revision: insert revision")
	}

	if err := m.enqueueExtract(ctx, doc.ID); err != nil {
		return nil, err
	}
	if err := m.store.EnqueueTask(ctx, &model.QueueTask{
		Kind:       model.TaskDiff,
		DocumentID: doc.ID,
		Priority:   model.PriorityNormal,
		Payload:    model.AttributeMap{"prior_document_id": current.ID},
	}); err != nil {
		return nil, eris.Wrap(err, "revision: enqueue diff task")
	}

	zap.L().Info("ingested new revision",
		zap.String("document_id", doc.ID),
		zap.String("supersedes", current.ID),
		zap.String("logical_key", doc.LogicalKey),
		zap.String("revision", doc.RevisionLabel),
		zap.Int("sequence", doc.RevisionSequence),
	)
	return &IngestResult{Outcome: model.IngestNewRevision, Document: doc}, nil
}

func (m *Manager) enqueueExtract(ctx context.Context, documentID string) error {
	err := m.store.EnqueueTask(ctx, &model.QueueTask{
		Kind:       model.TaskExtract,
		DocumentID: documentID,
		Priority:   model.PriorityNormal,
	})
	return eris.Wrap(err, "revision: enqueue extract task")
}

func descToDocument(desc model.IngestDescriptor) *model.Document {
	return &model.Document{
		ProjectID:     desc.ProjectID,
		LogicalKey:    desc.LogicalKey,
		Category:      desc.Category,
		Discipline:    desc.Discipline,
		ContentHash:   desc.ContentHash,
		RevisionLabel: desc.RevisionLabel,
	}
}
