// Package conflict cross-checks a document's authoritative entities against
// every other current document in the same project. Two documents that
// disagree about an attribute of the same tagged item produce a Conflict
// row; resolution is always an explicit action, never automatic.
package conflict

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/store"
)

// Detector finds cross-document attribute mismatches.
type Detector struct {
	store store.Store
}

func NewDetector(st store.Store) *Detector {
	return &Detector{store: st}
}

// CrossCheck compares the document's authoritative entities against all
// other authoritative entities in the project sharing a natural key, and
// persists any mismatches not already open. Returns the number of newly
// opened conflicts; re-running against unchanged data opens none.
func (d *Detector) CrossCheck(ctx context.Context, doc *model.Document) (int, error) {
	run, err := d.store.AuthoritativeRun(ctx, doc.ID)
	if err != nil {
		return 0, eris.Wrap(err, "conflict: load authoritative run")
	}
	if run == nil {
		// Extraction has not landed yet; the post-extraction cross_check
		// task will cover this document.
		return 0, nil
	}
	entities, err := d.store.RunEntities(ctx, run.ID)
	if err != nil {
		return 0, eris.Wrap(err, "conflict: load entities")
	}

	var candidates []model.Conflict
	for _, mine := range entities {
		others, err := d.store.ProjectEntitiesByKey(ctx, doc.ProjectID, mine.EntityType, mine.NaturalKey, doc.ID)
		if err != nil {
			return 0, eris.Wrap(err, "conflict: lookup siblings")
		}
		for _, other := range others {
			candidates = append(candidates, compareEntities(doc, mine, other)...)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	inserted, err := d.store.InsertConflicts(ctx, candidates)
	if err != nil {
		return 0, eris.Wrap(err, "conflict: insert")
	}
	if inserted > 0 {
		zap.L().Info("cross-check opened conflicts",
			zap.String("document_id", doc.ID),
			zap.String("project_id", doc.ProjectID),
			zap.Int("opened", inserted),
			zap.Int("candidates", len(candidates)),
		)
	}
	return inserted, nil
}

// compareEntities emits one candidate per attribute the two documents
// disagree on. Attributes present on only one side are not mismatches: a
// single-line diagram legitimately omits what a datasheet carries.
func compareEntities(doc *model.Document, mine model.ExtractedEntity, other store.ProjectEntity) []model.Conflict {
	scope := model.ScopeCrossDiscipline
	if doc.Discipline == other.Discipline {
		scope = model.ScopeSameDiscipline
	}

	var out []model.Conflict
	now := time.Now().UTC()
	for _, attr := range mine.Attributes.Keys() {
		myVal := mine.Attributes[attr]
		theirVal, ok := other.Entity.Attributes[attr]
		if !ok || model.AttributeEqual(myVal, theirVal) {
			continue
		}
		c := model.Conflict{
			ID:         uuid.New().String(),
			ProjectID:  doc.ProjectID,
			EntityType: mine.EntityType,
			NaturalKey: mine.NaturalKey,
			Attribute:  attr,
			EntityA:    mine.ID,
			EntityB:    other.Entity.ID,
			DocumentA:  doc.ID,
			DocumentB:  other.DocumentID,
			ValueA:     model.FormatAttr(myVal),
			ValueB:     model.FormatAttr(theirVal),
			Scope:      scope,
			Severity:   model.ClassifyAttribute(attr),
			CreatedAt:  now,
		}
		normalizePair(&c)
		out = append(out, c)
	}
	return out
}

// normalizePair orders the entity pair so a conflict found from either side
// dedupes to the same row.
func normalizePair(c *model.Conflict) {
	if c.EntityA <= c.EntityB {
		return
	}
	c.EntityA, c.EntityB = c.EntityB, c.EntityA
	c.DocumentA, c.DocumentB = c.DocumentB, c.DocumentA
	c.ValueA, c.ValueB = c.ValueB, c.ValueA
}
