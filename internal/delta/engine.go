// Package delta computes what changed between two revisions of a document
// by diffing their authoritative entity sets.
package delta

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ridgeline-eng/docqc/internal/model"
)

// Diff compares the prior run's entities against the current run's,
// matching by (type, natural key). Modified entities produce one delta per
// changed attribute with both values retained. Output is ordered by
// (type, key, attribute) so batches are stable across runs.
func Diff(documentID, priorRunID, currentRunID string, prior, current []model.ExtractedEntity) []model.RevisionDelta {
	priorByKey := make(map[model.EntityKey]model.ExtractedEntity, len(prior))
	for _, e := range prior {
		priorByKey[e.KeyOf()] = e
	}
	currentByKey := make(map[model.EntityKey]model.ExtractedEntity, len(current))
	for _, e := range current {
		currentByKey[e.KeyOf()] = e
	}

	now := time.Now().UTC()
	var deltas []model.RevisionDelta
	emit := func(kind model.DeltaKind, key model.EntityKey, attribute, oldVal, newVal string, sig model.Severity) {
		deltas = append(deltas, model.RevisionDelta{
			ID:           uuid.New().String(),
			DocumentID:   documentID,
			PriorRunID:   priorRunID,
			CurrentRunID: currentRunID,
			Kind:         kind,
			EntityType:   key.Type,
			NaturalKey:   key.Key,
			Attribute:    attribute,
			OldValue:     oldVal,
			NewValue:     newVal,
			Significance: sig,
			CreatedAt:    now,
		})
	}

	for key, old := range priorByKey {
		cur, ok := currentByKey[key]
		if !ok {
			emit(model.DeltaRemoved, key, "", "", "", removalSignificance(old))
			continue
		}
		for _, attr := range sortedAttrs(old.Attributes, cur.Attributes) {
			oldVal, inOld := old.Attributes[attr]
			newVal, inNew := cur.Attributes[attr]
			switch {
			case inOld && !inNew:
				emit(model.DeltaModified, key, attr, model.FormatAttr(oldVal), "", model.ClassifyAttribute(attr))
			case !inOld && inNew:
				emit(model.DeltaModified, key, attr, "", model.FormatAttr(newVal), model.ClassifyAttribute(attr))
			case !model.AttributeEqual(oldVal, newVal):
				emit(model.DeltaModified, key, attr, model.FormatAttr(oldVal), model.FormatAttr(newVal), model.ClassifyAttribute(attr))
			}
		}
	}

	for key := range currentByKey {
		if _, ok := priorByKey[key]; !ok {
			emit(model.DeltaAdded, key, "", "", "", model.SeverityMedium)
		}
	}

	sort.Slice(deltas, func(i, j int) bool {
		a, b := deltas[i], deltas[j]
		if a.EntityType != b.EntityType {
			return a.EntityType < b.EntityType
		}
		if a.NaturalKey != b.NaturalKey {
			return a.NaturalKey < b.NaturalKey
		}
		return a.Attribute < b.Attribute
	})
	return deltas
}

// A removed entity that carried identity attributes is a high-significance
// change; an empty or descriptive-only one is medium.
func removalSignificance(e model.ExtractedEntity) model.Severity {
	for attr := range e.Attributes {
		if model.ClassifyAttribute(attr) == model.SeverityHigh {
			return model.SeverityHigh
		}
	}
	return model.SeverityMedium
}

func sortedAttrs(a, b model.AttributeMap) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		set[k] = struct{}{}
	}
	for k := range b {
		set[k] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
