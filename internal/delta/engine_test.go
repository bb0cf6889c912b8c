package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-eng/docqc/internal/model"
)

func entity(typ, key string, attrs model.AttributeMap) model.ExtractedEntity {
	return model.ExtractedEntity{EntityType: typ, NaturalKey: key, Attributes: attrs}
}

func TestDiffModifiedAttribute(t *testing.T) {
	prior := []model.ExtractedEntity{
		entity("line", "LINE-100", model.AttributeMap{"size": "4", "material": "CS"}),
	}
	current := []model.ExtractedEntity{
		entity("line", "LINE-100", model.AttributeMap{"size": "4", "material": "SS"}),
	}

	deltas := Diff("doc-2", "run-1", "run-2", prior, current)
	require.Len(t, deltas, 1)

	d := deltas[0]
	assert.Equal(t, model.DeltaModified, d.Kind)
	assert.Equal(t, "LINE-100", d.NaturalKey)
	assert.Equal(t, "material", d.Attribute)
	assert.Equal(t, "CS", d.OldValue)
	assert.Equal(t, "SS", d.NewValue)
	assert.Equal(t, model.SeverityHigh, d.Significance)
	assert.Equal(t, "doc-2", d.DocumentID)
	assert.Equal(t, "run-1", d.PriorRunID)
	assert.Equal(t, "run-2", d.CurrentRunID)
}

func TestDiffDescriptiveChangeIsMedium(t *testing.T) {
	prior := []model.ExtractedEntity{
		entity("equipment", "P-101", model.AttributeMap{"location": "area 1"}),
	}
	current := []model.ExtractedEntity{
		entity("equipment", "P-101", model.AttributeMap{"location": "area 2"}),
	}

	deltas := Diff("doc", "r1", "r2", prior, current)
	require.Len(t, deltas, 1)
	assert.Equal(t, model.SeverityMedium, deltas[0].Significance)
}

func TestDiffAddedAndRemoved(t *testing.T) {
	prior := []model.ExtractedEntity{
		entity("valve", "V-1", model.AttributeMap{"class": "800"}),
		entity("valve", "V-2", model.AttributeMap{"note": "drain"}),
	}
	current := []model.ExtractedEntity{
		entity("valve", "V-3", model.AttributeMap{"class": "1500"}),
	}

	deltas := Diff("doc", "r1", "r2", prior, current)
	require.Len(t, deltas, 3)

	byKey := map[string]model.RevisionDelta{}
	for _, d := range deltas {
		byKey[d.NaturalKey] = d
	}

	// Removal of an entity with an identity attribute is high significance.
	assert.Equal(t, model.DeltaRemoved, byKey["V-1"].Kind)
	assert.Equal(t, model.SeverityHigh, byKey["V-1"].Significance)

	// Removal of a descriptive-only entity is medium.
	assert.Equal(t, model.DeltaRemoved, byKey["V-2"].Kind)
	assert.Equal(t, model.SeverityMedium, byKey["V-2"].Significance)

	assert.Equal(t, model.DeltaAdded, byKey["V-3"].Kind)
	assert.Equal(t, model.SeverityMedium, byKey["V-3"].Significance)
}

func TestDiffAttributeAppearedAndDropped(t *testing.T) {
	prior := []model.ExtractedEntity{
		entity("line", "LINE-100", model.AttributeMap{"size": "4", "from": "P-101"}),
	}
	current := []model.ExtractedEntity{
		entity("line", "LINE-100", model.AttributeMap{"size": "4", "rating": "150#"}),
	}

	deltas := Diff("doc", "r1", "r2", prior, current)
	require.Len(t, deltas, 2)

	// Sorted by attribute within the entity.
	assert.Equal(t, "from", deltas[0].Attribute)
	assert.Equal(t, "P-101", deltas[0].OldValue)
	assert.Empty(t, deltas[0].NewValue)

	assert.Equal(t, "rating", deltas[1].Attribute)
	assert.Empty(t, deltas[1].OldValue)
	assert.Equal(t, "150#", deltas[1].NewValue)
	assert.Equal(t, model.SeverityHigh, deltas[1].Significance)
}

func TestDiffStableOrdering(t *testing.T) {
	prior := []model.ExtractedEntity{
		entity("valve", "V-2", model.AttributeMap{"class": "800"}),
		entity("line", "LINE-2", model.AttributeMap{"size": "4"}),
	}
	current := []model.ExtractedEntity{
		entity("valve", "V-1", model.AttributeMap{"class": "800"}),
		entity("line", "LINE-1", model.AttributeMap{"size": "4"}),
	}

	first := Diff("doc", "r1", "r2", prior, current)
	for i := 0; i < 10; i++ {
		again := Diff("doc", "r1", "r2", prior, current)
		require.Len(t, again, len(first))
		for j := range again {
			assert.Equal(t, first[j].EntityType, again[j].EntityType)
			assert.Equal(t, first[j].NaturalKey, again[j].NaturalKey)
			assert.Equal(t, first[j].Kind, again[j].Kind)
		}
	}

	assert.Equal(t, "LINE-1", first[0].NaturalKey)
	assert.Equal(t, "LINE-2", first[1].NaturalKey)
	assert.Equal(t, "V-1", first[2].NaturalKey)
	assert.Equal(t, "V-2", first[3].NaturalKey)
}

func TestDiffIdenticalSetsEmpty(t *testing.T) {
	entities := []model.ExtractedEntity{
		entity("line", "LINE-100", model.AttributeMap{"size": "4", "material": "CS"}),
	}
	assert.Empty(t, Diff("doc", "r1", "r2", entities, entities))
}
