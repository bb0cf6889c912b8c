package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-eng/docqc/internal/model"
)

func seedDocument(t *testing.T, st *SQLiteStore, project, key string) *model.Document {
	t.Helper()
	doc := testDocument(project, key, "hash-"+key, "A")
	require.NoError(t, st.CreateDocument(context.Background(), doc))
	return doc
}

func seedRun(t *testing.T, st *SQLiteStore, doc *model.Document, authoritative bool, entities []model.ExtractedEntity) *model.ExtractionRun {
	t.Helper()
	run := &model.ExtractionRun{
		DocumentID:    doc.ID,
		Tier:          model.TierStandard,
		Purpose:       model.RunPurposeProduction,
		Outcome:       model.RunSuccess,
		Authoritative: authoritative,
		Confidence:    0.85,
		StartedAt:     time.Now().UTC(),
	}
	require.NoError(t, st.CreateRun(context.Background(), run, entities))
	return run
}

func TestCreateRunDemotesPriorAuthoritative(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	doc := seedDocument(t, st, "P1", "PID-001")

	first := seedRun(t, st, doc, true, []model.ExtractedEntity{
		{EntityType: "line", NaturalKey: "LINE-100", Attributes: model.AttributeMap{"material": "CS"}},
	})
	second := seedRun(t, st, doc, true, []model.ExtractedEntity{
		{EntityType: "line", NaturalKey: "LINE-100", Attributes: model.AttributeMap{"material": "SS"}},
	})

	auth, err := st.AuthoritativeRun(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, auth)
	assert.Equal(t, second.ID, auth.ID)

	demoted, err := st.GetRun(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, demoted.Authoritative)

	// Entities of the demoted run remain readable; runs are append-only.
	entities, err := st.RunEntities(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	material, _ := entities[0].Attributes.String("material")
	assert.Equal(t, "CS", material)
}

func TestCreateRunNonAuthoritativeLeavesCurrent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	doc := seedDocument(t, st, "P1", "PID-001")

	production := seedRun(t, st, doc, true, nil)

	shadow := &model.ExtractionRun{
		DocumentID: doc.ID,
		Tier:       model.TierEnhanced,
		Purpose:    model.RunPurposeShadow,
		Outcome:    model.RunSuccess,
		Confidence: 0.95,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.CreateRun(ctx, shadow, nil))

	auth, err := st.AuthoritativeRun(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, auth)
	assert.Equal(t, production.ID, auth.ID)
}

func TestAuthoritativeRunNone(t *testing.T) {
	st := newTestStore(t)
	run, err := st.AuthoritativeRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestProjectEntitiesByKeyScopesAuthoritativeCurrent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	docA := seedDocument(t, st, "P1", "PID-001")
	docB := seedDocument(t, st, "P1", "DS-200")
	otherProject := seedDocument(t, st, "P2", "PID-001")

	seedRun(t, st, docA, true, []model.ExtractedEntity{
		{EntityType: "equipment", NaturalKey: "EQUIP-7", Attributes: model.AttributeMap{"voltage": "480"}},
	})
	seedRun(t, st, docB, true, []model.ExtractedEntity{
		{EntityType: "equipment", NaturalKey: "EQUIP-7", Attributes: model.AttributeMap{"voltage": "600"}},
	})
	// Non-authoritative sibling data must not appear.
	seedRun(t, st, docB, false, []model.ExtractedEntity{
		{EntityType: "equipment", NaturalKey: "EQUIP-7", Attributes: model.AttributeMap{"voltage": "999"}},
	})
	seedRun(t, st, otherProject, true, []model.ExtractedEntity{
		{EntityType: "equipment", NaturalKey: "EQUIP-7", Attributes: model.AttributeMap{"voltage": "120"}},
	})

	siblings, err := st.ProjectEntitiesByKey(ctx, "P1", "equipment", "EQUIP-7", docA.ID)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, docB.ID, siblings[0].DocumentID)
	assert.Equal(t, "DS-200", siblings[0].LogicalKey)
	voltage, _ := siblings[0].Entity.Attributes.String("voltage")
	assert.Equal(t, "600", voltage)
}

func TestShadowReviewRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	review := &model.ShadowReview{
		DocumentID:     "doc-1",
		ProductionRun:  "run-1",
		ShadowRun:      "run-2",
		Category:       "pid",
		ProductionTier: model.TierStandard,
		ShadowTier:     model.TierEnhanced,
		Matched:        8,
		Missed:         1,
		Incorrect:      1,
		FalsePositives: 2,
		Accuracy:       0.8,
	}
	require.NoError(t, st.CreateShadowReview(ctx, review))

	got, err := st.ListShadowReviews(ctx, "pid", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].Matched)
	assert.Equal(t, model.TierEnhanced, got[0].ShadowTier)
	assert.InDelta(t, 0.8, got[0].Accuracy, 1e-9)

	none, err := st.ListShadowReviews(ctx, "datasheet", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAccuracyRecordUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	missing, err := st.GetAccuracyRecord(ctx, "pid", model.TierStandard)
	require.NoError(t, err)
	assert.Nil(t, missing)

	rec := &model.AccuracyRecord{
		Category:        "pid",
		Tier:            model.TierStandard,
		SampleCount:     1,
		RollingAccuracy: 0.92,
		State:           model.AccuracyWarning,
		WarnStreak:      1,
	}
	require.NoError(t, st.UpsertAccuracyRecord(ctx, rec))

	rec.SampleCount = 2
	rec.RollingAccuracy = 0.88
	rec.State = model.AccuracyCritical
	require.NoError(t, st.UpsertAccuracyRecord(ctx, rec))

	got, err := st.GetAccuracyRecord(ctx, "pid", model.TierStandard)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.SampleCount)
	assert.InDelta(t, 0.88, got.RollingAccuracy, 1e-9)
	assert.Equal(t, model.AccuracyCritical, got.State)

	all, err := st.ListAccuracyRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateAccuracyRecordCreatesAndFolds(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec, err := st.UpdateAccuracyRecord(ctx, "pid", model.TierStandard, func(r *model.AccuracyRecord) {
		assert.Equal(t, 0, r.SampleCount)
		assert.Equal(t, model.AccuracyOK, r.State)
		r.SampleCount++
		r.RollingAccuracy = 0.88
		r.State = model.AccuracyCritical
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.SampleCount)
	assert.NotEmpty(t, rec.ID)

	rec2, err := st.UpdateAccuracyRecord(ctx, "pid", model.TierStandard, func(r *model.AccuracyRecord) {
		assert.Equal(t, 1, r.SampleCount)
		assert.InDelta(t, 0.88, r.RollingAccuracy, 1e-9)
		r.SampleCount++
	})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, rec2.ID)

	got, err := st.GetAccuracyRecord(ctx, "pid", model.TierStandard)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.SampleCount)
	assert.Equal(t, model.AccuracyCritical, got.State)
}

func TestRoutingDecisionLatestWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	none, err := st.CurrentRoutingDecision(ctx, "pid")
	require.NoError(t, err)
	assert.Nil(t, none)

	first := &model.RoutingDecision{
		Category:     "pid",
		Tier:         model.TierEnhanced,
		PreviousTier: model.TierStandard,
		Reason:       "accuracy degraded",
	}
	require.NoError(t, st.InsertRoutingDecision(ctx, first))
	second := &model.RoutingDecision{
		Category:     "pid",
		Tier:         model.TierPremium,
		PreviousTier: model.TierEnhanced,
		Reason:       "still degraded",
	}
	require.NoError(t, st.InsertRoutingDecision(ctx, second))

	current, err := st.CurrentRoutingDecision(ctx, "pid")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, model.TierPremium, current.Tier)

	history, err := st.ListRoutingDecisions(ctx, "pid", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)

	all, err := st.ListRoutingDecisions(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeltasRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	deltas := []model.RevisionDelta{
		{
			DocumentID:   "doc-2",
			PriorRunID:   "run-1",
			CurrentRunID: "run-2",
			Kind:         model.DeltaModified,
			EntityType:   "line",
			NaturalKey:   "LINE-100",
			Attribute:    "material",
			OldValue:     "CS",
			NewValue:     "SS",
			Significance: model.SeverityHigh,
		},
		{
			DocumentID:   "doc-2",
			PriorRunID:   "run-1",
			CurrentRunID: "run-2",
			Kind:         model.DeltaAdded,
			EntityType:   "valve",
			NaturalKey:   "V-12",
			Significance: model.SeverityMedium,
		},
	}
	require.NoError(t, st.InsertDeltas(ctx, deltas))
	require.NoError(t, st.InsertDeltas(ctx, nil))

	got, err := st.ListDeltas(ctx, "doc-2")
	require.NoError(t, err)
	require.Len(t, got, 2)

	byKind := map[model.DeltaKind]model.RevisionDelta{}
	for _, d := range got {
		byKind[d.Kind] = d
	}
	assert.Equal(t, "CS", byKind[model.DeltaModified].OldValue)
	assert.Equal(t, "SS", byKind[model.DeltaModified].NewValue)
	assert.Equal(t, model.SeverityHigh, byKind[model.DeltaModified].Significance)
}

func TestInsertConflictsDeduplicatesOpen(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	conflict := model.Conflict{
		ProjectID:  "P1",
		EntityType: "equipment",
		NaturalKey: "EQUIP-7",
		Attribute:  "voltage",
		EntityA:    "ent-a",
		EntityB:    "ent-b",
		DocumentA:  "doc-a",
		DocumentB:  "doc-b",
		ValueA:     "480",
		ValueB:     "600",
		Scope:      model.ScopeCrossDiscipline,
		Severity:   model.SeverityHigh,
	}

	inserted, err := st.InsertConflicts(ctx, []model.Conflict{conflict})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Same logical conflict again: deduplicated against the open row.
	inserted, err = st.InsertConflicts(ctx, []model.Conflict{conflict})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	open, err := st.ListConflicts(ctx, ConflictFilter{OnlyOpen: true})
	require.NoError(t, err)
	require.Len(t, open, 1)

	// After resolution the same mismatch may be reported again.
	require.NoError(t, st.ResolveConflict(ctx, open[0].ID, "field verified 600V"))
	inserted, err = st.InsertConflicts(ctx, []model.Conflict{conflict})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	all, err := st.ListConflicts(ctx, ConflictFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	resolved, err := st.ListConflicts(ctx, ConflictFilter{OnlyOpen: true})
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
}

func TestResolveConflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	conflict := model.Conflict{
		ProjectID:  "P1",
		EntityType: "line",
		NaturalKey: "LINE-1",
		Attribute:  "size",
		EntityA:    "a",
		EntityB:    "b",
		DocumentA:  "da",
		DocumentB:  "db",
		ValueA:     "4",
		ValueB:     "6",
		Scope:      model.ScopeSameDiscipline,
		Severity:   model.SeverityHigh,
	}
	_, err := st.InsertConflicts(ctx, []model.Conflict{conflict})
	require.NoError(t, err)

	open, err := st.ListConflicts(ctx, ConflictFilter{OnlyOpen: true})
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, st.ResolveConflict(ctx, open[0].ID, "design change DCN-42"))

	// Resolving twice is an error; the row is no longer open.
	err = st.ResolveConflict(ctx, open[0].ID, "again")
	require.Error(t, err)

	all, err := st.ListConflicts(ctx, ConflictFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Resolved)
	assert.Equal(t, "design change DCN-42", all[0].ResolutionNote)
	require.NotNil(t, all[0].ResolvedAt)
}

func TestListConflictsFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	mk := func(project, key string, sev model.Severity) model.Conflict {
		return model.Conflict{
			ProjectID:  project,
			EntityType: "line",
			NaturalKey: key,
			Attribute:  "size",
			EntityA:    "a-" + key,
			EntityB:    "b-" + key,
			DocumentA:  "da",
			DocumentB:  "db",
			ValueA:     "4",
			ValueB:     "6",
			Scope:      model.ScopeSameDiscipline,
			Severity:   sev,
		}
	}
	_, err := st.InsertConflicts(ctx, []model.Conflict{
		mk("P1", "LINE-1", model.SeverityHigh),
		mk("P1", "LINE-2", model.SeverityLow),
		mk("P2", "LINE-3", model.SeverityHigh),
	})
	require.NoError(t, err)

	highP1, err := st.ListConflicts(ctx, ConflictFilter{ProjectID: "P1", Severity: model.SeverityHigh})
	require.NoError(t, err)
	require.Len(t, highP1, 1)
	assert.Equal(t, "LINE-1", highP1[0].NaturalKey)

	byKey, err := st.ListConflicts(ctx, ConflictFilter{NaturalKey: "LINE-3"})
	require.NoError(t, err)
	require.Len(t, byKey, 1)
	assert.Equal(t, "P2", byKey[0].ProjectID)
}
