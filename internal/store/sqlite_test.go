package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-eng/docqc/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testDocument(project, key, hash, rev string) *model.Document {
	return &model.Document{
		ProjectID:     project,
		LogicalKey:    key,
		Category:      "pid",
		Discipline:    "process",
		ContentHash:   hash,
		RevisionLabel: rev,
	}
}

func TestCreateAndGetDocument(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("P1", "PID-001", "hash-a", "A")
	require.NoError(t, st.CreateDocument(ctx, doc))
	require.NotEmpty(t, doc.ID)
	assert.True(t, doc.IsCurrent)
	assert.Equal(t, 1, doc.RevisionSequence)

	got, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "PID-001", got.LogicalKey)
	assert.Equal(t, "hash-a", got.ContentHash)
	assert.True(t, got.IsCurrent)

	missing, err := st.GetDocument(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetCurrentDocumentNone(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetCurrentDocument(context.Background(), "P1", "PID-404")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertRevisionFlipsCurrent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	revA := testDocument("P1", "PID-001", "hash-a", "A")
	require.NoError(t, st.CreateDocument(ctx, revA))

	revB := testDocument("P1", "PID-001", "hash-b", "B")
	require.NoError(t, st.InsertRevision(ctx, revB, revA.ID))
	assert.Equal(t, 2, revB.RevisionSequence)
	assert.Equal(t, revA.ID, revB.Supersedes)

	oldDoc, err := st.GetDocument(ctx, revA.ID)
	require.NoError(t, err)
	assert.False(t, oldDoc.IsCurrent)
	assert.Equal(t, revB.ID, oldDoc.SupersededBy)
	require.NotNil(t, oldDoc.SupersededAt)

	current, err := st.GetCurrentDocument(ctx, "P1", "PID-001")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, revB.ID, current.ID)

	// Inserting against a superseded prior must fail; the chain head moved.
	revC := testDocument("P1", "PID-001", "hash-c", "C")
	err = st.InsertRevision(ctx, revC, revA.ID)
	require.Error(t, err)
}

func TestListRevisionsOrderedBySequence(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	revA := testDocument("P1", "PID-001", "hash-a", "A")
	require.NoError(t, st.CreateDocument(ctx, revA))
	revB := testDocument("P1", "PID-001", "hash-b", "B")
	require.NoError(t, st.InsertRevision(ctx, revB, revA.ID))
	revC := testDocument("P1", "PID-001", "hash-c", "C")
	require.NoError(t, st.InsertRevision(ctx, revC, revB.ID))

	revisions, err := st.ListRevisions(ctx, "P1", "PID-001")
	require.NoError(t, err)
	require.Len(t, revisions, 3)

	currentCount := 0
	for i, r := range revisions {
		assert.Equal(t, i+1, r.RevisionSequence)
		if r.IsCurrent {
			currentCount++
		}
	}
	assert.Equal(t, 1, currentCount)
	assert.Equal(t, revB.ID, revisions[2].Supersedes)
}

func TestConcurrentRevisionInsertSingleCurrent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	revA := testDocument("P1", "PID-001", "hash-a", "A")
	require.NoError(t, st.CreateDocument(ctx, revA))

	// Many goroutines race to supersede the same revision; exactly one may
	// win, and exactly one document stays current.
	const racers = 10
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := testDocument("P1", "PID-001", string(rune('b'+i)), string(rune('B'+i)))
			errs[i] = st.InsertRevision(ctx, doc, revA.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	revisions, err := st.ListRevisions(ctx, "P1", "PID-001")
	require.NoError(t, err)
	currentCount := 0
	for _, r := range revisions {
		if r.IsCurrent {
			currentCount++
		}
	}
	assert.Equal(t, 1, currentCount)
}

func TestRevisionConflictRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rc := &model.RevisionConflictRecord{
		ProjectID:     "P1",
		LogicalKey:    "PID-001",
		RevisionLabel: "B",
		ExistingDocID: "doc-1",
		SubmittedHash: "hash-x",
		ExistingHash:  "hash-b",
	}
	require.NoError(t, st.CreateRevisionConflict(ctx, rc))

	open, err := st.ListRevisionConflicts(ctx, "P1", false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "hash-x", open[0].SubmittedHash)
	assert.False(t, open[0].Resolved)

	other, err := st.ListRevisionConflicts(ctx, "P2", false)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEnqueueClaimComplete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task := &model.QueueTask{
		Kind:       model.TaskExtract,
		DocumentID: "doc-1",
		Priority:   model.PriorityNormal,
		Payload:    model.AttributeMap{"prior_document_id": "doc-0"},
	}
	require.NoError(t, st.EnqueueTask(ctx, task))

	claimed, err := st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskExtract}, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, task.ID, claimed.ID)
	assert.Equal(t, model.TaskClaimed, claimed.Status)
	assert.Equal(t, "w1", claimed.ClaimedBy)
	require.NotNil(t, claimed.LeaseExpiry)
	prior, ok := claimed.Payload.String("prior_document_id")
	require.True(t, ok)
	assert.Equal(t, "doc-0", prior)

	// A second claim while the lease is live returns nothing.
	second, err := st.ClaimTask(ctx, "w2", []model.TaskKind{model.TaskExtract}, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, st.CompleteTask(ctx, task.ID))
	counts, err := st.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.TaskDone])
}

func TestClaimRespectsKindAndPriority(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	low := &model.QueueTask{Kind: model.TaskDiff, DocumentID: "d", Priority: model.PriorityLow}
	high := &model.QueueTask{Kind: model.TaskDiff, DocumentID: "d", Priority: model.PriorityHigh}
	other := &model.QueueTask{Kind: model.TaskExtract, DocumentID: "d", Priority: model.PriorityHigh}
	require.NoError(t, st.EnqueueTask(ctx, low))
	require.NoError(t, st.EnqueueTask(ctx, high))
	require.NoError(t, st.EnqueueTask(ctx, other))

	claimed, err := st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskDiff}, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, high.ID, claimed.ID)

	claimed, err = st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskDiff}, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, low.ID, claimed.ID)

	claimed, err = st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskDiff}, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestConcurrentClaimNoDoubleDelivery(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	const tasks = 20
	for i := 0; i < tasks; i++ {
		require.NoError(t, st.EnqueueTask(ctx, &model.QueueTask{
			Kind:       model.TaskExtract,
			DocumentID: "doc",
			Priority:   model.PriorityNormal,
		}))
	}

	const workers = 8
	var mu sync.Mutex
	seen := make(map[string]string)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker string) {
			defer wg.Done()
			for {
				task, err := st.ClaimTask(ctx, worker, []model.TaskKind{model.TaskExtract}, time.Minute)
				require.NoError(t, err)
				if task == nil {
					return
				}
				mu.Lock()
				prev, dup := seen[task.ID]
				seen[task.ID] = worker
				mu.Unlock()
				require.False(t, dup, "task %s delivered to both %s and %s", task.ID, prev, worker)
			}
		}(string(rune('a' + w)))
	}
	wg.Wait()

	assert.Len(t, seen, tasks)
}

func TestFailTaskRetriesThenTerminal(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task := &model.QueueTask{Kind: model.TaskExtract, DocumentID: "doc"}
	require.NoError(t, st.EnqueueTask(ctx, task))

	for attempt := 1; attempt <= 3; attempt++ {
		claimed, err := st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskExtract}, time.Minute)
		require.NoError(t, err)
		require.NotNil(t, claimed, "attempt %d", attempt)

		terminal, err := st.FailTask(ctx, task.ID, "upstream 503", 3)
		require.NoError(t, err)
		assert.Equal(t, attempt == 3, terminal)
	}

	// Terminal: no further claims.
	claimed, err := st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskExtract}, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	failed, err := st.ListTasks(ctx, TaskFilter{Status: model.TaskFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].Attempts)
	assert.Equal(t, "upstream 503", failed[0].LastError)
}

func TestExpiredLeaseIsReclaimable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task := &model.QueueTask{Kind: model.TaskExtract, DocumentID: "doc"}
	require.NoError(t, st.EnqueueTask(ctx, task))

	claimed, err := st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskExtract}, -time.Second)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// The expired claim is directly claimable by another worker.
	reclaimed, err := st.ClaimTask(ctx, "w2", []model.TaskKind{model.TaskExtract}, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, task.ID, reclaimed.ID)
	assert.Equal(t, "w2", reclaimed.ClaimedBy)
}

func TestReapExpiredLeases(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	expired := &model.QueueTask{Kind: model.TaskExtract, DocumentID: "doc"}
	live := &model.QueueTask{Kind: model.TaskDiff, DocumentID: "doc"}
	require.NoError(t, st.EnqueueTask(ctx, expired))
	require.NoError(t, st.EnqueueTask(ctx, live))

	_, err := st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskExtract}, -time.Second)
	require.NoError(t, err)
	_, err = st.ClaimTask(ctx, "w2", []model.TaskKind{model.TaskDiff}, time.Minute)
	require.NoError(t, err)

	n, err := st.ReapExpiredLeases(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	counts, err := st.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.TaskPending])
	assert.Equal(t, 1, counts[model.TaskClaimed])
}

func TestReapDeadLettersAtMaxAttempts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task := &model.QueueTask{Kind: model.TaskExtract, DocumentID: "doc"}
	require.NoError(t, st.EnqueueTask(ctx, task))

	for i := 0; i < 3; i++ {
		claimed, err := st.ClaimTask(ctx, "w1", []model.TaskKind{model.TaskExtract}, -time.Second)
		require.NoError(t, err)
		require.NotNil(t, claimed, "reap cycle %d", i)
		_, err = st.ReapExpiredLeases(ctx, 3)
		require.NoError(t, err)
	}

	failed, err := st.ListTasks(ctx, TaskFilter{Status: model.TaskFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "lease expired", failed[0].LastError)
}
