package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-eng/docqc/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return newPostgresWithPool(mock), mock
}

var documentCols = []string{"id", "project_id", "logical_key", "category", "discipline",
	"content_hash", "revision_label", "revision_sequence", "is_current",
	"supersedes", "superseded_by", "created_at", "superseded_at"}

func TestPostgresStore_GetDocument(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE id = \$1`).
		WithArgs("doc-1").
		WillReturnRows(pgxmock.NewRows(documentCols).AddRow(
			"doc-1", "P1", "PID-001", "pid", "process",
			"abc123", "B", 2, true,
			ptr("doc-0"), (*string)(nil), created, (*time.Time)(nil),
		))

	doc, err := s.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "PID-001", doc.LogicalKey)
	assert.Equal(t, 2, doc.RevisionSequence)
	assert.True(t, doc.IsCurrent)
	assert.Equal(t, "doc-0", doc.Supersedes)
	assert.Empty(t, doc.SupersededBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDocument_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(documentCols))

	doc, err := s.GetDocument(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnqueueTask(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO queue_tasks`).
		WithArgs(pgxmock.AnyArg(), "extract", "doc-1", nil, model.PriorityNormal,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	task := &model.QueueTask{
		Kind:       model.TaskExtract,
		DocumentID: "doc-1",
		Priority:   model.PriorityNormal,
	}
	err := s.EnqueueTask(context.Background(), task)
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, model.TaskPending, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteTask(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE queue_tasks SET status = 'done'`).
		WithArgs(pgxmock.AnyArg(), "task-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteTask(context.Background(), "task-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteTask_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE queue_tasks SET status = 'done'`).
		WithArgs(pgxmock.AnyArg(), "task-gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteTask(context.Background(), "task-gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailTask_Terminal(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`UPDATE queue_tasks`).
		WithArgs(3, "extractor unavailable", pgxmock.AnyArg(), "task-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("failed"))

	terminal, err := s.FailTask(context.Background(), "task-1", "extractor unavailable", 3)
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CurrentRoutingDecision(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM routing_decisions WHERE category = \$1`).
		WithArgs("pid").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "category", "tier", "previous_tier", "reason", "accuracy_record_id", "created_at",
		}).AddRow("dec-1", "pid", 2, 1, "accuracy degraded", "rec-1", created))

	dec, err := s.CurrentRoutingDecision(context.Background(), "pid")
	require.NoError(t, err)
	require.NotNil(t, dec)
	assert.Equal(t, model.TierEnhanced, dec.Tier)
	assert.Equal(t, model.TierStandard, dec.PreviousTier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CurrentRoutingDecision_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM routing_decisions WHERE category = \$1`).
		WithArgs("datasheet").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "category", "tier", "previous_tier", "reason", "accuracy_record_id", "created_at",
		}))

	dec, err := s.CurrentRoutingDecision(context.Background(), "datasheet")
	require.NoError(t, err)
	assert.Nil(t, dec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAccuracyRecord(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO accuracy_records .+ ON CONFLICT \(category, tier\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "pid", 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT .+ FROM accuracy_records WHERE category = \$1 AND tier = \$2[\s\n\t]+FOR UPDATE`).
		WithArgs("pid", 1).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "category", "tier", "sample_count", "rolling_accuracy", "miss_rate",
			"state", "warn_streak", "recovery_streak", "updated_at",
		}).AddRow("rec-1", "pid", 1, 4, 0.96, 0.02, "ok", 0, 2, updated))
	mock.ExpectExec(`UPDATE accuracy_records SET`).
		WithArgs(5, pgxmock.AnyArg(), pgxmock.AnyArg(), "ok", 0, 3,
			pgxmock.AnyArg(), "pid", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	rec, err := s.UpdateAccuracyRecord(context.Background(), "pid", model.TierStandard,
		func(r *model.AccuracyRecord) {
			r.SampleCount++
			r.RecoveryStreak++
		})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, 5, rec.SampleCount)
	assert.Equal(t, 3, rec.RecoveryStreak)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func ptr(s string) *string { return &s }
