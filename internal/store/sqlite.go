package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ridgeline-eng/docqc/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the default
// backend; SQLite serializes writers, which is what makes the claim and
// revision-flip operations atomic without any in-process locking.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	project_id        TEXT NOT NULL,
	logical_key       TEXT NOT NULL,
	category          TEXT NOT NULL,
	discipline        TEXT NOT NULL DEFAULT '',
	content_hash      TEXT NOT NULL,
	revision_label    TEXT NOT NULL,
	revision_sequence INTEGER NOT NULL,
	is_current        BOOLEAN NOT NULL DEFAULT 0,
	supersedes        TEXT,
	superseded_by     TEXT,
	created_at        DATETIME NOT NULL,
	superseded_at     DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_documents_current
	ON documents(project_id, logical_key) WHERE is_current;
CREATE UNIQUE INDEX IF NOT EXISTS ux_documents_revision
	ON documents(project_id, logical_key, revision_label);

CREATE TABLE IF NOT EXISTS revision_conflicts (
	id              TEXT PRIMARY KEY,
	project_id      TEXT NOT NULL,
	logical_key     TEXT NOT NULL,
	revision_label  TEXT NOT NULL,
	existing_doc_id TEXT NOT NULL,
	submitted_hash  TEXT NOT NULL,
	existing_hash   TEXT NOT NULL,
	resolved        BOOLEAN NOT NULL DEFAULT 0,
	resolution_note TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS queue_tasks (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	document_id  TEXT NOT NULL,
	payload      TEXT,
	priority     INTEGER NOT NULL DEFAULT 10,
	status       TEXT NOT NULL DEFAULT 'pending',
	claimed_by   TEXT NOT NULL DEFAULT '',
	lease_expiry DATETIME,
	attempts     INTEGER NOT NULL DEFAULT 0,
	last_error   TEXT NOT NULL DEFAULT '',
	enqueued_at  DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queue_tasks_claim
	ON queue_tasks(status, kind, priority, enqueued_at);

CREATE TABLE IF NOT EXISTS extraction_runs (
	id            TEXT PRIMARY KEY,
	document_id   TEXT NOT NULL REFERENCES documents(id),
	tier          INTEGER NOT NULL,
	purpose       TEXT NOT NULL DEFAULT 'production',
	outcome       TEXT NOT NULL,
	authoritative BOOLEAN NOT NULL DEFAULT 0,
	confidence    REAL NOT NULL DEFAULT 0,
	entity_count  INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_document ON extraction_runs(document_id, authoritative);

CREATE TABLE IF NOT EXISTS extracted_entities (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	run_id      TEXT NOT NULL REFERENCES extraction_runs(id),
	entity_type TEXT NOT NULL,
	natural_key TEXT NOT NULL,
	attributes  TEXT NOT NULL,
	confidence  REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entities_run ON extracted_entities(run_id);
CREATE INDEX IF NOT EXISTS idx_entities_key ON extracted_entities(entity_type, natural_key);

CREATE TABLE IF NOT EXISTS shadow_reviews (
	id              TEXT PRIMARY KEY,
	document_id     TEXT NOT NULL,
	production_run  TEXT NOT NULL,
	shadow_run      TEXT NOT NULL,
	category        TEXT NOT NULL,
	production_tier INTEGER NOT NULL,
	shadow_tier     INTEGER NOT NULL,
	matched         INTEGER NOT NULL DEFAULT 0,
	missed          INTEGER NOT NULL DEFAULT 0,
	incorrect       INTEGER NOT NULL DEFAULT 0,
	false_positives INTEGER NOT NULL DEFAULT 0,
	accuracy        REAL NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_category ON shadow_reviews(category, created_at);

CREATE TABLE IF NOT EXISTS accuracy_records (
	id               TEXT PRIMARY KEY,
	category         TEXT NOT NULL,
	tier             INTEGER NOT NULL,
	sample_count     INTEGER NOT NULL DEFAULT 0,
	rolling_accuracy REAL NOT NULL DEFAULT 0,
	miss_rate        REAL NOT NULL DEFAULT 0,
	state            TEXT NOT NULL DEFAULT 'ok',
	warn_streak      INTEGER NOT NULL DEFAULT 0,
	recovery_streak  INTEGER NOT NULL DEFAULT 0,
	updated_at       DATETIME NOT NULL,
	UNIQUE(category, tier)
);

CREATE TABLE IF NOT EXISTS routing_decisions (
	id                 TEXT PRIMARY KEY,
	category           TEXT NOT NULL,
	tier               INTEGER NOT NULL,
	previous_tier      INTEGER NOT NULL,
	reason             TEXT NOT NULL DEFAULT '',
	accuracy_record_id TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_routing_category ON routing_decisions(category, created_at);

CREATE TABLE IF NOT EXISTS revision_deltas (
	id             TEXT PRIMARY KEY,
	document_id    TEXT NOT NULL,
	prior_run_id   TEXT NOT NULL,
	current_run_id TEXT NOT NULL,
	kind           TEXT NOT NULL,
	entity_type    TEXT NOT NULL,
	natural_key    TEXT NOT NULL,
	attribute      TEXT NOT NULL DEFAULT '',
	old_value      TEXT NOT NULL DEFAULT '',
	new_value      TEXT NOT NULL DEFAULT '',
	significance   TEXT NOT NULL,
	created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deltas_document ON revision_deltas(document_id, created_at);

CREATE TABLE IF NOT EXISTS conflicts (
	id              TEXT PRIMARY KEY,
	project_id      TEXT NOT NULL,
	entity_type     TEXT NOT NULL,
	natural_key     TEXT NOT NULL,
	attribute       TEXT NOT NULL,
	entity_a        TEXT NOT NULL,
	entity_b        TEXT NOT NULL,
	document_a      TEXT NOT NULL,
	document_b      TEXT NOT NULL,
	value_a         TEXT NOT NULL,
	value_b         TEXT NOT NULL,
	scope           TEXT NOT NULL,
	severity        TEXT NOT NULL,
	resolved        BOOLEAN NOT NULL DEFAULT 0,
	resolution_note TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL,
	resolved_at     DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_conflicts_open
	ON conflicts(project_id, entity_type, natural_key, attribute, entity_a, entity_b)
	WHERE NOT resolved;
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Documents ---

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.RevisionSequence = 1
	doc.IsCurrent = true

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, project_id, logical_key, category, discipline, content_hash,
			revision_label, revision_sequence, is_current, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		doc.ID, doc.ProjectID, doc.LogicalKey, doc.Category, doc.Discipline,
		doc.ContentHash, doc.RevisionLabel, doc.RevisionSequence, doc.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert document")
}

// InsertRevision creates a new document version superseding priorID. The
// is_current flip for both rows happens in one transaction so the
// single-current invariant holds at every observable instant.
func (s *SQLiteStore) InsertRevision(ctx context.Context, doc *model.Document, priorID string) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin revision tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var priorSeq int
	var isCurrent bool
	err = tx.QueryRowContext(ctx,
		`SELECT revision_sequence, is_current FROM documents WHERE id = ?`, priorID,
	).Scan(&priorSeq, &isCurrent)
	if err != nil {
		return eris.Wrapf(err, "sqlite: load prior document %s", priorID)
	}
	if !isCurrent {
		return eris.Errorf("document %s is no longer current", priorID)
	}

	doc.RevisionSequence = priorSeq + 1
	doc.IsCurrent = true
	doc.Supersedes = priorID

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET is_current = 0, superseded_by = ?, superseded_at = ? WHERE id = ?`,
		doc.ID, now, priorID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: supersede document %s", priorID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, project_id, logical_key, category, discipline, content_hash,
			revision_label, revision_sequence, is_current, supersedes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		doc.ID, doc.ProjectID, doc.LogicalKey, doc.Category, doc.Discipline,
		doc.ContentHash, doc.RevisionLabel, doc.RevisionSequence, priorID, doc.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: insert revision")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit revision tx")
}

const documentColumns = `id, project_id, logical_key, category, discipline, content_hash,
	revision_label, revision_sequence, is_current, supersedes, superseded_by, created_at, superseded_at`

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return doc, eris.Wrap(err, "sqlite: get document")
}

func (s *SQLiteStore) GetCurrentDocument(ctx context.Context, projectID, logicalKey string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE project_id = ? AND logical_key = ? AND is_current`,
		projectID, logicalKey)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return doc, eris.Wrap(err, "sqlite: get current document")
}

func (s *SQLiteStore) ListRevisions(ctx context.Context, projectID, logicalKey string) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE project_id = ? AND logical_key = ?
		 ORDER BY revision_sequence`,
		projectID, logicalKey)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list revisions")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan revision")
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list revisions iterate")
}

func scanDocument(row scannable) (*model.Document, error) {
	var d model.Document
	var supersedes, supersededBy sql.NullString
	var supersededAt sql.NullTime
	err := row.Scan(&d.ID, &d.ProjectID, &d.LogicalKey, &d.Category, &d.Discipline,
		&d.ContentHash, &d.RevisionLabel, &d.RevisionSequence, &d.IsCurrent,
		&supersedes, &supersededBy, &d.CreatedAt, &supersededAt)
	if err != nil {
		return nil, err
	}
	d.Supersedes = supersedes.String
	d.SupersededBy = supersededBy.String
	if supersededAt.Valid {
		t := supersededAt.Time
		d.SupersededAt = &t
	}
	return &d, nil
}

// --- Revision conflicts ---

func (s *SQLiteStore) CreateRevisionConflict(ctx context.Context, rc *model.RevisionConflictRecord) error {
	if rc.ID == "" {
		rc.ID = uuid.New().String()
	}
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revision_conflicts (id, project_id, logical_key, revision_label,
			existing_doc_id, submitted_hash, existing_hash, resolved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		rc.ID, rc.ProjectID, rc.LogicalKey, rc.RevisionLabel,
		rc.ExistingDocID, rc.SubmittedHash, rc.ExistingHash, rc.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert revision conflict")
}

func (s *SQLiteStore) ListRevisionConflicts(ctx context.Context, projectID string, includeResolved bool) ([]model.RevisionConflictRecord, error) {
	query := `SELECT id, project_id, logical_key, revision_label, existing_doc_id,
		submitted_hash, existing_hash, resolved, resolution_note, created_at
		FROM revision_conflicts WHERE 1=1`
	var args []any
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	if !includeResolved {
		query += ` AND NOT resolved`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list revision conflicts")
	}
	defer rows.Close()

	var out []model.RevisionConflictRecord
	for rows.Next() {
		var rc model.RevisionConflictRecord
		if err := rows.Scan(&rc.ID, &rc.ProjectID, &rc.LogicalKey, &rc.RevisionLabel,
			&rc.ExistingDocID, &rc.SubmittedHash, &rc.ExistingHash,
			&rc.Resolved, &rc.ResolutionNote, &rc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan revision conflict")
		}
		out = append(out, rc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list revision conflicts iterate")
}

// --- Task queue ---

func (s *SQLiteStore) EnqueueTask(ctx context.Context, task *model.QueueTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = now
	}
	task.UpdatedAt = now
	task.Status = model.TaskPending

	payload, err := marshalAttrs(task.Payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal task payload")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO queue_tasks (id, kind, document_id, payload, priority, status, enqueued_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)`,
		task.ID, string(task.Kind), task.DocumentID, payload, task.Priority,
		task.EnqueuedAt, task.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: enqueue task")
}

const taskColumns = `id, kind, document_id, payload, priority, status, claimed_by,
	lease_expiry, attempts, last_error, enqueued_at, updated_at`

// ClaimTask atomically claims the oldest eligible task of the requested
// kinds. SQLite serializes writers, so the subselect-and-update runs as one
// atomic statement; two concurrent claimers can never receive the same task.
func (s *SQLiteStore) ClaimTask(ctx context.Context, workerID string, kinds []model.TaskKind, lease time.Duration) (*model.QueueTask, error) {
	if len(kinds) == 0 {
		return nil, eris.New("sqlite: claim requires at least one task kind")
	}
	now := time.Now().UTC()
	expiry := now.Add(lease)

	placeholders := strings.Repeat("?,", len(kinds))
	placeholders = placeholders[:len(placeholders)-1]
	args := []any{workerID, expiry, now}
	for _, k := range kinds {
		args = append(args, string(k))
	}
	args = append(args, now)

	row := s.db.QueryRowContext(ctx,
		`UPDATE queue_tasks
		 SET status = 'claimed', claimed_by = ?, lease_expiry = ?, updated_at = ?
		 WHERE id = (
			SELECT id FROM queue_tasks
			WHERE kind IN (`+placeholders+`)
			  AND (status = 'pending' OR (status = 'claimed' AND lease_expiry <= ?))
			ORDER BY priority, enqueued_at
			LIMIT 1
		 )
		 RETURNING `+taskColumns,
		args...,
	)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return task, eris.Wrap(err, "sqlite: claim task")
}

func (s *SQLiteStore) CompleteTask(ctx context.Context, taskID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_tasks SET status = 'done', lease_expiry = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), taskID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete task %s", taskID)
	}
	return checkRowsAffected(res, "task", taskID)
}

// FailTask increments the attempt count; at maxAttempts the task becomes
// terminally failed, otherwise it returns to pending for another claim.
func (s *SQLiteStore) FailTask(ctx context.Context, taskID, errMsg string, maxAttempts int) (bool, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin fail tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var attempts int
	if err := tx.QueryRowContext(ctx,
		`SELECT attempts FROM queue_tasks WHERE id = ?`, taskID,
	).Scan(&attempts); err != nil {
		return false, eris.Wrapf(err, "sqlite: load task %s", taskID)
	}

	attempts++
	status := model.TaskPending
	terminal := attempts >= maxAttempts
	if terminal {
		status = model.TaskFailed
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE queue_tasks
		 SET status = ?, attempts = ?, last_error = ?, claimed_by = '', lease_expiry = NULL, updated_at = ?
		 WHERE id = ?`,
		string(status), attempts, errMsg, now, taskID,
	); err != nil {
		return false, eris.Wrapf(err, "sqlite: fail task %s", taskID)
	}

	return terminal, eris.Wrap(tx.Commit(), "sqlite: commit fail tx")
}

// ReapExpiredLeases re-queues claimed tasks whose lease has expired (crash
// recovery). Each reap counts as a failed attempt so a crash-looping task
// still reaches the terminal failed state.
func (s *SQLiteStore) ReapExpiredLeases(ctx context.Context, maxAttempts int) (int, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_tasks
		 SET status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'pending' END,
			 attempts = attempts + 1,
			 last_error = 'lease expired',
			 claimed_by = '', lease_expiry = NULL, updated_at = ?
		 WHERE status = 'claimed' AND lease_expiry <= ?`,
		maxAttempts, now, now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reap expired leases")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: reap rows affected")
}

func (s *SQLiteStore) CountTasks(ctx context.Context) (map[model.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM queue_tasks GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count tasks")
	}
	defer rows.Close()

	counts := make(map[model.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task count")
		}
		counts[model.TaskStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count tasks iterate")
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.QueueTask, error) {
	query, args, err := taskListQuery(filter, questionPlaceholder)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build task list query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close()

	var tasks []model.QueueTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "sqlite: list tasks iterate")
}

func scanTask(row scannable) (*model.QueueTask, error) {
	var t model.QueueTask
	var kind, status string
	var payload sql.NullString
	var claimedBy sql.NullString
	var leaseExpiry sql.NullTime
	err := row.Scan(&t.ID, &kind, &t.DocumentID, &payload, &t.Priority, &status,
		&claimedBy, &leaseExpiry, &t.Attempts, &t.LastError, &t.EnqueuedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Kind = model.TaskKind(kind)
	t.Status = model.TaskStatus(status)
	t.ClaimedBy = claimedBy.String
	if leaseExpiry.Valid {
		le := leaseExpiry.Time
		t.LeaseExpiry = &le
	}
	if payload.Valid && payload.String != "" {
		attrs, err := unmarshalAttrs(payload.String)
		if err != nil {
			return nil, err
		}
		t.Payload = attrs
	}
	return &t, nil
}

// helpers shared by both stores

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}
