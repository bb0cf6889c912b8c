package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ridgeline-eng/docqc/internal/db"
	"github.com/ridgeline-eng/docqc/internal/model"
)

// PostgresStore implements Store using pgxpool. It is the multi-worker
// production backend: the claim operation uses FOR UPDATE SKIP LOCKED, so
// any number of worker processes can poll the queue concurrently.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// newPostgresWithPool wraps an existing pool; tests use it with a mock.
func newPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	project_id        TEXT NOT NULL,
	logical_key       TEXT NOT NULL,
	category          TEXT NOT NULL,
	discipline        TEXT NOT NULL DEFAULT '',
	content_hash      TEXT NOT NULL,
	revision_label    TEXT NOT NULL,
	revision_sequence INTEGER NOT NULL,
	is_current        BOOLEAN NOT NULL DEFAULT false,
	supersedes        TEXT,
	superseded_by     TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	superseded_at     TIMESTAMPTZ
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
	resolved        BOOLEAN NOT NULL DEFAULT false,
	resolution_note TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS queue_tasks (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	document_id  TEXT NOT NULL,
	payload      JSONB,
	priority     INTEGER NOT NULL DEFAULT 10,
	status       TEXT NOT NULL DEFAULT 'pending',
	claimed_by   TEXT NOT NULL DEFAULT '',
	lease_expiry TIMESTAMPTZ,
	attempts     INTEGER NOT NULL DEFAULT 0,
	last_error   TEXT NOT NULL DEFAULT '',
	enqueued_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_queue_tasks_claim
	ON queue_tasks(status, kind, priority, enqueued_at);

CREATE TABLE IF NOT EXISTS extraction_runs (
	id            TEXT PRIMARY KEY,
	document_id   TEXT NOT NULL REFERENCES documents(id),
	tier          INTEGER NOT NULL,
	purpose       TEXT NOT NULL DEFAULT 'production',
	outcome       TEXT NOT NULL,
	authoritative BOOLEAN NOT NULL DEFAULT false,
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	entity_count  INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_document ON extraction_runs(document_id, authoritative);

CREATE TABLE IF NOT EXISTS extracted_entities (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	run_id      TEXT NOT NULL REFERENCES extraction_runs(id),
	entity_type TEXT NOT NULL,
	natural_key TEXT NOT NULL,
	attributes  JSONB NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL DEFAULT 0
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
	accuracy        DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reviews_category ON shadow_reviews(category, created_at);

CREATE TABLE IF NOT EXISTS accuracy_records (
	id               TEXT PRIMARY KEY,
	category         TEXT NOT NULL,
	tier             INTEGER NOT NULL,
	sample_count     INTEGER NOT NULL DEFAULT 0,
	rolling_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
	miss_rate        DOUBLE PRECISION NOT NULL DEFAULT 0,
	state            TEXT NOT NULL DEFAULT 'ok',
	warn_streak      INTEGER NOT NULL DEFAULT 0,
	recovery_streak  INTEGER NOT NULL DEFAULT 0,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(category, tier)
);

CREATE TABLE IF NOT EXISTS routing_decisions (
	id                 TEXT PRIMARY KEY,
	category           TEXT NOT NULL,
	tier               INTEGER NOT NULL,
	previous_tier      INTEGER NOT NULL,
	reason             TEXT NOT NULL DEFAULT '',
	accuracy_record_id TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_routing_category ON routing_decisions(category, created_at DESC);

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
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
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
	resolved        BOOLEAN NOT NULL DEFAULT false,
	resolution_note TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	resolved_at     TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_conflicts_open
	ON conflicts(project_id, entity_type, natural_key, attribute, entity_a, entity_b)
	WHERE NOT resolved;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Documents ---

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.RevisionSequence = 1
	doc.IsCurrent = true

	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, project_id, logical_key, category, discipline, content_hash,
			revision_label, revision_sequence, is_current, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, $9)`,
		doc.ID, doc.ProjectID, doc.LogicalKey, doc.Category, doc.Discipline,
		doc.ContentHash, doc.RevisionLabel, doc.RevisionSequence, doc.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert document")
}

// InsertRevision creates a new version superseding priorID. The prior row is
// locked with FOR UPDATE, so two concurrent ingests for the same logical key
// serialize on the row and the partial unique index on is_current backstops
// the single-current invariant.
func (s *PostgresStore) InsertRevision(ctx context.Context, doc *model.Document, priorID string) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin revision tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var priorSeq int
	var isCurrent bool
	err = tx.QueryRow(ctx,
		`SELECT revision_sequence, is_current FROM documents WHERE id = $1 FOR UPDATE`,
		priorID,
	).Scan(&priorSeq, &isCurrent)
	if err != nil {
		return eris.Wrapf(err, "postgres: load prior document %s", priorID)
	}
	if !isCurrent {
		return eris.Errorf("document %s is no longer current", priorID)
	}

	doc.RevisionSequence = priorSeq + 1
	doc.IsCurrent = true
	doc.Supersedes = priorID

	if _, err := tx.Exec(ctx,
		`UPDATE documents SET is_current = false, superseded_by = $1, superseded_at = $2 WHERE id = $3`,
		doc.ID, now, priorID,
	); err != nil {
		return eris.Wrapf(err, "postgres: supersede document %s", priorID)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO documents (id, project_id, logical_key, category, discipline, content_hash,
			revision_label, revision_sequence, is_current, supersedes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, $9, $10)`,
		doc.ID, doc.ProjectID, doc.LogicalKey, doc.Category, doc.Discipline,
		doc.ContentHash, doc.RevisionLabel, doc.RevisionSequence, priorID, doc.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "postgres: insert revision")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit revision tx")
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocumentPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return doc, eris.Wrap(err, "postgres: get document")
}

func (s *PostgresStore) GetCurrentDocument(ctx context.Context, projectID, logicalKey string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE project_id = $1 AND logical_key = $2 AND is_current`,
		projectID, logicalKey)
	doc, err := scanDocumentPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return doc, eris.Wrap(err, "postgres: get current document")
}

func (s *PostgresStore) ListRevisions(ctx context.Context, projectID, logicalKey string) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE project_id = $1 AND logical_key = $2
		 ORDER BY revision_sequence`,
		projectID, logicalKey)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list revisions")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocumentPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan revision")
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list revisions iterate")
}

func scanDocumentPgx(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var supersedes, supersededBy *string
	var supersededAt *time.Time
	err := row.Scan(&d.ID, &d.ProjectID, &d.LogicalKey, &d.Category, &d.Discipline,
		&d.ContentHash, &d.RevisionLabel, &d.RevisionSequence, &d.IsCurrent,
		&supersedes, &supersededBy, &d.CreatedAt, &supersededAt)
	if err != nil {
		return nil, err
	}
	if supersedes != nil {
		d.Supersedes = *supersedes
	}
	if supersededBy != nil {
		d.SupersededBy = *supersededBy
	}
	d.SupersededAt = supersededAt
	return &d, nil
}

// --- Revision conflicts ---

func (s *PostgresStore) CreateRevisionConflict(ctx context.Context, rc *model.RevisionConflictRecord) error {
	if rc.ID == "" {
		rc.ID = uuid.New().String()
	}
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO revision_conflicts (id, project_id, logical_key, revision_label,
			existing_doc_id, submitted_hash, existing_hash, resolved, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)`,
		rc.ID, rc.ProjectID, rc.LogicalKey, rc.RevisionLabel,
		rc.ExistingDocID, rc.SubmittedHash, rc.ExistingHash, rc.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert revision conflict")
}

func (s *PostgresStore) ListRevisionConflicts(ctx context.Context, projectID string, includeResolved bool) ([]model.RevisionConflictRecord, error) {
	query := `SELECT id, project_id, logical_key, revision_label, existing_doc_id,
		submitted_hash, existing_hash, resolved, resolution_note, created_at
		FROM revision_conflicts WHERE 1=1`
	var args []any
	if projectID != "" {
		args = append(args, projectID)
		query += ` AND project_id = $1`
	}
	if !includeResolved {
		query += ` AND NOT resolved`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list revision conflicts")
	}
	defer rows.Close()

	var out []model.RevisionConflictRecord
	for rows.Next() {
		var rc model.RevisionConflictRecord
		if err := rows.Scan(&rc.ID, &rc.ProjectID, &rc.LogicalKey, &rc.RevisionLabel,
			&rc.ExistingDocID, &rc.SubmittedHash, &rc.ExistingHash,
			&rc.Resolved, &rc.ResolutionNote, &rc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan revision conflict")
		}
		out = append(out, rc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list revision conflicts iterate")
}

// --- Task queue ---

func (s *PostgresStore) EnqueueTask(ctx context.Context, task *model.QueueTask) error {
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
		return eris.Wrap(err, "postgres: marshal task payload")
	}
	var payloadArg any
	if payload != "" {
		payloadArg = payload
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO queue_tasks (id, kind, document_id, payload, priority, status, enqueued_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7)`,
		task.ID, string(task.Kind), task.DocumentID, payloadArg, task.Priority,
		task.EnqueuedAt, task.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: enqueue task")
}

// ClaimTask atomically claims the oldest eligible task. FOR UPDATE SKIP
// LOCKED means concurrent claimers skip each other's candidate rows instead
// of blocking, and a task can never be handed to two workers.
func (s *PostgresStore) ClaimTask(ctx context.Context, workerID string, kinds []model.TaskKind, lease time.Duration) (*model.QueueTask, error) {
	if len(kinds) == 0 {
		return nil, eris.New("postgres: claim requires at least one task kind")
	}
	now := time.Now().UTC()
	expiry := now.Add(lease)

	kindStrs := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrs[i] = string(k)
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE queue_tasks
		 SET status = 'claimed', claimed_by = $1, lease_expiry = $2, updated_at = $3
		 WHERE id = (
			SELECT id FROM queue_tasks
			WHERE kind = ANY($4)
			  AND (status = 'pending' OR (status = 'claimed' AND lease_expiry <= $5))
			ORDER BY priority, enqueued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		 )
		 RETURNING `+taskColumns,
		workerID, expiry, now, kindStrs, now,
	)
	task, err := scanTaskPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return task, eris.Wrap(err, "postgres: claim task")
}

func (s *PostgresStore) CompleteTask(ctx context.Context, taskID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE queue_tasks SET status = 'done', lease_expiry = NULL, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), taskID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete task %s", taskID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("task not found: %s", taskID)
	}
	return nil
}

func (s *PostgresStore) FailTask(ctx context.Context, taskID, errMsg string, maxAttempts int) (bool, error) {
	now := time.Now().UTC()

	var status string
	err := s.pool.QueryRow(ctx,
		`UPDATE queue_tasks
		 SET attempts = attempts + 1,
			 status = CASE WHEN attempts + 1 >= $1 THEN 'failed' ELSE 'pending' END,
			 last_error = $2, claimed_by = '', lease_expiry = NULL, updated_at = $3
		 WHERE id = $4
		 RETURNING status`,
		maxAttempts, errMsg, now, taskID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, eris.Errorf("task not found: %s", taskID)
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: fail task %s", taskID)
	}
	return status == string(model.TaskFailed), nil
}

func (s *PostgresStore) ReapExpiredLeases(ctx context.Context, maxAttempts int) (int, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE queue_tasks
		 SET status = CASE WHEN attempts + 1 >= $1 THEN 'failed' ELSE 'pending' END,
			 attempts = attempts + 1,
			 last_error = 'lease expired',
			 claimed_by = '', lease_expiry = NULL, updated_at = $2
		 WHERE status = 'claimed' AND lease_expiry <= $3`,
		maxAttempts, now, now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reap expired leases")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CountTasks(ctx context.Context) (map[model.TaskStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM queue_tasks GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count tasks")
	}
	defer rows.Close()

	counts := make(map[model.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan task count")
		}
		counts[model.TaskStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count tasks iterate")
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.QueueTask, error) {
	query, args, err := taskListQuery(filter, dollarPlaceholder)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build task list query")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tasks")
	}
	defer rows.Close()

	var tasks []model.QueueTask
	for rows.Next() {
		t, err := scanTaskPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan task")
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "postgres: list tasks iterate")
}

func scanTaskPgx(row pgx.Row) (*model.QueueTask, error) {
	var t model.QueueTask
	var kind, status string
	var payload *string
	var claimedBy string
	var leaseExpiry *time.Time
	err := row.Scan(&t.ID, &kind, &t.DocumentID, &payload, &t.Priority, &status,
		&claimedBy, &leaseExpiry, &t.Attempts, &t.LastError, &t.EnqueuedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Kind = model.TaskKind(kind)
	t.Status = model.TaskStatus(status)
	t.ClaimedBy = claimedBy
	t.LeaseExpiry = leaseExpiry
	if payload != nil && *payload != "" {
		attrs, err := unmarshalAttrs(*payload)
		if err != nil {
			return nil, err
		}
		t.Payload = attrs
	}
	return &t, nil
}
