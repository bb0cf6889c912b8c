package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/ridgeline-eng/docqc/internal/model"
)

// --- Extraction runs and entities ---

// CreateRun persists a run and its entities in one transaction. When the run
// is authoritative, all prior runs for the document are demoted in the same
// transaction, so downstream readers never observe two authoritative runs or
// a run without its entities.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.ExtractionRun, entities []model.ExtractedEntity) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	run.EntityCount = len(entities)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin run tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if run.Authoritative {
		if _, err := tx.ExecContext(ctx,
			`UPDATE extraction_runs SET authoritative = 0 WHERE document_id = ? AND authoritative`,
			run.DocumentID,
		); err != nil {
			return eris.Wrap(err, "sqlite: demote prior runs")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO extraction_runs (id, document_id, tier, purpose, outcome, authoritative,
			confidence, entity_count, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DocumentID, int(run.Tier), string(run.Purpose), string(run.Outcome),
		run.Authoritative, run.Confidence, run.EntityCount, run.Error,
		run.StartedAt, run.FinishedAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	for i := range entities {
		e := &entities[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.RunID = run.ID
		e.DocumentID = run.DocumentID

		attrs, err := marshalAttrs(e.Attributes)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal entity attributes")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO extracted_entities (id, document_id, run_id, entity_type, natural_key, attributes, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.DocumentID, e.RunID, e.EntityType, e.NaturalKey, attrs, e.Confidence,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert entity")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run tx")
}

const runColumns = `id, document_id, tier, purpose, outcome, authoritative,
	confidence, entity_count, error, started_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.ExtractionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM extraction_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, eris.Wrap(err, "sqlite: get run")
}

func (s *SQLiteStore) AuthoritativeRun(ctx context.Context, documentID string) (*model.ExtractionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM extraction_runs
		 WHERE document_id = ? AND authoritative
		 ORDER BY finished_at DESC LIMIT 1`,
		documentID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, eris.Wrap(err, "sqlite: authoritative run")
}

func (s *SQLiteStore) RunEntities(ctx context.Context, runID string) ([]model.ExtractedEntity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, run_id, entity_type, natural_key, attributes, confidence
		 FROM extracted_entities WHERE run_id = ?`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: run entities")
	}
	defer rows.Close()
	return collectEntities(rows)
}

func (s *SQLiteStore) ProjectEntitiesByKey(ctx context.Context, projectID, entityType, naturalKey, excludeDocumentID string) ([]ProjectEntity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.document_id, e.run_id, e.entity_type, e.natural_key, e.attributes, e.confidence,
			d.logical_key, d.category, d.discipline
		 FROM extracted_entities e
		 JOIN extraction_runs r ON r.id = e.run_id AND r.authoritative
		 JOIN documents d ON d.id = e.document_id AND d.is_current
		 WHERE d.project_id = ? AND e.entity_type = ? AND e.natural_key = ? AND e.document_id != ?`,
		projectID, entityType, naturalKey, excludeDocumentID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: project entities by key")
	}
	defer rows.Close()

	var out []ProjectEntity
	for rows.Next() {
		var pe ProjectEntity
		var attrs string
		if err := rows.Scan(&pe.Entity.ID, &pe.Entity.DocumentID, &pe.Entity.RunID,
			&pe.Entity.EntityType, &pe.Entity.NaturalKey, &attrs, &pe.Entity.Confidence,
			&pe.LogicalKey, &pe.Category, &pe.Discipline); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project entity")
		}
		m, err := unmarshalAttrs(attrs)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal project entity attributes")
		}
		pe.Entity.Attributes = m
		pe.DocumentID = pe.Entity.DocumentID
		out = append(out, pe)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: project entities iterate")
}

func scanRun(row scannable) (*model.ExtractionRun, error) {
	var r model.ExtractionRun
	var tier int
	var purpose, outcome string
	err := row.Scan(&r.ID, &r.DocumentID, &tier, &purpose, &outcome, &r.Authoritative,
		&r.Confidence, &r.EntityCount, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	r.Tier = model.Tier(tier)
	r.Purpose = model.RunPurpose(purpose)
	r.Outcome = model.RunOutcome(outcome)
	return &r, nil
}

func collectEntities(rows *sql.Rows) ([]model.ExtractedEntity, error) {
	var out []model.ExtractedEntity
	for rows.Next() {
		var e model.ExtractedEntity
		var attrs string
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.RunID, &e.EntityType,
			&e.NaturalKey, &attrs, &e.Confidence); err != nil {
			return nil, eris.Wrap(err, "scan entity")
		}
		m, err := unmarshalAttrs(attrs)
		if err != nil {
			return nil, eris.Wrap(err, "unmarshal entity attributes")
		}
		e.Attributes = m
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "entities iterate")
}

// --- Shadow reviews ---

func (s *SQLiteStore) CreateShadowReview(ctx context.Context, review *model.ShadowReview) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shadow_reviews (id, document_id, production_run, shadow_run, category,
			production_tier, shadow_tier, matched, missed, incorrect, false_positives, accuracy, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID, review.DocumentID, review.ProductionRun, review.ShadowRun, review.Category,
		int(review.ProductionTier), int(review.ShadowTier), review.Matched, review.Missed,
		review.Incorrect, review.FalsePositives, review.Accuracy, review.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert shadow review")
}

func (s *SQLiteStore) ListShadowReviews(ctx context.Context, category string, limit int) ([]model.ShadowReview, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, document_id, production_run, shadow_run, category, production_tier,
		shadow_tier, matched, missed, incorrect, false_positives, accuracy, created_at
		FROM shadow_reviews`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list shadow reviews")
	}
	defer rows.Close()

	var out []model.ShadowReview
	for rows.Next() {
		var r model.ShadowReview
		var pt, st int
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.ProductionRun, &r.ShadowRun, &r.Category,
			&pt, &st, &r.Matched, &r.Missed, &r.Incorrect, &r.FalsePositives,
			&r.Accuracy, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan shadow review")
		}
		r.ProductionTier = model.Tier(pt)
		r.ShadowTier = model.Tier(st)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list shadow reviews iterate")
}

// --- Accuracy and routing ---

func (s *SQLiteStore) GetAccuracyRecord(ctx context.Context, category string, tier model.Tier) (*model.AccuracyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, category, tier, sample_count, rolling_accuracy, miss_rate, state,
			warn_streak, recovery_streak, updated_at
		 FROM accuracy_records WHERE category = ? AND tier = ?`,
		category, int(tier))
	rec, err := scanAccuracyRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, eris.Wrap(err, "sqlite: get accuracy record")
}

func (s *SQLiteStore) UpsertAccuracyRecord(ctx context.Context, rec *model.AccuracyRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accuracy_records (id, category, tier, sample_count, rolling_accuracy,
			miss_rate, state, warn_streak, recovery_streak, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(category, tier) DO UPDATE SET
			sample_count = excluded.sample_count,
			rolling_accuracy = excluded.rolling_accuracy,
			miss_rate = excluded.miss_rate,
			state = excluded.state,
			warn_streak = excluded.warn_streak,
			recovery_streak = excluded.recovery_streak,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Category, int(rec.Tier), rec.SampleCount, rec.RollingAccuracy,
		rec.MissRate, string(rec.State), rec.WarnStreak, rec.RecoveryStreak, rec.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert accuracy record")
}

// UpdateAccuracyRecord runs the read-modify-write under the database write
// lock. The seed insert is the first statement in the transaction, so the
// lock is taken before the read and concurrent folds from other handles or
// processes queue up behind it instead of clobbering each other.
func (s *SQLiteStore) UpdateAccuracyRecord(ctx context.Context, category string, tier model.Tier, apply func(rec *model.AccuracyRecord)) (*model.AccuracyRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin accuracy tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accuracy_records (id, category, tier, sample_count, rolling_accuracy,
			miss_rate, state, warn_streak, recovery_streak, updated_at)
		 VALUES (?, ?, ?, 0, 0, 0, 'ok', 0, 0, ?)
		 ON CONFLICT(category, tier) DO NOTHING`,
		uuid.New().String(), category, int(tier), time.Now().UTC(),
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: seed accuracy record")
	}

	row := tx.QueryRowContext(ctx,
		`SELECT id, category, tier, sample_count, rolling_accuracy, miss_rate, state,
			warn_streak, recovery_streak, updated_at
		 FROM accuracy_records WHERE category = ? AND tier = ?`,
		category, int(tier))
	rec, err := scanAccuracyRecord(row)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load accuracy record")
	}

	apply(rec)
	rec.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE accuracy_records SET sample_count = ?, rolling_accuracy = ?, miss_rate = ?,
			state = ?, warn_streak = ?, recovery_streak = ?, updated_at = ?
		 WHERE category = ? AND tier = ?`,
		rec.SampleCount, rec.RollingAccuracy, rec.MissRate, string(rec.State),
		rec.WarnStreak, rec.RecoveryStreak, rec.UpdatedAt, category, int(tier),
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: update accuracy record")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit accuracy tx")
	}
	return rec, nil
}

func (s *SQLiteStore) ListAccuracyRecords(ctx context.Context) ([]model.AccuracyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, tier, sample_count, rolling_accuracy, miss_rate, state,
			warn_streak, recovery_streak, updated_at
		 FROM accuracy_records ORDER BY category, tier`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list accuracy records")
	}
	defer rows.Close()

	var out []model.AccuracyRecord
	for rows.Next() {
		rec, err := scanAccuracyRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan accuracy record")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list accuracy records iterate")
}

func scanAccuracyRecord(row scannable) (*model.AccuracyRecord, error) {
	var rec model.AccuracyRecord
	var tier int
	var state string
	err := row.Scan(&rec.ID, &rec.Category, &tier, &rec.SampleCount, &rec.RollingAccuracy,
		&rec.MissRate, &state, &rec.WarnStreak, &rec.RecoveryStreak, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Tier = model.Tier(tier)
	rec.State = model.AccuracyState(state)
	return &rec, nil
}

func (s *SQLiteStore) InsertRoutingDecision(ctx context.Context, dec *model.RoutingDecision) error {
	if dec.ID == "" {
		dec.ID = uuid.New().String()
	}
	if dec.CreatedAt.IsZero() {
		dec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routing_decisions (id, category, tier, previous_tier, reason, accuracy_record_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dec.ID, dec.Category, int(dec.Tier), int(dec.PreviousTier), dec.Reason,
		dec.AccuracyRecordID, dec.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert routing decision")
}

func (s *SQLiteStore) CurrentRoutingDecision(ctx context.Context, category string) (*model.RoutingDecision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, category, tier, previous_tier, reason, accuracy_record_id, created_at
		 FROM routing_decisions WHERE category = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		category)
	dec, err := scanRoutingDecision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return dec, eris.Wrap(err, "sqlite: current routing decision")
}

func (s *SQLiteStore) ListRoutingDecisions(ctx context.Context, category string, limit int) ([]model.RoutingDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, category, tier, previous_tier, reason, accuracy_record_id, created_at
		FROM routing_decisions`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list routing decisions")
	}
	defer rows.Close()

	var out []model.RoutingDecision
	for rows.Next() {
		dec, err := scanRoutingDecision(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan routing decision")
		}
		out = append(out, *dec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list routing decisions iterate")
}

func scanRoutingDecision(row scannable) (*model.RoutingDecision, error) {
	var dec model.RoutingDecision
	var tier, prev int
	err := row.Scan(&dec.ID, &dec.Category, &tier, &prev, &dec.Reason,
		&dec.AccuracyRecordID, &dec.CreatedAt)
	if err != nil {
		return nil, err
	}
	dec.Tier = model.Tier(tier)
	dec.PreviousTier = model.Tier(prev)
	return &dec, nil
}

// --- Revision deltas ---

func (s *SQLiteStore) InsertDeltas(ctx context.Context, deltas []model.RevisionDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delta tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range deltas {
		d := &deltas[i]
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO revision_deltas (id, document_id, prior_run_id, current_run_id, kind,
				entity_type, natural_key, attribute, old_value, new_value, significance, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.DocumentID, d.PriorRunID, d.CurrentRunID, string(d.Kind),
			d.EntityType, d.NaturalKey, d.Attribute, d.OldValue, d.NewValue,
			string(d.Significance), d.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert delta")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delta tx")
}

func (s *SQLiteStore) ListDeltas(ctx context.Context, documentID string) ([]model.RevisionDelta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, prior_run_id, current_run_id, kind, entity_type, natural_key,
			attribute, old_value, new_value, significance, created_at
		 FROM revision_deltas WHERE document_id = ? ORDER BY created_at, natural_key`,
		documentID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list deltas")
	}
	defer rows.Close()

	var out []model.RevisionDelta
	for rows.Next() {
		var d model.RevisionDelta
		var kind, sig string
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.PriorRunID, &d.CurrentRunID, &kind,
			&d.EntityType, &d.NaturalKey, &d.Attribute, &d.OldValue, &d.NewValue,
			&sig, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan delta")
		}
		d.Kind = model.DeltaKind(kind)
		d.Significance = model.Severity(sig)
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list deltas iterate")
}

// --- Conflicts ---

// InsertConflicts inserts candidate conflicts, skipping any that duplicate
// an existing open conflict for the same key pair. Returns the number
// actually inserted.
func (s *SQLiteStore) InsertConflicts(ctx context.Context, conflicts []model.Conflict) (int, error) {
	if len(conflicts) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin conflict tx")
	}
	defer tx.Rollback() //nolint:errcheck

	inserted := 0
	for i := range conflicts {
		c := &conflicts[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO conflicts (id, project_id, entity_type, natural_key, attribute,
				entity_a, entity_b, document_a, document_b, value_a, value_b,
				scope, severity, resolved, resolution_note, created_at)
			 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '', ?
			 WHERE NOT EXISTS (
				SELECT 1 FROM conflicts
				WHERE project_id = ? AND entity_type = ? AND natural_key = ?
				  AND attribute = ? AND entity_a = ? AND entity_b = ? AND NOT resolved
			 )`,
			c.ID, c.ProjectID, c.EntityType, c.NaturalKey, c.Attribute,
			c.EntityA, c.EntityB, c.DocumentA, c.DocumentB, c.ValueA, c.ValueB,
			string(c.Scope), string(c.Severity), c.CreatedAt,
			c.ProjectID, c.EntityType, c.NaturalKey, c.Attribute, c.EntityA, c.EntityB,
		)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: insert conflict")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: conflict rows affected")
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit conflict tx")
	}
	return inserted, nil
}

func (s *SQLiteStore) ListConflicts(ctx context.Context, filter ConflictFilter) ([]model.Conflict, error) {
	query, args, err := conflictListQuery(filter, questionPlaceholder)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build conflict list query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list conflicts")
	}
	defer rows.Close()

	var out []model.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan conflict")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list conflicts iterate")
}

func (s *SQLiteStore) ResolveConflict(ctx context.Context, id, note string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conflicts SET resolved = 1, resolution_note = ?, resolved_at = ?
		 WHERE id = ? AND NOT resolved`,
		note, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: resolve conflict %s", id)
	}
	return checkRowsAffected(res, "open conflict", id)
}

func scanConflict(row scannable) (*model.Conflict, error) {
	var c model.Conflict
	var scope, severity string
	var resolvedAt sql.NullTime
	err := row.Scan(&c.ID, &c.ProjectID, &c.EntityType, &c.NaturalKey, &c.Attribute,
		&c.EntityA, &c.EntityB, &c.DocumentA, &c.DocumentB, &c.ValueA, &c.ValueB,
		&scope, &severity, &c.Resolved, &c.ResolutionNote, &c.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	c.Scope = model.ConflictScope(scope)
	c.Severity = model.Severity(severity)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	return &c, nil
}
