package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/ridgeline-eng/docqc/internal/db"
	"github.com/ridgeline-eng/docqc/internal/model"
)

// --- Extraction runs and entities ---

var entityColumnsCopy = []string{"id", "document_id", "run_id", "entity_type", "natural_key", "attributes", "confidence"}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.ExtractionRun, entities []model.ExtractedEntity) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	run.EntityCount = len(entities)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin run tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if run.Authoritative {
		if _, err := tx.Exec(ctx,
			`UPDATE extraction_runs SET authoritative = false WHERE document_id = $1 AND authoritative`,
			run.DocumentID,
		); err != nil {
			return eris.Wrap(err, "postgres: demote prior runs")
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO extraction_runs (id, document_id, tier, purpose, outcome, authoritative,
			confidence, entity_count, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.DocumentID, int(run.Tier), string(run.Purpose), string(run.Outcome),
		run.Authoritative, run.Confidence, run.EntityCount, run.Error,
		run.StartedAt, run.FinishedAt,
	); err != nil {
		return eris.Wrap(err, "postgres: insert run")
	}

	if len(entities) > 0 {
		rows := make([][]any, 0, len(entities))
		for i := range entities {
			e := &entities[i]
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			e.RunID = run.ID
			e.DocumentID = run.DocumentID

			attrs, err := marshalAttrs(e.Attributes)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal entity attributes")
			}
			rows = append(rows, []any{e.ID, e.DocumentID, e.RunID, e.EntityType, e.NaturalKey, attrs, e.Confidence})
		}
		if _, err := db.CopyFrom(ctx, tx, "extracted_entities", entityColumnsCopy, rows); err != nil {
			return eris.Wrap(err, "postgres: copy entities")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run tx")
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.ExtractionRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM extraction_runs WHERE id = $1`, id)
	run, err := scanRunPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, eris.Wrap(err, "postgres: get run")
}

func (s *PostgresStore) AuthoritativeRun(ctx context.Context, documentID string) (*model.ExtractionRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM extraction_runs
		 WHERE document_id = $1 AND authoritative
		 ORDER BY finished_at DESC LIMIT 1`,
		documentID)
	run, err := scanRunPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, eris.Wrap(err, "postgres: authoritative run")
}

func (s *PostgresStore) RunEntities(ctx context.Context, runID string) ([]model.ExtractedEntity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, run_id, entity_type, natural_key, attributes, confidence
		 FROM extracted_entities WHERE run_id = $1`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: run entities")
	}
	defer rows.Close()

	var out []model.ExtractedEntity
	for rows.Next() {
		e, err := scanEntityPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan entity")
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: run entities iterate")
}

func (s *PostgresStore) ProjectEntitiesByKey(ctx context.Context, projectID, entityType, naturalKey, excludeDocumentID string) ([]ProjectEntity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.document_id, e.run_id, e.entity_type, e.natural_key, e.attributes, e.confidence,
			d.logical_key, d.category, d.discipline
		 FROM extracted_entities e
		 JOIN extraction_runs r ON r.id = e.run_id AND r.authoritative
		 JOIN documents d ON d.id = e.document_id AND d.is_current
		 WHERE d.project_id = $1 AND e.entity_type = $2 AND e.natural_key = $3 AND e.document_id != $4`,
		projectID, entityType, naturalKey, excludeDocumentID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: project entities by key")
	}
	defer rows.Close()

	var out []ProjectEntity
	for rows.Next() {
		var pe ProjectEntity
		var attrs string
		if err := rows.Scan(&pe.Entity.ID, &pe.Entity.DocumentID, &pe.Entity.RunID,
			&pe.Entity.EntityType, &pe.Entity.NaturalKey, &attrs, &pe.Entity.Confidence,
			&pe.LogicalKey, &pe.Category, &pe.Discipline); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project entity")
		}
		m, err := unmarshalAttrs(attrs)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal project entity attributes")
		}
		pe.Entity.Attributes = m
		pe.DocumentID = pe.Entity.DocumentID
		out = append(out, pe)
	}
	return out, eris.Wrap(rows.Err(), "postgres: project entities iterate")
}

func scanRunPgx(row pgx.Row) (*model.ExtractionRun, error) {
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

func scanEntityPgx(row pgx.Row) (*model.ExtractedEntity, error) {
	var e model.ExtractedEntity
	var attrs string
	err := row.Scan(&e.ID, &e.DocumentID, &e.RunID, &e.EntityType, &e.NaturalKey, &attrs, &e.Confidence)
	if err != nil {
		return nil, err
	}
	m, err := unmarshalAttrs(attrs)
	if err != nil {
		return nil, err
	}
	e.Attributes = m
	return &e, nil
}

// --- Shadow reviews ---

func (s *PostgresStore) CreateShadowReview(ctx context.Context, review *model.ShadowReview) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO shadow_reviews (id, document_id, production_run, shadow_run, category,
			production_tier, shadow_tier, matched, missed, incorrect, false_positives, accuracy, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		review.ID, review.DocumentID, review.ProductionRun, review.ShadowRun, review.Category,
		int(review.ProductionTier), int(review.ShadowTier), review.Matched, review.Missed,
		review.Incorrect, review.FalsePositives, review.Accuracy, review.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert shadow review")
}

func (s *PostgresStore) ListShadowReviews(ctx context.Context, category string, limit int) ([]model.ShadowReview, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, document_id, production_run, shadow_run, category, production_tier,
		shadow_tier, matched, missed, incorrect, false_positives, accuracy, created_at
		FROM shadow_reviews`
	var args []any
	if category != "" {
		query += ` WHERE category = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, category, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list shadow reviews")
	}
	defer rows.Close()

	var out []model.ShadowReview
	for rows.Next() {
		var r model.ShadowReview
		var pt, st int
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.ProductionRun, &r.ShadowRun, &r.Category,
			&pt, &st, &r.Matched, &r.Missed, &r.Incorrect, &r.FalsePositives,
			&r.Accuracy, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan shadow review")
		}
		r.ProductionTier = model.Tier(pt)
		r.ShadowTier = model.Tier(st)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list shadow reviews iterate")
}

// --- Accuracy and routing ---

func (s *PostgresStore) GetAccuracyRecord(ctx context.Context, category string, tier model.Tier) (*model.AccuracyRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, category, tier, sample_count, rolling_accuracy, miss_rate, state,
			warn_streak, recovery_streak, updated_at
		 FROM accuracy_records WHERE category = $1 AND tier = $2`,
		category, int(tier))
	rec, err := scanAccuracyRecordPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, eris.Wrap(err, "postgres: get accuracy record")
}

func (s *PostgresStore) UpsertAccuracyRecord(ctx context.Context, rec *model.AccuracyRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accuracy_records (id, category, tier, sample_count, rolling_accuracy,
			miss_rate, state, warn_streak, recovery_streak, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (category, tier) DO UPDATE SET
			sample_count = EXCLUDED.sample_count,
			rolling_accuracy = EXCLUDED.rolling_accuracy,
			miss_rate = EXCLUDED.miss_rate,
			state = EXCLUDED.state,
			warn_streak = EXCLUDED.warn_streak,
			recovery_streak = EXCLUDED.recovery_streak,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.Category, int(rec.Tier), rec.SampleCount, rec.RollingAccuracy,
		rec.MissRate, string(rec.State), rec.WarnStreak, rec.RecoveryStreak, rec.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert accuracy record")
}

// UpdateAccuracyRecord runs the read-modify-write with the row locked FOR
// UPDATE, so folds from any number of worker processes serialize on the
// (category, tier) row instead of losing samples. The seed insert makes the
// row exist before it is locked.
func (s *PostgresStore) UpdateAccuracyRecord(ctx context.Context, category string, tier model.Tier, apply func(rec *model.AccuracyRecord)) (*model.AccuracyRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin accuracy tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO accuracy_records (id, category, tier, sample_count, rolling_accuracy,
			miss_rate, state, warn_streak, recovery_streak, updated_at)
		 VALUES ($1, $2, $3, 0, 0, 0, 'ok', 0, 0, $4)
		 ON CONFLICT (category, tier) DO NOTHING`,
		uuid.New().String(), category, int(tier), time.Now().UTC(),
	); err != nil {
		return nil, eris.Wrap(err, "postgres: seed accuracy record")
	}

	row := tx.QueryRow(ctx,
		`SELECT id, category, tier, sample_count, rolling_accuracy, miss_rate, state,
			warn_streak, recovery_streak, updated_at
		 FROM accuracy_records WHERE category = $1 AND tier = $2
		 FOR UPDATE`,
		category, int(tier))
	rec, err := scanAccuracyRecordPgx(row)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load accuracy record")
	}

	apply(rec)
	rec.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx,
		`UPDATE accuracy_records SET sample_count = $1, rolling_accuracy = $2, miss_rate = $3,
			state = $4, warn_streak = $5, recovery_streak = $6, updated_at = $7
		 WHERE category = $8 AND tier = $9`,
		rec.SampleCount, rec.RollingAccuracy, rec.MissRate, string(rec.State),
		rec.WarnStreak, rec.RecoveryStreak, rec.UpdatedAt, category, int(tier),
	); err != nil {
		return nil, eris.Wrap(err, "postgres: update accuracy record")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit accuracy tx")
	}
	return rec, nil
}

func (s *PostgresStore) ListAccuracyRecords(ctx context.Context) ([]model.AccuracyRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, category, tier, sample_count, rolling_accuracy, miss_rate, state,
			warn_streak, recovery_streak, updated_at
		 FROM accuracy_records ORDER BY category, tier`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list accuracy records")
	}
	defer rows.Close()

	var out []model.AccuracyRecord
	for rows.Next() {
		rec, err := scanAccuracyRecordPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan accuracy record")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list accuracy records iterate")
}

func scanAccuracyRecordPgx(row pgx.Row) (*model.AccuracyRecord, error) {
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

func (s *PostgresStore) InsertRoutingDecision(ctx context.Context, dec *model.RoutingDecision) error {
	if dec.ID == "" {
		dec.ID = uuid.New().String()
	}
	if dec.CreatedAt.IsZero() {
		dec.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO routing_decisions (id, category, tier, previous_tier, reason, accuracy_record_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		dec.ID, dec.Category, int(dec.Tier), int(dec.PreviousTier), dec.Reason,
		dec.AccuracyRecordID, dec.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert routing decision")
}

func (s *PostgresStore) CurrentRoutingDecision(ctx context.Context, category string) (*model.RoutingDecision, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, category, tier, previous_tier, reason, accuracy_record_id, created_at
		 FROM routing_decisions WHERE category = $1
		 ORDER BY created_at DESC LIMIT 1`,
		category)
	dec, err := scanRoutingDecisionPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return dec, eris.Wrap(err, "postgres: current routing decision")
}

func (s *PostgresStore) ListRoutingDecisions(ctx context.Context, category string, limit int) ([]model.RoutingDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, category, tier, previous_tier, reason, accuracy_record_id, created_at
		FROM routing_decisions`
	var args []any
	if category != "" {
		query += ` WHERE category = $1 ORDER BY created_at DESC LIMIT $2`
		args = []any{category, limit}
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = []any{limit}
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list routing decisions")
	}
	defer rows.Close()

	var out []model.RoutingDecision
	for rows.Next() {
		dec, err := scanRoutingDecisionPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan routing decision")
		}
		out = append(out, *dec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list routing decisions iterate")
}

func scanRoutingDecisionPgx(row pgx.Row) (*model.RoutingDecision, error) {
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

func (s *PostgresStore) InsertDeltas(ctx context.Context, deltas []model.RevisionDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	now := time.Now().UTC()

	rows := make([][]any, 0, len(deltas))
	for i := range deltas {
		d := &deltas[i]
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		rows = append(rows, []any{d.ID, d.DocumentID, d.PriorRunID, d.CurrentRunID,
			string(d.Kind), d.EntityType, d.NaturalKey, d.Attribute,
			d.OldValue, d.NewValue, string(d.Significance), d.CreatedAt})
	}

	_, err := db.CopyFrom(ctx, s.pool, "revision_deltas",
		[]string{"id", "document_id", "prior_run_id", "current_run_id", "kind",
			"entity_type", "natural_key", "attribute", "old_value", "new_value",
			"significance", "created_at"},
		rows)
	return eris.Wrap(err, "postgres: insert deltas")
}

func (s *PostgresStore) ListDeltas(ctx context.Context, documentID string) ([]model.RevisionDelta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, prior_run_id, current_run_id, kind, entity_type, natural_key,
			attribute, old_value, new_value, significance, created_at
		 FROM revision_deltas WHERE document_id = $1 ORDER BY created_at, natural_key`,
		documentID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list deltas")
	}
	defer rows.Close()

	var out []model.RevisionDelta
	for rows.Next() {
		var d model.RevisionDelta
		var kind, sig string
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.PriorRunID, &d.CurrentRunID, &kind,
			&d.EntityType, &d.NaturalKey, &d.Attribute, &d.OldValue, &d.NewValue,
			&sig, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan delta")
		}
		d.Kind = model.DeltaKind(kind)
		d.Significance = model.Severity(sig)
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list deltas iterate")
}

// --- Conflicts ---

func (s *PostgresStore) InsertConflicts(ctx context.Context, conflicts []model.Conflict) (int, error) {
	if len(conflicts) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin conflict tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	inserted := 0
	for i := range conflicts {
		c := &conflicts[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO conflicts (id, project_id, entity_type, natural_key, attribute,
				entity_a, entity_b, document_a, document_b, value_a, value_b,
				scope, severity, resolved, resolution_note, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false, '', $14)
			 ON CONFLICT (project_id, entity_type, natural_key, attribute, entity_a, entity_b)
				WHERE NOT resolved
			 DO NOTHING`,
			c.ID, c.ProjectID, c.EntityType, c.NaturalKey, c.Attribute,
			c.EntityA, c.EntityB, c.DocumentA, c.DocumentB, c.ValueA, c.ValueB,
			string(c.Scope), string(c.Severity), c.CreatedAt,
		)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: insert conflict")
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit conflict tx")
	}
	return inserted, nil
}

func (s *PostgresStore) ListConflicts(ctx context.Context, filter ConflictFilter) ([]model.Conflict, error) {
	query, args, err := conflictListQuery(filter, dollarPlaceholder)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build conflict list query")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list conflicts")
	}
	defer rows.Close()

	var out []model.Conflict
	for rows.Next() {
		c, err := scanConflictPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan conflict")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list conflicts iterate")
}

func (s *PostgresStore) ResolveConflict(ctx context.Context, id, note string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conflicts SET resolved = true, resolution_note = $1, resolved_at = $2
		 WHERE id = $3 AND NOT resolved`,
		note, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: resolve conflict %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("open conflict not found: %s", id)
	}
	return nil
}

func scanConflictPgx(row pgx.Row) (*model.Conflict, error) {
	var c model.Conflict
	var scope, severity string
	var resolvedAt *time.Time
	err := row.Scan(&c.ID, &c.ProjectID, &c.EntityType, &c.NaturalKey, &c.Attribute,
		&c.EntityA, &c.EntityB, &c.DocumentA, &c.DocumentB, &c.ValueA, &c.ValueB,
		&scope, &severity, &c.Resolved, &c.ResolutionNote, &c.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	c.Scope = model.ConflictScope(scope)
	c.Severity = model.Severity(severity)
	c.ResolvedAt = resolvedAt
	return &c, nil
}
