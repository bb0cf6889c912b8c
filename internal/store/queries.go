package store

import (
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/ridgeline-eng/docqc/internal/model"
)

// Placeholder formats for the two backends. The read-side list queries are
// built with squirrel so both stores share the same filter logic and only
// differ in placeholder style.
var (
	questionPlaceholder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	dollarPlaceholder   = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
)

func taskListQuery(filter TaskFilter, builder sq.StatementBuilderType) (string, []any, error) {
	q := builder.
		Select("id", "kind", "document_id", "payload", "priority", "status",
			"claimed_by", "lease_expiry", "attempts", "last_error", "enqueued_at", "updated_at").
		From("queue_tasks")

	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Kind != "" {
		q = q.Where(sq.Eq{"kind": string(filter.Kind)})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	q = q.OrderBy("priority", "enqueued_at").Limit(uint64(limit))
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q.ToSql()
}

func conflictListQuery(filter ConflictFilter, builder sq.StatementBuilderType) (string, []any, error) {
	q := builder.
		Select("id", "project_id", "entity_type", "natural_key", "attribute",
			"entity_a", "entity_b", "document_a", "document_b", "value_a", "value_b",
			"scope", "severity", "resolved", "resolution_note", "created_at", "resolved_at").
		From("conflicts")

	if filter.ProjectID != "" {
		q = q.Where(sq.Eq{"project_id": filter.ProjectID})
	}
	if filter.Severity != "" {
		q = q.Where(sq.Eq{"severity": string(filter.Severity)})
	}
	if filter.NaturalKey != "" {
		q = q.Where(sq.Eq{"natural_key": filter.NaturalKey})
	}
	if filter.OnlyOpen {
		q = q.Where(sq.Eq{"resolved": false})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	return q.OrderBy("created_at DESC").Limit(uint64(limit)).ToSql()
}

func marshalAttrs(attrs model.AttributeMap) (string, error) {
	if attrs == nil {
		return "", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalAttrs(raw string) (model.AttributeMap, error) {
	var attrs model.AttributeMap
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
