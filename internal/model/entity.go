package model

import (
	"fmt"
	"sort"
)

// AttributeMap is the open, schema-flexible attribute bag carried by every
// extracted entity. Values are whatever the extraction service returned:
// strings, numbers, bools, or nested maps/slices (JSON shapes). New entity
// categories appear without schema migration, so nothing here assumes a
// fixed set of keys.
type AttributeMap map[string]any

// String returns the attribute as a string, with ok=false when absent or
// not a string.
func (m AttributeMap) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns the attribute as a float64. JSON numbers decode as float64,
// but int is accepted too for values set programmatically.
func (m AttributeMap) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Nested returns a nested attribute map.
func (m AttributeMap) Nested(key string) (AttributeMap, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	switch n := v.(type) {
	case AttributeMap:
		return n, true
	case map[string]any:
		return AttributeMap(n), true
	}
	return nil, false
}

// Keys returns the attribute names in sorted order.
func (m AttributeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal compares two attribute values for semantic equality. Scalars compare
// by formatted value so 4.0 == 4 and "CS" == "CS"; nested shapes compare
// recursively.
func AttributeEqual(a, b any) bool {
	am, aok := asMap(a)
	bm, bok := asMap(b)
	if aok != bok {
		return false
	}
	if aok {
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !AttributeEqual(av, bv) {
				return false
			}
		}
		return true
	}
	return formatAttr(a) == formatAttr(b)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case AttributeMap:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// FormatAttr renders an attribute value for delta/conflict records.
func FormatAttr(v any) string {
	return formatAttr(v)
}

func formatAttr(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		// Trim trailing zeros so 4.0 and 4 render identically.
		return trimFloat(n)
	case int:
		return fmt.Sprintf("%d", n)
	case int64:
		return fmt.Sprintf("%d", n)
	case bool:
		return fmt.Sprintf("%t", n)
	default:
		return fmt.Sprintf("%v", n)
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// ExtractedEntity is one structured fact produced by an extraction run.
// Entities are immutable once written; re-extraction writes a new set under
// a new run, never mutates in place.
type ExtractedEntity struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	RunID      string       `json:"run_id"`
	EntityType string       `json:"entity_type"`
	NaturalKey string       `json:"natural_key"`
	Attributes AttributeMap `json:"attributes"`
	Confidence float64      `json:"confidence"`
}

// EntityKey identifies an entity within a run for matching across runs and
// documents.
type EntityKey struct {
	Type string
	Key  string
}

// KeyOf returns the matching key for the entity.
func (e ExtractedEntity) KeyOf() EntityKey {
	return EntityKey{Type: e.EntityType, Key: e.NaturalKey}
}
