package model

import "strings"

// Identity-defining attributes whose change or mismatch affects what the
// physical item is. Mismatches here are safety relevant.
var identityAttributes = map[string]struct{}{
	"size":     {},
	"material": {},
	"rating":   {},
	"spec":     {},
	"class":    {},
	"service":  {},
	"voltage":  {},
	"pressure": {},
}

// Location and descriptive attributes. Wrong, but not dangerous.
var descriptiveAttributes = map[string]struct{}{
	"location":    {},
	"area":        {},
	"elevation":   {},
	"description": {},
	"from":        {},
	"to":          {},
	"room":        {},
}

// ClassifyAttribute maps an attribute name to the severity of a change or
// mismatch on it.
func ClassifyAttribute(name string) Severity {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := identityAttributes[key]; ok {
		return SeverityHigh
	}
	if _, ok := descriptiveAttributes[key]; ok {
		return SeverityMedium
	}
	return SeverityLow
}
