// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tabular

import (
	"strings"
	"time"
)

// dateLayouts covers the date shapes seen in agency spreadsheets, tried in
// order. Output is always ISO 8601.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	time.RFC3339,
}

// ParseDate coerces a raw cell to an ISO 8601 date.
func ParseDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// severityVariants folds the spellings and abbreviations found in the wild
// onto the canonical four-level scale.
var severityVariants = map[string]string{
	"low": "Low", "l": "Low",
	"moderate": "Moderate", "med": "Moderate", "medium": "Moderate", "m": "Moderate",
	"high": "High", "h": "High",
	"critical": "Critical", "crit": "Critical", "c": "Critical",
}

// NormalizeSeverity coerces a raw severity cell to its canonical form.
func NormalizeSeverity(raw string) (string, bool) {
	sev, ok := severityVariants[strings.ToLower(strings.TrimSpace(raw))]
	return sev, ok
}

// statusVariants folds remediation-status spellings onto the canonical
// vocabulary.
var statusVariants = map[string]string{
	"open": "Open", "new": "Open",
	"ongoing": "Ongoing", "in progress": "Ongoing", "in-progress": "Ongoing",
	"completed": "Completed", "complete": "Completed", "closed": "Completed", "done": "Completed",
	"risk accepted": "Risk Accepted", "accepted": "Risk Accepted", "risk-accepted": "Risk Accepted",
}

// NormalizeStatus coerces a raw remediation-status cell to its canonical
// form.
func NormalizeStatus(raw string) (string, bool) {
	st, ok := statusVariants[strings.ToLower(strings.Join(strings.Fields(raw), " "))]
	return st, ok
}

// NormalizeIdentifier canonicalizes an asset or record identifier:
// casefold, whitespace runs to single hyphens.
func NormalizeIdentifier(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "-")
}
