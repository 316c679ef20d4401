// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package controls extracts control implementation records from classified
// sections: identifier occurrences, stated implementation status,
// narrative text, and responsible-role lists.
// See docs/ARCHITECTURE § Extraction.
package controls

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

const stage = "controls"

// controlIDRe matches the control identifier grammar: two-letter family,
// hyphen, number, optional enhancement suffix. AC-2, AC-2(1).
var controlIDRe = regexp.MustCompile(`\b[A-Z]{2}-\d+(?:\(\d+\))?\b`)

// listSplitRe splits delimited role lists on commas and semicolons.
var listSplitRe = regexp.MustCompile(`[,;]`)

// Extractor scans control-implementation sections.
type Extractor struct {
	cfg types.ControlExtractionConfig

	// statusPhrases holds the configured phrases normalized, in sorted
	// order so extraction is independent of map iteration.
	statusPhrases []statusPhrase

	roleRes []*regexp.Regexp
}

type statusPhrase struct {
	phrase string
	status types.ImplementationStatus
}

// New builds an extractor from configuration.
func New(cfg types.ControlExtractionConfig) *Extractor {
	e := &Extractor{cfg: cfg}

	for phrase, status := range cfg.StatusPhrases {
		e.statusPhrases = append(e.statusPhrases, statusPhrase{
			phrase: strings.ToLower(strings.TrimSpace(phrase)),
			status: status,
		})
	}
	sort.Slice(e.statusPhrases, func(i, j int) bool {
		return e.statusPhrases[i].phrase < e.statusPhrases[j].phrase
	})

	for _, label := range cfg.RoleLabels {
		e.roleRes = append(e.roleRes, regexp.MustCompile(
			`(?im)^\s*`+regexp.QuoteMeta(label)+`s?\s*:\s*(.+)$`))
	}

	return e
}

// NormalizeID canonicalizes a control identifier: trim and uppercase.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Extract builds one ControlRecord per unique identifier across the
// sections carrying the configured label. A duplicate identifier in a
// later block keeps the first occurrence and reports the ambiguity;
// silent overwrite would hide authoring mistakes.
func (e *Extractor) Extract(sections []types.Section) ([]types.ControlRecord, types.Diagnostics) {
	var (
		records []types.ControlRecord
		diags   types.Diagnostics
	)
	firstSeen := make(map[string]types.SourcePointer)

	for i := range sections {
		sec := &sections[i]
		if sec.Label != e.cfg.SectionLabel {
			continue
		}

		ids := identifiersIn(sec.Heading + "\n" + sec.Body)
		if len(ids) == 0 {
			continue
		}

		status := e.inferStatus(sec.Body)
		roles := e.extractRoles(sec)

		for _, id := range ids {
			if prior, dup := firstSeen[id]; dup {
				ptr := sec.Origin
				diags.Warn(stage, types.CodeDuplicateControlID, &ptr,
					"control %s already extracted from %s; first occurrence kept", id, prior)
				continue
			}
			firstSeen[id] = sec.Origin

			records = append(records, types.ControlRecord{
				ControlID:        id,
				Status:           status,
				Narrative:        types.Prov(sec.Body, sec.Origin),
				ResponsibleRoles: roles,
				Origin:           sec.Origin,
			})
		}
	}

	return records, diags
}

// identifiersIn returns the unique normalized control IDs in text, in
// first-appearance order.
func identifiersIn(text string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range controlIDRe.FindAllString(text, -1) {
		id := NormalizeID(m)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// inferStatus looks for a configured literal status phrase in the block.
// The earliest occurrence wins; absent any phrase the status is unknown,
// never guessed from narrative sentiment.
func (e *Extractor) inferStatus(body string) types.ImplementationStatus {
	lower := strings.ToLower(body)

	best := -1
	status := types.StatusUnknown
	for _, sp := range e.statusPhrases {
		idx := strings.Index(lower, sp.phrase)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best {
			best = idx
			status = sp.status
		}
	}
	return status
}

// extractRoles collects responsible roles from configured field labels.
// Every entry from one list shares the list's origin pointer; roles are
// not individually positioned in the source.
func (e *Extractor) extractRoles(sec *types.Section) []types.Provenanced[string] {
	var roles []types.Provenanced[string]
	seen := make(map[string]bool)

	for _, re := range e.roleRes {
		for _, m := range re.FindAllStringSubmatch(sec.Body, -1) {
			for _, entry := range listSplitRe.Split(m[1], -1) {
				entry = strings.TrimSpace(entry)
				if entry == "" || seen[entry] {
					continue
				}
				seen[entry] = true
				roles = append(roles, types.Prov(entry, sec.Origin))
			}
		}
	}
	return roles
}
