// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tabular maps spreadsheet rows to typed records through a
// declarative column-mapping configuration: synonym-based header
// resolution, per-cell provenance, and configured type coercion.
// Extraction never enforces target-schema policy: a row missing a
// required field still yields a record, marked incomplete, so mappers
// can decide between synthesis and per-artifact failure.
// See docs/ARCHITECTURE § Extraction.
package tabular

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/oscal-engine/internal/controls"
	"github.com/pdiddy/oscal-engine/pkg/types"
)

const stage = "tabular"

// Extractor maps one tabular kind's grids to records.
type Extractor struct {
	kind    types.TabularKind
	mapping types.ColumnMapping

	// synonymOwner maps a normalized synonym to its canonical field.
	synonymOwner map[string]string
}

// New builds an extractor for one tabular kind. A synonym declared under
// two canonical fields is a configuration bug and fails construction.
func New(kind types.TabularKind, mapping types.ColumnMapping) (*Extractor, error) {
	owner := make(map[string]string)

	fields := make([]string, 0, len(mapping.Fields))
	for name := range mapping.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	for _, field := range fields {
		spec := mapping.Fields[field]
		if len(spec.Synonyms) == 0 {
			return nil, fmt.Errorf("field %q declares no header synonyms", field)
		}
		for _, syn := range spec.Synonyms {
			norm := NormalizeHeader(syn)
			if norm == "" {
				return nil, fmt.Errorf("field %q has an empty synonym", field)
			}
			if prev, ok := owner[norm]; ok && prev != field {
				return nil, fmt.Errorf("synonym %q declared under both %q and %q", syn, prev, field)
			}
			owner[norm] = field
		}
	}

	return &Extractor{kind: kind, mapping: mapping, synonymOwner: owner}, nil
}

// NormalizeHeader prepares a header cell for synonym comparison: trim,
// casefold, collapse whitespace runs.
func NormalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// columnBinding ties a grid column to a canonical field.
type columnBinding struct {
	index  int
	header string // original header text, kept for provenance
	field  string // canonical field, "" for extra columns
}

// resolveHeaders matches grid headers against the synonym sets. Headers
// matching no field are retained as opaque extra columns. Two headers
// resolving to one field keep the first and report the conflict.
func (e *Extractor) resolveHeaders(grid *types.Grid, diags *types.Diagnostics) []columnBinding {
	bindings := make([]columnBinding, 0, len(grid.Headers))
	claimed := make(map[string]string) // field → header that claimed it

	for i, header := range grid.Headers {
		b := columnBinding{index: i, header: strings.TrimSpace(header)}

		if field, ok := e.synonymOwner[NormalizeHeader(header)]; ok {
			if prior, dup := claimed[field]; dup {
				ptr := types.CellPointer(grid.ArtifactPath, grid.Sheet, 1, b.header)
				diags.Warn(stage, types.CodeColumnMappingConflict, &ptr,
					"header %q also resolves to field %q already claimed by %q; first match kept",
					b.header, field, prior)
			} else {
				claimed[field] = b.header
				b.field = field
			}
		}
		bindings = append(bindings, b)
	}
	return bindings
}

// Extract maps grid rows to records. Empty rows are skipped; rows missing
// required fields are kept and marked.
func (e *Extractor) Extract(grid types.Grid) ([]types.TabularRecord, types.Diagnostics) {
	var diags types.Diagnostics
	bindings := e.resolveHeaders(&grid, &diags)

	var records []types.TabularRecord
	for i, row := range grid.Rows {
		if emptyRow(row) {
			continue
		}
		rec := e.extractRow(&grid, bindings, i, row, &diags)
		records = append(records, rec)
	}
	return records, diags
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (e *Extractor) extractRow(grid *types.Grid, bindings []columnBinding, bodyIndex int, row []string, diags *types.Diagnostics) types.TabularRecord {
	rowNum := grid.RowNumber(bodyIndex)

	rec := types.TabularRecord{
		Kind:   e.kind,
		Fields: make(map[string]types.Provenanced[string]),
		Origin: types.CellPointer(grid.ArtifactPath, grid.Sheet, rowNum, ""),
	}

	for _, b := range bindings {
		if b.index >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[b.index])
		if raw == "" {
			continue
		}
		origin := types.CellPointer(grid.ArtifactPath, grid.Sheet, rowNum, b.header)

		if b.field == "" {
			if rec.Extra == nil {
				rec.Extra = make(map[string]types.Provenanced[string])
			}
			rec.Extra[b.header] = types.Prov(raw, origin)
			continue
		}

		spec := e.mapping.Fields[b.field]
		e.setField(&rec, b.field, spec, raw, origin, diags)
	}

	for field, spec := range e.mapping.Fields {
		if !spec.Required {
			continue
		}
		if _, ok := rec.Fields[field]; ok {
			rec.RequiredPresent = append(rec.RequiredPresent, field)
		} else if _, ok := rec.Lists[field]; ok {
			rec.RequiredPresent = append(rec.RequiredPresent, field)
		}
	}
	sort.Strings(rec.RequiredPresent)

	rec.RecordID = e.recordID(&rec, rowNum)
	rec.Milestones = buildMilestones(&rec)
	return rec
}

// setField coerces and stores one cell. Coercion failure keeps the
// original string, flagged, with a diagnostic carrying the exact cell.
func (e *Extractor) setField(rec *types.TabularRecord, field string, spec types.ColumnSpec, raw string, origin types.SourcePointer, diags *types.Diagnostics) {
	switch spec.Type {
	case types.FieldList:
		if rec.Lists == nil {
			rec.Lists = make(map[string][]types.Provenanced[string])
		}
		for _, entry := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			// Control citations carry the same identifier normalization
			// as extracted ControlRecords.
			if field == "control_ids" {
				entry = controls.NormalizeID(entry)
			}
			rec.Lists[field] = append(rec.Lists[field], types.Prov(entry, origin))
		}
		return

	case types.FieldDate:
		if iso, ok := ParseDate(raw); ok {
			rec.Fields[field] = types.Prov(iso, origin)
			return
		}
		e.coercionFailure(rec, field, raw, origin, diags, "not a recognized date")

	case types.FieldSeverity:
		if sev, ok := NormalizeSeverity(raw); ok {
			rec.Fields[field] = types.Prov(sev, origin)
			return
		}
		e.coercionFailure(rec, field, raw, origin, diags, "not a recognized severity")

	case types.FieldStatus:
		if st, ok := NormalizeStatus(raw); ok {
			rec.Fields[field] = types.Prov(st, origin)
			return
		}
		e.coercionFailure(rec, field, raw, origin, diags, "not a recognized status")

	case types.FieldIdentifier:
		rec.Fields[field] = types.Prov(NormalizeIdentifier(raw), origin)

	default:
		rec.Fields[field] = types.Prov(raw, origin)
	}
}

func (e *Extractor) coercionFailure(rec *types.TabularRecord, field, raw string, origin types.SourcePointer, diags *types.Diagnostics, why string) {
	ptr := origin
	diags.Warn(stage, types.CodeTypeCoercionFailure, &ptr,
		"field %q value %q: %s; original retained", field, raw, why)
	rec.Fields[field] = types.Provenanced[string]{Value: raw, Origin: origin, CoercionFailed: true}
}

// recordID returns the declared identifier or synthesizes a deterministic
// one from the row position.
func (e *Extractor) recordID(rec *types.TabularRecord, rowNum int) string {
	if e.mapping.IDField != "" {
		if v, ok := rec.Fields[e.mapping.IDField]; ok && v.Value != "" {
			return v.Value
		}
	}
	return fmt.Sprintf("%s-row-%d", e.kind, rowNum)
}

// buildMilestones lifts milestone columns into sub-records.
func buildMilestones(rec *types.TabularRecord) []types.Milestone {
	desc, ok := rec.Fields["milestone_description"]
	if !ok {
		return nil
	}
	m := types.Milestone{Description: desc}
	if d, ok := rec.Fields["milestone_date"]; ok {
		m.ScheduledDate = d
	}
	if s, ok := rec.Fields["milestone_status"]; ok {
		m.Status = s
	}
	return []types.Milestone{m}
}
