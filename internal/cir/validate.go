// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cir

import (
	"github.com/pdiddy/oscal-engine/internal/controls"
	"github.com/pdiddy/oscal-engine/pkg/types"
)

const stage = "cir-validate"

// Validator checks an assembled document before mapping. Structural
// violations are always errors; referential violations are warnings
// unless the reference configuration is strict.
type Validator struct {
	refs types.ReferenceConfig
}

// NewValidator builds a validator with the given reference policy.
func NewValidator(refs types.ReferenceConfig) *Validator {
	return &Validator{refs: refs}
}

// Validate runs all checks and returns the combined diagnostics. The
// document is not mutated. A document with error diagnostics must not be
// mapped; warnings allow mapping to proceed.
func (v *Validator) Validate(doc *types.CIRDocument) types.Diagnostics {
	var diags types.Diagnostics
	v.checkStructure(doc, &diags)
	v.checkControlReferences(doc, &diags)
	v.checkAssetReferences(doc, &diags)
	return diags
}

func (v *Validator) checkStructure(doc *types.CIRDocument, diags *types.Diagnostics) {
	if doc.Metadata.SourceFile == "" {
		diags.Error(stage, types.CodeStructuralInvalid, nil, "metadata missing source file")
	}
	if doc.Metadata.SHA256 == "" {
		diags.Error(stage, types.CodeStructuralInvalid, nil, "metadata missing source fingerprint")
	}

	seenSections := make(map[string]bool)
	for i := range doc.Sections {
		s := &doc.Sections[i]
		if s.ID == "" {
			ptr := s.Origin
			diags.Error(stage, types.CodeStructuralInvalid, &ptr, "section %d has no ID", i)
			continue
		}
		if seenSections[s.ID] {
			ptr := s.Origin
			diags.Error(stage, types.CodeStructuralInvalid, &ptr, "duplicate section ID %q", s.ID)
		}
		seenSections[s.ID] = true
	}

	seenControls := make(map[string]bool)
	for i := range doc.ControlRecords {
		c := &doc.ControlRecords[i]
		if c.ControlID == "" {
			ptr := c.Origin
			diags.Error(stage, types.CodeStructuralInvalid, &ptr, "control record %d has no identifier", i)
			continue
		}
		if seenControls[c.ControlID] {
			ptr := c.Origin
			diags.Error(stage, types.CodeStructuralInvalid, &ptr, "duplicate control record %q survived extraction", c.ControlID)
		}
		seenControls[c.ControlID] = true
	}

	for kind, records := range doc.TabularRecords {
		for i := range records {
			if records[i].RecordID == "" {
				ptr := records[i].Origin
				diags.Error(stage, types.CodeStructuralInvalid, &ptr, "%s record %d has no identifier", kind, i)
			}
		}
	}
}

// checkControlReferences verifies that control identifiers cited in tabular
// records resolve to extracted control records or the configured external
// allowlist. Citations are compared under identifier normalization, never
// by raw spelling.
func (v *Validator) checkControlReferences(doc *types.CIRDocument, diags *types.Diagnostics) {
	allowed := make(map[string]bool, len(v.refs.AllowExternalControls))
	for _, id := range v.refs.AllowExternalControls {
		allowed[controls.NormalizeID(id)] = true
	}

	for _, kind := range []types.TabularKind{types.TabularPOAM, types.TabularResponsibility} {
		for i := range doc.TabularRecords[kind] {
			rec := &doc.TabularRecords[kind][i]
			for _, ref := range rec.Lists["control_ids"] {
				if doc.ControlByID(ref.Value) != nil || allowed[controls.NormalizeID(ref.Value)] {
					continue
				}
				ptr := ref.Origin
				v.report(diags, &ptr, "%s record %q cites control %q not present in the control implementation",
					kind, rec.RecordID, ref.Value)
			}
		}
	}
}

// checkAssetReferences verifies POA&M asset citations against the
// inventory. Skipped when no inventory was extracted, since the reference
// target genuinely does not exist in the run.
func (v *Validator) checkAssetReferences(doc *types.CIRDocument, diags *types.Diagnostics) {
	inventory := doc.TabularRecords[types.TabularInventory]
	if len(inventory) == 0 {
		return
	}

	known := make(map[string]bool, len(inventory))
	for i := range inventory {
		known[inventory[i].RecordID] = true
		if id := inventory[i].Field("asset_id"); id != "" {
			known[id] = true
		}
	}

	for i := range doc.TabularRecords[types.TabularPOAM] {
		rec := &doc.TabularRecords[types.TabularPOAM][i]
		asset := rec.Fields["asset_id"]
		if asset.Value == "" || known[asset.Value] {
			continue
		}
		ptr := asset.Origin
		v.report(diags, &ptr, "POA&M record %q cites asset %q not present in the inventory",
			rec.RecordID, asset.Value)
	}
}

func (v *Validator) report(diags *types.Diagnostics, ptr *types.SourcePointer, format string, args ...any) {
	if v.refs.Strict {
		diags.Error(stage, types.CodeReferentialViolation, ptr, format, args...)
		return
	}
	diags.Warn(stage, types.CodeReferentialViolation, ptr, format, args...)
}
