// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapper

import (
	"regexp"
	"testing"
	"time"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

func testSynth() types.SynthesisDefaults {
	return types.SynthesisDefaults{Values: map[string]string{
		"ssp.import-profile":             "https://example.gov/profiles/low-baseline.json",
		"ssp.system-name":                "Unnamed System",
		"ssp.description":                "No system description provided in source material.",
		"ssp.status":                     "operational",
		"ssp.security-sensitivity-level": "moderate",
		"ssp.information-type":           "General Business Information",
		"ssp.default-impact":             "moderate",
		"ssp.authorization-boundary":     "Authorization boundary not described in source.",
		"ssp.network-architecture":       "Network architecture not described in source.",
		"ssp.data-flow":                  "Data flow not described in source.",
		"ssp.default-user":               "System User",
		"inventory.responsible-role":     "asset-owner",
		"assessment.import-ssp":          "./ssp.json",
		"assessment.terms":               "Standard assessment terms apply.",
	}}
}

func fixtureDoc() *types.CIRDocument {
	sysOrigin := types.DocumentPointer("ssp.docx", []string{"System Name"}, 2)
	fipsOrigin := types.DocumentPointer("ssp.docx", []string{"FIPS 199 Categorization"}, 8)
	ctrlOrigin := types.DocumentPointer("ssp.docx", []string{"Control Implementation", "AC-2"}, 14)
	poamOrigin := types.CellPointer("poam.xlsx", "Items", 2, "")
	invOrigin := types.CellPointer("inventory.xlsx", "Inventory", 2, "")

	return &types.CIRDocument{
		Metadata: types.CIRMetadata{
			SourceFile:     "ssp.docx",
			SourceType:     "docx",
			ExtractionDate: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			SHA256:         "deadbeef",
		},
		Sections: []types.Section{
			{
				ID: "section-1", Heading: "System Name", Level: 2,
				Body:   "System Name: Payroll Processing System",
				Origin: sysOrigin,
			},
			{
				ID: "section-2", Heading: "FIPS 199 Categorization", Level: 2,
				Body:   "Confidentiality: Moderate\nIntegrity: High\nAvailability: Low\nOverall Impact: High",
				Origin: fipsOrigin,
			},
			{
				ID: "section-3", Heading: "Authorization Boundary", Level: 2,
				Body:   "The boundary encloses the payroll VPC and its managed services.",
				Origin: types.DocumentPointer("ssp.docx", []string{"Authorization Boundary"}, 11),
			},
		},
		ControlRecords: []types.ControlRecord{
			{
				ControlID: "AC-2",
				Status:    types.StatusImplemented,
				Narrative: types.Prov("Accounts are provisioned through the IdP.", ctrlOrigin),
				ResponsibleRoles: []types.Provenanced[string]{
					types.Prov("System Administrator", ctrlOrigin),
				},
				Origin: ctrlOrigin,
			},
			{
				ControlID: "SI-2",
				Status:    types.StatusPartial,
				Narrative: types.Prov("Patching is automated for production hosts.", ctrlOrigin),
				Origin:    ctrlOrigin,
			},
		},
		TabularRecords: map[types.TabularKind][]types.TabularRecord{
			types.TabularPOAM: {
				{
					RecordID: "V-001",
					Kind:     types.TabularPOAM,
					Fields: map[string]types.Provenanced[string]{
						"poam_id":              types.Prov("V-001", poamOrigin),
						"weakness_name":        types.Prov("Unpatched kernel", types.CellPointer("poam.xlsx", "Items", 2, "Weakness Name")),
						"severity":             types.Prov("Moderate", types.CellPointer("poam.xlsx", "Items", 2, "Severity")),
						"status":               types.Prov("Ongoing", types.CellPointer("poam.xlsx", "Items", 2, "Status")),
						"scheduled_completion": types.Prov("2026-06-30", types.CellPointer("poam.xlsx", "Items", 2, "Scheduled Completion Date")),
						"asset_id":             types.Prov("web-01", types.CellPointer("poam.xlsx", "Items", 2, "Asset Identifier")),
					},
					Lists: map[string][]types.Provenanced[string]{
						"control_ids": {
							types.Prov("SI-2", types.CellPointer("poam.xlsx", "Items", 2, "Related Controls")),
							types.Prov("CM-6", types.CellPointer("poam.xlsx", "Items", 2, "Related Controls")),
						},
					},
					Milestones: []types.Milestone{
						{
							Description:   types.Prov("Apply vendor patch", types.CellPointer("poam.xlsx", "Items", 2, "Milestone")),
							ScheduledDate: types.Prov("2026-05-01", types.CellPointer("poam.xlsx", "Items", 2, "Milestone Date")),
						},
					},
					Origin: poamOrigin,
				},
			},
			types.TabularInventory: {
				{
					RecordID: "web-01",
					Kind:     types.TabularInventory,
					Fields: map[string]types.Provenanced[string]{
						"asset_id":      types.Prov("web-01", types.CellPointer("inventory.xlsx", "Inventory", 2, "Asset ID")),
						"asset_type":    types.Prov("hardware", types.CellPointer("inventory.xlsx", "Inventory", 2, "Asset Type")),
						"function":      types.Prov("Web Tier", types.CellPointer("inventory.xlsx", "Inventory", 2, "Function")),
						"environment":   types.Prov("Production", types.CellPointer("inventory.xlsx", "Inventory", 2, "Environment")),
						"criticality":   types.Prov("High", types.CellPointer("inventory.xlsx", "Inventory", 2, "Criticality")),
					},
					Origin: invOrigin,
				},
				{
					RecordID: "web-02",
					Kind:     types.TabularInventory,
					Fields: map[string]types.Provenanced[string]{
						"asset_id":    types.Prov("web-02", types.CellPointer("inventory.xlsx", "Inventory", 3, "Asset ID")),
						"asset_type":  types.Prov("hardware", types.CellPointer("inventory.xlsx", "Inventory", 3, "Asset Type")),
						"function":    types.Prov("Web Tier", types.CellPointer("inventory.xlsx", "Inventory", 3, "Function")),
						"environment": types.Prov("Test", types.CellPointer("inventory.xlsx", "Inventory", 3, "Environment")),
						"criticality": types.Prov("Low", types.CellPointer("inventory.xlsx", "Inventory", 3, "Criticality")),
					},
					Origin: types.CellPointer("inventory.xlsx", "Inventory", 3, ""),
				},
			},
		},
	}
}

var uuidShapeRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestStableID(t *testing.T) {
	a := StableID(types.KindSSP, "ssp.docx", 0)
	b := StableID(types.KindSSP, "ssp.docx", 0)
	c := StableID(types.KindSSP, "ssp.docx", 1)
	d := StableID(types.KindPOAM, "ssp.docx", 0)

	if a != b {
		t.Errorf("identical inputs should produce identical IDs: %s vs %s", a, b)
	}
	if a == c || a == d {
		t.Error("distinct inputs should produce distinct IDs")
	}
	if !uuidShapeRe.MatchString(a) {
		t.Errorf("ID %q is not UUID-shaped", a)
	}
}

func TestForDispatch(t *testing.T) {
	for _, kind := range types.AllArtifactKinds {
		m, err := For(kind, testSynth())
		if err != nil {
			t.Fatalf("For(%s): %v", kind, err)
		}
		if m.Kind() != kind {
			t.Errorf("For(%s) returned mapper for %s", kind, m.Kind())
		}
	}
	if _, err := For(types.ArtifactKind("catalog"), testSynth()); err == nil {
		t.Error("unknown kind should fail dispatch")
	}
}

func TestMapIdempotent(t *testing.T) {
	for _, kind := range types.AllArtifactKinds {
		m, err := For(kind, testSynth())
		if err != nil {
			t.Fatal(err)
		}
		g1, _, err1 := m.Map(fixtureDoc())
		g2, _, err2 := m.Map(fixtureDoc())
		if err1 != nil || err2 != nil {
			t.Fatalf("%s: %v / %v", kind, err1, err2)
		}
		p1 := g1.Provenance()
		p2 := g2.Provenance()
		if len(p1) != len(p2) {
			t.Fatalf("%s: provenance length differs across runs", kind)
		}
		for i := range p1 {
			if p1[i].TargetPath != p2[i].TargetPath ||
				p1[i].Origin.Kind != p2[i].Origin.Kind ||
				p1[i].Origin.Reason != p2[i].Origin.Reason {
				t.Errorf("%s: provenance entry %d differs: %+v vs %+v", kind, i, p1[i], p2[i])
			}
			if (p1[i].Origin.Pointer == nil) != (p2[i].Origin.Pointer == nil) {
				t.Errorf("%s: entry %d pointer presence differs", kind, i)
			} else if p1[i].Origin.Pointer != nil && p1[i].Origin.Pointer.String() != p2[i].Origin.Pointer.String() {
				t.Errorf("%s: entry %d pointer differs: %s vs %s", kind, i,
					p1[i].Origin.Pointer, p2[i].Origin.Pointer)
			}
		}
	}
}
