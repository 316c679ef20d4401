// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package xref

import (
	"testing"
	"time"

	"github.com/pdiddy/oscal-engine/internal/mapper"
	"github.com/pdiddy/oscal-engine/pkg/types"
)

func resolveFixture(t *testing.T, doc *types.CIRDocument) ([]Link, types.Diagnostics) {
	t.Helper()
	synth := types.SynthesisDefaults{Values: map[string]string{
		"ssp.import-profile":             "https://example.gov/baseline.json",
		"ssp.system-name":                "Fixture System",
		"ssp.description":                "Fixture description.",
		"ssp.status":                     "operational",
		"ssp.security-sensitivity-level": "moderate",
		"ssp.information-type":           "General Business Information",
		"ssp.default-impact":             "moderate",
		"ssp.authorization-boundary":     "Boundary not described.",
		"ssp.network-architecture":       "Architecture not described.",
		"ssp.data-flow":                  "Data flow not described.",
		"ssp.default-user":               "System User",
	}}

	m, err := mapper.For(types.KindSSP, synth)
	if err != nil {
		t.Fatal(err)
	}
	ssp, _, err := m.Map(doc)
	if err != nil {
		t.Fatal(err)
	}
	return Resolve(doc, map[types.ArtifactKind]*types.TargetDocumentGraph{types.KindSSP: ssp})
}

func xrefDoc() *types.CIRDocument {
	ctrlOrigin := types.DocumentPointer("ssp.docx", []string{"Controls"}, 5)
	return &types.CIRDocument{
		Metadata: types.CIRMetadata{
			SourceFile:     "ssp.docx",
			SourceType:     "docx",
			ExtractionDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			SHA256:         "abc",
		},
		ControlRecords: []types.ControlRecord{
			{ControlID: "AC-2", Status: types.StatusImplemented,
				Narrative: types.Prov("Managed accounts.", ctrlOrigin), Origin: ctrlOrigin},
		},
		TabularRecords: map[types.TabularKind][]types.TabularRecord{
			types.TabularPOAM: {
				{
					RecordID: "V-001",
					Kind:     types.TabularPOAM,
					Fields: map[string]types.Provenanced[string]{
						"asset_id": types.Prov("web-01", types.CellPointer("poam.xlsx", "Items", 2, "Asset Identifier")),
					},
					Lists: map[string][]types.Provenanced[string]{
						"control_ids": {
							types.Prov("AC-2", types.CellPointer("poam.xlsx", "Items", 2, "Related Controls")),
						},
					},
					Origin: types.CellPointer("poam.xlsx", "Items", 2, ""),
				},
			},
			types.TabularInventory: {
				{
					RecordID: "web-01",
					Kind:     types.TabularInventory,
					Fields: map[string]types.Provenanced[string]{
						"asset_id": types.Prov("web-01", types.CellPointer("inventory.xlsx", "Inventory", 2, "Asset ID")),
					},
					Origin: types.CellPointer("inventory.xlsx", "Inventory", 2, ""),
				},
			},
		},
	}
}

func TestResolveLinksControlsAndAssets(t *testing.T) {
	links, diags := resolveFixture(t, xrefDoc())

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(links) != 2 {
		t.Fatalf("expected a control link and an asset link, got %v", links)
	}

	var control, asset *Link
	for i := range links {
		switch links[i].Kind {
		case RefControl:
			control = &links[i]
		case RefAsset:
			asset = &links[i]
		}
	}
	if control == nil || control.Ref != "AC-2" || control.TargetUUID == "" {
		t.Errorf("control link = %+v", control)
	}
	if asset == nil || asset.Ref != "web-01" || asset.TargetUUID == "" {
		t.Errorf("asset link = %+v", asset)
	}
	if control != nil && asset != nil && control.TargetUUID == asset.TargetUUID {
		t.Error("control and asset links should resolve to distinct nodes")
	}
}

func TestResolveUnknownAsset(t *testing.T) {
	doc := xrefDoc()
	doc.TabularRecords[types.TabularPOAM][0].Fields["asset_id"] = types.Prov(
		"db-99", types.CellPointer("poam.xlsx", "Items", 2, "Asset Identifier"))

	links, diags := resolveFixture(t, doc)

	if len(links) != 1 {
		t.Fatalf("only the control link should resolve, got %v", links)
	}
	if diags.Count(types.SeverityWarning) != 1 {
		t.Fatalf("expected 1 warning, got %v", diags)
	}
	if diags[0].Code != types.CodeReferentialViolation {
		t.Errorf("code = %s", diags[0].Code)
	}
}

func TestResolveWithoutSSPGraph(t *testing.T) {
	doc := xrefDoc()
	links, diags := Resolve(doc, map[types.ArtifactKind]*types.TargetDocumentGraph{})

	if len(links) != 0 || len(diags) != 0 {
		t.Errorf("absent graph should resolve nothing silently: links=%v diags=%v", links, diags)
	}
}
