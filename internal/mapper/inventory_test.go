// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapper

import (
	"testing"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

func mapInventory(t *testing.T, doc *types.CIRDocument) *types.TargetDocumentGraph {
	t.Helper()
	m := &InventoryMapper{synth: testSynth()}
	g, diags, err := m.Map(doc)
	if err != nil {
		t.Fatalf("Map: %v (diags: %v)", err, diags)
	}
	return g
}

func TestInventoryGroupsByFunction(t *testing.T) {
	g := mapInventory(t, fixtureDoc())

	components := g.Root.Child("components")
	if len(components.Children) != 1 {
		t.Fatalf("both assets share a function, expected 1 component, got %d", len(components.Children))
	}
	comp := components.Children[0]

	title := comp.Child("title")
	if title.Value != "Web Tier" || title.Origin.Kind != types.OriginSourced {
		t.Errorf("title = %+v", title)
	}
	if comp.Child("type").Value != "hardware" {
		t.Errorf("type = %v", comp.Child("type").Value)
	}
}

func TestInventoryServiceLayerWins(t *testing.T) {
	doc := fixtureDoc()
	recs := doc.TabularRecords[types.TabularInventory]
	recs[0].Fields["service_layer"] = types.Prov("Presentation",
		types.CellPointer("inventory.xlsx", "Inventory", 2, "Service Layer"))

	g := mapInventory(t, doc)
	components := g.Root.Child("components")
	if len(components.Children) != 2 {
		t.Fatalf("service layer should split the group, got %d components", len(components.Children))
	}
	if components.Children[0].Child("title").Value != "Presentation Layer" {
		t.Errorf("first component = %v", components.Children[0].Child("title").Value)
	}
}

func TestInventoryStatusFromEnvironment(t *testing.T) {
	doc := fixtureDoc()
	g := mapInventory(t, doc)
	comp := g.Root.Child("components").Children[0]

	// Group contains a Production asset, so it is operational.
	if comp.Child("status").Child("state").Value != "operational" {
		t.Errorf("state = %v", comp.Child("status").Child("state").Value)
	}

	// Without the production asset the test environment governs.
	doc2 := fixtureDoc()
	doc2.TabularRecords[types.TabularInventory] = doc2.TabularRecords[types.TabularInventory][1:]
	g2 := mapInventory(t, doc2)
	state := g2.Root.Child("components").Children[0].Child("status").Child("state")
	if state.Value != "under-development" {
		t.Errorf("state = %v", state.Value)
	}
}

func TestInventoryMaxCriticality(t *testing.T) {
	g := mapInventory(t, fixtureDoc())
	props := g.Root.Child("components").Children[0].Child("props")

	var crit *types.TargetNode
	for _, p := range props.Children {
		if p.Child("name").Value == "max-criticality" {
			crit = p.Child("value")
		}
	}
	if crit == nil {
		t.Fatal("no max-criticality prop")
	}
	if crit.Value != "High" {
		t.Errorf("max-criticality = %v", crit.Value)
	}
	if crit.Origin.Kind != types.OriginSourced || crit.Origin.Pointer.Row != 2 {
		t.Errorf("max-criticality should trace to the High cell: %+v", crit.Origin)
	}
}

func TestInventoryResponsibleRoleSynthesized(t *testing.T) {
	g := mapInventory(t, fixtureDoc())
	roles := g.Root.Child("components").Children[0].Child("responsible-roles")

	role := roles.Children[0].Child("role-id")
	if role.Value != "asset-owner" || role.Origin.Kind != types.OriginSynthesized {
		t.Errorf("role-id = %+v", role)
	}
}

func TestInventoryUnsynthesizableRole(t *testing.T) {
	synth := testSynth()
	delete(synth.Values, "inventory.responsible-role")

	m := &InventoryMapper{synth: synth}
	g, diags, err := m.Map(fixtureDoc())
	if err == nil || g != nil {
		t.Fatal("expected failure without the responsible-role default")
	}
	if diags.Count(types.SeverityFatal) == 0 {
		t.Errorf("expected fatal diagnostic, got %v", diags)
	}
}
