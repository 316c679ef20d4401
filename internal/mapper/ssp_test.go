// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapper

import (
	"strings"
	"testing"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

func mapSSP(t *testing.T, doc *types.CIRDocument, synth types.SynthesisDefaults) *types.TargetDocumentGraph {
	t.Helper()
	m := &SSPMapper{synth: synth}
	g, diags, err := m.Map(doc)
	if err != nil {
		t.Fatalf("Map: %v (diags: %v)", err, diags)
	}
	return g
}

func TestSSPSystemNameSourced(t *testing.T) {
	g := mapSSP(t, fixtureDoc(), testSynth())

	chars := g.Root.Child("system-characteristics")
	if chars == nil {
		t.Fatal("no system-characteristics")
	}
	name := chars.Child("system-name")
	if name == nil || name.Value != "Payroll Processing System" {
		t.Fatalf("system-name = %+v", name)
	}
	if name.Origin.Kind != types.OriginSourced {
		t.Errorf("system-name origin = %s, want sourced", name.Origin.Kind)
	}
	if name.Origin.Pointer == nil || name.Origin.Pointer.ArtifactPath != "ssp.docx" {
		t.Errorf("system-name pointer = %+v", name.Origin.Pointer)
	}
}

func TestSSPFIPS199Mapped(t *testing.T) {
	g := mapSSP(t, fixtureDoc(), testSynth())
	chars := g.Root.Child("system-characteristics")

	level := chars.Child("security-sensitivity-level")
	if level == nil || level.Value != "high" {
		t.Fatalf("security-sensitivity-level = %+v", level)
	}
	if level.Origin.Kind != types.OriginSourced {
		t.Errorf("sensitivity level should be sourced, got %s", level.Origin.Kind)
	}

	impact := chars.Child("security-impact-level")
	if impact == nil {
		t.Fatal("no security-impact-level")
	}
	integ := impact.Child("security-objective-integrity")
	if integ == nil || integ.Value != "high" {
		t.Errorf("integrity objective = %+v", integ)
	}
}

func TestSSPSynthesizedFallbacks(t *testing.T) {
	doc := fixtureDoc()
	doc.Sections = nil // no narrative facts at all

	g := mapSSP(t, doc, testSynth())
	chars := g.Root.Child("system-characteristics")

	name := chars.Child("system-name")
	if name.Value != "Unnamed System" {
		t.Fatalf("system-name = %v", name.Value)
	}
	if name.Origin.Kind != types.OriginSynthesized {
		t.Errorf("fallback name should be synthesized, got %s", name.Origin.Kind)
	}
	if name.Origin.Reason == "" {
		t.Error("synthesized leaf must carry a reason")
	}

	boundary := chars.Child("authorization-boundary").Child("description")
	if boundary.Origin.Kind != types.OriginSynthesized {
		t.Errorf("boundary should be synthesized without a matching section")
	}
}

func TestSSPUnsynthesizableFatal(t *testing.T) {
	doc := fixtureDoc()
	doc.Sections = nil

	synth := testSynth()
	delete(synth.Values, "ssp.system-name")

	m := &SSPMapper{synth: synth}
	g, diags, err := m.Map(doc)
	if err == nil {
		t.Fatal("expected mapping failure")
	}
	if g != nil {
		t.Error("failed mapping must not return a graph")
	}
	if diags.Count(types.SeverityFatal) == 0 {
		t.Fatalf("expected fatal diagnostic, got %v", diags)
	}
	found := false
	for _, d := range diags {
		if d.Code == types.CodeUnsynthesizable && strings.Contains(d.Message, "ssp.system-name") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostic should name the missing default key: %v", diags)
	}
}

func TestSSPControlImplementation(t *testing.T) {
	g := mapSSP(t, fixtureDoc(), testSynth())

	reqs := g.Root.Child("control-implementation").Child("implemented-requirements")
	if len(reqs.Children) != 3 {
		t.Fatalf("expected AC-2, SI-2, and the POA&M-cited CM-6; got %d requirements", len(reqs.Children))
	}

	byControl := make(map[string]*types.TargetNode)
	for _, req := range reqs.Children {
		byControl[req.Child("control-id").Value.(string)] = req
	}

	ac2 := byControl["ac-2"]
	if ac2 == nil {
		t.Fatal("no ac-2 requirement")
	}
	remarks := ac2.Child("statements").Children[0].Child("remarks")
	if remarks.Origin.Kind != types.OriginSourced {
		t.Errorf("extracted narrative should be sourced, got %s", remarks.Origin.Kind)
	}

	cm6 := byControl["cm-6"]
	if cm6 == nil {
		t.Fatal("POA&M-cited control cm-6 missing from implementation")
	}
	stub := cm6.Child("statements").Children[0].Child("remarks")
	if stub.Origin.Kind != types.OriginSynthesized {
		t.Errorf("stub statement should be synthesized, got %s", stub.Origin.Kind)
	}
	if cm6.Child("control-id").Origin.Pointer.Sheet != "Items" {
		t.Errorf("cm-6 control-id should trace to the POA&M cell: %+v", cm6.Child("control-id").Origin.Pointer)
	}
}

func TestSSPLowercaseCitationNotDuplicated(t *testing.T) {
	doc := fixtureDoc()
	origin := types.CellPointer("poam.xlsx", "Items", 2, "Related Controls")
	doc.TabularRecords[types.TabularPOAM][0].Lists["control_ids"] = []types.Provenanced[string]{
		types.Prov("si-2", origin),
		types.Prov("CM-6", origin),
	}

	g := mapSSP(t, doc, testSynth())
	reqs := g.Root.Child("control-implementation").Child("implemented-requirements")

	si2 := 0
	for _, req := range reqs.Children {
		if req.Child("control-id").Value == "si-2" {
			si2++
		}
	}
	if si2 != 1 {
		t.Fatalf("implemented-requirements for si-2 = %d, want 1", si2)
	}
	if len(reqs.Children) != 3 {
		t.Errorf("expected AC-2, SI-2, and the stub CM-6; got %d requirements", len(reqs.Children))
	}
}

func TestSSPOverallImpactOnlySynthesizesObjectives(t *testing.T) {
	doc := fixtureDoc()
	doc.Sections[1].Body = "Overall Impact: High"

	g := mapSSP(t, doc, testSynth())
	chars := g.Root.Child("system-characteristics")

	level := chars.Child("security-sensitivity-level")
	if level == nil || level.Value != "high" || level.Origin.Kind != types.OriginSourced {
		t.Fatalf("security-sensitivity-level = %+v", level)
	}

	impact := chars.Child("security-impact-level")
	for _, key := range []string{
		"security-objective-confidentiality",
		"security-objective-integrity",
		"security-objective-availability",
	} {
		obj := impact.Child(key)
		if obj == nil || obj.Value != "moderate" {
			t.Fatalf("%s = %+v", key, obj)
		}
		if obj.Origin.Kind != types.OriginSynthesized || obj.Origin.Reason == "" {
			t.Errorf("%s should be a synthesized default, got %+v", key, obj.Origin)
		}
	}

	base := chars.Child("system-information").
		Child("information-types").Children[0].
		Child("confidentiality-impact").Child("base")
	if base.Origin.Kind != types.OriginSynthesized {
		t.Errorf("information-type base should be synthesized, got %s", base.Origin.Kind)
	}

	// No sourced leaf may carry an unresolvable pointer.
	for _, e := range g.Provenance() {
		if e.Origin.Kind == types.OriginSourced {
			if e.Origin.Pointer == nil || e.Origin.Pointer.ArtifactPath == "" {
				t.Errorf("sourced entry %s has no resolvable pointer", e.TargetPath)
			}
		}
	}
}

func TestSSPClassifiedSectionsPreferred(t *testing.T) {
	doc := fixtureDoc()
	doc.Sections[0].Heading = "Part A"
	doc.Sections[0].Label = "system-description"
	doc.Sections[1].Heading = "Security Categorization"
	doc.Sections[1].Label = "categorization"

	g := mapSSP(t, doc, testSynth())
	chars := g.Root.Child("system-characteristics")

	name := chars.Child("system-name")
	if name == nil || name.Value != "Payroll Processing System" {
		t.Fatalf("system-name = %+v", name)
	}
	if name.Origin.Kind != types.OriginSourced {
		t.Errorf("labeled section should source the name, got %s", name.Origin.Kind)
	}

	level := chars.Child("security-sensitivity-level")
	if level == nil || level.Value != "high" {
		t.Fatalf("security-sensitivity-level = %+v, want it read from the labeled section", level)
	}
}

func TestSSPResponsibilityMatrixRoles(t *testing.T) {
	doc := fixtureDoc()
	crmOrigin := types.CellPointer("crm.xlsx", "Matrix", 2, "Responsible Party")
	doc.TabularRecords[types.TabularResponsibility] = []types.TabularRecord{
		{
			RecordID: "crm-row-2",
			Kind:     types.TabularResponsibility,
			Fields: map[string]types.Provenanced[string]{
				"role": types.Prov("Customer", crmOrigin),
			},
			Lists: map[string][]types.Provenanced[string]{
				"control_ids": {types.Prov("AC-2", crmOrigin)},
			},
			Origin: crmOrigin,
		},
	}

	g := mapSSP(t, doc, testSynth())
	reqs := g.Root.Child("control-implementation").Child("implemented-requirements")

	var ac2 *types.TargetNode
	for _, req := range reqs.Children {
		if req.Child("control-id").Value == "ac-2" {
			ac2 = req
		}
	}
	if ac2 == nil {
		t.Fatal("no ac-2 requirement")
	}

	roles := ac2.Child("responsible-roles")
	if roles == nil || len(roles.Children) != 1 {
		t.Fatal("single matrix entry should yield a one-element responsible-roles list")
	}
	roleLeaf := roles.Children[0].Child("role-id")
	if roleLeaf.Value != "customer" {
		t.Errorf("role-id = %v", roleLeaf.Value)
	}
	if roleLeaf.Origin.Kind != types.OriginSourced || roleLeaf.Origin.Pointer.Sheet != "Matrix" {
		t.Errorf("role should trace to the matrix cell: %+v", roleLeaf.Origin)
	}

	// Requirements the matrix never mentions carry no role list.
	for _, req := range reqs.Children {
		if req.Child("control-id").Value != "ac-2" && req.Child("responsible-roles") != nil {
			t.Errorf("%v should have no responsible-roles", req.Child("control-id").Value)
		}
	}
}

func TestSSPUsersFromRoles(t *testing.T) {
	g := mapSSP(t, fixtureDoc(), testSynth())

	users := g.Root.Child("system-implementation").Child("users")
	if len(users.Children) != 1 {
		t.Fatalf("expected one user from declared roles, got %d", len(users.Children))
	}
	title := users.Children[0].Child("title")
	if title.Value != "System Administrator" || title.Origin.Kind != types.OriginSourced {
		t.Errorf("user title = %+v", title)
	}
}

func TestSSPProvenanceDisclosesSynthesis(t *testing.T) {
	doc := fixtureDoc()
	doc.Sections = doc.Sections[:2] // drop the boundary section

	g := mapSSP(t, doc, testSynth())

	synthesized := 0
	for _, e := range g.Provenance() {
		switch e.Origin.Kind {
		case types.OriginSynthesized:
			synthesized++
			if e.Origin.Reason == "" {
				t.Errorf("synthesized entry %s has no reason", e.TargetPath)
			}
			if e.Origin.Pointer != nil {
				t.Errorf("synthesized entry %s carries a pointer", e.TargetPath)
			}
		case types.OriginSourced:
			if e.Origin.Pointer == nil {
				t.Errorf("sourced entry %s has no pointer", e.TargetPath)
			}
		case types.OriginStructural:
			t.Errorf("structural leaf %s leaked into the provenance report", e.TargetPath)
		}
	}
	if synthesized == 0 {
		t.Error("expected synthesized entries for the missing boundary description")
	}
}

func TestSSPPlainGraph(t *testing.T) {
	g := mapSSP(t, fixtureDoc(), testSynth())

	plain, ok := g.Root.Plain().(map[string]any)
	if !ok {
		t.Fatalf("Plain() = %T", g.Root.Plain())
	}
	chars, ok := plain["system-characteristics"].(map[string]any)
	if !ok {
		t.Fatal("characteristics not a map after stripping")
	}
	if chars["system-name"] != "Payroll Processing System" {
		t.Errorf("plain system-name = %v", chars["system-name"])
	}
	ids, ok := chars["system-ids"].([]any)
	if !ok || len(ids) != 1 {
		t.Errorf("system-ids should be a one-element array, got %v", chars["system-ids"])
	}
}
