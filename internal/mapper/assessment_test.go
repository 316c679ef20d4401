// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapper

import (
	"testing"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

func TestAssessmentReviewedControls(t *testing.T) {
	m := &AssessmentMapper{synth: testSynth()}
	g, diags, err := m.Map(fixtureDoc())
	if err != nil {
		t.Fatalf("Map: %v (diags: %v)", err, diags)
	}

	selections := g.Root.Child("reviewed-controls").Child("control-selections")
	include := selections.Children[0].Child("include-controls")
	if len(include.Children) != 2 {
		t.Fatalf("expected 2 reviewed controls, got %d", len(include.Children))
	}
	first := include.Children[0].Child("control-id")
	if first.Value != "ac-2" || first.Origin.Kind != types.OriginSourced {
		t.Errorf("control-id = %+v", first)
	}
}

func TestAssessmentIncludeAllWithoutControls(t *testing.T) {
	doc := fixtureDoc()
	doc.ControlRecords = nil

	m := &AssessmentMapper{synth: testSynth()}
	g, _, err := m.Map(doc)
	if err != nil {
		t.Fatal(err)
	}

	selection := g.Root.Child("reviewed-controls").Child("control-selections").Children[0]
	if selection.Child("include-all") == nil {
		t.Error("empty control set should fall back to include-all")
	}
}

func TestAssessmentSubjectsFromInventory(t *testing.T) {
	m := &AssessmentMapper{synth: testSynth()}
	g, _, err := m.Map(fixtureDoc())
	if err != nil {
		t.Fatal(err)
	}

	subjects := g.Root.Child("assessment-subjects")
	include := subjects.Children[0].Child("include-subjects")
	if include == nil || len(include.Children) != 1 {
		t.Fatalf("expected one component subject, got %+v", include)
	}
}

func TestAssessmentImportSSPSynthesized(t *testing.T) {
	m := &AssessmentMapper{synth: testSynth()}
	g, _, err := m.Map(fixtureDoc())
	if err != nil {
		t.Fatal(err)
	}

	href := g.Root.Child("import-ssp").Child("href")
	if href.Value != "./ssp.json" || href.Origin.Kind != types.OriginSynthesized {
		t.Errorf("href = %+v", href)
	}
}
