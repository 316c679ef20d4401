// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapper

import (
	"strings"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

// AssessmentMapper builds the assessment-plan artifact: reviewed controls
// from the extracted control records, assessment subjects from the
// inventory, and terms from the narrative sections.
type AssessmentMapper struct {
	synth types.SynthesisDefaults
}

func (m *AssessmentMapper) Kind() types.ArtifactKind { return types.KindAssessment }

func (m *AssessmentMapper) Map(doc *types.CIRDocument) (*types.TargetDocumentGraph, types.Diagnostics, error) {
	b := &builder{kind: types.KindAssessment, synth: m.synth}

	root := types.Object("assessment-plan",
		types.StructuralLeaf("uuid", StableID(types.KindAssessment, doc.Metadata.SourceFile, 0)),
		oscalMetadata(
			types.StructuralLeaf("title", "Security Assessment Plan"),
			doc.Metadata,
			structuralProp("document-type", "assessment-plan"),
		),
		types.Object("import-ssp", b.synthLeaf("href", "assessment.import-ssp")),
		m.termsAndConditions(b, doc.Sections),
		m.reviewedControls(doc),
		m.assessmentSubjects(doc),
		backMatter(types.KindAssessment, []types.CIRMetadata{doc.Metadata}),
	)
	return b.finish(root)
}

func (m *AssessmentMapper) termsAndConditions(b *builder, sections []types.Section) *types.TargetNode {
	if s := sectionByKeywords(sections, "terms and conditions", "assumptions", "constraints", "limitations"); s != nil && s.Body != "" {
		return types.Object("terms-and-conditions",
			types.SourcedLeaf("description", s.Body, s.Origin))
	}
	return types.Object("terms-and-conditions",
		b.synthLeaf("description", "assessment.terms"))
}

// reviewedControls selects every control the plan's source document
// implements. An empty control set is legal; the selection then covers the
// imported baseline.
func (m *AssessmentMapper) reviewedControls(doc *types.CIRDocument) *types.TargetNode {
	include := types.Arr("include-controls")
	for i := range doc.ControlRecords {
		rec := &doc.ControlRecords[i]
		include.Add(types.Object("",
			types.SourcedLeaf("control-id", strings.ToLower(rec.ControlID), rec.Origin),
		))
	}

	selection := types.Object("",
		types.StructuralLeaf("description", "Controls implemented by the system under assessment."),
	)
	if len(include.Children) > 0 {
		selection.Add(include)
	} else {
		selection.Add(types.StructuralLeaf("include-all", map[string]any{}))
	}

	return types.Object("reviewed-controls",
		types.Arr("control-selections", selection))
}

// assessmentSubjects lists the inventory components in scope.
func (m *AssessmentMapper) assessmentSubjects(doc *types.CIRDocument) *types.TargetNode {
	includes := types.Arr("include-subjects")
	for i, group := range groupAssets(doc.TabularRecords[types.TabularInventory]) {
		node := types.Object("",
			types.StructuralLeaf("subject-uuid", StableID(types.KindAssessment, "subject|"+group.name, i)),
			types.StructuralLeaf("type", "component"),
		)
		includes.Add(node)
	}

	subject := types.Object("",
		types.StructuralLeaf("type", "component"),
	)
	if len(includes.Children) > 0 {
		subject.Add(includes)
	} else {
		subject.Add(types.StructuralLeaf("include-all", map[string]any{}))
	}

	return types.Arr("assessment-subjects", subject)
}
