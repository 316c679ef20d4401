// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapper

import (
	"sort"
	"strings"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

// POAMMapper builds the plan-of-action-and-milestones artifact from the
// POA&M tabular records. The target schema restricts poam-item properties
// to "marking", so the per-row facts are consolidated into one marking
// string tracing to the source row.
type POAMMapper struct {
	synth types.SynthesisDefaults
}

func (m *POAMMapper) Kind() types.ArtifactKind { return types.KindPOAM }

func (m *POAMMapper) Map(doc *types.CIRDocument) (*types.TargetDocumentGraph, types.Diagnostics, error) {
	b := &builder{kind: types.KindPOAM, synth: m.synth}
	records := doc.TabularRecords[types.TabularPOAM]

	root := types.Object("plan-of-action-and-milestones",
		types.StructuralLeaf("uuid", StableID(types.KindPOAM, doc.Metadata.SourceFile, 0)),
		oscalMetadata(
			types.StructuralLeaf("title", "Plan of Action and Milestones"),
			doc.Metadata,
		),
		types.Object("system-id",
			types.StructuralLeaf("identifier-type", "https://ietf.org/rfc/rfc4122"),
			types.StructuralLeaf("id", StableID(types.KindPOAM, doc.Metadata.SourceFile, 1)),
		),
		m.localDefinitions(records),
		m.poamItems(records),
		backMatter(types.KindPOAM, []types.CIRMetadata{doc.Metadata}),
	)
	return b.finish(root)
}

// localDefinitions declares one component per unique asset cited across the
// remediation records.
func (m *POAMMapper) localDefinitions(records []types.TabularRecord) *types.TargetNode {
	byAsset := make(map[string]types.Provenanced[string])
	for i := range records {
		if v, ok := records[i].Fields["asset_id"]; ok && v.Value != "" {
			if _, seen := byAsset[v.Value]; !seen {
				byAsset[v.Value] = v
			}
		}
	}

	assets := make([]string, 0, len(byAsset))
	for id := range byAsset {
		assets = append(assets, id)
	}
	sort.Strings(assets)

	components := types.Arr("components")
	for i, id := range assets {
		v := byAsset[id]
		components.Add(types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindPOAM, "component|"+id, i)),
			types.StructuralLeaf("type", "software"),
			types.SourcedLeaf("title", v.Value, v.Origin),
			types.StructuralLeaf("description", "Component referenced by remediation records: "+id),
			types.Object("status", types.StructuralLeaf("state", "operational")),
		))
	}

	if len(components.Children) == 0 {
		return types.Object("local-definitions")
	}
	return types.Object("local-definitions", components)
}

func (m *POAMMapper) poamItems(records []types.TabularRecord) *types.TargetNode {
	items := types.Arr("poam-items")

	for i := range records {
		rec := &records[i]
		item := types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindPOAM, rec.Origin.ArtifactPath+"|"+rec.RecordID, i)),
		)

		if v, ok := rec.Fields["weakness_name"]; ok {
			item.Add(types.SourcedLeaf("title", v.Value, v.Origin))
		} else {
			item.Add(types.StructuralLeaf("title", rec.RecordID))
		}

		if v, ok := rec.Fields["description"]; ok {
			item.Add(types.SourcedLeaf("description", v.Value, v.Origin))
		} else if v, ok := rec.Fields["weakness_name"]; ok {
			item.Add(types.SourcedLeaf("description", v.Value, v.Origin))
		} else {
			item.Add(types.StructuralLeaf("description", "Remediation item "+rec.RecordID))
		}

		if marking := markingValue(rec); marking != "" {
			item.Add(types.Arr("props",
				sourcedProp("marking", types.Prov(marking, rec.Origin))))
		}

		if ms := m.milestones(rec, i); ms != nil {
			item.Add(ms)
		}

		items.Add(item)
	}
	return items
}

// markingValue consolidates the row's facts into the single property the
// schema permits on a poam-item.
func markingValue(rec *types.TabularRecord) string {
	var parts []string
	add := func(label, field string) {
		if v := rec.Field(field); v != "" {
			parts = append(parts, label+":"+v)
		}
	}
	add("poam-id", "poam_id")
	add("severity", "severity")
	add("status", "status")
	add("scheduled-completion-date", "scheduled_completion")
	add("actual-completion-date", "actual_completion")
	add("affected-asset", "asset_id")

	if refs := rec.Lists["control_ids"]; len(refs) > 0 {
		ids := make([]string, 0, len(refs))
		for _, r := range refs {
			ids = append(ids, r.Value)
		}
		parts = append(parts, "related-controls:"+strings.Join(ids, ","))
	}
	return strings.Join(parts, "; ")
}

func (m *POAMMapper) milestones(rec *types.TabularRecord, itemIndex int) *types.TargetNode {
	if len(rec.Milestones) == 0 {
		return nil
	}
	out := types.Arr("milestones")
	for j, ms := range rec.Milestones {
		node := types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindPOAM, rec.RecordID+"|milestone", itemIndex*100+j)),
			types.SourcedLeaf("title", ms.Description.Value, ms.Description.Origin),
			types.SourcedLeaf("description", ms.Description.Value, ms.Description.Origin),
		)
		if ms.ScheduledDate.Value != "" {
			node.Add(types.SourcedLeaf("target-date", ms.ScheduledDate.Value, ms.ScheduledDate.Origin))
		}
		if ms.Status.Value != "" {
			node.Add(types.Arr("props", sourcedProp("milestone-status", ms.Status)))
		}
		out.Add(node)
	}
	return out
}
