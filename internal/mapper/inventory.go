// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapper

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

// InventoryMapper builds the component-definition artifact. Assets are
// grouped into logical components by service layer, then function, then
// asset name; each group's operational status follows its environments.
type InventoryMapper struct {
	synth types.SynthesisDefaults
}

func (m *InventoryMapper) Kind() types.ArtifactKind { return types.KindInventory }

// assetTypeMap folds source asset types onto the target component type
// vocabulary.
var assetTypeMap = map[string]string{
	"hardware": "hardware",
	"software": "software",
	"data":     "software",
	"network":  "hardware",
	"service":  "software",
}

func componentType(assetType string) string {
	if t, ok := assetTypeMap[strings.ToLower(assetType)]; ok {
		return t
	}
	return "software"
}

func (m *InventoryMapper) Map(doc *types.CIRDocument) (*types.TargetDocumentGraph, types.Diagnostics, error) {
	b := &builder{kind: types.KindInventory, synth: m.synth}
	records := doc.TabularRecords[types.TabularInventory]

	root := types.Object("component-definition",
		types.StructuralLeaf("uuid", StableID(types.KindInventory, doc.Metadata.SourceFile, 0)),
		oscalMetadata(
			types.StructuralLeaf("title", "System Component Inventory"),
			doc.Metadata,
		),
		m.components(b, records),
		backMatter(types.KindInventory, []types.CIRMetadata{doc.Metadata}),
	)
	return b.finish(root)
}

// componentGroup collects the assets forming one logical component.
type componentGroup struct {
	name    string
	sourced *types.Provenanced[string] // grouping cell, when one exists
	assets  []*types.TabularRecord
}

// groupAssets partitions assets into components. Grouping prefers the
// service layer, then the declared function, then the asset's own name.
func groupAssets(records []types.TabularRecord) []componentGroup {
	index := make(map[string]int)
	var groups []componentGroup

	for i := range records {
		rec := &records[i]
		name, cell := groupKey(rec)

		gi, ok := index[name]
		if !ok {
			gi = len(groups)
			index[name] = gi
			groups = append(groups, componentGroup{name: name, sourced: cell})
		}
		groups[gi].assets = append(groups[gi].assets, rec)
	}
	return groups
}

func groupKey(rec *types.TabularRecord) (string, *types.Provenanced[string]) {
	if v, ok := rec.Fields["service_layer"]; ok && v.Value != "" {
		return v.Value + " Layer", &v
	}
	if v, ok := rec.Fields["function"]; ok && v.Value != "" {
		return v.Value, &v
	}
	if v, ok := rec.Fields["name"]; ok && v.Value != "" {
		return v.Value, &v
	}
	return rec.RecordID, nil
}

func (m *InventoryMapper) components(b *builder, records []types.TabularRecord) *types.TargetNode {
	components := types.Arr("components")

	for i, group := range groupAssets(records) {
		comp := types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindInventory, "component|"+group.name, i)),
			types.StructuralLeaf("type", groupType(group.assets)),
		)
		if group.sourced != nil {
			comp.Add(types.SourcedLeaf("title", group.name, group.sourced.Origin))
		} else {
			comp.Add(types.StructuralLeaf("title", group.name))
		}

		comp.Add(
			m.groupDescription(group),
			types.Object("status", types.StructuralLeaf("state", groupStatus(group.assets))),
			m.groupProps(group.assets),
			types.Arr("responsible-roles", types.Object("",
				b.synthLeaf("role-id", "inventory.responsible-role"),
			)),
		)
		components.Add(comp)
	}
	return components
}

// groupType picks the most common mapped asset type across the group.
func groupType(assets []*types.TabularRecord) string {
	counts := make(map[string]int)
	for _, a := range assets {
		counts[componentType(a.Field("asset_type"))]++
	}
	best, bestN := "software", 0
	keys := make([]string, 0, len(counts))
	for t := range counts {
		keys = append(keys, t)
	}
	sort.Strings(keys)
	for _, t := range keys {
		if counts[t] > bestN {
			best, bestN = t, counts[t]
		}
	}
	return best
}

// groupStatus derives the operational state from the environments the
// group's assets run in.
func groupStatus(assets []*types.TabularRecord) string {
	hasDev := false
	for _, a := range assets {
		switch strings.ToLower(a.Field("environment")) {
		case "production":
			return "operational"
		case "development", "test", "staging":
			hasDev = true
		}
	}
	if hasDev {
		return "under-development"
	}
	return "operational"
}

func (m *InventoryMapper) groupDescription(group componentGroup) *types.TargetNode {
	for _, a := range group.assets {
		if v, ok := a.Fields["description"]; ok && v.Value != "" {
			return types.SourcedLeaf("description", v.Value, v.Origin)
		}
	}
	return types.StructuralLeaf("description",
		"Component containing "+strconv.Itoa(len(group.assets))+" inventory asset(s)")
}

func (m *InventoryMapper) groupProps(assets []*types.TabularRecord) *types.TargetNode {
	props := types.Arr("props",
		structuralProp("asset-count", strconv.Itoa(len(assets))),
	)

	if v, ok := maxCriticality(assets); ok {
		props.Add(sourcedProp("max-criticality", v))
	}

	envSet := make(map[string]bool)
	for _, a := range assets {
		if e := a.Field("environment"); e != "" {
			envSet[e] = true
		}
	}
	if len(envSet) > 0 {
		envs := make([]string, 0, len(envSet))
		for e := range envSet {
			envs = append(envs, e)
		}
		sort.Strings(envs)
		props.Add(structuralProp("environments", strings.Join(envs, ",")))
	}
	return props
}

// criticalityRank orders the severity scale so the group can report its
// highest level.
var criticalityRank = map[string]int{"Low": 1, "Moderate": 2, "High": 3, "Critical": 4}

func maxCriticality(assets []*types.TabularRecord) (types.Provenanced[string], bool) {
	var best types.Provenanced[string]
	bestRank := 0
	for _, a := range assets {
		v, ok := a.Fields["criticality"]
		if !ok {
			continue
		}
		if r := criticalityRank[v.Value]; r > bestRank {
			best, bestRank = v, r
		}
	}
	return best, bestRank > 0
}
