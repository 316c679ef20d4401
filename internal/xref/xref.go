// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xref links remediation records across the emitted artifact
// graphs after all kinds have mapped: each POA&M control citation is
// resolved to the matching implemented-requirement in the system security
// plan, and each asset citation to the matching inventory item. Resolution
// runs strictly after the mapping barrier so it sees every graph or none.
// See docs/ARCHITECTURE § Cross-referencing.
package xref

import (
	"strings"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

const stage = "xref"

// RefKind distinguishes what a link points at.
type RefKind string

const (
	RefControl RefKind = "control"
	RefAsset   RefKind = "asset"
)

// Link is one resolved cross-artifact reference.
type Link struct {
	// RecordID is the citing POA&M record.
	RecordID string `json:"record_id" yaml:"record_id"`

	Kind RefKind `json:"kind" yaml:"kind"`

	// Ref is the cited identifier as it appears in the record.
	Ref string `json:"ref" yaml:"ref"`

	// TargetKind is the artifact the reference resolved into.
	TargetKind types.ArtifactKind `json:"target_kind" yaml:"target_kind"`

	// TargetUUID is the resolved node's identifier within that artifact.
	TargetUUID string `json:"target_uuid" yaml:"target_uuid"`
}

// Resolve links the POA&M records against the other graphs. Graphs for
// failed artifact kinds may be absent; references into an absent graph are
// skipped rather than reported, since the kind's own failure already
// carries its diagnostics.
func Resolve(doc *types.CIRDocument, graphs map[types.ArtifactKind]*types.TargetDocumentGraph) ([]Link, types.Diagnostics) {
	var links []Link
	var diags types.Diagnostics

	controlUUIDs := indexRequirements(graphs[types.KindSSP])
	assetUUIDs := indexInventoryItems(graphs[types.KindSSP])

	for i := range doc.TabularRecords[types.TabularPOAM] {
		rec := &doc.TabularRecords[types.TabularPOAM][i]

		if controlUUIDs != nil {
			for _, ref := range rec.Lists["control_ids"] {
				id := strings.ToLower(ref.Value)
				uuid, ok := controlUUIDs[id]
				if !ok {
					ptr := ref.Origin
					diags.Warn(stage, types.CodeReferentialViolation, &ptr,
						"record %q cites control %q with no implemented-requirement in the plan",
						rec.RecordID, ref.Value)
					continue
				}
				links = append(links, Link{
					RecordID: rec.RecordID, Kind: RefControl, Ref: ref.Value,
					TargetKind: types.KindSSP, TargetUUID: uuid,
				})
			}
		}

		if assetUUIDs != nil {
			if v, ok := rec.Fields["asset_id"]; ok && v.Value != "" {
				uuid, ok := assetUUIDs[v.Value]
				if !ok {
					ptr := v.Origin
					diags.Warn(stage, types.CodeReferentialViolation, &ptr,
						"record %q cites asset %q with no inventory item in the plan",
						rec.RecordID, v.Value)
					continue
				}
				links = append(links, Link{
					RecordID: rec.RecordID, Kind: RefAsset, Ref: v.Value,
					TargetKind: types.KindSSP, TargetUUID: uuid,
				})
			}
		}
	}
	return links, diags
}

// indexRequirements maps lowercase control IDs to requirement UUIDs in the
// plan's control-implementation.
func indexRequirements(ssp *types.TargetDocumentGraph) map[string]string {
	if ssp == nil {
		return nil
	}
	impl := ssp.Root.Child("control-implementation")
	if impl == nil {
		return nil
	}
	reqs := impl.Child("implemented-requirements")
	if reqs == nil {
		return nil
	}

	index := make(map[string]string, len(reqs.Children))
	for _, req := range reqs.Children {
		id, ok := leafString(req.Child("control-id"))
		if !ok {
			continue
		}
		if uuid, ok := leafString(req.Child("uuid")); ok {
			index[strings.ToLower(id)] = uuid
		}
	}
	return index
}

// indexInventoryItems maps asset-id property values to inventory item
// UUIDs in the plan's system-implementation.
func indexInventoryItems(ssp *types.TargetDocumentGraph) map[string]string {
	if ssp == nil {
		return nil
	}
	impl := ssp.Root.Child("system-implementation")
	if impl == nil {
		return nil
	}
	items := impl.Child("inventory-items")
	if items == nil {
		return nil
	}

	index := make(map[string]string, len(items.Children))
	for _, item := range items.Children {
		uuid, ok := leafString(item.Child("uuid"))
		if !ok {
			continue
		}
		props := item.Child("props")
		if props == nil {
			continue
		}
		for _, p := range props.Children {
			name, _ := leafString(p.Child("name"))
			if name != "asset-id" {
				continue
			}
			if v, ok := leafString(p.Child("value")); ok {
				index[v] = uuid
			}
		}
	}
	return index
}

func leafString(n *types.TargetNode) (string, bool) {
	if n == nil {
		return "", false
	}
	s, ok := n.Value.(string)
	return s, ok
}
