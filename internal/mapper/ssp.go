// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapper

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/oscal-engine/internal/controls"
	"github.com/pdiddy/oscal-engine/pkg/types"
)

// SSPMapper builds the system-security-plan artifact: system
// characteristics and FIPS-199 categorization from the narrative document,
// implementation inventory from the spreadsheet records, and one
// implemented-requirement per extracted control.
type SSPMapper struct {
	synth types.SynthesisDefaults
}

func (m *SSPMapper) Kind() types.ArtifactKind { return types.KindSSP }

func (m *SSPMapper) Map(doc *types.CIRDocument) (*types.TargetDocumentGraph, types.Diagnostics, error) {
	b := &builder{kind: types.KindSSP, synth: m.synth}
	info := extractSystemInfo(doc)

	root := types.Object("system-security-plan",
		types.StructuralLeaf("uuid", StableID(types.KindSSP, doc.Metadata.SourceFile, 0)),
		oscalMetadata(b.sourcedOrSynth("title", info.systemName, "ssp.system-name"), doc.Metadata),
		m.importProfile(b),
		m.systemCharacteristics(b, doc, info),
		m.systemImplementation(b, doc),
		m.controlImplementation(doc),
		backMatter(types.KindSSP, []types.CIRMetadata{doc.Metadata}),
	)
	return b.finish(root)
}

// importProfile references the control baseline the plan is written
// against. The baseline is never stated in the narrative, so the href is
// always a synthesis default.
func (m *SSPMapper) importProfile(b *builder) *types.TargetNode {
	return types.Object("import-profile", b.synthLeaf("href", "ssp.import-profile"))
}

func (m *SSPMapper) systemCharacteristics(b *builder, doc *types.CIRDocument, info systemInfo) *types.TargetNode {
	systemID := types.Object("",
		types.StructuralLeaf("identifier-type", "https://ietf.org/rfc/rfc4122"),
	)
	if info.systemID.Value != "" {
		systemID.Add(types.SourcedLeaf("id", info.systemID.Value, info.systemID.Origin))
	} else {
		systemID.Add(types.StructuralLeaf("id", StableID(types.KindSSP, doc.Metadata.SourceFile, 1)))
	}

	chars := types.Object("system-characteristics",
		types.Arr("system-ids", systemID),
		b.sourcedOrSynth("system-name", info.systemName, "ssp.system-name"),
		b.sourcedOrSynth("description", info.description, "ssp.description"),
	)

	if info.fips.overall.Value != "" {
		chars.Add(types.SourcedLeaf("security-sensitivity-level",
			strings.ToLower(info.fips.overall.Value), info.fips.overall.Origin))
		chars.Add(types.Object("security-impact-level",
			b.impactLeaf("security-objective-confidentiality", info.fips.confidentiality),
			b.impactLeaf("security-objective-integrity", info.fips.integrity),
			b.impactLeaf("security-objective-availability", info.fips.availability),
		))
	} else {
		chars.Add(b.synthLeaf("security-sensitivity-level", "ssp.security-sensitivity-level"))
	}

	chars.Add(
		types.Object("status", b.synthLeaf("state", "ssp.status")),
		m.systemInformation(b, info),
		m.boundedDescription(b, doc.Sections, "authorization-boundary",
			"ssp.authorization-boundary", "authorization boundary", "system boundary"),
		m.boundedDescription(b, doc.Sections, "network-architecture",
			"ssp.network-architecture", "network architecture", "system architecture"),
		m.boundedDescription(b, doc.Sections, "data-flow",
			"ssp.data-flow", "data flow", "information flow"),
	)
	return chars
}

// impactLeaf renders one security objective. A categorization section may
// state only the overall impact; objectives it never states fall back to
// the configured default rather than emitting an empty sourced value.
func (b *builder) impactLeaf(key string, v types.Provenanced[string]) *types.TargetNode {
	if v.Value == "" {
		return b.synthLeaf(key, "ssp.default-impact")
	}
	return types.SourcedLeaf(key, strings.ToLower(v.Value), v.Origin)
}

// systemInformation guarantees at least one information type, which the
// target schema requires even when the narrative declares none.
func (m *SSPMapper) systemInformation(b *builder, info systemInfo) *types.TargetNode {
	infoTypes := types.Arr("information-types")

	if info.fips.overall.Value != "" {
		infoTypes.Add(types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindSSP, "information-type", 0)),
			b.sourcedOrSynth("title", info.systemName, "ssp.system-name"),
			types.Object("confidentiality-impact", b.impactLeaf("base", info.fips.confidentiality)),
			types.Object("integrity-impact", b.impactLeaf("base", info.fips.integrity)),
			types.Object("availability-impact", b.impactLeaf("base", info.fips.availability)),
		))
	} else {
		impact := b.synthLeaf("base", "ssp.default-impact")
		infoTypes.Add(types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindSSP, "information-type", 0)),
			b.synthLeaf("title", "ssp.information-type"),
			types.Object("confidentiality-impact", impact),
			types.Object("integrity-impact", b.synthLeaf("base", "ssp.default-impact")),
			types.Object("availability-impact", b.synthLeaf("base", "ssp.default-impact")),
		))
	}

	return types.Object("system-information", infoTypes)
}

// boundedDescription fills a characteristics sub-section from the first
// matching narrative section, falling back to the configured default.
func (m *SSPMapper) boundedDescription(b *builder, sections []types.Section, key, synthKey string, keywords ...string) *types.TargetNode {
	if s := sectionByKeywords(sections, keywords...); s != nil && s.Body != "" {
		return types.Object(key, types.SourcedLeaf("description", s.Body, s.Origin))
	}
	return types.Object(key, b.synthLeaf("description", synthKey))
}

func (m *SSPMapper) systemImplementation(b *builder, doc *types.CIRDocument) *types.TargetNode {
	return types.Object("system-implementation",
		m.users(b, doc),
		m.components(doc),
		m.inventoryItems(doc),
	)
}

// users derives the user list from the responsible roles declared across
// control statements. Each unique role becomes one user entry tracing to
// the statement that first declared it.
func (m *SSPMapper) users(b *builder, doc *types.CIRDocument) *types.TargetNode {
	users := types.Arr("users")
	seen := make(map[string]bool)

	for i := range doc.ControlRecords {
		for _, role := range doc.ControlRecords[i].ResponsibleRoles {
			key := strings.ToLower(role.Value)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			users.Add(types.Object("",
				types.StructuralLeaf("uuid", StableID(types.KindSSP, "user|"+key, 0)),
				types.SourcedLeaf("title", role.Value, role.Origin),
				types.Arr("role-ids",
					types.SourcedLeaf("", roleID(role.Value), role.Origin)),
			))
		}
	}

	if len(users.Children) == 0 {
		if leaf := b.synthLeaf("title", "ssp.default-user"); leaf != nil {
			users.Add(types.Object("",
				types.StructuralLeaf("uuid", StableID(types.KindSSP, "user|default", 0)),
				leaf,
			))
		}
	}
	return users
}

var roleIDRe = regexp.MustCompile(`[^a-z0-9]+`)

func roleID(role string) string {
	return strings.Trim(roleIDRe.ReplaceAllString(strings.ToLower(role), "-"), "-")
}

// components summarizes the inventory by asset type. Detailed component
// grouping lives in the component-definition artifact; the plan carries
// the per-type rollup the schema expects.
func (m *SSPMapper) components(doc *types.CIRDocument) *types.TargetNode {
	components := types.Arr("components")

	assets := doc.TabularRecords[types.TabularInventory]
	byType := make(map[string][]*types.TabularRecord)
	for i := range assets {
		t := assets[i].Field("asset_type")
		if t == "" {
			t = "other"
		}
		byType[t] = append(byType[t], &assets[i])
	}

	assetTypes := make([]string, 0, len(byType))
	for t := range byType {
		assetTypes = append(assetTypes, t)
	}
	sort.Strings(assetTypes)

	for i, t := range assetTypes {
		group := byType[t]
		comp := types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindSSP, "component|"+t, i)),
			types.StructuralLeaf("type", componentType(t)),
			types.StructuralLeaf("title", titleCase(t)+" Components"),
			types.StructuralLeaf("description", "Inventory assets of type "+t),
			types.Object("status", types.StructuralLeaf("state", "operational")),
		)
		if v, ok := group[0].Fields["asset_type"]; ok {
			comp.Add(types.Arr("props", sourcedProp("asset-type", v)))
		}
		components.Add(comp)
	}
	return components
}

func (m *SSPMapper) inventoryItems(doc *types.CIRDocument) *types.TargetNode {
	items := types.Arr("inventory-items")

	for i, rec := range doc.TabularRecords[types.TabularInventory] {
		item := types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindSSP, rec.Origin.ArtifactPath+"|item", i)),
		)
		if v, ok := rec.Fields["description"]; ok {
			item.Add(types.SourcedLeaf("description", v.Value, v.Origin))
		} else if v, ok := rec.Fields["name"]; ok {
			item.Add(types.SourcedLeaf("description", v.Value, v.Origin))
		} else {
			item.Add(types.StructuralLeaf("description", rec.RecordID))
		}

		props := types.Arr("props")
		for _, field := range []string{"asset_id", "asset_type", "environment", "criticality", "ip_address"} {
			if v, ok := rec.Fields[field]; ok {
				props.Add(sourcedProp(strings.ReplaceAll(field, "_", "-"), v))
			}
		}
		if len(props.Children) > 0 {
			item.Add(props)
		}
		items.Add(item)
	}
	return items
}

func (m *SSPMapper) controlImplementation(doc *types.CIRDocument) *types.TargetNode {
	reqs := types.Arr("implemented-requirements")
	covered := make(map[string]bool)
	matrixRoles := rolesByControl(doc.TabularRecords[types.TabularResponsibility])

	for i := range doc.ControlRecords {
		rec := &doc.ControlRecords[i]
		covered[rec.ControlID] = true

		req := types.Object("",
			types.StructuralLeaf("uuid", StableID(types.KindSSP, "requirement|"+rec.ControlID, 0)),
			types.SourcedLeaf("control-id", strings.ToLower(rec.ControlID), rec.Origin),
			types.Arr("props",
				sourcedProp("implementation-status",
					types.Prov(implementationStatus(rec.Status), rec.Origin))),
		)
		if roles := matrixRoles[rec.ControlID]; len(roles) > 0 {
			rr := types.Arr("responsible-roles")
			for _, role := range roles {
				rr.Add(types.Object("",
					types.SourcedLeaf("role-id", roleID(role.Value), role.Origin)))
			}
			req.Add(rr)
		}
		if rec.Narrative.Value != "" {
			req.Add(types.Arr("statements", types.Object("",
				types.StructuralLeaf("statement-id", strings.ToLower(rec.ControlID)+"_stmt"),
				types.StructuralLeaf("uuid", StableID(types.KindSSP, "statement|"+rec.ControlID, 0)),
				types.SourcedLeaf("remarks", rec.Narrative.Value, rec.Narrative.Origin),
			)))
		}
		reqs.Add(req)
	}

	// Controls cited only by POA&M entries get partially-implemented stubs
	// so the plan and the POA&M agree on control coverage. Citations are
	// canonicalized before comparison; a lowercase spelling never doubles
	// up a requirement the document already implements.
	for _, rec := range doc.TabularRecords[types.TabularPOAM] {
		for _, ref := range rec.Lists["control_ids"] {
			id := controls.NormalizeID(ref.Value)
			if id == "" || covered[id] {
				continue
			}
			covered[id] = true
			reqs.Add(types.Object("",
				types.StructuralLeaf("uuid", StableID(types.KindSSP, "requirement|"+id, 0)),
				types.SourcedLeaf("control-id", strings.ToLower(id), ref.Origin),
				types.Arr("props",
					structuralProp("implementation-status", "partially-implemented")),
				types.Arr("statements", types.Object("",
					types.StructuralLeaf("statement-id", strings.ToLower(id)+"_stmt"),
					types.StructuralLeaf("uuid", StableID(types.KindSSP, "statement|"+id, 0)),
					types.SynthesizedLeaf("remarks",
						"Control "+id+" has open remediation items; see the plan of action and milestones.",
						"control cited only by remediation records; stub statement injected"),
				)),
			))
		}
	}

	return types.Object("control-implementation",
		types.StructuralLeaf("description", "Control implementation statements extracted from the source system security plan."),
		reqs,
	)
}

// rolesByControl indexes responsibility-matrix entries by the controls they
// cite. A single responsible party still yields a one-element list; the
// target field is always a collection.
func rolesByControl(records []types.TabularRecord) map[string][]types.Provenanced[string] {
	index := make(map[string][]types.Provenanced[string])
	for i := range records {
		role, ok := records[i].Fields["role"]
		if !ok || role.Value == "" {
			continue
		}
		for _, ref := range records[i].Lists["control_ids"] {
			id := controls.NormalizeID(ref.Value)
			if id == "" {
				continue
			}
			index[id] = append(index[id], role)
		}
	}
	return index
}

// systemInfo holds the narrative facts the characteristics section needs.
type systemInfo struct {
	systemName  types.Provenanced[string]
	systemID    types.Provenanced[string]
	description types.Provenanced[string]
	fips        fips199
}

type fips199 struct {
	confidentiality types.Provenanced[string]
	integrity       types.Provenanced[string]
	availability    types.Provenanced[string]
	overall         types.Provenanced[string]
}

func (f fips199) empty() bool {
	return f.confidentiality.Value == "" && f.integrity.Value == "" &&
		f.availability.Value == "" && f.overall.Value == ""
}

// Labels the bundled rule tables assign to the sections this mapper reads.
const (
	labelSystemDescription = "system-description"
	labelCategorization    = "categorization"
)

var fipsRes = map[string]*regexp.Regexp{
	"confidentiality": regexp.MustCompile(`(?i)confidentiality\s*:?\s*(\w+)`),
	"integrity":       regexp.MustCompile(`(?i)integrity\s*:?\s*(\w+)`),
	"availability":    regexp.MustCompile(`(?i)availability\s*:?\s*(\w+)`),
	"overall":         regexp.MustCompile(`(?i)overall\s+impact\s*:?\s*(\w+)`),
}

// extractSystemInfo reads the system identity facts. Classified sections
// are consulted first; the heading-keyword scan below covers documents
// whose rule table never labeled them.
func extractSystemInfo(doc *types.CIRDocument) systemInfo {
	var info systemInfo

	for _, s := range doc.SectionsLabeled(labelSystemDescription) {
		if v := extractFieldValue(s.Body, "system name", "name"); v != "" && info.systemName.Value == "" {
			info.systemName = types.Prov(v, s.Origin)
		}
		if v := extractFieldValue(s.Body, "system id", "identifier"); v != "" && info.systemID.Value == "" {
			info.systemID = types.Prov(v, s.Origin)
		}
	}
	if labeled := doc.SectionsLabeled(labelCategorization); len(labeled) > 0 {
		info.fips = extractFIPS199(&labeled[0])
	}

	for i := range doc.Sections {
		s := &doc.Sections[i]
		heading := strings.ToLower(s.Heading)

		switch {
		case strings.Contains(heading, "system name") || strings.Contains(heading, "information system"):
			if v := extractFieldValue(s.Body, "system name", "name"); v != "" && info.systemName.Value == "" {
				info.systemName = types.Prov(v, s.Origin)
			}
		case strings.Contains(heading, "system id") || strings.Contains(heading, "identifier"):
			if v := extractFieldValue(s.Body, "system id", "identifier", "id"); v != "" && info.systemID.Value == "" {
				info.systemID = types.Prov(v, s.Origin)
			}
		case strings.Contains(heading, "fips") && strings.Contains(heading, "199"):
			if info.fips.empty() {
				info.fips = extractFIPS199(s)
			}
		case strings.Contains(heading, "description") || strings.Contains(heading, "overview"):
			if info.description.Value == "" && s.Body != "" {
				info.description = types.Prov(s.Body, s.Origin)
			}
		}
	}
	return info
}

func extractFIPS199(s *types.Section) fips199 {
	pick := func(key string) types.Provenanced[string] {
		if m := fipsRes[key].FindStringSubmatch(s.Body); m != nil {
			return types.Prov(m[1], s.Origin)
		}
		return types.Provenanced[string]{}
	}
	return fips199{
		confidentiality: pick("confidentiality"),
		integrity:       pick("integrity"),
		availability:    pick("availability"),
		overall:         pick("overall"),
	}
}
