// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mapper turns a validated CIR document into OSCAL target document
// graphs, one sub-mapper per artifact kind. Every leaf the mappers emit
// carries an origin: sourced leaves trace back to the input, synthesized
// leaves carry the configured default and its reason, structural leaves are
// schema scaffolding. Mappers read the CIR and their configuration only, so
// all kinds can map in parallel.
// See docs/ARCHITECTURE § Mapping.
package mapper

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

const (
	stage = "mapper"

	// oscalVersion is the target schema version all artifacts declare.
	oscalVersion = "1.1.3"
)

// Mapper maps one artifact kind. The returned diagnostics are complete even
// when mapping fails; a non-nil error means no usable graph was produced
// for this kind.
type Mapper interface {
	Kind() types.ArtifactKind
	Map(doc *types.CIRDocument) (*types.TargetDocumentGraph, types.Diagnostics, error)
}

// For returns the sub-mapper for kind. The kind set is closed; an unknown
// kind is a programming error surfaced at dispatch.
func For(kind types.ArtifactKind, synth types.SynthesisDefaults) (Mapper, error) {
	switch kind {
	case types.KindSSP:
		return &SSPMapper{synth: synth}, nil
	case types.KindPOAM:
		return &POAMMapper{synth: synth}, nil
	case types.KindInventory:
		return &InventoryMapper{synth: synth}, nil
	case types.KindAssessment:
		return &AssessmentMapper{synth: synth}, nil
	default:
		return nil, fmt.Errorf("no mapper for artifact kind %q", kind)
	}
}

// StableID derives a deterministic UUID-shaped identifier from the artifact
// kind, a source path, and a position. Repeated runs over identical inputs
// produce identical identifiers.
func StableID(kind types.ArtifactKind, path string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", kind, path, index)))
	h := hex.EncodeToString(sum[:16])
	return fmt.Sprintf("%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}

// builder accumulates diagnostics and synthesis state while one sub-mapper
// assembles its graph.
type builder struct {
	kind  types.ArtifactKind
	synth types.SynthesisDefaults
	diags types.Diagnostics
	fatal bool
}

// synthLeaf injects the configured default for synthKey. A mandatory field
// with no configured default is unsynthesizable; the builder marks the
// whole artifact kind failed and returns nil so callers can keep
// assembling (the graph is discarded).
func (b *builder) synthLeaf(key, synthKey string) *types.TargetNode {
	v, ok := b.synth.Value(synthKey)
	if !ok {
		b.fatal = true
		b.diags.Fatal(stage, types.CodeUnsynthesizable, nil,
			"%s: required field %q has no source value and no synthesis default %q",
			b.kind, key, synthKey)
		return nil
	}
	return types.SynthesizedLeaf(key, v, b.synth.Reason(synthKey))
}

// sourcedOrSynth prefers the extracted value and falls back to synthesis.
func (b *builder) sourcedOrSynth(key string, v types.Provenanced[string], synthKey string) *types.TargetNode {
	if v.Value != "" {
		return types.SourcedLeaf(key, v.Value, v.Origin)
	}
	return b.synthLeaf(key, synthKey)
}

func (b *builder) finish(root *types.TargetNode) (*types.TargetDocumentGraph, types.Diagnostics, error) {
	if b.fatal {
		return nil, b.diags, fmt.Errorf("mapping %s: required target fields unsynthesizable", b.kind)
	}
	return &types.TargetDocumentGraph{Kind: b.kind, Root: root}, b.diags, nil
}

// oscalMetadata builds the shared metadata section. The title node is
// supplied by the caller since its provenance differs per artifact.
func oscalMetadata(title *types.TargetNode, meta types.CIRMetadata, extraProps ...*types.TargetNode) *types.TargetNode {
	ts := meta.ExtractionDate.UTC().Format(time.RFC3339)

	props := types.Arr("props",
		structuralProp("source-file", meta.SourceFile),
		structuralProp("source-type", meta.SourceType),
		structuralProp("extraction-date", ts),
		structuralProp("file-hash", meta.SHA256),
	)
	if meta.ConverterVersion != "" {
		props.Add(structuralProp("converter-version", meta.ConverterVersion))
	}
	props.Add(extraProps...)

	return types.Object("metadata",
		title,
		types.StructuralLeaf("published", ts),
		types.StructuralLeaf("last-modified", ts),
		types.StructuralLeaf("version", "1.0"),
		types.StructuralLeaf("oscal-version", oscalVersion),
		props,
	)
}

// structuralProp builds a name/value property pair carrying no extracted
// fact.
func structuralProp(name, value string) *types.TargetNode {
	return types.Object("",
		types.StructuralLeaf("name", name),
		types.StructuralLeaf("value", value),
	)
}

// sourcedProp builds a property whose value traces to the input.
func sourcedProp(name string, v types.Provenanced[string]) *types.TargetNode {
	return types.Object("",
		types.StructuralLeaf("name", name),
		types.SourcedLeaf("value", v.Value, v.Origin),
	)
}

// backMatter builds the back-matter section referencing the source
// artifacts behind the graph.
func backMatter(kind types.ArtifactKind, sources []types.CIRMetadata) *types.TargetNode {
	resources := types.Arr("resources")
	for i, meta := range sources {
		if meta.SourceFile == "" {
			continue
		}
		resources.Add(types.Object("",
			types.StructuralLeaf("uuid", StableID(kind, meta.SourceFile, 9000+i)),
			types.StructuralLeaf("title", "Source: "+baseName(meta.SourceFile)),
			types.Arr("rlinks", types.Object("",
				types.StructuralLeaf("href", meta.SourceFile),
			)),
		))
	}
	return types.Object("back-matter", resources)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// implementationStatus renders the closed status vocabulary in the target
// schema's spelling.
func implementationStatus(s types.ImplementationStatus) string {
	if s == types.StatusPartial {
		return "partially-implemented"
	}
	return string(s)
}

// extractFieldValue pulls a "label: value" pair out of free text.
func extractFieldValue(text string, labels ...string) string {
	for _, label := range labels {
		re := regexp.MustCompile(`(?im)^\s*` + regexp.QuoteMeta(label) + `\s*:?\s*(.+)$`)
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// sectionByKeywords returns the first section whose heading contains any
// keyword, case-insensitively.
func sectionByKeywords(sections []types.Section, keywords ...string) *types.Section {
	for i := range sections {
		heading := strings.ToLower(sections[i].Heading)
		for _, kw := range keywords {
			if strings.Contains(heading, kw) {
				return &sections[i]
			}
		}
	}
	return nil
}
