// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strconv"

// OriginKind tags a target leaf as traceable or pipeline-injected.
type OriginKind string

const (
	// OriginSourced marks a leaf whose value was read from an input
	// artifact and carries a resolvable pointer.
	OriginSourced OriginKind = "sourced"

	// OriginSynthesized marks a leaf the mapper injected to satisfy a
	// target-schema requirement the source never states.
	OriginSynthesized OriginKind = "synthesized"

	// OriginStructural marks container nodes and fixed schema scaffolding
	// (object keys, version strings) that carry no extracted fact.
	OriginStructural OriginKind = "structural"
)

// LeafOrigin records where a target leaf value came from. Exactly one of
// Pointer or Reason is meaningful, selected by Kind.
type LeafOrigin struct {
	Kind OriginKind `json:"kind" yaml:"kind"`

	// Pointer resolves into the input material (sourced leaves).
	Pointer *SourcePointer `json:"pointer,omitempty" yaml:"pointer,omitempty"`

	// Reason is the human-readable synthesis explanation (synthesized
	// leaves). Never empty on a synthesized leaf.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// TargetNode is one node in a TargetDocumentGraph: either a leaf holding a
// value with its origin, an object with ordered keyed children, or an
// array. Field order is preserved so repeated runs serialize identically.
type TargetNode struct {
	// Key is the target-schema field name. Empty for array elements and
	// the root.
	Key string

	// Value holds the leaf value. Nil for objects and arrays.
	Value any

	// Origin is set on leaves only.
	Origin LeafOrigin

	// Children are ordered child nodes. Object nodes key their children;
	// array nodes leave child keys empty.
	Children []*TargetNode

	// Array marks the node as a JSON array rather than an object.
	Array bool
}

// Object constructs an object node.
func Object(key string, children ...*TargetNode) *TargetNode {
	return &TargetNode{Key: key, Children: children}
}

// Arr constructs an array node.
func Arr(key string, elems ...*TargetNode) *TargetNode {
	return &TargetNode{Key: key, Array: true, Children: elems}
}

// SourcedLeaf constructs a leaf traceable to the input.
func SourcedLeaf(key string, value any, origin SourcePointer) *TargetNode {
	p := origin
	return &TargetNode{Key: key, Value: value, Origin: LeafOrigin{Kind: OriginSourced, Pointer: &p}}
}

// SynthesizedLeaf constructs a pipeline-injected leaf with its reason.
func SynthesizedLeaf(key string, value any, reason string) *TargetNode {
	return &TargetNode{Key: key, Value: value, Origin: LeafOrigin{Kind: OriginSynthesized, Reason: reason}}
}

// StructuralLeaf constructs a fixed scaffolding leaf (schema constants,
// generated identifiers) that is neither an extracted fact nor a default
// standing in for one.
func StructuralLeaf(key string, value any) *TargetNode {
	return &TargetNode{Key: key, Value: value, Origin: LeafOrigin{Kind: OriginStructural}}
}

// Add appends children and returns the node for chaining.
func (n *TargetNode) Add(children ...*TargetNode) *TargetNode {
	n.Children = append(n.Children, children...)
	return n
}

// Leaf reports whether the node holds a value.
func (n *TargetNode) Leaf() bool { return n.Value != nil && len(n.Children) == 0 }

// Child returns the direct child with the given key, or nil.
func (n *TargetNode) Child(key string) *TargetNode {
	for _, c := range n.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// Plain converts the node tree to the plain value graph handed to the
// external schema validator: maps, slices, and scalars with all provenance
// metadata stripped.
func (n *TargetNode) Plain() any {
	if n.Leaf() {
		return n.Value
	}
	if n.Array {
		out := make([]any, 0, len(n.Children))
		for _, c := range n.Children {
			out = append(out, c.Plain())
		}
		return out
	}
	out := make(map[string]any, len(n.Children))
	for _, c := range n.Children {
		out[c.Key] = c.Plain()
	}
	return out
}

// ProvenanceEntry is one line of the provenance report side artifact.
type ProvenanceEntry struct {
	// TargetPath is the slash-joined path of field names and array indexes
	// from the artifact root to the leaf.
	TargetPath string `json:"target_path" yaml:"target_path"`

	// Origin describes the leaf's provenance.
	Origin LeafOrigin `json:"origin" yaml:"origin"`
}

// TargetDocumentGraph is the mapped output for one artifact kind. Created
// once by a sub-mapper and never mutated after emission.
type TargetDocumentGraph struct {
	// Kind is the artifact kind the graph was mapped as.
	Kind ArtifactKind `json:"kind" yaml:"kind"`

	// Root is the artifact's root node (e.g. "system-security-plan").
	Root *TargetNode `json:"-" yaml:"-"`
}

// Provenance walks the graph and returns one entry per leaf, in emission
// order. Structural leaves are skipped; auditors care about facts and
// injected defaults, not schema constants.
func (g *TargetDocumentGraph) Provenance() []ProvenanceEntry {
	var entries []ProvenanceEntry
	walkProvenance(g.Root, "", &entries)
	return entries
}

func walkProvenance(n *TargetNode, path string, entries *[]ProvenanceEntry) {
	if n == nil {
		return
	}
	if n.Key != "" {
		if path == "" {
			path = n.Key
		} else {
			path = path + "/" + n.Key
		}
	}
	if n.Leaf() {
		if n.Origin.Kind == OriginStructural {
			return
		}
		*entries = append(*entries, ProvenanceEntry{TargetPath: path, Origin: n.Origin})
		return
	}
	for i, c := range n.Children {
		childPath := path
		if n.Array {
			childPath = path + "/" + strconv.Itoa(i)
		}
		walkProvenance(c, childPath, entries)
	}
}
