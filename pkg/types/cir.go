// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// ArtifactKind identifies one of the OSCAL artifact categories the pipeline
// produces. The set is closed; mapper dispatch switches over it.
type ArtifactKind string

const (
	KindSSP        ArtifactKind = "ssp"
	KindPOAM       ArtifactKind = "poam"
	KindInventory  ArtifactKind = "inventory"
	KindAssessment ArtifactKind = "assessment"
)

// AllArtifactKinds lists the kinds in emission order.
var AllArtifactKinds = []ArtifactKind{KindSSP, KindPOAM, KindInventory, KindAssessment}

// TabularKind identifies a spreadsheet appendix category.
type TabularKind string

const (
	TabularPOAM           TabularKind = "poam"
	TabularInventory      TabularKind = "inventory"
	TabularResponsibility TabularKind = "responsibility"
)

// ImplementationStatus is the closed control status vocabulary. Unknown is a
// terminal value for controls whose status the source never states; it is
// never an error.
type ImplementationStatus string

const (
	StatusImplemented   ImplementationStatus = "implemented"
	StatusPartial       ImplementationStatus = "partial"
	StatusPlanned       ImplementationStatus = "planned"
	StatusNotApplicable ImplementationStatus = "not-applicable"
	StatusUnknown       ImplementationStatus = "unknown"
)

// Table is a table lifted out of the document tree. Headers keep source
// order; each cell carries its own origin.
type Table struct {
	// Caption is the table caption, if the converter reported one.
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`

	// Headers are the header-row cells in source order.
	Headers []string `json:"headers" yaml:"headers"`

	// Rows are the body rows, each an ordered sequence of provenanced cells.
	Rows [][]Provenanced[string] `json:"rows" yaml:"rows"`

	// Origin points at the table node within the document tree.
	Origin SourcePointer `json:"origin" yaml:"origin"`
}

// Section is one heading-delimited region of the source document. Sections
// are created once during classification and never mutated afterward; Label
// starts empty (unclassified) and is set at most once.
type Section struct {
	// ID is a stable slug for the section, derived from its position.
	ID string `json:"id" yaml:"id"`

	// Heading is the normalized heading text.
	Heading string `json:"heading" yaml:"heading"`

	// Level is the heading level (1 = top).
	Level int `json:"level" yaml:"level"`

	// Label is the classified semantic label, or empty when no rule matched.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Body is the concatenated paragraph text under the heading.
	Body string `json:"body" yaml:"body"`

	// Tables are the tables that appeared under the heading.
	Tables []Table `json:"tables,omitempty" yaml:"tables,omitempty"`

	// Origin points at the heading node.
	Origin SourcePointer `json:"origin" yaml:"origin"`
}

// Unclassified reports whether no classification rule matched the section.
func (s *Section) Unclassified() bool { return s.Label == "" }

// ControlRecord is one control implementation statement extracted from a
// classified section. ControlID is unique within a CIRDocument; duplicates
// found during extraction keep the first occurrence and surface a
// diagnostic.
type ControlRecord struct {
	// ControlID is the normalized identifier, e.g. "AC-2" or "AC-2(1)".
	ControlID string `json:"control_id" yaml:"control_id"`

	// Status is the stated implementation status, or StatusUnknown when the
	// source carries no status phrase near the identifier.
	Status ImplementationStatus `json:"status" yaml:"status"`

	// Narrative is the implementation description text.
	Narrative Provenanced[string] `json:"narrative" yaml:"narrative"`

	// ResponsibleRoles are the declared roles. All entries from one source
	// list share the list's origin pointer, since individual roles have no
	// position of their own.
	ResponsibleRoles []Provenanced[string] `json:"responsible_roles,omitempty" yaml:"responsible_roles,omitempty"`

	// Origin points at the section block the record was extracted from.
	Origin SourcePointer `json:"origin" yaml:"origin"`
}

// Milestone is a remediation milestone attached to a POA&M record.
type Milestone struct {
	Description   Provenanced[string] `json:"description" yaml:"description"`
	ScheduledDate Provenanced[string] `json:"scheduled_date,omitempty" yaml:"scheduled_date,omitempty"`
	Status        Provenanced[string] `json:"status,omitempty" yaml:"status,omitempty"`
}

// TabularRecord is one spreadsheet row mapped through a column-mapping
// configuration. Fields are keyed by canonical field name; headers that
// matched no field are retained under Extra.
type TabularRecord struct {
	// RecordID identifies the record. Synthesized from the row position
	// when the source declares no identifier column.
	RecordID string `json:"record_id" yaml:"record_id"`

	// Kind is the tabular category the record was extracted as.
	Kind TabularKind `json:"kind" yaml:"kind"`

	// Fields maps canonical field names to provenanced values.
	Fields map[string]Provenanced[string] `json:"fields" yaml:"fields"`

	// Lists maps canonical list-typed field names (identifier lists, role
	// lists) to their split entries. All entries share the cell's origin.
	Lists map[string][]Provenanced[string] `json:"lists,omitempty" yaml:"lists,omitempty"`

	// Milestones are sub-records built from milestone columns, POA&M only.
	Milestones []Milestone `json:"milestones,omitempty" yaml:"milestones,omitempty"`

	// Extra holds cells from headers that matched no canonical field,
	// keyed by the original header text.
	Extra map[string]Provenanced[string] `json:"extra,omitempty" yaml:"extra,omitempty"`

	// RequiredPresent lists the required canonical fields that were
	// actually populated, so the mapper can decide between synthesis and
	// per-artifact failure.
	RequiredPresent []string `json:"required_present,omitempty" yaml:"required_present,omitempty"`

	// Origin points at the row as a whole.
	Origin SourcePointer `json:"origin" yaml:"origin"`
}

// Field returns the value for a canonical field, or "" when absent.
func (r *TabularRecord) Field(name string) string {
	if v, ok := r.Fields[name]; ok {
		return v.Value
	}
	return ""
}

// CIRMetadata fingerprints the source material behind a CIRDocument.
type CIRMetadata struct {
	// SourceFile is the primary input document path.
	SourceFile string `json:"source_file" yaml:"source_file"`

	// SourceType is the input format, e.g. "docx", "md", "csv".
	SourceType string `json:"source_type" yaml:"source_type"`

	// ExtractionDate is the run timestamp (UTC, RFC 3339). Supplied by the
	// caller so identical inputs can reproduce identical CIR files.
	ExtractionDate time.Time `json:"extraction_date" yaml:"extraction_date"`

	// SHA256 is the hex digest of the source file.
	SHA256 string `json:"sha256" yaml:"sha256"`

	// ConverterVersion records the external converter version line.
	ConverterVersion string `json:"converter_version,omitempty" yaml:"converter_version,omitempty"`
}

// CIRDocument is the canonical intermediate representation: everything
// extracted from one pipeline run's inputs, before target-schema mapping.
// The document is owned by exactly one run and treated as immutable once
// validation succeeds; mappers only read it.
type CIRDocument struct {
	Metadata CIRMetadata `json:"metadata" yaml:"metadata"`

	// Sections are all document sections in source order, classified or not.
	Sections []Section `json:"sections" yaml:"sections"`

	// ControlRecords are the extracted control implementations, keyed by
	// unique ControlID, in first-seen order.
	ControlRecords []ControlRecord `json:"control_records,omitempty" yaml:"control_records,omitempty"`

	// TabularRecords groups spreadsheet records by tabular kind.
	TabularRecords map[TabularKind][]TabularRecord `json:"tabular_records,omitempty" yaml:"tabular_records,omitempty"`
}

// SectionsLabeled returns the sections carrying the given label, in order.
func (d *CIRDocument) SectionsLabeled(label string) []Section {
	var out []Section
	for _, s := range d.Sections {
		if s.Label == label {
			out = append(out, s)
		}
	}
	return out
}

// ControlByID returns the control record with the given ID, or nil.
// Matching is case-insensitive; extraction stores identifiers uppercased,
// but citations in loaded documents may not be.
func (d *CIRDocument) ControlByID(id string) *ControlRecord {
	for i := range d.ControlRecords {
		if strings.EqualFold(d.ControlRecords[i].ControlID, id) {
			return &d.ControlRecords[i]
		}
	}
	return nil
}
