// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ClassificationRule is one entry in the ordered classifier rule table.
// Rules are evaluated top to bottom against the normalized heading; the
// first match wins, so configuration order is the tie-break.
type ClassificationRule struct {
	// Label is the semantic label assigned on match, e.g.
	// "control-implementation".
	Label string `json:"label" yaml:"label"`

	// Keywords are normalized substrings; the rule matches when any
	// keyword occurs in the normalized heading.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Required marks labels the document is expected to produce at least
	// one section for. An unmatched required rule yields a diagnostic,
	// not an abort.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`
}

// ClassificationConfig is the per-document-kind rule table.
type ClassificationConfig struct {
	Rules []ClassificationRule `json:"rules" yaml:"rules"`
}

// FieldType selects the coercion parser for a tabular column.
type FieldType string

const (
	FieldString     FieldType = "string"
	FieldDate       FieldType = "date"
	FieldSeverity   FieldType = "severity"
	FieldStatus     FieldType = "status"
	FieldList       FieldType = "list"
	FieldIdentifier FieldType = "identifier"
)

// ColumnSpec declares how one canonical field is resolved from spreadsheet
// headers and coerced.
type ColumnSpec struct {
	// Synonyms are the header texts (normalized before comparison) that
	// populate this field.
	Synonyms []string `json:"synonyms" yaml:"synonyms"`

	// Required marks fields downstream mappers treat as mandatory. A row
	// missing one still yields a record, flagged as incomplete.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Type selects the coercion parser. Defaults to string.
	Type FieldType `json:"type,omitempty" yaml:"type,omitempty"`
}

// ColumnMapping is the declarative column configuration for one tabular
// kind: canonical field name → spec.
type ColumnMapping struct {
	// IDField names the canonical field used as the record identifier.
	// When absent from a row the extractor synthesizes one.
	IDField string `json:"id_field,omitempty" yaml:"id_field,omitempty"`

	Fields map[string]ColumnSpec `json:"fields" yaml:"fields"`
}

// ControlExtractionConfig drives the control-implementation extractor.
type ControlExtractionConfig struct {
	// SectionLabel is the classified label whose sections are scanned.
	SectionLabel string `json:"section_label" yaml:"section_label"`

	// StatusPhrases maps literal status phrases (normalized) to the closed
	// status vocabulary, e.g. "implementation status: implemented" →
	// implemented. Absence of any phrase yields StatusUnknown.
	StatusPhrases map[string]ImplementationStatus `json:"status_phrases" yaml:"status_phrases"`

	// RoleLabels are field labels that introduce a delimited role list,
	// e.g. "responsible role".
	RoleLabels []string `json:"role_labels" yaml:"role_labels"`
}

// SynthesisDefaults configures the mapper's injected values for
// target-schema-mandated fields the source never states. Defaults are a
// product decision carried as configuration, never compiled into mappers.
// A mandatory field with no entry here makes that artifact kind's mapping
// fail with CodeUnsynthesizable.
type SynthesisDefaults struct {
	// Values maps a mapper-defined default key (e.g.
	// "component.responsible-role") to the injected value.
	Values map[string]string `json:"values" yaml:"values"`

	// Reasons optionally overrides the human-readable synthesis reason per
	// key. When absent a generic reason naming the key is used.
	Reasons map[string]string `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

// Value returns the configured default for key.
func (s SynthesisDefaults) Value(key string) (string, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// Reason returns the synthesis reason recorded on leaves injected for key.
func (s SynthesisDefaults) Reason(key string) string {
	if r, ok := s.Reasons[key]; ok && r != "" {
		return r
	}
	return "no source statement for required field; configured default " + key + " injected"
}

// ReferenceConfig controls referential validation of the CIR.
type ReferenceConfig struct {
	// AllowExternalControls lists control IDs tabular records may
	// reference without a matching ControlRecord (controls tracked
	// outside the document set).
	AllowExternalControls []string `json:"allow_external_controls,omitempty" yaml:"allow_external_controls,omitempty"`

	// Strict promotes referential violations from warnings to errors.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// PipelineConfig groups all stage configurations for one run. The value is
// immutable once the run starts; stages receive it at construction so
// artifact kinds can execute in parallel without shared state.
type PipelineConfig struct {
	Classification ClassificationConfig          `json:"classification" yaml:"classification"`
	Controls       ControlExtractionConfig       `json:"controls" yaml:"controls"`
	Columns        map[TabularKind]ColumnMapping `json:"columns" yaml:"columns"`
	Synthesis      SynthesisDefaults             `json:"synthesis" yaml:"synthesis"`
	References     ReferenceConfig               `json:"references" yaml:"references"`

	// OutputDir receives the OSCAL artifacts and provenance reports.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}
