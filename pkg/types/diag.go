// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Severity grades a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// DiagnosticCode identifies the condition a diagnostic reports.
type DiagnosticCode string

const (
	// CodeRequiredSectionMissing: a rule marked required matched no
	// section. Recoverable; the run continues with partial CIR.
	CodeRequiredSectionMissing DiagnosticCode = "required-section-missing"

	// CodeDuplicateControlID: the same control identifier appeared in more
	// than one block. First occurrence kept, duplicate reported.
	CodeDuplicateControlID DiagnosticCode = "duplicate-control-identifier"

	// CodeColumnMappingConflict: two headers resolved to one canonical
	// field. First match kept.
	CodeColumnMappingConflict DiagnosticCode = "column-mapping-conflict"

	// CodeTypeCoercionFailure: a typed cell's parser rejected the raw
	// text. The original string is retained, flagged.
	CodeTypeCoercionFailure DiagnosticCode = "type-coercion-failure"

	// CodeReferentialViolation: a tabular record referenced a control or
	// asset that exists nowhere in the run.
	CodeReferentialViolation DiagnosticCode = "referential-integrity-violation"

	// CodeUnsynthesizable: a mandatory target field has no configured
	// synthesis default. Fatal for its artifact kind only.
	CodeUnsynthesizable DiagnosticCode = "required-target-field-unsynthesizable"

	// CodeStructuralInvalid: the assembled CIR violates its own schema.
	CodeStructuralInvalid DiagnosticCode = "cir-structural-invalid"
)

// Diagnostic is one entry on the flat diagnostics channel, independent of
// the main output. Reporting tooling consumes these; the core never decides
// whether a degraded result is acceptable for submission.
type Diagnostic struct {
	// Stage names the pipeline stage that raised the diagnostic.
	Stage string `json:"stage" yaml:"stage"`

	Severity Severity       `json:"severity" yaml:"severity"`
	Code     DiagnosticCode `json:"code" yaml:"code"`
	Message  string         `json:"message" yaml:"message"`

	// Pointer locates the offending input, when one exists.
	Pointer *SourcePointer `json:"pointer,omitempty" yaml:"pointer,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Pointer != nil {
		return fmt.Sprintf("%s [%s/%s] %s (%s)", d.Severity, d.Stage, d.Code, d.Message, d.Pointer)
	}
	return fmt.Sprintf("%s [%s/%s] %s", d.Severity, d.Stage, d.Code, d.Message)
}

// Diagnostics accumulates diagnostics for one stage or one run.
type Diagnostics []Diagnostic

// Warn appends a warning.
func (ds *Diagnostics) Warn(stage string, code DiagnosticCode, ptr *SourcePointer, format string, args ...any) {
	*ds = append(*ds, Diagnostic{
		Stage: stage, Severity: SeverityWarning, Code: code,
		Message: fmt.Sprintf(format, args...), Pointer: ptr,
	})
}

// Error appends an error-severity diagnostic.
func (ds *Diagnostics) Error(stage string, code DiagnosticCode, ptr *SourcePointer, format string, args ...any) {
	*ds = append(*ds, Diagnostic{
		Stage: stage, Severity: SeverityError, Code: code,
		Message: fmt.Sprintf(format, args...), Pointer: ptr,
	})
}

// Fatal appends a fatal diagnostic. Fatal severity aborts the emitting
// artifact kind only; sibling kinds keep running.
func (ds *Diagnostics) Fatal(stage string, code DiagnosticCode, ptr *SourcePointer, format string, args ...any) {
	*ds = append(*ds, Diagnostic{
		Stage: stage, Severity: SeverityFatal, Code: code,
		Message: fmt.Sprintf(format, args...), Pointer: ptr,
	})
}

// Count returns the number of diagnostics at the given severity.
func (ds Diagnostics) Count(sev Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error or fatal diagnostic is present.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError || d.Severity == SeverityFatal {
			return true
		}
	}
	return false
}
