// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// LocatorKind distinguishes the two source coordinate systems.
type LocatorKind string

const (
	// LocatorDocument points into the converted document tree.
	LocatorDocument LocatorKind = "document"

	// LocatorCell points into a spreadsheet grid.
	LocatorCell LocatorKind = "cell"
)

// SourcePointer records the exact origin of an extracted value: the input
// artifact plus either a document-tree position or a spreadsheet cell.
// Pointers are immutable once created; extraction code builds a pointer at
// the moment a value is read and never reconstructs one after the fact.
type SourcePointer struct {
	// ArtifactPath is the input file the value came from.
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path"`

	// Kind selects which locator fields below are meaningful.
	Kind LocatorKind `json:"kind" yaml:"kind"`

	// HeadingPath is the chain of ancestor headings down to the section
	// containing the value (document locators only).
	HeadingPath []string `json:"heading_path,omitempty" yaml:"heading_path,omitempty"`

	// BlockIndex is the position of the block within the converted tree
	// (document locators only).
	BlockIndex int `json:"block_index,omitempty" yaml:"block_index,omitempty"`

	// Sheet is the spreadsheet sheet name (cell locators only).
	Sheet string `json:"sheet,omitempty" yaml:"sheet,omitempty"`

	// Row is the 1-based spreadsheet row, counting the header row as row 1
	// (cell locators only).
	Row int `json:"row,omitempty" yaml:"row,omitempty"`

	// Column is the original header text of the cell's column (cell
	// locators only).
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
}

// DocumentPointer builds a pointer into a converted document tree.
func DocumentPointer(artifact string, headingPath []string, blockIndex int) SourcePointer {
	return SourcePointer{
		ArtifactPath: artifact,
		Kind:         LocatorDocument,
		HeadingPath:  headingPath,
		BlockIndex:   blockIndex,
	}
}

// CellPointer builds a pointer to one spreadsheet cell.
func CellPointer(artifact, sheet string, row int, column string) SourcePointer {
	return SourcePointer{
		ArtifactPath: artifact,
		Kind:         LocatorCell,
		Sheet:        sheet,
		Row:          row,
		Column:       column,
	}
}

// String renders the pointer in the compact form used by diagnostics,
// e.g. "ssp.docx § System Overview > FIPS-199 [block 12]" or
// "poam.csv!POA&M Items R7:Severity".
func (p SourcePointer) String() string {
	switch p.Kind {
	case LocatorCell:
		return fmt.Sprintf("%s!%s R%d:%s", p.ArtifactPath, p.Sheet, p.Row, p.Column)
	default:
		if len(p.HeadingPath) == 0 {
			return fmt.Sprintf("%s [block %d]", p.ArtifactPath, p.BlockIndex)
		}
		return fmt.Sprintf("%s § %s [block %d]", p.ArtifactPath, joinPath(p.HeadingPath), p.BlockIndex)
	}
}

func joinPath(parts []string) string {
	out := ""
	for i, part := range parts {
		if i > 0 {
			out += " > "
		}
		out += part
	}
	return out
}

// Provenanced wraps an extracted value with its origin. Every leaf datum in
// a CIRDocument is Provenanced; a value without an origin cannot be
// constructed through the extraction packages.
type Provenanced[T any] struct {
	// Value is the extracted datum.
	Value T `json:"value" yaml:"value"`

	// Origin points at the node or cell the value was read from.
	Origin SourcePointer `json:"origin" yaml:"origin"`

	// CoercionFailed marks a typed cell whose configured parser rejected
	// the raw text. Value then holds the original string form.
	CoercionFailed bool `json:"coercion_failed,omitempty" yaml:"coercion_failed,omitempty"`
}

// Prov constructs a Provenanced value.
func Prov[T any](value T, origin SourcePointer) Provenanced[T] {
	return Provenanced[T]{Value: value, Origin: origin}
}
