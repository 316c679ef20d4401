// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// BlockKind is the node vocabulary of the converted document tree.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockTable     BlockKind = "table"
)

// Block is one node of the ordered document tree handed over by the
// external markup converter.
type Block struct {
	// Kind selects which fields below are meaningful.
	Kind BlockKind `json:"kind" yaml:"kind"`

	// Level is the heading level, headings only.
	Level int `json:"level,omitempty" yaml:"level,omitempty"`

	// Text is the flattened text content (heading text or paragraph body).
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Caption is the table caption, tables only.
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`

	// Headers and Rows carry table data, tables only.
	Headers []string   `json:"headers,omitempty" yaml:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty" yaml:"rows,omitempty"`

	// Position is the block's index in the converter's output order.
	Position int `json:"position" yaml:"position"`
}

// DocumentTree is the converter's output for one source document.
type DocumentTree struct {
	// ArtifactPath is the original source file the tree was converted from.
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path"`

	// ConverterVersion is the converter's version line, for reproducibility.
	ConverterVersion string `json:"converter_version,omitempty" yaml:"converter_version,omitempty"`

	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Grid is a rectangular spreadsheet handed over by the external spreadsheet
// reader: a header row followed by body rows, with sheet identity for cell
// provenance.
type Grid struct {
	// ArtifactPath is the spreadsheet file the grid was read from.
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path"`

	// Sheet is the sheet name within the workbook.
	Sheet string `json:"sheet" yaml:"sheet"`

	// Headers is the header row, in source order.
	Headers []string `json:"headers" yaml:"headers"`

	// Rows are the body rows. Row i corresponds to spreadsheet row i+2
	// (1-based, after the header).
	Rows [][]string `json:"rows" yaml:"rows"`
}

// RowNumber converts a body-row index to the 1-based spreadsheet row.
func (g *Grid) RowNumber(bodyIndex int) int { return bodyIndex + 2 }
