// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

const binPandoc = "pandoc"

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Output(name string, args ...string) ([]byte, error) {
	var out, errBuf bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(errBuf.String()))
	}
	return out.Bytes(), nil
}

var defaultExec executor = &osExecutor{}

// PandocConverter converts .docx and .md documents through pandoc's JSON
// AST. It verifies pandoc is on PATH at construction.
type PandocConverter struct {
	exec    executor
	version string
}

// NewPandocConverter detects pandoc and captures its version line for CIR
// metadata.
func NewPandocConverter() (*PandocConverter, error) {
	return newPandocConverter(defaultExec)
}

func newPandocConverter(exec executor) (*PandocConverter, error) {
	if _, err := exec.LookPath(binPandoc); err != nil {
		return nil, fmt.Errorf("pandoc not available: %w", err)
	}

	version := "unknown"
	if out, err := exec.Output(binPandoc, "--version"); err == nil {
		if line, _, ok := strings.Cut(string(out), "\n"); ok {
			version = strings.TrimSpace(line)
		}
	}

	return &PandocConverter{exec: exec, version: version}, nil
}

// Version returns pandoc's version line.
func (p *PandocConverter) Version() string { return p.version }

// Convert runs pandoc over the document and reshapes the JSON AST into the
// ordered block tree.
func (p *PandocConverter) Convert(path string) (types.DocumentTree, error) {
	out, err := p.exec.Output(binPandoc, path, "--to", "json")
	if err != nil {
		return types.DocumentTree{}, fmt.Errorf("converting %s: %w", path, err)
	}

	blocks, err := ParseAST(out)
	if err != nil {
		return types.DocumentTree{}, fmt.Errorf("parsing pandoc AST for %s: %w", path, err)
	}

	return types.DocumentTree{
		ArtifactPath:     path,
		ConverterVersion: p.version,
		Blocks:           blocks,
	}, nil
}

// astDocument is the top level of pandoc's JSON output.
type astDocument struct {
	Blocks []astBlock `json:"blocks"`
}

// astBlock is one tagged AST node. Content shape depends on T, so it stays
// raw until the tag is known.
type astBlock struct {
	T string          `json:"t"`
	C json.RawMessage `json:"c"`
}

// ParseAST reshapes a pandoc JSON AST into ordered blocks. Unrecognized
// node types are skipped; the converter's structural vocabulary is larger
// than the subset classification needs.
func ParseAST(data []byte) ([]types.Block, error) {
	var doc astDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid pandoc JSON: %w", err)
	}

	var blocks []types.Block
	for i, node := range doc.Blocks {
		switch node.T {
		case "Header":
			level, text, err := parseHeader(node.C)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}
			blocks = append(blocks, types.Block{
				Kind: types.BlockHeading, Level: level, Text: text, Position: i,
			})
		case "Table":
			table, ok := parseTable(node.C)
			if !ok {
				continue
			}
			table.Position = i
			blocks = append(blocks, table)
		default:
			text := blockText(node)
			if strings.TrimSpace(text) == "" {
				continue
			}
			blocks = append(blocks, types.Block{
				Kind: types.BlockParagraph, Text: text, Position: i,
			})
		}
	}
	return blocks, nil
}

// parseHeader unpacks a Header node: [level, attr, inlines].
func parseHeader(raw json.RawMessage) (int, string, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 3 {
		return 0, "", fmt.Errorf("malformed header node")
	}
	var level int
	if err := json.Unmarshal(parts[0], &level); err != nil {
		return 0, "", fmt.Errorf("malformed header level: %w", err)
	}
	return level, inlineText(parts[2]), nil
}

// parseTable unpacks a Table node: [caption, alignments, widths, header
// cells, rows]. Malformed tables are dropped rather than failing the run.
func parseTable(raw json.RawMessage) (types.Block, bool) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 5 {
		return types.Block{}, false
	}

	block := types.Block{
		Kind:    types.BlockTable,
		Caption: inlineText(parts[0]),
	}

	var headerCells []json.RawMessage
	if err := json.Unmarshal(parts[3], &headerCells); err != nil {
		return types.Block{}, false
	}
	for _, cell := range headerCells {
		block.Headers = append(block.Headers, cellText(cell))
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(parts[4], &rows); err != nil {
		return types.Block{}, false
	}
	for _, rowRaw := range rows {
		var cells []json.RawMessage
		if err := json.Unmarshal(rowRaw, &cells); err != nil {
			continue
		}
		row := make([]string, 0, len(cells))
		for _, cell := range cells {
			row = append(row, cellText(cell))
		}
		block.Rows = append(block.Rows, row)
	}

	return block, true
}

// cellText flattens a table cell (a list of blocks) to one string.
func cellText(raw json.RawMessage) string {
	var nodes []astBlock
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return ""
	}
	var parts []string
	for _, node := range nodes {
		if text := strings.TrimSpace(blockText(node)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// blockText flattens one block node to plain text.
func blockText(node astBlock) string {
	switch node.T {
	case "Para", "Plain":
		return inlineText(node.C)
	case "CodeBlock":
		var parts []json.RawMessage
		if err := json.Unmarshal(node.C, &parts); err != nil || len(parts) < 2 {
			return ""
		}
		var code string
		if err := json.Unmarshal(parts[1], &code); err != nil {
			return ""
		}
		return code
	case "BulletList":
		var items []json.RawMessage
		if err := json.Unmarshal(node.C, &items); err != nil {
			return ""
		}
		var lines []string
		for _, item := range items {
			lines = append(lines, "- "+cellText(item))
		}
		return strings.Join(lines, "\n")
	case "OrderedList":
		var parts []json.RawMessage
		if err := json.Unmarshal(node.C, &parts); err != nil || len(parts) < 2 {
			return ""
		}
		var items []json.RawMessage
		if err := json.Unmarshal(parts[1], &items); err != nil {
			return ""
		}
		var lines []string
		for i, item := range items {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, cellText(item)))
		}
		return strings.Join(lines, "\n")
	case "BlockQuote":
		return "> " + cellText(node.C)
	}
	return ""
}

// inline is one tagged inline node.
type inline struct {
	T string          `json:"t"`
	C json.RawMessage `json:"c"`
}

// inlineText flattens a list of inline nodes to plain text.
func inlineText(raw json.RawMessage) string {
	var inlines []inline
	if err := json.Unmarshal(raw, &inlines); err != nil {
		return ""
	}

	var b strings.Builder
	for _, in := range inlines {
		switch in.T {
		case "Str":
			var s string
			if err := json.Unmarshal(in.C, &s); err == nil {
				b.WriteString(s)
			}
		case "Space", "SoftBreak":
			b.WriteString(" ")
		case "LineBreak":
			b.WriteString("\n")
		case "Strong", "Emph", "SmallCaps", "Strikeout":
			b.WriteString(inlineText(in.C))
		case "Code":
			var parts []json.RawMessage
			if err := json.Unmarshal(in.C, &parts); err == nil && len(parts) >= 2 {
				var s string
				if err := json.Unmarshal(parts[1], &s); err == nil {
					b.WriteString(s)
				}
			}
		case "Link":
			var parts []json.RawMessage
			if err := json.Unmarshal(in.C, &parts); err == nil && len(parts) >= 2 {
				b.WriteString(inlineText(parts[1]))
			}
		}
	}
	return b.String()
}
