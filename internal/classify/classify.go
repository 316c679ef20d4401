// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify walks the converted document tree and assigns each
// section a semantic label from an ordered rule table. Classification is
// data-driven: the rule table is configuration, and the first matching
// rule wins so behavior is deterministic and auditable.
// See docs/ARCHITECTURE § Classification.
package classify

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

const stage = "classify"

// Classifier evaluates the ordered rule table over section headings.
type Classifier struct {
	rules []rule
}

type rule struct {
	label    string
	keywords []string // normalized
	required bool
}

// New compiles the rule table. Configuration bugs are hard errors here,
// not at classification time: a keyword appearing under two different
// labels would make the assigned label depend on rule order alone, which
// hides an authoring mistake rather than resolving one.
func New(cfg types.ClassificationConfig) (*Classifier, error) {
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("classification config has no rules")
	}

	owner := make(map[string]string) // normalized keyword → label
	rules := make([]rule, 0, len(cfg.Rules))

	for i, rc := range cfg.Rules {
		if rc.Label == "" {
			return nil, fmt.Errorf("rule %d has no label", i)
		}
		if len(rc.Keywords) == 0 {
			return nil, fmt.Errorf("rule %q has no keywords", rc.Label)
		}

		r := rule{label: rc.Label, required: rc.Required}
		for _, kw := range rc.Keywords {
			norm := Normalize(kw)
			if norm == "" {
				return nil, fmt.Errorf("rule %q has an empty keyword", rc.Label)
			}
			if prev, ok := owner[norm]; ok && prev != rc.Label {
				return nil, fmt.Errorf(
					"classification ambiguity: keyword %q appears under both %q and %q",
					kw, prev, rc.Label,
				)
			}
			owner[norm] = rc.Label
			r.keywords = append(r.keywords, norm)
		}
		rules = append(rules, r)
	}

	return &Classifier{rules: rules}, nil
}

// Normalize prepares heading or keyword text for matching: casefold, strip
// punctuation, collapse whitespace runs.
func Normalize(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// CleanText normalizes body text: trim, collapse whitespace runs within
// lines, drop non-printable characters other than newline and tab.
func CleanText(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
		case unicode.IsPrint(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return b.String()
}

// match returns the label of the first rule matching the normalized
// heading, or "" when none matches. Rule order is authoritative.
func (c *Classifier) match(normalizedHeading string) (string, bool) {
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(normalizedHeading, kw) {
				return r.label, true
			}
		}
	}
	return "", false
}

// Classify splits the document tree into sections and labels each one.
// Every heading yields a section, matched or not; content before the first
// heading becomes a level-0 unclassified section. After the pass, required
// rules that matched nothing are reported as diagnostics; the run
// continues with partial CIR.
func (c *Classifier) Classify(tree types.DocumentTree) ([]types.Section, types.Diagnostics) {
	var (
		sections []types.Section
		current  *types.Section
		bodies   []string
		// headingTrail tracks ancestor headings per level for provenance.
		headingTrail []string
		counter      int
		diags        types.Diagnostics
	)

	matched := make(map[string]bool)

	flush := func() {
		if current == nil {
			if len(bodies) == 0 {
				return
			}
			// Preamble before the first heading is retained, unclassified.
			current = &types.Section{
				ID:     "section-0",
				Level:  0,
				Origin: types.DocumentPointer(tree.ArtifactPath, nil, 0),
			}
		}
		current.Body = CleanText(strings.Join(bodies, "\n\n"))
		sections = append(sections, *current)
		current = nil
		bodies = nil
	}

	for _, block := range tree.Blocks {
		switch block.Kind {
		case types.BlockHeading:
			flush()

			heading := CleanText(block.Text)
			if block.Level-1 < len(headingTrail) {
				headingTrail = headingTrail[:block.Level-1]
			}
			headingTrail = append(headingTrail, heading)
			path := append([]string(nil), headingTrail...)

			counter++
			sec := types.Section{
				ID:      fmt.Sprintf("section-%d", counter),
				Heading: heading,
				Level:   block.Level,
				Origin:  types.DocumentPointer(tree.ArtifactPath, path, block.Position),
			}
			if label, ok := c.match(Normalize(heading)); ok {
				sec.Label = label
				matched[label] = true
			}
			current = &sec

		case types.BlockParagraph:
			bodies = append(bodies, block.Text)

		case types.BlockTable:
			if current == nil {
				// A table before any heading still needs a home.
				current = &types.Section{
					ID:     "section-0",
					Level:  0,
					Origin: types.DocumentPointer(tree.ArtifactPath, nil, 0),
				}
			}
			current.Tables = append(current.Tables, liftTable(tree.ArtifactPath, current, block))
		}
	}
	flush()

	for _, r := range c.rules {
		if r.required && !matched[r.label] {
			diags.Warn(stage, types.CodeRequiredSectionMissing, nil,
				"no section matched required label %q", r.label)
		}
	}

	return sections, diags
}

// liftTable converts a table block into the CIR table shape. Cells within a
// document table share the table node's pointer; the converter does not
// position individual cells.
func liftTable(artifact string, sec *types.Section, block types.Block) types.Table {
	origin := types.DocumentPointer(artifact, sec.Origin.HeadingPath, block.Position)

	table := types.Table{
		Caption: CleanText(block.Caption),
		Origin:  origin,
	}
	for _, h := range block.Headers {
		table.Headers = append(table.Headers, CleanText(h))
	}
	for _, row := range block.Rows {
		cells := make([]types.Provenanced[string], 0, len(row))
		for _, cell := range row {
			cells = append(cells, types.Prov(CleanText(cell), origin))
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}
