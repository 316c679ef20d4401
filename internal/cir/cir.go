// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cir assembles, serializes, and validates the canonical
// intermediate representation. Every extraction front-end converges here;
// mappers consume nothing but a validated CIRDocument.
// See docs/ARCHITECTURE § Canonical Intermediate Representation.
package cir

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

// Assemble builds a CIRDocument from extracted parts. The document is
// complete but unvalidated; callers run Validate before handing it to
// mappers.
func Assemble(meta types.CIRMetadata, sections []types.Section, controls []types.ControlRecord, tabular map[types.TabularKind][]types.TabularRecord) *types.CIRDocument {
	return &types.CIRDocument{
		Metadata:       meta,
		Sections:       sections,
		ControlRecords: controls,
		TabularRecords: tabular,
	}
}

// Write serializes the document to YAML at path, creating parent
// directories as needed.
func Write(path string, doc *types.CIRDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling CIR document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load reads a YAML CIR document from path.
func Load(path string) (*types.CIRDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc types.CIRDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}
