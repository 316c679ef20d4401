// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns source documents into the addressable block tree
// the classifier consumes, by shelling out to the external markup
// converter (pandoc). The converter is a collaborator boundary: this
// package only executes it and reshapes its JSON AST.
// See docs/ARCHITECTURE § Conversion.
package convert

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

// TreeConverter produces a document tree from a source file. The pandoc
// implementation is the production backend; tests supply fixtures.
type TreeConverter interface {
	Convert(path string) (types.DocumentTree, error)
}

// SourceType returns the input format label recorded in CIR metadata.
func SourceType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return "docx", nil
	case ".md", ".markdown":
		return "md", nil
	case ".csv":
		return "csv", nil
	default:
		return "", fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
}

// Fingerprint computes the SHA-256 hex digest of the file at path, recorded
// in CIR metadata for reproducibility.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
