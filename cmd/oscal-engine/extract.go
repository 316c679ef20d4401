// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oscal-engine/internal/cir"
	"github.com/pdiddy/oscal-engine/internal/convert"
	"github.com/pdiddy/oscal-engine/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract [document]",
	Short: "Extract the canonical intermediate document without mapping",
	Long: `Extract runs conversion, classification, and extraction over the inputs
and writes the canonical intermediate document (cir.yaml) for inspection.
Diagnostics are printed to stderr; validation errors in the intermediate
document fail the command.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}

	converter, err := convert.NewPandocConverter()
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, converter)
	if err != nil {
		return err
	}

	doc, diags, extractErr := p.Extract(cmd.Context(), gatherInputs(cmd, args[0]))
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d)
	}
	if extractErr != nil {
		return extractErr
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(cfg.OutputDir, "cir.yaml")
	if err := cir.Write(path, doc); err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d sections, %d controls, %d diagnostics)\n",
		path, len(doc.Sections), len(doc.ControlRecords), len(diags))
	return nil
}

func init() {
	addGridFlags(extractCmd)

	rootCmd.AddCommand(extractCmd)
}
