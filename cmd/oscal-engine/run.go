// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oscal-engine/internal/convert"
	"github.com/pdiddy/oscal-engine/internal/pipeline"
	"github.com/pdiddy/oscal-engine/internal/validation"
	"github.com/pdiddy/oscal-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [document]",
	Short: "Run the full pipeline: extract, map, cross-reference, emit",
	Long: `Run executes the whole pipeline over one narrative document and its
spreadsheet exports: conversion, classification, extraction, intermediate
validation, parallel mapping of all artifact kinds, cross-referencing, and
emission of the OSCAL JSON artifacts with provenance reports.

A single artifact kind failing does not stop the others; run exits nonzero
and the remaining artifacts are still emitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
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

	result, err := p.Run(cmd.Context(), gatherInputs(cmd, args[0]), os.Stdout)
	if err != nil {
		return err
	}

	if check, _ := cmd.Flags().GetBool("validate"); check {
		bin, _ := cmd.Flags().GetString("oscal-cli")
		v, err := validation.NewValidator(bin)
		if err != nil {
			return err
		}
		summary, err := v.ValidateDir(cmd.Context(), cfg.OutputDir, os.Stdout)
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			return fmt.Errorf("%d of %d artifact(s) failed schema validation",
				summary.Invalid+summary.Failed, summary.Total())
		}
	}

	if failed := result.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d artifact kind(s) produced no output", len(failed))
	}
	return nil
}

// gatherInputs collects the document and whichever grid exports were given.
func gatherInputs(cmd *cobra.Command, document string) pipeline.Inputs {
	inputs := pipeline.Inputs{
		Document: document,
		Grids:    make(map[types.TabularKind]string),
	}
	for kind, flag := range map[types.TabularKind]string{
		types.TabularPOAM:           "poam",
		types.TabularInventory:      "inventory",
		types.TabularResponsibility: "responsibility",
	} {
		if path, _ := cmd.Flags().GetString(flag); path != "" {
			inputs.Grids[kind] = path
		}
	}
	return inputs
}

func addGridFlags(cmd *cobra.Command) {
	cmd.Flags().String("poam", "", "POA&M spreadsheet export (CSV)")
	cmd.Flags().String("inventory", "", "asset inventory spreadsheet export (CSV)")
	cmd.Flags().String("responsibility", "", "shared responsibility matrix export (CSV)")
	cmd.Flags().String("output", "", "output directory (overrides config)")
}

func init() {
	addGridFlags(runCmd)
	runCmd.Flags().Bool("validate", false, "validate emitted artifacts with oscal-cli")
	runCmd.Flags().String("oscal-cli", "", "path to the oscal-cli binary (default: $PATH lookup)")

	rootCmd.AddCommand(runCmd)
}
