// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oscal-engine/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate emitted artifacts against the OSCAL schemas",
	Long: `Validate runs the external oscal-cli schema validator over every JSON
artifact in the given directory (default: the configured output directory)
and prints a per-file verdict. Exits nonzero when any artifact is invalid
or the validator could not run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, err := loadPipelineConfig(cmd)
		if err != nil {
			return err
		}
		dir = cfg.OutputDir
	}

	bin, _ := cmd.Flags().GetString("oscal-cli")
	v, err := validation.NewValidator(bin)
	if err != nil {
		return err
	}

	summary, err := v.ValidateDir(cmd.Context(), dir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d artifact(s) failed schema validation",
			summary.Invalid+summary.Failed, summary.Total())
	}
	return nil
}

func init() {
	validateCmd.Flags().String("oscal-cli", "", "path to the oscal-cli binary (default: $PATH lookup)")
	validateCmd.Flags().String("output", "", "output directory (overrides config)")

	rootCmd.AddCommand(validateCmd)
}
