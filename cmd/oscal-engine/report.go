// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/oscal-engine/internal/report"
	"github.com/pdiddy/oscal-engine/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [dir]",
	Short: "Summarize artifact provenance: sourced versus synthesized",
	Long: `Report reads the provenance index left by the last run and prints, per
artifact kind, how many emitted values were traced to the input documents
and how many were injected from configured defaults. Auditors use the
per-leaf YAML reports next to the artifacts for the full detail.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
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

	store, err := report.NewStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.Summary(cmd.Context())
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %8s  %12s\n", "Artifact", "Sourced", "Synthesized")
	totalSourced, totalSynth := 0, 0
	for _, kind := range types.AllArtifactKinds {
		c, ok := counts[kind]
		if !ok {
			continue
		}
		fmt.Fprintf(os.Stdout, "%-12s  %8d  %12d\n", kind, c.Sourced, c.Synthesized)
		totalSourced += c.Sourced
		totalSynth += c.Synthesized
	}
	fmt.Fprintf(os.Stdout, "%-12s  %8d  %12d\n", "total", totalSourced, totalSynth)
	return nil
}

func init() {
	reportCmd.Flags().String("output", "", "output directory (overrides config)")

	rootCmd.AddCommand(reportCmd)
}
