// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the oscal-engine CLI.
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the oscal-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "oscal-engine",
	Short: "Compliance documents to OSCAL artifacts, with provenance",
	Long: `oscal-engine converts agency compliance documents (system security plans,
POA&M spreadsheets, asset inventories) into OSCAL JSON artifacts. Extraction,
mapping, and emission are separate stages: extract produces the canonical
intermediate document, run executes the whole pipeline, validate checks the
emitted artifacts against the OSCAL schemas, and report summarizes what was
sourced from the inputs versus synthesized from configured defaults.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./oscal-engine.yaml or ~/.config/oscal-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("oscal-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "oscal-engine"))
		}
	}

	viper.SetEnvPrefix("OSCAL_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadPipelineConfig decodes the discovered config file into the stage
// configuration. Decoded directly rather than through viper.Unmarshal:
// synthesis default keys contain dots that viper would split into nested
// maps.
func loadPipelineConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig

	path := viper.ConfigFileUsed()
	if path == "" {
		return cfg, fmt.Errorf("no config file found: provide --config or ./oscal-engine.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.OutputDir = out
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "oscal"
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
