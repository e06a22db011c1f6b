// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docforge CLI.
// Implements: prd101-convert, prd106-validate, prd107-run-journal
//             (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docforge/internal/pipeline"
	"github.com/pdiddy/docforge/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docforge CLI.
var rootCmd = &cobra.Command{
	Use:   "docforge",
	Short: "Batch formatter for institutional DOCX deliverables",
	Long: `docforge reformats DOCX reports to the institutional template: it splits
the cover from the body, reconverts the body through an external tool with a
reference template, reassembles the document, and applies the formatting
passes (TOC title, image alignment, library-number line, section break,
per-section page numbers, highlight removal).

A run succeeds only when the finished document passes validation.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docforge.yaml or ~/.config/docforge/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docforge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docforge"))
		}
	}

	viper.SetEnvPrefix("DOCFORGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the run configuration from the config file and
// the settings files it points at.
func pipelineConfig() (types.PipelineConfig, error) {
	cfg := types.PipelineConfig{
		Conversion: types.ConversionConfig{
			Backend:      types.ConversionBackend(viper.GetString("backend")),
			PandocPath:   viper.GetString("pandoc_path"),
			SofficePath:  viper.GetString("soffice_path"),
			ReferenceDoc: viper.GetString("reference_doc"),
			Timeout:      viper.GetDuration("timeout"),
			MaxRetries:   viper.GetInt("max_retries"),
		},
		Detect:      types.DefaultDetect(),
		Cover:       types.CoverConfig{RulesFile: viper.GetString("cover_rules"), HeaderPlaceholder: viper.GetString("header_placeholder")},
		TOCTitle:    viper.GetString("toc_title"),
		JournalPath: viper.GetString("journal_path"),
	}

	if kw := viper.GetStringSlice("toc_keywords"); len(kw) > 0 {
		cfg.Detect.TOCKeywords = kw
	}
	if styles := viper.GetStringSlice("toc_styles"); len(styles) > 0 {
		cfg.Detect.TOCStyles = styles
	}
	if pattern := viper.GetString("library_number_pattern"); pattern != "" {
		cfg.Detect.LibraryNumberPattern = pattern
	}
	if cfg.Conversion.Timeout == 0 {
		cfg.Conversion.Timeout = 2 * time.Minute
	}

	page, err := pipeline.LoadPageSettings(viper.GetString("page_settings"))
	if err != nil {
		return cfg, err
	}
	cfg.Page = page

	picture, err := pipeline.LoadPictureSettings(viper.GetString("picture_settings"))
	if err != nil {
		return cfg, err
	}
	cfg.Picture = picture

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
