// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docforge/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a finished document against the formatting rules",
	Long: `Validate re-opens FILE and runs the post-condition checks the pipeline
applies before releasing an output: well-formed package, a single correctly
titled TOC heading, one section break directly after the TOC, and
per-section page numbering matching the configured schemes.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	tocTitle, _ := cmd.Flags().GetString("toc-title")

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if tocTitle == "" {
		tocTitle = cfg.TOCTitle
	}

	_, err = validate.Check(args[0], validate.Config{
		TOCTitle: tocTitle,
		Detect:   cfg.Detect,
		Page:     cfg.Page,
	}, os.Stdout)
	return err
}

func init() {
	validateCmd.Flags().String("toc-title", "", "expected TOC heading text (default from config)")

	rootCmd.AddCommand(validateCmd)
}
