// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docforge/internal/journal"
	"github.com/pdiddy/docforge/internal/pipeline"
	"github.com/pdiddy/docforge/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert SOURCE",
	Short: "Reformat a DOCX report to the institutional template",
	Long: `Convert runs the full formatting pipeline on SOURCE: split the cover from
the body, reconvert the body with the reference template, reassemble, apply
the formatting passes, validate, and write the result to --output.

The output file is written only after the finished document passes
validation. On failure the run's work directory is retained and printed so
the intermediate artifacts can be inspected.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	headerText, _ := cmd.Flags().GetString("header-text")
	tocTitle, _ := cmd.Flags().GetString("toc-title")
	referenceDoc, _ := cmd.Flags().GetString("reference-doc")
	backend, _ := cmd.Flags().GetString("backend")
	saveIntermediate, _ := cmd.Flags().GetBool("save-intermediate")

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if backend != "" {
		cfg.Conversion.Backend = types.ConversionBackend(backend)
	}

	jrnl := openJournal(cfg.JournalPath)
	if jrnl != nil {
		defer jrnl.Close()
	}

	runner := pipeline.NewRunner(cfg, jrnl, os.Stdout)
	report, err := runner.Run(context.Background(), pipeline.Options{
		Source:           args[0],
		Output:           output,
		HeaderText:       headerText,
		TOCTitle:         tocTitle,
		ReferenceDoc:     referenceDoc,
		SaveIntermediate: saveIntermediate,
	})
	if err != nil {
		if report != nil && report.WorkDir != "" {
			fmt.Fprintf(os.Stderr, "intermediates retained in %s\n", report.WorkDir)
		}
		return err
	}
	return nil
}

// openJournal opens the run journal, or returns nil when disabled or
// unavailable. A broken journal never blocks a run.
func openJournal(path string) *journal.Store {
	if path == "" {
		return nil
	}
	s, err := journal.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "journal disabled: %v\n", err)
		return nil
	}
	return s
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "output path for the formatted document")
	convertCmd.Flags().String("header-text", "", "text replacing the cover header placeholder")
	convertCmd.Flags().String("toc-title", "", "title written over the TOC heading (default from config)")
	convertCmd.Flags().String("reference-doc", "", "style template handed to the converter")
	convertCmd.Flags().String("backend", "", "conversion backend: pandoc or libreoffice")
	convertCmd.Flags().Bool("save-intermediate", false, "keep the run's work directory after success")
	convertCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(convertCmd)
}
