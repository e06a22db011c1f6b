// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates a full formatting run as an explicit stage
// sequence: split, convert, table restore, cover assembly, merge, the
// formatting passes, and final validation. Every stage consumes the artifact the previous
// stage wrote into a run-scoped work directory; the caller's output path
// is written only after validation passes.
// Implements: prd108-orchestrator; docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/docforge/internal/cover"
	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/internal/format"
	"github.com/pdiddy/docforge/internal/journal"
	"github.com/pdiddy/docforge/internal/merge"
	"github.com/pdiddy/docforge/internal/pandoc"
	"github.com/pdiddy/docforge/internal/split"
	"github.com/pdiddy/docforge/internal/validate"
	"github.com/pdiddy/docforge/pkg/types"
)

// Work-directory artifact names, in stage order.
const (
	artifactCover       = "01_cover.docx"
	artifactBody        = "02_body.docx"
	artifactConverted   = "03_body_converted.docx"
	artifactTables      = "04_body_tables.docx"
	artifactCoverFilled = "05_cover_filled.docx"
	artifactMerged      = "06_merged.docx"
	artifactFinal       = "13_final.docx"
)

// Options are the per-run inputs from the CLI.
type Options struct {
	Source string
	Output string

	// HeaderText replaces the configured header placeholder on the cover.
	HeaderText string

	// TOCTitle overrides the configured TOC title when non-empty.
	TOCTitle string

	// ReferenceDoc overrides the configured style template when non-empty.
	ReferenceDoc string

	// SaveIntermediate retains the work directory after a successful run.
	SaveIntermediate bool
}

// converterFactory builds the configured converter and its release
// function. Swapped out in tests.
type converterFactory func(cfg types.ConversionConfig, w io.Writer) (pandoc.Converter, func(), error)

// Runner executes formatting runs against one configuration.
type Runner struct {
	cfg  types.PipelineConfig
	jrnl *journal.Store
	w    io.Writer

	newConverter converterFactory
}

// NewRunner returns a runner for cfg. jrnl may be nil to disable the run
// journal; w receives progress output.
func NewRunner(cfg types.PipelineConfig, jrnl *journal.Store, w io.Writer) *Runner {
	return &Runner{cfg: cfg, jrnl: jrnl, w: w, newConverter: newConverter}
}

// newConverter builds the backend named in cfg. The LibreOffice backend
// holds the process-wide session until release is called.
func newConverter(cfg types.ConversionConfig, w io.Writer) (pandoc.Converter, func(), error) {
	switch cfg.Backend {
	case types.BackendLibreOffice:
		session, err := pandoc.AcquireOffice(cfg)
		if err != nil {
			return nil, nil, err
		}
		return pandoc.NewLibreOfficeConverter(session, cfg), session.Release, nil
	case types.BackendPandoc, "":
		conv, err := pandoc.NewPandocConverter(cfg)
		if err != nil {
			return nil, nil, err
		}
		return pandoc.WithRetries(conv, cfg.MaxRetries, w), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown conversion backend %q", cfg.Backend)
	}
}

// Run executes the full pipeline for one document. The returned report is
// always populated; on failure it names the failed stage and the retained
// work directory, and the error wraps the stage cause as a StageError.
func (r *Runner) Run(ctx context.Context, opts Options) (*types.RunReport, error) {
	report := &types.RunReport{
		Source:  opts.Source,
		Output:  opts.Output,
		State:   types.RunStateFailed,
		Started: time.Now(),
	}

	runID := r.journalStart(ctx, opts)

	workDir, err := os.MkdirTemp("", "docforge-run-")
	if err != nil {
		return r.finish(ctx, runID, report, fmt.Errorf("creating work directory: %w", err))
	}
	fmt.Fprintf(r.w, "run: work directory %s\n", workDir)

	// The converter session is held for the whole run so a failure in any
	// later stage still releases it.
	conv, release, err := r.newConverter(r.conversionConfig(opts), r.w)
	if err != nil {
		report.WorkDir = workDir
		report.FailedStage = types.StageConvert
		return r.finish(ctx, runID, report, &types.StageError{Stage: types.StageConvert, Err: err})
	}
	defer release()

	if err := r.runStages(ctx, runID, report, conv, workDir, opts); err != nil {
		report.WorkDir = workDir
		fmt.Fprintf(r.w, "run: failed, intermediates retained in %s\n", workDir)
		return r.finish(ctx, runID, report, err)
	}

	report.State = types.RunStateDone
	if opts.SaveIntermediate {
		report.WorkDir = workDir
		fmt.Fprintf(r.w, "run: done, intermediates in %s\n", workDir)
	} else {
		os.RemoveAll(workDir)
		fmt.Fprintln(r.w, "run: done")
	}
	return r.finish(ctx, runID, report, nil)
}

// runStages executes the stage sequence inside workDir.
func (r *Runner) runStages(ctx context.Context, runID int64, report *types.RunReport, conv pandoc.Converter, workDir string, opts Options) error {
	coverPath := filepath.Join(workDir, artifactCover)
	bodyPath := filepath.Join(workDir, artifactBody)
	convertedPath := filepath.Join(workDir, artifactConverted)
	tablesPath := filepath.Join(workDir, artifactTables)
	coverFilledPath := filepath.Join(workDir, artifactCoverFilled)
	mergedPath := filepath.Join(workDir, artifactMerged)
	finalPath := filepath.Join(workDir, artifactFinal)

	err := r.stage(ctx, runID, report, types.StageSplit, func() error {
		_, err := split.Split(opts.Source, coverPath, bodyPath, r.cfg.Detect, r.w)
		return err
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, runID, report, types.StageConvert, func() error {
		return conv.Convert(ctx, bodyPath, convertedPath, r.conversionConfig(opts).ReferenceDoc)
	})
	if err != nil {
		return err
	}

	// The converter tends to flatten table layout; the split body still
	// holds the originals.
	err = r.stage(ctx, runID, report, types.StageTables, func() error {
		converted, err := docx.Open(convertedPath)
		if err != nil {
			return err
		}
		original, err := docx.Open(bodyPath)
		if err != nil {
			return err
		}
		if _, err := format.RestoreTables(converted, original, r.w); err != nil {
			return err
		}
		return converted.Save(tablesPath)
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, runID, report, types.StageCover, func() error {
		rules, err := cover.LoadRules(r.cfg.Cover.RulesFile)
		if err != nil {
			return err
		}
		return cover.Apply(coverPath, coverFilledPath, rules, r.cfg.Cover.HeaderPlaceholder, opts.HeaderText, r.w)
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, runID, report, types.StageMerge, func() error {
		return merge.Merge(coverFilledPath, tablesPath, mergedPath, r.w)
	})
	if err != nil {
		return err
	}

	current := mergedPath
	tocTitle := r.tocTitle(opts)
	passes := []struct {
		stage    types.Stage
		artifact string
		apply    func(pkg *docx.Package) error
	}{
		{types.StageTocTitle, "07_toc_title.docx", func(pkg *docx.Package) error {
			return format.RewriteTOCTitle(pkg, r.cfg.Detect, tocTitle, r.w)
		}},
		{types.StagePictures, "08_pictures.docx", func(pkg *docx.Package) error {
			_, err := format.FormatPictures(pkg, r.cfg.Picture, r.w)
			return err
		}},
		{types.StageSupplement, "09_supplement.docx", func(pkg *docx.Package) error {
			_, err := format.FormatLibraryNumbers(pkg, r.cfg.Detect.LibraryNumberPattern, r.w)
			return err
		}},
		{types.StageSectionBreak, "10_section_break.docx", func(pkg *docx.Package) error {
			_, err := format.InsertSectionBreak(pkg, r.cfg.Detect, r.cfg.Page, r.w)
			return err
		}},
		{types.StagePageNumbers, "11_page_numbers.docx", func(pkg *docx.Package) error {
			_, err := format.ApplyPageNumbers(pkg, r.cfg.Page, r.w)
			return err
		}},
		{types.StageHighlights, "12_highlights.docx", func(pkg *docx.Package) error {
			_, err := format.RemoveHighlights(pkg, r.w)
			return err
		}},
	}
	for _, pass := range passes {
		next := filepath.Join(workDir, pass.artifact)
		err := r.stage(ctx, runID, report, pass.stage, func() error {
			pkg, err := docx.Open(current)
			if err != nil {
				return err
			}
			if err := pass.apply(pkg); err != nil {
				return err
			}
			return pkg.Save(next)
		})
		if err != nil {
			return err
		}
		current = next
	}

	err = r.stage(ctx, runID, report, types.StageValidate, func() error {
		if err := copyFile(current, finalPath); err != nil {
			return err
		}
		_, err := validate.Check(finalPath, validate.Config{
			TOCTitle: tocTitle,
			Detect:   r.cfg.Detect,
			Page:     r.cfg.Page,
		}, r.w)
		return err
	})
	if err != nil {
		return err
	}

	if err := copyFile(finalPath, opts.Output); err != nil {
		report.FailedStage = types.StageValidate
		return &types.StageError{Stage: types.StageValidate, Err: err}
	}
	fmt.Fprintf(r.w, "run: wrote %s\n", opts.Output)
	return nil
}

// stage runs one step, journals the transition, and wraps failures with
// the stage name.
func (r *Runner) stage(ctx context.Context, runID int64, report *types.RunReport, stage types.Stage, fn func() error) error {
	fmt.Fprintf(r.w, "stage %s: starting\n", stage)
	r.journalStageStart(ctx, runID, stage)

	start := time.Now()
	err := fn()
	report.Stages = append(report.Stages, types.StageResult{
		Stage:    stage,
		Duration: time.Since(start),
		Err:      err,
	})
	r.journalStageFinish(ctx, runID, stage, err)

	if err != nil {
		report.FailedStage = stage
		fmt.Fprintf(r.w, "stage %s: failed: %v\n", stage, err)
		return &types.StageError{Stage: stage, Err: err}
	}
	fmt.Fprintf(r.w, "stage %s: done in %v\n", stage, time.Since(start).Round(time.Millisecond))
	return nil
}

// conversionConfig resolves per-run overrides onto the configured backend.
func (r *Runner) conversionConfig(opts Options) types.ConversionConfig {
	cfg := r.cfg.Conversion
	if opts.ReferenceDoc != "" {
		cfg.ReferenceDoc = opts.ReferenceDoc
	}
	return cfg
}

func (r *Runner) tocTitle(opts Options) string {
	if opts.TOCTitle != "" {
		return opts.TOCTitle
	}
	if r.cfg.TOCTitle != "" {
		return r.cfg.TOCTitle
	}
	return "目 录"
}

// finish closes the journal row and stamps the report. The run error, not
// a journal error, is what callers see.
func (r *Runner) finish(ctx context.Context, runID int64, report *types.RunReport, runErr error) (*types.RunReport, error) {
	report.Finished = time.Now()
	if r.jrnl != nil && runID > 0 {
		if err := r.jrnl.FinishRun(ctx, runID, report.State, runErr); err != nil {
			fmt.Fprintf(r.w, "journal: %v\n", err)
		}
	}
	return report, runErr
}

func (r *Runner) journalStart(ctx context.Context, opts Options) int64 {
	if r.jrnl == nil {
		return 0
	}
	id, err := r.jrnl.StartRun(ctx, opts.Source, opts.Output)
	if err != nil {
		fmt.Fprintf(r.w, "journal: %v\n", err)
		return 0
	}
	return id
}

func (r *Runner) journalStageStart(ctx context.Context, runID int64, stage types.Stage) {
	if r.jrnl == nil || runID == 0 {
		return
	}
	if err := r.jrnl.StageStarted(ctx, runID, stage); err != nil {
		fmt.Fprintf(r.w, "journal: %v\n", err)
	}
}

func (r *Runner) journalStageFinish(ctx context.Context, runID int64, stage types.Stage, stageErr error) {
	if r.jrnl == nil || runID == 0 {
		return
	}
	if err := r.jrnl.StageFinished(ctx, runID, stage, stageErr); err != nil {
		fmt.Fprintf(r.w, "journal: %v\n", err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
