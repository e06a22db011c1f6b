// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/internal/docx/docxtest"
	"github.com/pdiddy/docforge/internal/journal"
	"github.com/pdiddy/docforge/internal/pandoc"
	"github.com/pdiddy/docforge/pkg/types"
)

// fakeConverter stands in for the external tool: it copies the input to
// the output, or fails with the scripted error.
type fakeConverter struct {
	err   error
	calls int
}

func (f *fakeConverter) Name() string { return "fake" }

func (f *fakeConverter) Convert(ctx context.Context, inputPath, outputPath, referenceDoc string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// testRunner wires a runner to the fake converter and records whether the
// session release ran.
func testRunner(cfg types.PipelineConfig, jrnl *journal.Store, conv pandoc.Converter, released *bool, w io.Writer) *Runner {
	r := NewRunner(cfg, jrnl, w)
	r.newConverter = func(types.ConversionConfig, io.Writer) (pandoc.Converter, func(), error) {
		return conv, func() { *released = true }, nil
	}
	return r
}

func testPipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Conversion: types.ConversionConfig{Backend: types.BackendPandoc},
		Detect:     types.DefaultDetect(),
		Page:       types.DefaultPageSettings(),
		Picture:    types.DefaultPictureSettings(),
		TOCTitle:   "目 录",
	}
}

// sourceDoc is a document exercising every formatting pass: cover, TOC,
// body text, a table, an image, a library-number line, and a highlighted
// run.
func sourceDoc(t *testing.T, dir string) string {
	t.Helper()
	return docxtest.Write(t, dir, "source.docx", docxtest.Doc(
		docxtest.Para("封面标题"),
		docxtest.Para("单位名称"),
		docxtest.TOCBlock("目录", "1 概述", "2 设计"),
		docxtest.Para("第一章 概述"),
		docxtest.Table("参数", "数值"),
		docxtest.ImagePara(),
		docxtest.Para("库号：XK-2024-001"),
		docxtest.HighlightedPara("草稿备注"),
	))
}

func retainWorkDir(t *testing.T, report *types.RunReport) {
	t.Helper()
	if report != nil && report.WorkDir != "" {
		t.Cleanup(func() { os.RemoveAll(report.WorkDir) })
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out", "formatted.docx")
	released := false
	var log bytes.Buffer

	r := testRunner(testPipelineConfig(), nil, &fakeConverter{}, &released, &log)
	report, err := r.Run(context.Background(), Options{
		Source: sourceDoc(t, dir),
		Output: output,
	})
	retainWorkDir(t, report)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, log.String())
	}
	if report.Failed() {
		t.Fatalf("report failed: %+v", report)
	}
	if len(report.Stages) != 12 {
		t.Fatalf("ran %d stages, want 12", len(report.Stages))
	}
	if !released {
		t.Fatal("converter session not released")
	}
	if report.WorkDir != "" {
		t.Fatalf("work directory retained without --save-intermediate: %s", report.WorkDir)
	}

	pkg, err := docx.Open(output)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}

	var headingTexts []string
	for _, p := range doc.FindElements("//w:p") {
		if docx.ParagraphStyle(p) == "TOCHeading" {
			headingTexts = append(headingTexts, docx.ParagraphText(p))
		}
	}
	if len(headingTexts) != 1 || headingTexts[0] != "目 录" {
		t.Fatalf("TOC headings = %v, want exactly [目 录]", headingTexts)
	}

	body, err := docx.Body(doc)
	if err != nil {
		t.Fatal(err)
	}
	breaks := 0
	for _, p := range body.ChildElements() {
		if docx.IsSectPrOnly(p) {
			breaks++
		}
	}
	if breaks != 1 {
		t.Fatalf("found %d section breaks, want 1", breaks)
	}

	if doc.FindElement("//w:highlight") != nil {
		t.Fatal("highlight marks survived the run")
	}
	if doc.FindElement("//w:tbl") == nil {
		t.Fatal("body table missing from output")
	}
	if len(pkg.PartsUnder("word/footer")) != 2 {
		t.Fatal("page-number footers missing from output")
	}
}

func TestRunConversionFailure(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "formatted.docx")
	released := false

	conv := &fakeConverter{err: &types.ConversionFailure{Tool: "pandoc", ExitCode: 1, Stderr: "bad input"}}
	r := testRunner(testPipelineConfig(), nil, conv, &released, io.Discard)
	report, err := r.Run(context.Background(), Options{
		Source: sourceDoc(t, dir),
		Output: output,
	})
	retainWorkDir(t, report)
	if err == nil {
		t.Fatal("run succeeded with a failing converter")
	}

	var stageErr *types.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != types.StageConvert {
		t.Fatalf("want StageError at convert, got %v", err)
	}
	var convErr *types.ConversionFailure
	if !errors.As(err, &convErr) {
		t.Fatalf("cause not a ConversionFailure: %v", err)
	}

	if !report.Failed() || report.FailedStage != types.StageConvert {
		t.Fatalf("report does not name the failed stage: %+v", report)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatal("output written despite failed run")
	}
	if report.WorkDir == "" {
		t.Fatal("work directory not retained after failure")
	}
	if _, err := os.Stat(report.WorkDir); err != nil {
		t.Fatalf("retained work directory gone: %v", err)
	}
	if !released {
		t.Fatal("converter session not released after failure")
	}
}

func TestRunSaveIntermediate(t *testing.T) {
	dir := t.TempDir()
	released := false

	r := testRunner(testPipelineConfig(), nil, &fakeConverter{}, &released, io.Discard)
	report, err := r.Run(context.Background(), Options{
		Source:           sourceDoc(t, dir),
		Output:           filepath.Join(dir, "formatted.docx"),
		SaveIntermediate: true,
	})
	retainWorkDir(t, report)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.WorkDir == "" {
		t.Fatal("work directory not reported")
	}
	for _, name := range []string{artifactCover, artifactBody, artifactMerged, artifactFinal} {
		if _, err := os.Stat(filepath.Join(report.WorkDir, name)); err != nil {
			t.Fatalf("intermediate %s missing: %v", name, err)
		}
	}
}

func TestRunRecordsJournal(t *testing.T) {
	dir := t.TempDir()
	jrnl, err := journal.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer jrnl.Close()
	released := false

	r := testRunner(testPipelineConfig(), jrnl, &fakeConverter{}, &released, io.Discard)
	report, err := r.Run(context.Background(), Options{
		Source: sourceDoc(t, dir),
		Output: filepath.Join(dir, "formatted.docx"),
	})
	retainWorkDir(t, report)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	runs, err := jrnl.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("journal lists %d runs, want 1", len(runs))
	}
	if runs[0].State != string(types.RunStateDone) {
		t.Fatalf("journal run state = %q, want done", runs[0].State)
	}

	stages, err := jrnl.Stages(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stages) != 12 {
		t.Fatalf("journal recorded %d stages, want 12", len(stages))
	}
	if stages[0].Stage != types.StageSplit || stages[len(stages)-1].Stage != types.StageValidate {
		t.Fatalf("stage order wrong: first %s, last %s", stages[0].Stage, stages[len(stages)-1].Stage)
	}
	if stages[2].Stage != types.StageTables {
		t.Fatalf("stage after convert = %s, want tables", stages[2].Stage)
	}
}

func TestRunFailedJournalNamesStage(t *testing.T) {
	dir := t.TempDir()
	jrnl, err := journal.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer jrnl.Close()
	released := false

	conv := &fakeConverter{err: &types.ConversionFailure{Tool: "pandoc", ExitCode: 2}}
	r := testRunner(testPipelineConfig(), jrnl, conv, &released, io.Discard)
	report, runErr := r.Run(context.Background(), Options{
		Source: sourceDoc(t, dir),
		Output: filepath.Join(dir, "formatted.docx"),
	})
	retainWorkDir(t, report)
	if runErr == nil {
		t.Fatal("run succeeded with a failing converter")
	}

	runs, err := jrnl.ListRuns(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].State != string(types.RunStateFailed) {
		t.Fatalf("journal run state = %q, want failed", runs[0].State)
	}
	if !strings.Contains(runs[0].Error, "convert") {
		t.Fatalf("journal error does not name the stage: %q", runs[0].Error)
	}
}

func TestNewConverterHonorsMaxRetries(t *testing.T) {
	dir := t.TempDir()
	countFile := filepath.Join(dir, "count")
	script := "#!/bin/sh\necho run >> " + countFile + "\nexit 1\n"
	if err := os.WriteFile(filepath.Join(dir, "pandoc"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	conv, release, err := newConverter(types.ConversionConfig{
		Backend:    types.BackendPandoc,
		MaxRetries: 0,
		Timeout:    time.Second,
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	err = conv.Convert(context.Background(), filepath.Join(dir, "in.docx"), filepath.Join(dir, "out.docx"), "")
	if err == nil {
		t.Fatal("conversion succeeded with a failing tool")
	}

	data, err := os.ReadFile(countFile)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "run"); got != 1 {
		t.Fatalf("converter invoked %d times with max_retries 0, want 1", got)
	}
}

func TestLoadPageSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.json")
	content := `{
		"paper_size": {"width": 21.0, "height": 29.7, "unit": "cm"},
		"margins": {"top": 2.5, "bottom": 2.5, "left": 3.0, "right": 3.0,
		            "header": 1.5, "footer": 1.75, "unit": "cm"},
		"page_numbers": [{"show": false}, {"show": true, "start": 1, "format": "decimal"}]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadPageSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if settings.Margins.Top != 2.5 || settings.Margins.Left != 3.0 {
		t.Fatalf("margins not loaded: %+v", settings.Margins)
	}
	if len(settings.PageNumbers) != 2 || !settings.PageNumbers[1].Show {
		t.Fatalf("page-number schemes not loaded: %+v", settings.PageNumbers)
	}
}

func TestLoadPageSettingsDefaults(t *testing.T) {
	settings, err := LoadPageSettings("")
	if err != nil {
		t.Fatal(err)
	}
	if settings.PaperSize.Width != 21.0 || settings.Margins.Top != 3.1 {
		t.Fatalf("defaults wrong: %+v", settings)
	}
}

func TestLoadPictureSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "picture.json")
	if err := os.WriteFile(path, []byte(`{"alignment": "left", "line_spacing": 1.5}`), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadPictureSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if settings.Alignment != "left" || settings.LineSpacing != 1.5 {
		t.Fatalf("picture settings not loaded: %+v", settings)
	}
}
