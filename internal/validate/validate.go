// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks a finished document against the formatting
// post-conditions before it is released to the caller's output path.
// Implements: prd106-validate; docs/ARCHITECTURE § Validation.
package validate

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/pkg/types"
)

// Config holds the expected document properties.
type Config struct {
	// TOCTitle is the exact text the single TOC heading must carry.
	TOCTitle string

	Detect types.DetectConfig
	Page   types.PageSettings
}

// CheckResult is the outcome of one validation check.
type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// Report collects the results of all checks against one artifact.
type Report struct {
	Path   string
	Checks []CheckResult
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func (r *Report) add(name string, ok bool, detail string) {
	r.Checks = append(r.Checks, CheckResult{Name: name, OK: ok, Detail: detail})
}

// failures returns the details of failed checks.
func (r *Report) failures() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.OK {
			out = append(out, fmt.Sprintf("%s: %s", c.Name, c.Detail))
		}
	}
	return out
}

// Check re-opens the artifact at path and verifies the formatting
// post-conditions: a well-formed package, exactly one TOC heading with the
// configured title, a single section break directly after the TOC, and
// per-section numbering matching the configured schemes. A failed check
// yields a ValidationFailure; the report carries per-check detail either
// way.
func Check(path string, cfg Config, w io.Writer) (*Report, error) {
	report := &Report{Path: path}

	pkg, err := docx.Open(path)
	if err != nil {
		report.add("package", false, err.Error())
		return report, &types.ValidationFailure{Path: path, Details: report.failures()}
	}
	report.add("package", true, "opens as a DOCX package")

	doc, err := pkg.Document()
	if err != nil {
		report.add("document", false, err.Error())
		return report, &types.ValidationFailure{Path: path, Details: report.failures()}
	}
	body, err := docx.Body(doc)
	if err != nil {
		report.add("document", false, err.Error())
		return report, &types.ValidationFailure{Path: path, Details: report.failures()}
	}
	report.add("document", true, "document body present")

	checkTOCTitle(report, body, cfg)
	checkSectionBreak(report, body, cfg.Detect)
	checkPageNumbers(report, pkg, doc, cfg.Page)

	for _, c := range report.Checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		fmt.Fprintf(w, "validate: %-14s %s  %s\n", c.Name, status, c.Detail)
	}

	if !report.OK() {
		return report, &types.ValidationFailure{Path: path, Details: report.failures()}
	}
	return report, nil
}

// checkTOCTitle verifies exactly one TOC heading exists and carries the
// configured title verbatim.
func checkTOCTitle(report *Report, body *etree.Element, cfg Config) {
	if cfg.TOCTitle == "" {
		report.add("toc-title", true, "no title configured, skipped")
		return
	}

	var headings []string
	for _, p := range body.FindElements(".//w:p") {
		if docx.IsTOCHeading(p, cfg.Detect) {
			headings = append(headings, docx.ParagraphText(p))
		}
	}

	switch {
	case len(headings) == 0:
		report.add("toc-title", false, "no TOC heading found")
	case len(headings) > 1:
		report.add("toc-title", false, fmt.Sprintf("%d TOC headings found, want 1", len(headings)))
	case headings[0] != cfg.TOCTitle:
		report.add("toc-title", false, fmt.Sprintf("heading is %q, want %q", headings[0], cfg.TOCTitle))
	default:
		report.add("toc-title", true, fmt.Sprintf("heading is %q", cfg.TOCTitle))
	}
}

// checkSectionBreak verifies a single empty section break sits directly
// after the TOC region.
func checkSectionBreak(report *Report, body *etree.Element, detect types.DetectConfig) {
	breaks := 0
	for _, p := range body.ChildElements() {
		if docx.IsSectPrOnly(p) {
			breaks++
		}
	}
	if breaks != 1 {
		report.add("section-break", false, fmt.Sprintf("%d section-break paragraphs, want 1", breaks))
		return
	}

	_, end := docx.FindTOCRegion(body, detect)
	if end < 0 {
		report.add("section-break", false, "no TOC region to anchor the break")
		return
	}
	children := body.ChildElements()
	if end+1 >= len(children) || !docx.IsSectPrOnly(children[end+1]) {
		report.add("section-break", false, "break is not directly after the TOC")
		return
	}
	report.add("section-break", true, "one break directly after the TOC")
}

// checkPageNumbers verifies each configured scheme against the matching
// document section: footer present, PAGE field shown or hidden, and the
// numbering restart where one is configured.
func checkPageNumbers(report *Report, pkg *docx.Package, doc *etree.Document, page types.PageSettings) {
	if len(page.PageNumbers) == 0 {
		report.add("page-numbers", true, "no schemes configured, skipped")
		return
	}

	var sections []*etree.Element
	for _, el := range doc.FindElements("//w:sectPr") {
		if parent := el.Parent(); parent != nil && (parent.Tag == "pPr" || parent.Tag == "body") {
			sections = append(sections, el)
		}
	}
	if len(sections) < len(page.PageNumbers) {
		report.add("page-numbers", false,
			fmt.Sprintf("%d sections, want at least %d", len(sections), len(page.PageNumbers)))
		return
	}

	for i, scheme := range page.PageNumbers {
		name := fmt.Sprintf("page-numbers-%d", i+1)
		sectPr := sections[i]

		ref := defaultFooterRef(sectPr)
		if ref == "" {
			report.add(name, false, "no default footer reference")
			continue
		}
		content, err := footerContent(pkg, ref)
		if err != nil {
			report.add(name, false, err.Error())
			continue
		}

		hasPage := strings.Contains(content, "PAGE")
		if scheme.Show != hasPage {
			if scheme.Show {
				report.add(name, false, "footer has no PAGE field")
			} else {
				report.add(name, false, "footer shows a page number")
			}
			continue
		}

		if scheme.Show && scheme.Start > 0 {
			pgNumType := sectPr.SelectElement("w:pgNumType")
			if pgNumType == nil || pgNumType.SelectAttrValue("w:start", "") != fmt.Sprint(scheme.Start) {
				report.add(name, false, fmt.Sprintf("numbering does not restart at %d", scheme.Start))
				continue
			}
		}
		report.add(name, true, "matches scheme")
	}
}

// defaultFooterRef returns the relationship ID of the section's default
// footer, or "".
func defaultFooterRef(sectPr *etree.Element) string {
	for _, ref := range sectPr.SelectElements("w:footerReference") {
		if ref.SelectAttrValue("w:type", "") == "default" {
			return ref.SelectAttrValue("r:id", "")
		}
	}
	return ""
}

// footerContent resolves a footer relationship ID to the part text.
func footerContent(pkg *docx.Package, relID string) (string, error) {
	rels, err := pkg.XML(docx.PartDocumentRels)
	if err != nil {
		return "", err
	}
	for _, rel := range rels.FindElements("//Relationship") {
		if rel.SelectAttrValue("Id", "") != relID {
			continue
		}
		target := rel.SelectAttrValue("Target", "")
		if !strings.HasPrefix(target, "/") {
			target = "word/" + target
		} else {
			target = strings.TrimPrefix(target, "/")
		}
		data, err := pkg.Part(target)
		if err != nil {
			return "", fmt.Errorf("footer part %s: %w", target, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("relationship %s not found", relID)
}
