// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package format applies the structural post-processing passes to the
// merged document: TOC title rewrite, image formatting, library-number
// alignment, section-break insertion, per-section page numbering, and
// highlight removal. Every pass edits the document tree in place and is
// written to be idempotent where the contract requires it.
// Implements: prd105-format; docs/ARCHITECTURE § Post-processing.
package format

import (
	"fmt"
	"io"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/pkg/types"
)

// RewriteTOCTitle replaces the table-of-contents heading text with title,
// preserving the heading paragraph's formatting. The heading is located by
// the configured match policy (style set, then folded keyword text), never
// by a hardcoded string. A document without a matching heading fails with
// NotFoundError: leaving the default title in a delivered document is not
// acceptable.
func RewriteTOCTitle(pkg *docx.Package, detect types.DetectConfig, title string, w io.Writer) error {
	doc, err := pkg.Document()
	if err != nil {
		return err
	}
	body, err := docx.Body(doc)
	if err != nil {
		return err
	}

	heading := findTOCHeadingParagraph(body, detect)
	if heading == nil {
		return &types.NotFoundError{Target: "table of contents heading"}
	}

	setParagraphText(heading, title)
	if err := pkg.SetDocument(doc); err != nil {
		return err
	}
	fmt.Fprintf(w, "toc-title: heading set to %q\n", title)
	return nil
}

// findTOCHeadingParagraph returns the heading paragraph of the TOC block:
// inside the w:sdt when the document has one, otherwise the detected
// heading paragraph itself.
func findTOCHeadingParagraph(body *etree.Element, detect types.DetectConfig) *etree.Element {
	start, _ := docx.FindTOCRegion(body, detect)
	if start < 0 {
		return nil
	}

	el := body.ChildElements()[start]
	if docx.IsParagraph(el) {
		return el
	}

	// Inside an sdt the heading is the first paragraph that matches the
	// policy, falling back to the first paragraph of the content block.
	paras := el.FindElements(".//w:p")
	for _, p := range paras {
		if docx.IsTOCHeading(p, detect) {
			return p
		}
	}
	if len(paras) > 0 {
		return paras[0]
	}
	return nil
}

// setParagraphText writes text into the paragraph's first run and empties
// the remaining runs, leaving run properties (and thus formatting) intact.
func setParagraphText(p *etree.Element, text string) {
	ts := p.FindElements(".//w:t")
	if len(ts) == 0 {
		r := p.CreateElement("w:r")
		t := r.CreateElement("w:t")
		t.SetText(text)
		t.CreateAttr("xml:space", "preserve")
		return
	}
	for i, t := range ts {
		if i == 0 {
			t.SetText(text)
			t.CreateAttr("xml:space", "preserve")
			continue
		}
		t.SetText("")
	}
}
