// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/pkg/types"
)

// InsertSectionBreak places a section break immediately after the table of
// contents, splitting the document into a front-matter section and a body
// section so page numbering can differ between them. The break paragraph
// carries an empty w:sectPr, which inherits the page setup in effect rather
// than overriding it.
//
// The pass is idempotent: when the element after the TOC is already a
// section-break paragraph, nothing is inserted, so re-running the pipeline
// on its own output cannot stack breaks. It also pins the configured page
// geometry onto the final body section.
func InsertSectionBreak(pkg *docx.Package, detect types.DetectConfig, page types.PageSettings, w io.Writer) (bool, error) {
	doc, err := pkg.Document()
	if err != nil {
		return false, err
	}
	body, err := docx.Body(doc)
	if err != nil {
		return false, err
	}

	_, end := docx.FindTOCRegion(body, detect)
	if end < 0 {
		return false, &types.StructuralAssumptionError{Marker: "table of contents"}
	}

	children := body.ChildElements()
	inserted := false
	already := end+1 < len(children) && docx.IsSectPrOnly(children[end+1])
	if !already {
		body.InsertChildAt(children[end].Index()+1, sectionBreakParagraph())
		inserted = true
	}

	applyPageGeometry(body, page)

	if err := pkg.SetDocument(doc); err != nil {
		return false, err
	}
	if inserted {
		fmt.Fprintln(w, "section-break: inserted after table of contents")
	} else {
		fmt.Fprintln(w, "section-break: already present, skipping")
	}
	return inserted, nil
}

func sectionBreakParagraph() *etree.Element {
	p := etree.NewElement("w:p")
	p.CreateElement("w:pPr").CreateElement("w:sectPr")
	return p
}

// applyPageGeometry sets the configured paper size and margins on the final
// body-level section properties, creating them when absent.
func applyPageGeometry(body *etree.Element, page types.PageSettings) {
	sectPr := body.SelectElement("w:sectPr")
	if sectPr == nil {
		sectPr = body.CreateElement("w:sectPr")
	}

	pgSz := sectPr.SelectElement("w:pgSz")
	if pgSz == nil {
		pgSz = sectPr.CreateElement("w:pgSz")
	}
	pgSz.CreateAttr("w:w", strconv.Itoa(page.PaperSize.WidthTwips()))
	pgSz.CreateAttr("w:h", strconv.Itoa(page.PaperSize.HeightTwips()))

	pgMar := sectPr.SelectElement("w:pgMar")
	if pgMar == nil {
		pgMar = sectPr.CreateElement("w:pgMar")
	}
	m := page.Margins
	pgMar.CreateAttr("w:top", strconv.Itoa(m.TopTwips()))
	pgMar.CreateAttr("w:right", strconv.Itoa(m.RightTwips()))
	pgMar.CreateAttr("w:bottom", strconv.Itoa(m.BottomTwips()))
	pgMar.CreateAttr("w:left", strconv.Itoa(m.LeftTwips()))
	pgMar.CreateAttr("w:header", strconv.Itoa(m.HeaderTwips()))
	pgMar.CreateAttr("w:footer", strconv.Itoa(m.FooterTwips()))
	pgMar.CreateAttr("w:gutter", strconv.Itoa(m.GutterTwips()))
}
