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

// singleSpacingLine is the w:line value for single spacing ("auto" rule).
const singleSpacingLine = 240

// FormatPictures aligns every image-bearing paragraph in the document body
// and sets its line spacing per the picture settings. Header and footer
// parts are never touched, so logos stay where the template put them.
// Reapplying the pass is a no-op, and a document with zero images is not an
// error.
func FormatPictures(pkg *docx.Package, ps types.PictureSettings, w io.Writer) (int, error) {
	doc, err := pkg.Document()
	if err != nil {
		return 0, err
	}
	body, err := docx.Body(doc)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range body.FindElements(".//w:p") {
		if p.FindElement(".//w:drawing") == nil && p.FindElement(".//w:pict") == nil {
			continue
		}
		applyPictureFormat(p, ps)
		count++
	}

	if count == 0 {
		fmt.Fprintln(w, "pictures: none found, nothing to format")
		return 0, nil
	}

	if err := pkg.SetDocument(doc); err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "pictures: formatted %d paragraph(s)\n", count)
	return count, nil
}

func applyPictureFormat(p *etree.Element, ps types.PictureSettings) {
	pPr := docx.EnsurePPr(p)

	docx.SetVal(pPr, "w:jc", jcValue(ps.Alignment))

	spacing := pPr.SelectElement("w:spacing")
	if spacing == nil {
		spacing = pPr.CreateElement("w:spacing")
	}
	line := int(float64(singleSpacingLine) * ps.LineSpacing)
	if line <= 0 {
		line = singleSpacingLine
	}
	spacing.CreateAttr("w:line", strconv.Itoa(line))
	spacing.CreateAttr("w:lineRule", "auto")
	spacing.CreateAttr("w:before", strconv.Itoa(ps.BeforeSpacing))
	spacing.CreateAttr("w:after", strconv.Itoa(ps.AfterSpacing))
}

// jcValue maps a settings alignment name to the OOXML w:jc value.
func jcValue(alignment string) string {
	switch alignment {
	case "left":
		return "left"
	case "right":
		return "right"
	case "justify", "both":
		return "both"
	default:
		return "center"
	}
}
