// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/pkg/types"
)

// FindTOCRegion returns the [start, end] child indices of the table of
// contents within the body element, or (-1, -1). Detection is a policy:
// a w:sdt block with the TOC gallery wins; otherwise a heading paragraph
// matched by style or width-folded keyword opens a region that runs through
// the generated TOC entry lines.
func FindTOCRegion(body *etree.Element, detect types.DetectConfig) (int, int) {
	children := body.ChildElements()

	for i, el := range children {
		if IsTOCSdt(el) {
			return i, i
		}
	}

	start := -1
	for i, el := range children {
		if IsParagraph(el) && IsTOCHeading(el, detect) {
			start = i
			break
		}
	}
	if start < 0 {
		return -1, -1
	}

	end := start
	for i := start + 1; i < len(children); i++ {
		if !IsParagraph(children[i]) || !isTOCEntry(children[i]) {
			break
		}
		end = i
	}
	return start, end
}

// IsTOCSdt reports whether an element is a structured document tag holding
// a generated table of contents.
func IsTOCSdt(el *etree.Element) bool {
	if el.Space != "w" || el.Tag != "sdt" {
		return false
	}
	gallery := el.FindElement(".//w:docPartGallery")
	return gallery != nil && gallery.SelectAttrValue("w:val", "") == "Table of Contents"
}

// IsTOCHeading reports whether a paragraph is a TOC heading under the given
// detection policy: style match first, then width-folded keyword text.
func IsTOCHeading(p *etree.Element, detect types.DetectConfig) bool {
	style := ParagraphStyle(p)
	for _, s := range detect.TOCStyles {
		if style == s {
			return true
		}
	}
	text := FoldText(ParagraphText(p))
	if text == "" {
		return false
	}
	for _, kw := range detect.TOCKeywords {
		if text == FoldText(kw) {
			return true
		}
	}
	return false
}

// isTOCEntry recognizes generated TOC lines: TOC1..TOC9 styled paragraphs
// or paragraphs containing a TOC field instruction.
func isTOCEntry(p *etree.Element) bool {
	if strings.HasPrefix(ParagraphStyle(p), "TOC") {
		return true
	}
	for _, instr := range p.FindElements(".//w:instrText") {
		if strings.Contains(strings.TrimSpace(instr.Text()), "TOC") {
			return true
		}
	}
	return false
}
