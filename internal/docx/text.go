// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"golang.org/x/text/width"
)

// ParagraphText concatenates the text of all w:t runs under a paragraph.
func ParagraphText(p *etree.Element) string {
	var b strings.Builder
	for _, t := range p.FindElements(".//w:t") {
		b.WriteString(t.Text())
	}
	return b.String()
}

// FoldText normalizes text for matching: full-width characters are folded to
// their narrow forms and all whitespace is removed, so "目 录" and "目录"
// compare equal, as do full-width and ASCII colons.
func FoldText(s string) string {
	folded := width.Narrow.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// ParagraphStyle returns the paragraph's w:pStyle value, or "".
func ParagraphStyle(p *etree.Element) string {
	pPr := p.SelectElement("w:pPr")
	if pPr == nil {
		return ""
	}
	style := pPr.SelectElement("w:pStyle")
	if style == nil {
		return ""
	}
	return style.SelectAttrValue("w:val", "")
}

// EnsurePPr returns the paragraph's w:pPr element, creating it as the first
// child when absent (OOXML requires pPr to precede runs).
func EnsurePPr(p *etree.Element) *etree.Element {
	if pPr := p.SelectElement("w:pPr"); pPr != nil {
		return pPr
	}
	pPr := etree.NewElement("w:pPr")
	p.InsertChildAt(0, pPr)
	return pPr
}

// SetVal ensures parent has a child element with the given tag and sets its
// w:val attribute.
func SetVal(parent *etree.Element, tag, val string) *etree.Element {
	el := parent.SelectElement(tag)
	if el == nil {
		el = parent.CreateElement(tag)
	}
	el.CreateAttr("w:val", val)
	return el
}

// IsParagraph reports whether an element is a w:p.
func IsParagraph(el *etree.Element) bool {
	return el.Space == "w" && el.Tag == "p"
}

// IsSectPrOnly reports whether a paragraph carries nothing but a section
// break: a w:pPr whose only child is w:sectPr, and no runs.
func IsSectPrOnly(p *etree.Element) bool {
	if !IsParagraph(p) {
		return false
	}
	children := p.ChildElements()
	if len(children) != 1 || children[0].Tag != "pPr" {
		return false
	}
	pPrChildren := children[0].ChildElements()
	return len(pPrChildren) == 1 && pPrChildren[0].Tag == "sectPr"
}
