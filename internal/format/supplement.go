// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"fmt"
	"io"
	"regexp"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/internal/docx"
)

// etreeInsertFirst creates tag as the first child of parent (w:rPr must
// precede the run content).
func etreeInsertFirst(parent *etree.Element, tag string) *etree.Element {
	el := etree.NewElement(tag)
	parent.InsertChildAt(0, el)
	return el
}

// FormatLibraryNumbers right-aligns every paragraph whose width-folded text
// matches the library-number pattern and bolds its label run. The match
// policy is tolerant: source documents without a library-number line are
// formatted runs, not failures, so an absent match is a no-op.
func FormatLibraryNumbers(pkg *docx.Package, pattern string, w io.Writer) (int, error) {
	if pattern == "" {
		return 0, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("library-number pattern %q: %w", pattern, err)
	}

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
		if !re.MatchString(docx.FoldText(docx.ParagraphText(p))) {
			continue
		}

		pPr := docx.EnsurePPr(p)
		docx.SetVal(pPr, "w:jc", "right")

		if r := p.SelectElement("w:r"); r != nil {
			rPr := r.SelectElement("w:rPr")
			if rPr == nil {
				rPr = etreeInsertFirst(r, "w:rPr")
			}
			if rPr.SelectElement("w:b") == nil {
				rPr.CreateElement("w:b")
			}
		}
		count++
	}

	if count == 0 {
		fmt.Fprintln(w, "supplement: no library-number line, skipping")
		return 0, nil
	}

	if err := pkg.SetDocument(doc); err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "supplement: right-aligned %d library-number line(s)\n", count)
	return count, nil
}
