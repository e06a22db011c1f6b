// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"fmt"
	"io"

	"github.com/pdiddy/docforge/internal/docx"
)

// RemoveHighlights strips text highlighting and run-level shading from every
// run in the document body. Returns the number of marks removed. Running it
// on a clean document is a no-op.
func RemoveHighlights(pkg *docx.Package, w io.Writer) (int, error) {
	doc, err := pkg.Document()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rPr := range doc.FindElements("//w:rPr") {
		for _, tag := range []string{"w:highlight", "w:shd"} {
			for _, el := range rPr.SelectElements(tag) {
				rPr.RemoveChild(el)
				removed++
			}
		}
	}

	if removed == 0 {
		fmt.Fprintf(w, "highlights: none found\n")
		return 0, nil
	}
	if err := pkg.SetDocument(doc); err != nil {
		return removed, err
	}
	fmt.Fprintf(w, "highlights: removed %d mark(s)\n", removed)
	return removed, nil
}
