// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"fmt"
	"io"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/internal/docx"
)

// RestoreTables replaces the converted document's body tables with the
// source document's, matched by body position. External converters tend to
// flatten table layout; restoring the source tables keeps their grid,
// borders, and merged cells intact. Only direct body children are touched,
// never tables inside headers, footers, or text boxes.
func RestoreTables(pkg, source *docx.Package, w io.Writer) (int, error) {
	srcTables, err := bodyTables(source)
	if err != nil {
		return 0, err
	}
	if len(srcTables) == 0 {
		fmt.Fprintln(w, "tables: none found in source, nothing to restore")
		return 0, nil
	}

	doc, err := pkg.Document()
	if err != nil {
		return 0, err
	}
	body, err := docx.Body(doc)
	if err != nil {
		return 0, err
	}

	var dstTables []*etree.Element
	for _, child := range body.ChildElements() {
		if child.Tag == "tbl" {
			dstTables = append(dstTables, child)
		}
	}
	if len(dstTables) == 0 {
		fmt.Fprintln(w, "tables: converted document has none, skipping restore")
		return 0, nil
	}

	n := len(srcTables)
	if len(dstTables) < n {
		n = len(dstTables)
	}
	if len(srcTables) != len(dstTables) {
		fmt.Fprintf(w, "tables: count mismatch (source %d, converted %d), restoring first %d\n",
			len(srcTables), len(dstTables), n)
	}

	for i := 0; i < n; i++ {
		old := dstTables[i]
		body.InsertChildAt(old.Index(), srcTables[i].Copy())
		body.RemoveChild(old)
	}

	if err := pkg.SetDocument(doc); err != nil {
		return n, err
	}
	fmt.Fprintf(w, "tables: restored %d table(s) from source\n", n)
	return n, nil
}

// bodyTables returns the package's direct body-level w:tbl elements in
// document order.
func bodyTables(pkg *docx.Package) ([]*etree.Element, error) {
	doc, err := pkg.Document()
	if err != nil {
		return nil, err
	}
	body, err := docx.Body(doc)
	if err != nil {
		return nil, err
	}
	var tables []*etree.Element
	for _, child := range body.ChildElements() {
		if child.Tag == "tbl" {
			tables = append(tables, child)
		}
	}
	return tables, nil
}
