// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docxtest builds small DOCX fixtures for tests. Fixtures are
// assembled from raw WordprocessingML fragments so tests state exactly the
// structure they exercise.
package docxtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/docforge/internal/docx"
)

const docHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:document xmlns:w="` + docx.WNamespace + `" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
	`<w:body>`

const docFooter = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`

// Doc returns a package whose document body holds the given block-level
// fragments followed by a final section.
func Doc(blocks ...string) *docx.Package {
	pkg := docx.New()
	pkg.SetPart(docx.PartDocument, []byte(docHeader+strings.Join(blocks, "")+docFooter))
	return pkg
}

// Para returns a plain paragraph with one run.
func Para(text string) string {
	return `<w:p><w:r><w:t>` + escape(text) + `</w:t></w:r></w:p>`
}

// StyledPara returns a paragraph with a style and one run.
func StyledPara(style, text string) string {
	return `<w:p><w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>` +
		`<w:r><w:t>` + escape(text) + `</w:t></w:r></w:p>`
}

// HighlightedPara returns a paragraph whose run is highlighted yellow.
func HighlightedPara(text string) string {
	return `<w:p><w:r><w:rPr><w:highlight w:val="yellow"/></w:rPr>` +
		`<w:t>` + escape(text) + `</w:t></w:r></w:p>`
}

// ImagePara returns a paragraph holding an inline drawing.
func ImagePara() string {
	return `<w:p><w:r><w:drawing><wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
		`<wp:extent cx="914400" cy="914400"/></wp:inline></w:drawing></w:r></w:p>`
}

// TOCBlock returns a w:sdt table-of-contents block with the given heading
// text and entry lines, matching the structure Word generates.
func TOCBlock(heading string, entries ...string) string {
	var b strings.Builder
	b.WriteString(`<w:sdt><w:sdtPr><w:docPartObj><w:docPartGallery w:val="Table of Contents"/>` +
		`<w:docPartUnique/></w:docPartObj></w:sdtPr><w:sdtContent>`)
	b.WriteString(StyledPara("TOCHeading", heading))
	for i, e := range entries {
		b.WriteString(fmt.Sprintf(`<w:p><w:pPr><w:pStyle w:val="TOC%d"/></w:pPr>`+
			`<w:r><w:t>%s</w:t></w:r></w:p>`, i%3+1, escape(e)))
	}
	b.WriteString(`</w:sdtContent></w:sdt>`)
	return b.String()
}

// Table returns a one-row table whose cells hold the given texts.
func Table(cells ...string) string {
	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="5000" w:type="pct"/></w:tblPr><w:tr>`)
	for _, c := range cells {
		b.WriteString(`<w:tc><w:p><w:r><w:t>` + escape(c) + `</w:t></w:r></w:p></w:tc>`)
	}
	b.WriteString(`</w:tr></w:tbl>`)
	return b.String()
}

// SectionBreakPara returns a paragraph carrying only an empty section break.
func SectionBreakPara() string {
	return `<w:p><w:pPr><w:sectPr/></w:pPr></w:p>`
}

// Write saves a package into dir under name and returns its path.
func Write(t *testing.T, dir, name string, pkg *docx.Package) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := pkg.Save(path); err != nil {
		t.Fatalf("saving fixture %s: %v", name, err)
	}
	return path
}

// WriteJunk writes a file that is not a valid DOCX package.
func WriteJunk(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
