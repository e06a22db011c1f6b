// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/pkg/types"
)

const (
	relTypeFooter = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	ctFooter      = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"

	// officeRelNamespace is the document-level relationships namespace
	// bound to the r prefix.
	officeRelNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

const footerWithPage = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:ftr xmlns:w="` + docx.WNamespace + `"><w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:fldChar w:fldCharType="begin"/></w:r><w:r><w:instrText xml:space="preserve"> PAGE </w:instrText></w:r><w:r><w:fldChar w:fldCharType="end"/></w:r></w:p></w:ftr>`

const footerEmpty = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:ftr xmlns:w="` + docx.WNamespace + `"><w:p/></w:ftr>`

// ApplyPageNumbers applies the configured numbering scheme to each document
// section in order. Every touched section gets its own dedicated footer
// part, the equivalent of unlinking the footer from the previous section,
// so one section's numbering can never leak into another. Sections beyond
// the configured scheme list keep their existing footers.
func ApplyPageNumbers(pkg *docx.Package, page types.PageSettings, w io.Writer) (int, error) {
	if len(page.PageNumbers) == 0 {
		return 0, nil
	}

	doc, err := pkg.Document()
	if err != nil {
		return 0, err
	}
	ensureRelNamespace(doc)

	sections := documentSections(doc)
	if len(sections) == 0 {
		return 0, &types.StructuralAssumptionError{Marker: "document section"}
	}

	applied := 0
	for i, scheme := range page.PageNumbers {
		if i >= len(sections) {
			break
		}
		if err := applyScheme(pkg, sections[i], scheme); err != nil {
			return applied, fmt.Errorf("section %d: %w", i+1, err)
		}
		applied++
	}

	if err := pkg.SetDocument(doc); err != nil {
		return applied, err
	}
	fmt.Fprintf(w, "page-numbers: applied scheme to %d of %d section(s)\n", applied, len(sections))
	return applied, nil
}

// documentSections returns the document's w:sectPr elements in section
// order: paragraph-level breaks first, the body-level trailing one last.
func documentSections(doc *etree.Document) []*etree.Element {
	var sections []*etree.Element
	for _, el := range doc.FindElements("//w:sectPr") {
		parent := el.Parent()
		if parent == nil {
			continue
		}
		if parent.Tag == "pPr" || parent.Tag == "body" {
			sections = append(sections, el)
		}
	}
	return sections
}

// applyScheme provisions the section's footer part and pgNumType.
func applyScheme(pkg *docx.Package, sectPr *etree.Element, scheme types.PageNumberScheme) error {
	content := footerEmpty
	if scheme.Show {
		content = footerWithPage
	}

	partName := fmt.Sprintf("word/footer%d.xml", nextFooterIndex(pkg))
	pkg.SetPart(partName, []byte(content))
	if err := pkg.AddContentTypeOverride("/"+partName, ctFooter); err != nil {
		return err
	}
	relID, err := pkg.AddRelationship(relTypeFooter, strings.TrimPrefix(partName, "word/"))
	if err != nil {
		return err
	}

	// Replace any default footer reference with the dedicated one.
	for _, ref := range sectPr.SelectElements("w:footerReference") {
		if ref.SelectAttrValue("w:type", "") == "default" {
			sectPr.RemoveChild(ref)
		}
	}
	ref := etree.NewElement("w:footerReference")
	ref.CreateAttr("w:type", "default")
	ref.CreateAttr("r:id", relID)
	// CT_SectPr requires header references before footer references.
	idx := 0
	for _, hdr := range sectPr.SelectElements("w:headerReference") {
		if i := hdr.Index(); i >= idx {
			idx = i + 1
		}
	}
	sectPr.InsertChildAt(idx, ref)

	if scheme.Show && scheme.Start > 0 {
		pgNumType := sectPr.SelectElement("w:pgNumType")
		if pgNumType == nil {
			pgNumType = sectPr.CreateElement("w:pgNumType")
		}
		pgNumType.CreateAttr("w:start", strconv.Itoa(scheme.Start))
		if scheme.Format != "" {
			pgNumType.CreateAttr("w:fmt", scheme.Format)
		}
	}
	return nil
}

// nextFooterIndex returns the first unused footerN.xml index.
func nextFooterIndex(pkg *docx.Package) int {
	max := 0
	for _, name := range pkg.PartsUnder("word/footer") {
		base := strings.TrimSuffix(strings.TrimPrefix(name, "word/footer"), ".xml")
		if v, err := strconv.Atoi(base); err == nil && v > max {
			max = v
		}
	}
	return max + 1
}

// ensureRelNamespace declares the officeDocument relationships namespace on
// the document root so r:id attributes resolve.
func ensureRelNamespace(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	for _, a := range root.Attr {
		if a.Space == "xmlns" && a.Key == "r" {
			return
		}
	}
	root.CreateAttr("xmlns:r", officeRelNamespace)
}
