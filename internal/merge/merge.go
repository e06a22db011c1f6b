// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge recombines the cover fragment and the converted body into
// one document. Cover formatting always wins: colliding body style IDs are
// renamed, body media and relationships are re-added under fresh IDs, and
// numbering definitions are shifted above the cover's range, so neither
// fragment's internal structure is clobbered.
// Implements: prd104-merge; docs/ARCHITECTURE § Merging.
package merge

import (
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/internal/docx"
)

const (
	relTypeImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relTypeHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relTypeNumbering = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	relTypeStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"

	ctNumbering = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	ctStyles    = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"

	// bodyStyleSuffix renames body styles that collide with cover styles.
	bodyStyleSuffix = "-body"
)

// imageContentTypes maps media file extensions to their content types.
var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"emf":  "image/x-emf",
	"wmf":  "image/x-wmf",
}

// Merge appends the body fragment's content to the cover fragment and
// writes the combined document. Both inputs are left untouched.
func Merge(coverPath, bodyPath, outputPath string, w io.Writer) error {
	cover, err := docx.Open(coverPath)
	if err != nil {
		return err
	}
	body, err := docx.Open(bodyPath)
	if err != nil {
		return err
	}

	bodyDoc, err := body.Document()
	if err != nil {
		return err
	}
	bodyRoot, err := docx.Body(bodyDoc)
	if err != nil {
		return err
	}

	styleRenames, err := mergeStyles(cover, body)
	if err != nil {
		return fmt.Errorf("merging styles: %w", err)
	}

	numRemap, err := mergeNumbering(cover, body)
	if err != nil {
		return fmt.Errorf("merging numbering: %w", err)
	}

	relRemap, err := mergeMediaAndRels(cover, body)
	if err != nil {
		return fmt.Errorf("merging media: %w", err)
	}

	// Rewrite the body content against the merged namespaces, then append
	// it before the cover's trailing section properties.
	applyStyleRenames(bodyRoot, styleRenames)
	applyNumberingRemap(bodyRoot, numRemap)
	applyRelRemap(bodyRoot, relRemap)

	coverDoc, err := cover.Document()
	if err != nil {
		return err
	}
	coverBody, err := docx.Body(coverDoc)
	if err != nil {
		return err
	}

	appended := 0
	insertAt := len(coverBody.Child)
	if last := coverBody.SelectElement("w:sectPr"); last != nil {
		insertAt = last.Index()
	}
	for _, el := range bodyRoot.ChildElements() {
		if el.Space == "w" && el.Tag == "sectPr" {
			continue
		}
		coverBody.InsertChildAt(insertAt, el.Copy())
		insertAt++
		appended++
	}

	if err := cover.SetDocument(coverDoc); err != nil {
		return err
	}
	if err := cover.Save(outputPath); err != nil {
		return fmt.Errorf("writing merged document: %w", err)
	}

	fmt.Fprintf(w, "merge: appended %d block(s), renamed %d style(s), remapped %d relationship(s)\n",
		appended, len(styleRenames), len(relRemap))
	return nil
}

// mergeStyles appends the body's style definitions to the cover's, renaming
// IDs the cover already defines. Returns the oldID → newID renames to apply
// to the body content.
func mergeStyles(cover, body *docx.Package) (map[string]string, error) {
	renames := map[string]string{}
	if !body.Has(docx.PartStyles) {
		return renames, nil
	}

	// A cover without styles adopts the body's part wholesale.
	if !cover.Has(docx.PartStyles) {
		data, err := body.Part(docx.PartStyles)
		if err != nil {
			return nil, err
		}
		cover.SetPart(docx.PartStyles, data)
		if err := cover.AddContentTypeOverride("/word/styles.xml", ctStyles); err != nil {
			return nil, err
		}
		if _, err := cover.AddRelationship(relTypeStyles, "styles.xml"); err != nil {
			return nil, err
		}
		return renames, nil
	}

	coverDoc, err := cover.XML(docx.PartStyles)
	if err != nil {
		return nil, err
	}
	bodyDoc, err := body.XML(docx.PartStyles)
	if err != nil {
		return nil, err
	}

	coverIDs := map[string]bool{}
	for _, s := range coverDoc.Root().SelectElements("w:style") {
		coverIDs[s.SelectAttrValue("w:styleId", "")] = true
	}

	for _, s := range bodyDoc.Root().SelectElements("w:style") {
		id := s.SelectAttrValue("w:styleId", "")
		if id != "" && coverIDs[id] {
			renames[id] = id + bodyStyleSuffix
		}
	}

	for _, s := range bodyDoc.Root().SelectElements("w:style") {
		id := s.SelectAttrValue("w:styleId", "")
		c := s.Copy()
		if newID, ok := renames[id]; ok {
			c.CreateAttr("w:styleId", newID)
		}
		// Intra-style references follow the renames so renamed body styles
		// keep pointing at body definitions, not cover ones.
		for _, tag := range []string{"w:basedOn", "w:next", "w:link"} {
			if ref := c.SelectElement(tag); ref != nil {
				if newID, ok := renames[ref.SelectAttrValue("w:val", "")]; ok {
					ref.CreateAttr("w:val", newID)
				}
			}
		}
		coverDoc.Root().AddChild(c)
	}

	return renames, cover.SetXML(docx.PartStyles, coverDoc)
}

// mergeNumbering shifts the body's numbering definitions above the cover's
// highest IDs and appends them. Returns the old → new w:numId mapping.
func mergeNumbering(cover, body *docx.Package) (map[string]string, error) {
	remap := map[string]string{}
	if !body.Has(docx.PartNumbering) {
		return remap, nil
	}

	if !cover.Has(docx.PartNumbering) {
		data, err := body.Part(docx.PartNumbering)
		if err != nil {
			return nil, err
		}
		cover.SetPart(docx.PartNumbering, data)
		if err := cover.AddContentTypeOverride("/word/numbering.xml", ctNumbering); err != nil {
			return nil, err
		}
		if _, err := cover.AddRelationship(relTypeNumbering, "numbering.xml"); err != nil {
			return nil, err
		}
		return remap, nil
	}

	coverDoc, err := cover.XML(docx.PartNumbering)
	if err != nil {
		return nil, err
	}
	bodyDoc, err := body.XML(docx.PartNumbering)
	if err != nil {
		return nil, err
	}

	offset := 0
	for _, el := range coverDoc.Root().ChildElements() {
		for _, attr := range []string{"w:numId", "w:abstractNumId"} {
			if v, err := strconv.Atoi(el.SelectAttrValue(attr, "")); err == nil && v > offset {
				offset = v
			}
		}
	}

	abstractRemap := map[string]string{}
	for _, el := range bodyDoc.Root().ChildElements() {
		c := el.Copy()
		switch {
		case c.Tag == "abstractNum":
			old := c.SelectAttrValue("w:abstractNumId", "")
			if v, err := strconv.Atoi(old); err == nil {
				abstractRemap[old] = strconv.Itoa(v + offset)
				c.CreateAttr("w:abstractNumId", abstractRemap[old])
			}
		case c.Tag == "num":
			old := c.SelectAttrValue("w:numId", "")
			if v, err := strconv.Atoi(old); err == nil {
				remap[old] = strconv.Itoa(v + offset)
				c.CreateAttr("w:numId", remap[old])
			}
			if ref := c.SelectElement("w:abstractNumId"); ref != nil {
				if newID, ok := abstractRemap[ref.SelectAttrValue("w:val", "")]; ok {
					ref.CreateAttr("w:val", newID)
				}
			}
		}
		coverDoc.Root().AddChild(c)
	}

	return remap, cover.SetXML(docx.PartNumbering, coverDoc)
}

// mergeMediaAndRels copies the body's media parts into the cover under
// non-colliding names and re-adds image/hyperlink relationships with fresh
// IDs. Returns the old → new relationship ID mapping for the body content.
func mergeMediaAndRels(cover, body *docx.Package) (map[string]string, error) {
	remap := map[string]string{}
	if !body.Has(docx.PartDocumentRels) {
		return remap, nil
	}

	relsDoc, err := body.XML(docx.PartDocumentRels)
	if err != nil {
		return nil, err
	}

	mediaIndex := nextMediaIndex(cover)
	for _, rel := range relsDoc.Root().SelectElements("Relationship") {
		oldID := rel.SelectAttrValue("Id", "")
		relType := rel.SelectAttrValue("Type", "")
		target := rel.SelectAttrValue("Target", "")

		switch relType {
		case relTypeImage:
			srcPart := "word/" + target
			data, err := body.Part(srcPart)
			if err != nil {
				return nil, fmt.Errorf("body image %s: %w", srcPart, err)
			}

			ext := strings.TrimPrefix(path.Ext(target), ".")
			newTarget := target
			if cover.Has(srcPart) {
				newTarget = fmt.Sprintf("media/image%d.%s", mediaIndex, ext)
				mediaIndex++
			}
			cover.SetPart("word/"+newTarget, data)
			if ct, ok := imageContentTypes[strings.ToLower(ext)]; ok {
				if err := cover.AddContentTypeDefault(ext, ct); err != nil {
					return nil, err
				}
			}

			newID, err := cover.AddRelationship(relTypeImage, newTarget)
			if err != nil {
				return nil, err
			}
			remap[oldID] = newID

		case relTypeHyperlink:
			newID, err := cover.AddRelationship(relTypeHyperlink, target)
			if err != nil {
				return nil, err
			}
			remap[oldID] = newID
		}
	}

	return remap, nil
}

// nextMediaIndex returns the first image index above every media part the
// cover already holds.
func nextMediaIndex(cover *docx.Package) int {
	max := 0
	for _, name := range cover.PartsUnder("word/media/") {
		base := strings.TrimSuffix(path.Base(name), path.Ext(name))
		digits := strings.TrimLeft(base, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		if v, err := strconv.Atoi(digits); err == nil && v > max {
			max = v
		}
	}
	return max + 1
}

func applyStyleRenames(bodyRoot *etree.Element, renames map[string]string) {
	if len(renames) == 0 {
		return
	}
	for _, tag := range []string{".//w:pStyle", ".//w:rStyle", ".//w:tblStyle"} {
		for _, ref := range bodyRoot.FindElements(tag) {
			if newID, ok := renames[ref.SelectAttrValue("w:val", "")]; ok {
				ref.CreateAttr("w:val", newID)
			}
		}
	}
}

func applyNumberingRemap(bodyRoot *etree.Element, remap map[string]string) {
	if len(remap) == 0 {
		return
	}
	for _, ref := range bodyRoot.FindElements(".//w:numId") {
		if newID, ok := remap[ref.SelectAttrValue("w:val", "")]; ok {
			ref.CreateAttr("w:val", newID)
		}
	}
}

func applyRelRemap(bodyRoot *etree.Element, remap map[string]string) {
	if len(remap) == 0 {
		return
	}
	for _, el := range bodyRoot.FindElements(".//*") {
		for _, attr := range el.Attr {
			if attr.Space != "r" {
				continue
			}
			if newID, ok := remap[attr.Value]; ok {
				el.CreateAttr("r:"+attr.Key, newID)
			}
		}
	}
}
