// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx provides access to DOCX packages: the zip container, its
// parts, and the WordprocessingML document tree. It is deliberately thin:
// structural edits live with the stages that perform them; this package only
// guarantees lossless part round-trips.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/pkg/types"
)

const (
	// PartDocument is the main document part name.
	PartDocument = "word/document.xml"
	// PartStyles is the style definitions part name.
	PartStyles = "word/styles.xml"
	// PartNumbering is the numbering definitions part name.
	PartNumbering = "word/numbering.xml"
	// PartContentTypes is the package content-types part name.
	PartContentTypes = "[Content_Types].xml"
	// PartDocumentRels is the main document relationships part name.
	PartDocumentRels = "word/_rels/document.xml.rels"
)

// RelNamespace is the package relationships namespace.
const RelNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"

// WNamespace is the WordprocessingML main namespace.
const WNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Package is an in-memory DOCX package. Part order from the source zip is
// preserved on save so that readers relying on [Content_Types].xml coming
// first keep working.
type Package struct {
	names []string
	parts map[string][]byte
}

// Open reads a DOCX package from disk.
func Open(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.InvalidInputError{Path: path, Reason: err.Error()}
	}
	pkg, err := OpenBytes(data)
	if err != nil {
		var inv *types.InvalidInputError
		if ok := asInvalid(err, &inv); ok {
			inv.Path = path
			return nil, inv
		}
		return nil, err
	}
	return pkg, nil
}

func asInvalid(err error, target **types.InvalidInputError) bool {
	if e, ok := err.(*types.InvalidInputError); ok {
		*target = e
		return true
	}
	return false
}

// OpenBytes reads a DOCX package from memory.
func OpenBytes(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &types.InvalidInputError{Reason: fmt.Sprintf("not a zip archive: %v", err)}
	}

	p := &Package{parts: make(map[string][]byte)}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, &types.InvalidInputError{Reason: fmt.Sprintf("reading %s: %v", f.Name, err)}
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &types.InvalidInputError{Reason: fmt.Sprintf("reading %s: %v", f.Name, err)}
		}
		p.names = append(p.names, f.Name)
		p.parts[f.Name] = content
	}

	if !p.Has(PartDocument) {
		return nil, &types.InvalidInputError{Reason: "not a DOCX package: missing " + PartDocument}
	}
	return p, nil
}

// Has reports whether the named part exists.
func (p *Package) Has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// Part returns the raw bytes of the named part.
func (p *Package) Part(name string) ([]byte, error) {
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("part %s not present in package", name)
	}
	return data, nil
}

// SetPart replaces or adds the named part.
func (p *Package) SetPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.names = append(p.names, name)
	}
	p.parts[name] = data
}

// PartNames returns all part names in package order.
func (p *Package) PartNames() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// PartsUnder returns part names with the given prefix, sorted.
func (p *Package) PartsUnder(prefix string) []string {
	var out []string
	for _, n := range p.names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// XML parses the named part as an XML tree.
func (p *Package) XML(name string) (*etree.Document, error) {
	data, err := p.Part(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return doc, nil
}

// SetXML serializes the tree back into the named part.
func (p *Package) SetXML(name string, doc *etree.Document) error {
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", name, err)
	}
	p.SetPart(name, data)
	return nil
}

// Document parses the main document part.
func (p *Package) Document() (*etree.Document, error) {
	return p.XML(PartDocument)
}

// SetDocument writes the main document part back.
func (p *Package) SetDocument(doc *etree.Document) error {
	return p.SetXML(PartDocument, doc)
}

// Body returns the w:body element of a parsed document tree.
func Body(doc *etree.Document) (*etree.Element, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	body := root.SelectElement("w:body")
	if body == nil {
		return nil, fmt.Errorf("document has no w:body element")
	}
	return body, nil
}

// Bytes serializes the package to a zip archive.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range p.names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		if _, err := w.Write(p.parts[name]); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing package: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the package to disk.
func (p *Package) Save(path string) error {
	data, err := p.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Clone returns an independent deep copy of the package.
func (p *Package) Clone() *Package {
	c := &Package{parts: make(map[string][]byte, len(p.parts))}
	c.names = append(c.names, p.names...)
	for n, d := range p.parts {
		cp := make([]byte, len(d))
		copy(cp, d)
		c.parts[n] = cp
	}
	return c
}

const minimalDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="` + WNamespace + `"><w:body><w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`

const minimalContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const minimalRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + RelNamespace + `"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const minimalDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + RelNamespace + `"></Relationships>`

// New returns a minimal valid package: content types, package relationships,
// and an empty document body with a final section.
func New() *Package {
	p := &Package{parts: make(map[string][]byte)}
	p.SetPart(PartContentTypes, []byte(minimalContentTypes))
	p.SetPart("_rels/.rels", []byte(minimalRootRels))
	p.SetPart(PartDocument, []byte(minimalDocument))
	p.SetPart(PartDocumentRels, []byte(minimalDocumentRels))
	return p
}

// AddContentTypeOverride registers a content-type override for a part
// (partName with leading slash, e.g. "/word/footer1.xml"). Adding an
// existing override is a no-op.
func (p *Package) AddContentTypeOverride(partName, contentType string) error {
	doc, err := p.XML(PartContentTypes)
	if err != nil {
		return err
	}
	root := doc.Root()
	for _, o := range root.SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") == partName {
			return nil
		}
	}
	o := root.CreateElement("Override")
	o.CreateAttr("PartName", partName)
	o.CreateAttr("ContentType", contentType)
	return p.SetXML(PartContentTypes, doc)
}

// AddContentTypeDefault registers a default content type for a file
// extension. Adding an existing default is a no-op.
func (p *Package) AddContentTypeDefault(extension, contentType string) error {
	doc, err := p.XML(PartContentTypes)
	if err != nil {
		return err
	}
	root := doc.Root()
	for _, d := range root.SelectElements("Default") {
		if strings.EqualFold(d.SelectAttrValue("Extension", ""), extension) {
			return nil
		}
	}
	d := root.CreateElement("Default")
	d.CreateAttr("Extension", extension)
	d.CreateAttr("ContentType", contentType)
	return p.SetXML(PartContentTypes, doc)
}

// AddRelationship adds a relationship to word/document.xml and returns the
// new relationship ID. IDs are allocated above the current maximum rId.
func (p *Package) AddRelationship(relType, target string) (string, error) {
	if !p.Has(PartDocumentRels) {
		p.SetPart(PartDocumentRels, []byte(minimalDocumentRels))
	}
	doc, err := p.XML(PartDocumentRels)
	if err != nil {
		return "", err
	}
	root := doc.Root()

	max := 0
	for _, r := range root.SelectElements("Relationship") {
		id := r.SelectAttrValue("Id", "")
		var n int
		if _, err := fmt.Sscanf(id, "rId%d", &n); err == nil && n > max {
			max = n
		}
	}

	id := fmt.Sprintf("rId%d", max+1)
	r := root.CreateElement("Relationship")
	r.CreateAttr("Id", id)
	r.CreateAttr("Type", relType)
	r.CreateAttr("Target", target)
	if err := p.SetXML(PartDocumentRels, doc); err != nil {
		return "", err
	}
	return id, nil
}
