// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/internal/docx/docxtest"
	"github.com/pdiddy/docforge/pkg/types"
)

func documentPart(t *testing.T, pkg *docx.Package) string {
	t.Helper()
	data, err := pkg.Part(docx.PartDocument)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func findHeading(t *testing.T, pkg *docx.Package, style string) *etree.Element {
	t.Helper()
	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range doc.FindElements("//w:p") {
		if docx.ParagraphStyle(p) == style {
			return p
		}
	}
	return nil
}

func TestRewriteTOCTitle(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.TOCBlock("Table of Contents", "1 Overview", "2 Design"),
		docxtest.Para("Chapter one"),
	)

	var log bytes.Buffer
	if err := RewriteTOCTitle(pkg, types.DefaultDetect(), "目 录", &log); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	heading := findHeading(t, pkg, "TOCHeading")
	if heading == nil {
		t.Fatal("TOC heading paragraph lost its style")
	}
	if got := docx.ParagraphText(heading); got != "目 录" {
		t.Fatalf("heading text = %q, want %q", got, "目 录")
	}
}

func TestRewriteTOCTitleByKeyword(t *testing.T) {
	// No style and no sdt wrapper: the folded keyword text alone must
	// identify the heading. "目　录" carries an ideographic space.
	pkg := docxtest.Doc(
		docxtest.Para("封面"),
		docxtest.Para("目　录"),
		docxtest.StyledPara("TOC1", "1 概述"),
		docxtest.Para("正文"),
	)

	if err := RewriteTOCTitle(pkg, types.DefaultDetect(), "目 录", io.Discard); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if !strings.Contains(documentPart(t, pkg), "目 录") {
		t.Fatal("rewritten title missing from document")
	}
}

func TestRewriteTOCTitleMissing(t *testing.T) {
	pkg := docxtest.Doc(docxtest.Para("plain text only"))

	err := RewriteTOCTitle(pkg, types.DefaultDetect(), "目 录", io.Discard)
	var nf *types.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestFormatPictures(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.Para("text before"),
		docxtest.ImagePara(),
		docxtest.Para("text after"),
		docxtest.ImagePara(),
	)

	n, err := FormatPictures(pkg, types.DefaultPictureSettings(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("formatted %d paragraphs, want 2", n)
	}

	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	centered := 0
	for _, jc := range doc.FindElements("//w:p/w:pPr/w:jc") {
		if jc.SelectAttrValue("w:val", "") == "center" {
			centered++
		}
	}
	if centered != 2 {
		t.Fatalf("centered %d paragraphs, want 2", centered)
	}
}

func TestFormatPicturesIdempotent(t *testing.T) {
	pkg := docxtest.Doc(docxtest.Para("caption"), docxtest.ImagePara())

	if _, err := FormatPictures(pkg, types.DefaultPictureSettings(), io.Discard); err != nil {
		t.Fatal(err)
	}
	first := documentPart(t, pkg)
	if _, err := FormatPictures(pkg, types.DefaultPictureSettings(), io.Discard); err != nil {
		t.Fatal(err)
	}
	if second := documentPart(t, pkg); second != first {
		t.Fatal("second pass changed the document")
	}
}

func TestFormatPicturesNoneFound(t *testing.T) {
	pkg := docxtest.Doc(docxtest.Para("no images here"))

	n, err := FormatPictures(pkg, types.DefaultPictureSettings(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("formatted %d paragraphs, want 0", n)
	}
}

func TestFormatLibraryNumbers(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.Para("报告标题"),
		docxtest.Para("库号：XK-2024-001"),
		docxtest.Para("正文"),
	)

	n, err := FormatLibraryNumbers(pkg, types.DefaultDetect().LibraryNumberPattern, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("matched %d lines, want 1", n)
	}

	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	var hit *etree.Element
	for _, p := range doc.FindElements("//w:p") {
		if strings.HasPrefix(docx.ParagraphText(p), "库号") {
			hit = p
		}
	}
	if hit == nil {
		t.Fatal("library-number paragraph missing")
	}
	if jc := hit.FindElement("w:pPr/w:jc"); jc == nil || jc.SelectAttrValue("w:val", "") != "right" {
		t.Fatal("library-number line not right-aligned")
	}
	if hit.FindElement("w:r/w:rPr/w:b") == nil {
		t.Fatal("library-number run not bold")
	}
}

func TestFormatLibraryNumbersNoMatch(t *testing.T) {
	pkg := docxtest.Doc(docxtest.Para("no supplement line"))

	var log bytes.Buffer
	n, err := FormatLibraryNumbers(pkg, types.DefaultDetect().LibraryNumberPattern, &log)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("matched %d lines, want 0", n)
	}
	if !strings.Contains(log.String(), "skipping") {
		t.Fatalf("missing skip log, got %q", log.String())
	}
}

func countSectionBreakParas(t *testing.T, pkg *docx.Package) int {
	t.Helper()
	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, p := range doc.FindElements("//w:body/w:p") {
		if docx.IsSectPrOnly(p) {
			n++
		}
	}
	return n
}

func TestInsertSectionBreak(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.Para("封面"),
		docxtest.TOCBlock("目录", "1 概述"),
		docxtest.Para("第一章"),
	)

	inserted, err := InsertSectionBreak(pkg, types.DefaultDetect(), types.DefaultPageSettings(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("expected a break to be inserted")
	}
	if n := countSectionBreakParas(t, pkg); n != 1 {
		t.Fatalf("found %d section-break paragraphs, want 1", n)
	}

	// The break must directly follow the TOC block.
	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	body, err := docx.Body(doc)
	if err != nil {
		t.Fatal(err)
	}
	children := body.ChildElements()
	for i, el := range children {
		if el.Tag != "sdt" {
			continue
		}
		if i+1 >= len(children) || !docx.IsSectPrOnly(children[i+1]) {
			t.Fatal("section break is not directly after the TOC")
		}
	}
}

func TestInsertSectionBreakIdempotent(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.TOCBlock("目录", "1 概述"),
		docxtest.Para("第一章"),
	)

	page := types.DefaultPageSettings()
	detect := types.DefaultDetect()
	if _, err := InsertSectionBreak(pkg, detect, page, io.Discard); err != nil {
		t.Fatal(err)
	}
	inserted, err := InsertSectionBreak(pkg, detect, page, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Fatal("second pass inserted another break")
	}
	if n := countSectionBreakParas(t, pkg); n != 1 {
		t.Fatalf("found %d section-break paragraphs after two passes, want 1", n)
	}
}

func TestInsertSectionBreakNoTOC(t *testing.T) {
	pkg := docxtest.Doc(docxtest.Para("no contents block"))

	_, err := InsertSectionBreak(pkg, types.DefaultDetect(), types.DefaultPageSettings(), io.Discard)
	var sa *types.StructuralAssumptionError
	if !errors.As(err, &sa) {
		t.Fatalf("want StructuralAssumptionError, got %v", err)
	}
}

func TestInsertSectionBreakPinsGeometry(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.TOCBlock("目录", "1 概述"),
		docxtest.Para("第一章"),
	)

	if _, err := InsertSectionBreak(pkg, types.DefaultDetect(), types.DefaultPageSettings(), io.Discard); err != nil {
		t.Fatal(err)
	}

	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	body, err := docx.Body(doc)
	if err != nil {
		t.Fatal(err)
	}
	pgMar := body.FindElement("w:sectPr/w:pgMar")
	if pgMar == nil {
		t.Fatal("final section has no margins")
	}
	// 3.1 cm at 567 twips/cm.
	if got := pgMar.SelectAttrValue("w:top", ""); got != "1757" {
		t.Fatalf("top margin = %s twips, want 1757", got)
	}
	if got := pgMar.SelectAttrValue("w:footer", ""); got != "1360" {
		t.Fatalf("footer margin = %s twips, want 1360", got)
	}
}

func TestApplyPageNumbers(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.Para("封面"),
		docxtest.SectionBreakPara(),
		docxtest.Para("第一章"),
	)

	var log bytes.Buffer
	n, err := ApplyPageNumbers(pkg, types.DefaultPageSettings(), &log)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("applied to %d sections, want 2", n)
	}

	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	sections := doc.FindElements("//w:sectPr")
	if len(sections) != 2 {
		t.Fatalf("found %d sections, want 2", len(sections))
	}
	for i, sectPr := range sections {
		ref := sectPr.SelectElement("w:footerReference")
		if ref == nil {
			t.Fatalf("section %d has no footer reference", i+1)
		}
		if ref.SelectAttrValue("r:id", "") == "" {
			t.Fatalf("section %d footer reference has no relationship", i+1)
		}
	}

	// Cover section continues with no number; body restarts at 1.
	if sections[0].SelectElement("w:pgNumType") != nil {
		t.Fatal("cover section must not restart numbering")
	}
	pgNumType := sections[1].SelectElement("w:pgNumType")
	if pgNumType == nil {
		t.Fatal("body section missing pgNumType")
	}
	if got := pgNumType.SelectAttrValue("w:start", ""); got != "1" {
		t.Fatalf("body numbering starts at %s, want 1", got)
	}
	if got := pgNumType.SelectAttrValue("w:fmt", ""); got != "decimal" {
		t.Fatalf("body numbering format = %s, want decimal", got)
	}
}

func TestApplyPageNumbersFooterParts(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.Para("封面"),
		docxtest.SectionBreakPara(),
		docxtest.Para("第一章"),
	)

	if _, err := ApplyPageNumbers(pkg, types.DefaultPageSettings(), io.Discard); err != nil {
		t.Fatal(err)
	}

	footers := pkg.PartsUnder("word/footer")
	if len(footers) != 2 {
		t.Fatalf("created %d footer parts, want 2", len(footers))
	}

	// First footer belongs to the hidden cover scheme, second carries the
	// PAGE field.
	first, err := pkg.Part(footers[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(first), "PAGE") {
		t.Fatal("cover footer must not show a page number")
	}
	second, err := pkg.Part(footers[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(second), " PAGE ") {
		t.Fatal("body footer missing the PAGE field")
	}

	ct, err := pkg.Part(docx.PartContentTypes)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(ct), "/word/footer1.xml") {
		t.Fatal("footer content-type override missing")
	}
	rels, err := pkg.Part(docx.PartDocumentRels)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(rels), "footer1.xml") {
		t.Fatal("footer relationship missing")
	}
}

func TestApplyPageNumbersSingleSection(t *testing.T) {
	pkg := docxtest.Doc(docxtest.Para("no break"))

	n, err := ApplyPageNumbers(pkg, types.DefaultPageSettings(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("applied to %d sections, want 1", n)
	}
}

func TestRemoveHighlights(t *testing.T) {
	pkg := docxtest.Doc(
		docxtest.HighlightedPara("标记一"),
		docxtest.Para("正常段落"),
		docxtest.HighlightedPara("标记二"),
	)

	n, err := RemoveHighlights(pkg, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("removed %d marks, want 2", n)
	}
	if strings.Contains(documentPart(t, pkg), "w:highlight") {
		t.Fatal("highlight marks still present")
	}

	n, err = RemoveHighlights(pkg, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second pass removed %d marks, want 0", n)
	}
}

func TestRestoreTables(t *testing.T) {
	source := docxtest.Doc(
		docxtest.Para("第一章 概述"),
		docxtest.Table("参数", "数值"),
	)
	converted := docxtest.Doc(
		docxtest.Para("第一章 概述"),
		docxtest.Table("mangled", "cells"),
	)

	n, err := RestoreTables(converted, source, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("restored %d tables, want 1", n)
	}

	part := documentPart(t, converted)
	if !strings.Contains(part, "参数") || !strings.Contains(part, "数值") {
		t.Fatal("source table content not restored")
	}
	if strings.Contains(part, "mangled") {
		t.Fatal("converted table content survived the restore")
	}
}

func TestRestoreTablesKeepsPosition(t *testing.T) {
	source := docxtest.Doc(
		docxtest.Para("前文"),
		docxtest.Table("原表"),
		docxtest.Para("后文"),
	)
	converted := docxtest.Doc(
		docxtest.Para("前文"),
		docxtest.Table("转表"),
		docxtest.Para("后文"),
	)

	if _, err := RestoreTables(converted, source, io.Discard); err != nil {
		t.Fatal(err)
	}

	doc, err := converted.Document()
	if err != nil {
		t.Fatal(err)
	}
	body, err := docx.Body(doc)
	if err != nil {
		t.Fatal(err)
	}
	var tags []string
	for _, child := range body.ChildElements() {
		tags = append(tags, child.Tag)
	}
	want := []string{"p", "tbl", "p", "sectPr"}
	if len(tags) != len(want) {
		t.Fatalf("body children = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("body children = %v, want %v", tags, want)
		}
	}
}

func TestRestoreTablesCountMismatch(t *testing.T) {
	source := docxtest.Doc(
		docxtest.Table("甲"),
		docxtest.Table("乙"),
	)
	converted := docxtest.Doc(docxtest.Table("丙"))

	var log bytes.Buffer
	n, err := RestoreTables(converted, source, &log)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("restored %d tables, want 1", n)
	}
	if !strings.Contains(log.String(), "count mismatch") {
		t.Errorf("mismatch not logged: %q", log.String())
	}
	if !strings.Contains(documentPart(t, converted), "甲") {
		t.Fatal("first source table not restored")
	}
}

func TestRestoreTablesNoneInConverted(t *testing.T) {
	source := docxtest.Doc(docxtest.Table("甲"))
	converted := docxtest.Doc(docxtest.Para("无表格正文"))

	var log bytes.Buffer
	n, err := RestoreTables(converted, source, &log)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("restored %d tables, want 0", n)
	}
	if !strings.Contains(log.String(), "skipping") {
		t.Errorf("skip not logged: %q", log.String())
	}
}

func TestRestoreTablesNoneInSource(t *testing.T) {
	source := docxtest.Doc(docxtest.Para("无表格正文"))
	converted := docxtest.Doc(docxtest.Table("丙"))

	n, err := RestoreTables(converted, source, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("restored %d tables, want 0", n)
	}
	if !strings.Contains(documentPart(t, converted), "丙") {
		t.Fatal("converted table was dropped")
	}
}

func TestApplyPageNumbersFooterRefAfterHeaderRef(t *testing.T) {
	pkg := docxtest.Doc(docxtest.Para("正文"))
	doc, err := pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	sectPr := doc.FindElement("//w:sectPr")
	hdr := etree.NewElement("w:headerReference")
	hdr.CreateAttr("w:type", "default")
	hdr.CreateAttr("r:id", "rId9")
	sectPr.InsertChildAt(0, hdr)
	if err := pkg.SetDocument(doc); err != nil {
		t.Fatal(err)
	}

	if _, err := ApplyPageNumbers(pkg, types.DefaultPageSettings(), io.Discard); err != nil {
		t.Fatal(err)
	}

	doc, err = pkg.Document()
	if err != nil {
		t.Fatal(err)
	}
	sectPr = doc.FindElement("//w:sectPr")
	hdrIdx, ftrIdx := -1, -1
	for i, child := range sectPr.ChildElements() {
		switch child.Tag {
		case "headerReference":
			hdrIdx = i
		case "footerReference":
			ftrIdx = i
		}
	}
	if ftrIdx < 0 {
		t.Fatal("footer reference missing")
	}
	if hdrIdx < 0 || ftrIdx < hdrIdx {
		t.Fatalf("footer reference at %d precedes header reference at %d", ftrIdx, hdrIdx)
	}
}
