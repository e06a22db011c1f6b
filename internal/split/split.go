// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package split separates a source document into a cover fragment and a body
// fragment at the table-of-contents boundary.
// Implements: prd101-split; docs/ARCHITECTURE § Splitting.
package split

import (
	"fmt"
	"io"

	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/pkg/types"
)

// Result reports what the splitter produced.
type Result struct {
	CoverPath       string
	BodyPath        string
	CoverParagraphs int
	BodyParagraphs  int
}

// Split reads the source document, locates the cover boundary, and writes
// two new documents: the cover (front matter up to and including the TOC
// block) and the body (everything after the TOC). The source is never
// modified.
//
// Boundary detection is a configurable policy, tried in order: a w:sdt block
// whose gallery is "Table of Contents", then a heading matched by style or
// by width-folded keyword text. No boundary is a structural failure, not a
// silent pass-through.
func Split(sourcePath, coverPath, bodyPath string, detect types.DetectConfig, w io.Writer) (*Result, error) {
	src, err := docx.Open(sourcePath)
	if err != nil {
		return nil, err
	}

	doc, err := src.Document()
	if err != nil {
		return nil, &types.InvalidInputError{Path: sourcePath, Reason: err.Error()}
	}
	body, err := docx.Body(doc)
	if err != nil {
		return nil, &types.InvalidInputError{Path: sourcePath, Reason: err.Error()}
	}

	start, end := docx.FindTOCRegion(body, detect)
	if start < 0 {
		return nil, &types.StructuralAssumptionError{
			Marker: "cover boundary (table of contents)",
			Path:   sourcePath,
		}
	}

	res := &Result{CoverPath: coverPath, BodyPath: bodyPath}

	cover := src.Clone()
	n, err := retainRange(cover, 0, end)
	if err != nil {
		return nil, fmt.Errorf("building cover fragment: %w", err)
	}
	res.CoverParagraphs = n
	if err := cover.Save(coverPath); err != nil {
		return nil, fmt.Errorf("writing cover fragment: %w", err)
	}

	bodyPkg := src.Clone()
	n, err = retainRange(bodyPkg, end+1, -1)
	if err != nil {
		return nil, fmt.Errorf("building body fragment: %w", err)
	}
	res.BodyParagraphs = n
	if err := bodyPkg.Save(bodyPath); err != nil {
		return nil, fmt.Errorf("writing body fragment: %w", err)
	}

	fmt.Fprintf(w, "split: cover %d paragraph(s), body %d paragraph(s)\n",
		res.CoverParagraphs, res.BodyParagraphs)
	return res, nil
}

// retainRange keeps body children in [from, to] (to < 0 means through the
// end) plus the trailing body-level sectPr, removing everything else. It
// returns the number of paragraphs retained.
func retainRange(pkg *docx.Package, from, to int) (int, error) {
	doc, err := pkg.Document()
	if err != nil {
		return 0, err
	}
	body, err := docx.Body(doc)
	if err != nil {
		return 0, err
	}

	children := body.ChildElements()
	if to < 0 {
		to = len(children) - 1
	}

	paragraphs := 0
	for i, el := range children {
		isFinalSectPr := el.Space == "w" && el.Tag == "sectPr"
		if isFinalSectPr {
			continue
		}
		if i < from || i > to {
			body.RemoveChild(el)
			continue
		}
		if docx.IsParagraph(el) {
			paragraphs++
		}
	}

	return paragraphs, pkg.SetDocument(doc)
}
