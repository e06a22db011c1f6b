// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionBackend identifies the external formatting tool.
type ConversionBackend string

const (
	BackendPandoc      ConversionBackend = "pandoc"
	BackendLibreOffice ConversionBackend = "libreoffice"
)

// ConversionConfig holds settings for the external conversion stage.
type ConversionConfig struct {
	// Backend selects the conversion tool: pandoc or libreoffice.
	Backend ConversionBackend `json:"backend" yaml:"backend"`

	// PandocPath overrides PATH lookup of the pandoc binary.
	PandocPath string `json:"pandoc_path,omitempty" yaml:"pandoc_path,omitempty"`

	// SofficePath overrides PATH lookup of the soffice binary.
	SofficePath string `json:"soffice_path,omitempty" yaml:"soffice_path,omitempty"`

	// ReferenceDoc is the style template handed to the converter.
	ReferenceDoc string `json:"reference_doc" yaml:"reference_doc"`

	// Timeout bounds a single converter invocation (default 2m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of local retry attempts at the conversion
	// boundary (default 1). Retries never span pipeline stages.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DetectConfig holds the structural detection policies. The cover boundary
// and TOC heading rules are configuration, not fixed heuristics.
type DetectConfig struct {
	// TOCKeywords are heading texts recognized as a table-of-contents title.
	// Matching folds character width and strips inner spaces, so 目 录 and
	// 目录 are the same keyword.
	TOCKeywords []string `json:"toc_keywords" yaml:"toc_keywords"`

	// TOCStyles are paragraph style IDs recognized as a TOC heading.
	TOCStyles []string `json:"toc_styles" yaml:"toc_styles"`

	// LibraryNumberPattern matches the labeled metadata line that must be
	// right-aligned. An absent match is a no-op, not an error.
	LibraryNumberPattern string `json:"library_number_pattern" yaml:"library_number_pattern"`
}

// PaperSize is the page dimensions in the configured unit.
type PaperSize struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Unit   string  `json:"unit" yaml:"unit"` // "cm" or "twips"
}

// Margins are the page margins in the configured unit.
type Margins struct {
	Top    float64 `json:"top" yaml:"top"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
	Right  float64 `json:"right" yaml:"right"`
	Header float64 `json:"header" yaml:"header"`
	Footer float64 `json:"footer" yaml:"footer"`
	Gutter float64 `json:"gutter" yaml:"gutter"`
	Unit   string  `json:"unit" yaml:"unit"` // "cm" or "twips"
}

// PageNumberScheme configures page numbering for one document section, in
// document order. Sections beyond the configured list are left untouched.
type PageNumberScheme struct {
	// Show controls whether the section's footer carries a page number.
	Show bool `json:"show" yaml:"show"`

	// Start restarts numbering at this value; 0 continues from the
	// previous section.
	Start int `json:"start,omitempty" yaml:"start,omitempty"`

	// Format is the OOXML number format (decimal, upperRoman, ...).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// PageSettings is the page-settings configuration object, loaded once per
// run and immutable for its duration.
type PageSettings struct {
	PaperSize   PaperSize          `json:"paper_size" yaml:"paper_size"`
	Margins     Margins            `json:"margins" yaml:"margins"`
	PageNumbers []PageNumberScheme `json:"page_numbers" yaml:"page_numbers"`
}

// twipsPerCm is the conversion used throughout (1 cm = 567 twips).
const twipsPerCm = 567

func toTwips(v float64, unit string) int {
	if unit == "cm" {
		return int(v * twipsPerCm)
	}
	return int(v)
}

// WidthTwips returns the paper width in twips.
func (p PaperSize) WidthTwips() int { return toTwips(p.Width, p.Unit) }

// HeightTwips returns the paper height in twips.
func (p PaperSize) HeightTwips() int { return toTwips(p.Height, p.Unit) }

// TopTwips returns the top margin in twips.
func (m Margins) TopTwips() int { return toTwips(m.Top, m.Unit) }

// BottomTwips returns the bottom margin in twips.
func (m Margins) BottomTwips() int { return toTwips(m.Bottom, m.Unit) }

// LeftTwips returns the left margin in twips.
func (m Margins) LeftTwips() int { return toTwips(m.Left, m.Unit) }

// RightTwips returns the right margin in twips.
func (m Margins) RightTwips() int { return toTwips(m.Right, m.Unit) }

// HeaderTwips returns the header distance in twips.
func (m Margins) HeaderTwips() int { return toTwips(m.Header, m.Unit) }

// FooterTwips returns the footer distance in twips.
func (m Margins) FooterTwips() int { return toTwips(m.Footer, m.Unit) }

// GutterTwips returns the gutter in twips.
func (m Margins) GutterTwips() int { return toTwips(m.Gutter, m.Unit) }

// PictureSettings is the picture-settings configuration object applied by
// the image formatter.
type PictureSettings struct {
	// Alignment is the paragraph alignment for image paragraphs:
	// left, center, right, or both.
	Alignment string `json:"alignment" yaml:"alignment"`

	// LineSpacing in multiples of single spacing (1.0 = single).
	LineSpacing float64 `json:"line_spacing" yaml:"line_spacing"`

	// BeforeSpacing and AfterSpacing are in twentieths of a point.
	BeforeSpacing int `json:"before_spacing" yaml:"before_spacing"`
	AfterSpacing  int `json:"after_spacing" yaml:"after_spacing"`

	// WrapType is informational for now; only inline images are reflowed.
	WrapType string `json:"wrap_type" yaml:"wrap_type"`
}

// CoverConfig holds cover assembly inputs.
type CoverConfig struct {
	// RulesFile maps placeholder text to replacement text (YAML). Missing
	// file means no replacement pass.
	RulesFile string `json:"rules_file,omitempty" yaml:"rules_file,omitempty"`

	// HeaderPlaceholder is the header text the --header-text flag replaces.
	HeaderPlaceholder string `json:"header_placeholder,omitempty" yaml:"header_placeholder,omitempty"`
}

// PipelineConfig groups all stage configurations for one converter run.
type PipelineConfig struct {
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Detect     DetectConfig     `json:"detect" yaml:"detect"`
	Page       PageSettings     `json:"page" yaml:"page"`
	Picture    PictureSettings  `json:"picture" yaml:"picture"`
	Cover      CoverConfig      `json:"cover" yaml:"cover"`

	// TOCTitle is the title written over the TOC heading (e.g. "目 录").
	TOCTitle string `json:"toc_title" yaml:"toc_title"`

	// JournalPath is the sqlite run-journal location; empty disables it.
	JournalPath string `json:"journal_path,omitempty" yaml:"journal_path,omitempty"`
}

// DefaultDetect returns the detection policy used when none is configured.
// The keyword list mirrors the institutional cover convention.
func DefaultDetect() DetectConfig {
	return DetectConfig{
		TOCKeywords:          []string{"目录", "Contents", "Table of Contents"},
		TOCStyles:            []string{"TOCHeading", "TOC标题"},
		LibraryNumberPattern: `^库号[:：]`,
	}
}

// DefaultPageSettings returns the institutional page geometry: A4 with
// 3.1/2.8/2.8/2.8 cm margins, no number on the cover section, body numbered
// from 1.
func DefaultPageSettings() PageSettings {
	return PageSettings{
		PaperSize: PaperSize{Width: 21.0, Height: 29.7, Unit: "cm"},
		Margins: Margins{
			Top: 3.1, Bottom: 2.8, Left: 2.8, Right: 2.8,
			Header: 2.4, Footer: 2.4, Unit: "cm",
		},
		PageNumbers: []PageNumberScheme{
			{Show: false},
			{Show: true, Start: 1, Format: "decimal"},
		},
	}
}

// DefaultPictureSettings returns the institutional image formatting:
// centered, single spaced, no extra spacing.
func DefaultPictureSettings() PictureSettings {
	return PictureSettings{
		Alignment:   "center",
		LineSpacing: 1.0,
		WrapType:    "inline",
	}
}
