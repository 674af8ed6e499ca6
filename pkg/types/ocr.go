// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// NormalizedScale is the upper bound of the resolution-independent
// coordinate space used by OCR bounding boxes.
const NormalizedScale = 1000

// BBox is a bounding box (x1, y1, x2, y2) in the 0-1000 normalized space.
type BBox [4]int

// Region is one OCR-detected content block.
type Region struct {
	// Type is the extractor's label, e.g. "text", "title", "image", "table_caption".
	Type string `json:"type" yaml:"type"`

	// BBox locates the region on its page in normalized coordinates.
	BBox BBox `json:"bbox" yaml:"bbox"`

	// Text is the content the extractor emitted after the region tag.
	Text string `json:"text" yaml:"text"`
}

// OCRPage is the extracted structure of one page. Immutable once produced.
type OCRPage struct {
	// PageNumber is 1-based and unique within a paper.
	PageNumber int `json:"page" yaml:"page"`

	// Regions are in the order the extractor emitted them.
	Regions []Region `json:"items" yaml:"items"`

	// RawText is the unparsed extractor response.
	RawText string `json:"raw_text" yaml:"raw_text"`

	// Figures are the crops produced from this page.
	Figures []FigureCandidate `json:"figures,omitempty" yaml:"figures,omitempty"`

	// Tokens is the token count reported by the OCR backend for this page.
	Tokens int `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// FigureKind distinguishes figures from tables.
type FigureKind string

const (
	KindFigure FigureKind = "figure"
	KindTable  FigureKind = "table"
)

// FigureCandidate is a croppable visual region found during OCR.
type FigureCandidate struct {
	// Page is the 1-based source page.
	Page int `json:"page" yaml:"page"`

	// Index is the 1-based region position on the page.
	Index int `json:"index" yaml:"index"`

	BBox BBox       `json:"bbox" yaml:"bbox"`
	Kind FigureKind `json:"kind" yaml:"kind"`

	// Caption is the nearest caption region text, possibly empty.
	Caption string `json:"caption" yaml:"caption"`

	// Path is the crop artifact on disk.
	Path string `json:"crop_path" yaml:"crop_path"`

	// Description is assigned from the analysis when the figure is selected.
	Description string `json:"analysis_desc,omitempty" yaml:"analysis_desc,omitempty"`
}
