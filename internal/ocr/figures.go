// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// captionLookahead is how many regions after a figure are searched for
// its caption.
const captionLookahead = 2

var (
	htmlTag    = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// figureKind maps a region type to a figure kind. ok is false for regions
// that are not croppable.
func figureKind(regionType string) (kind types.FigureKind, ok bool) {
	switch regionType {
	case "image", "figure":
		return types.KindFigure, true
	case "table":
		return types.KindTable, true
	}
	return "", false
}

func isCaption(regionType string) bool {
	switch regionType {
	case "caption", "image_caption", "table_caption":
		return true
	}
	return false
}

// Caption returns the cleaned text of the first caption region within
// captionLookahead regions after regions[i], or "".
func Caption(regions []types.Region, i int) string {
	for j := i + 1; j < len(regions) && j <= i+captionLookahead; j++ {
		if isCaption(regions[j].Type) {
			return cleanText(regions[j].Text)
		}
	}
	return ""
}

func cleanText(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// PixelRect maps a normalized bounding box onto an image of the given
// size, clamped to its bounds. ok is false when the clamped rectangle has
// no area.
func PixelRect(b types.BBox, bounds image.Rectangle) (r image.Rectangle, ok bool) {
	w, h := bounds.Dx(), bounds.Dy()
	r = image.Rect(
		b[0]*w/types.NormalizedScale,
		b[1]*h/types.NormalizedScale,
		b[2]*w/types.NormalizedScale,
		b[3]*h/types.NormalizedScale,
	).Add(bounds.Min)
	r = r.Intersect(bounds)
	return r, !r.Empty()
}

// cropName returns figures/{fig|table}_pNNN_II.png relative to the paper
// directory.
func cropName(kind types.FigureKind, page, index int) string {
	prefix := "fig"
	if kind == types.KindTable {
		prefix = "table"
	}
	return filepath.Join("figures", fmt.Sprintf("%s_p%03d_%02d.png", prefix, page, index))
}

// ExtractFigures crops every figure and table region of one page into
// paperDir/figures. Regions whose box has no area after clamping produce
// no candidate, so every returned Path exists on disk.
func ExtractFigures(regions []types.Region, img image.Image, paperDir string, page int) ([]types.FigureCandidate, error) {
	var figures []types.FigureCandidate
	for i, r := range regions {
		kind, ok := figureKind(r.Type)
		if !ok {
			continue
		}
		rect, ok := PixelRect(r.BBox, img.Bounds())
		if !ok {
			continue
		}

		path := filepath.Join(paperDir, cropName(kind, page, i+1))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return figures, fmt.Errorf("creating figures directory: %w", err)
		}
		if err := imaging.Save(imaging.Crop(img, rect), path); err != nil {
			return figures, fmt.Errorf("saving crop %s: %w", path, err)
		}

		figures = append(figures, types.FigureCandidate{
			Page:    page,
			Index:   i + 1,
			BBox:    r.BBox,
			Kind:    kind,
			Caption: Caption(regions, i),
			Path:    path,
		})
	}
	return figures, nil
}
