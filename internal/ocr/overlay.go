// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/pdiddy/daily-papers/pkg/types"
)

const outlineWidth = 2

var (
	defaultColour = color.NRGBA{100, 100, 100, 255}
	regionColours = map[string]color.NRGBA{
		"title":         {255, 0, 0, 255},
		"text":          {0, 0, 0, 255},
		"header":        {0, 128, 0, 255},
		"figure":        {0, 0, 255, 255},
		"image":         {0, 0, 255, 255},
		"image_caption": {255, 165, 0, 255},
		"caption":       {255, 165, 0, 255},
		"table":         {128, 0, 128, 255},
		"table_caption": {255, 105, 180, 255},
		"sub_title":     {0, 128, 128, 255},
		"author":        {128, 128, 0, 255},
		"abstract":      {70, 130, 180, 255},
		"reference":     {105, 105, 105, 255},
		"formula":       {255, 20, 147, 255},
		"code":          {0, 100, 0, 255},
	}
)

func regionColour(regionType string) color.NRGBA {
	if c, ok := regionColours[regionType]; ok {
		return c
	}
	return defaultColour
}

// DrawOverlay returns a copy of img with every region outlined in its
// type colour and labelled with the type name.
func DrawOverlay(img image.Image, regions []types.Region) *image.NRGBA {
	out := imaging.Clone(img)
	face := basicfont.Face7x13
	labelHeight := face.Metrics().Height.Ceil()

	for _, r := range regions {
		rect, ok := PixelRect(r.BBox, out.Bounds())
		if !ok {
			continue
		}
		fill := image.NewUniform(regionColour(r.Type))
		outline(out, rect, fill)

		d := &font.Drawer{Dst: out, Src: image.White, Face: face}
		labelWidth := d.MeasureString(r.Type).Ceil() + 4
		label := image.Rect(rect.Min.X, rect.Min.Y-labelHeight-2, rect.Min.X+labelWidth, rect.Min.Y)
		draw.Draw(out, label.Intersect(out.Bounds()), fill, image.Point{}, draw.Src)
		d.Dot = fixed.P(rect.Min.X+2, rect.Min.Y-face.Descent-1)
		d.DrawString(r.Type)
	}
	return out
}

func outline(dst draw.Image, r image.Rectangle, src image.Image) {
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+outlineWidth),
		image.Rect(r.Min.X, r.Max.Y-outlineWidth, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+outlineWidth, r.Max.Y),
		image.Rect(r.Max.X-outlineWidth, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}
