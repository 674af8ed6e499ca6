// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-papers/pkg/types"
)

func TestPixelRect(t *testing.T) {
	bounds := image.Rect(0, 0, 2000, 1000)

	r, ok := PixelRect(types.BBox{100, 200, 500, 800}, bounds)
	require.True(t, ok)
	assert.Equal(t, image.Rect(200, 200, 1000, 800), r)

	r, ok = PixelRect(types.BBox{900, 900, 1200, 1100}, bounds)
	require.True(t, ok)
	assert.Equal(t, image.Rect(1800, 900, 2000, 1000), r, "clamped to bounds")

	_, ok = PixelRect(types.BBox{300, 300, 300, 600}, bounds)
	assert.False(t, ok, "zero width")

	_, ok = PixelRect(types.BBox{1100, 0, 1200, 100}, bounds)
	assert.False(t, ok, "entirely outside")
}

func TestCaption(t *testing.T) {
	regions := []types.Region{
		{Type: "image"},
		{Type: "text", Text: "body"},
		{Type: "image_caption", Text: "<b>Figure 2:</b>   Model\n architecture"},
		{Type: "table"},
		{Type: "text"},
		{Type: "text"},
		{Type: "table_caption", Text: "Table 1"},
	}
	assert.Equal(t, "Figure 2: Model architecture", Caption(regions, 0))
	assert.Empty(t, Caption(regions, 3), "caption beyond lookahead")
	assert.Empty(t, Caption(regions, 6))
}

func TestExtractFigures(t *testing.T) {
	img := imaging.New(1000, 2000, color.White)
	dir := t.TempDir()
	regions := []types.Region{
		{Type: "title", BBox: types.BBox{0, 0, 1000, 50}, Text: "Foo"},
		{Type: "figure", BBox: types.BBox{100, 100, 600, 400}},
		{Type: "caption", BBox: types.BBox{100, 400, 600, 420}, Text: "Figure 1: Overview"},
		{Type: "image", BBox: types.BBox{500, 500, 500, 900}},
		{Type: "table", BBox: types.BBox{0, 500, 1000, 700}},
	}

	figs, err := ExtractFigures(regions, img, dir, 3)
	require.NoError(t, err)
	require.Len(t, figs, 2, "zero-area image skipped")

	assert.Equal(t, types.KindFigure, figs[0].Kind)
	assert.Equal(t, 2, figs[0].Index)
	assert.Equal(t, "Figure 1: Overview", figs[0].Caption)
	assert.Equal(t, filepath.Join(dir, "figures", "fig_p003_02.png"), figs[0].Path)

	assert.Equal(t, types.KindTable, figs[1].Kind)
	assert.Equal(t, filepath.Join(dir, "figures", "table_p003_05.png"), figs[1].Path)

	crop, err := imaging.Open(figs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, 500, crop.Bounds().Dx())
	assert.Equal(t, 600, crop.Bounds().Dy())
}

func TestDrawOverlay(t *testing.T) {
	img := imaging.New(200, 200, color.White)
	out := DrawOverlay(img, []types.Region{{Type: "table", BBox: types.BBox{250, 250, 750, 750}}})

	assert.Equal(t, img.Bounds(), out.Bounds())
	assert.Equal(t, color.NRGBA{128, 0, 128, 255}, out.NRGBAAt(100, 50), "top outline")
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(100, 100), "interior untouched")
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(100, 50), "source not modified")
}
