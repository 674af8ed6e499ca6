// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-papers/pkg/types"
)

func TestParse_SingleRegion(t *testing.T) {
	regions := Parse("title[[10,20,300,40]]Scaling Laws")
	require.Len(t, regions, 1)
	assert.Equal(t, types.Region{Type: "title", BBox: types.BBox{10, 20, 300, 40}, Text: "Scaling Laws"}, regions[0])
}

func TestParse_TextRunsToNextTag(t *testing.T) {
	content := "text[[0, 0, 500, 100]]\nFirst paragraph\nline two\nimage[[0,100,500,600]]\nimage_caption[[0,600,500,650]]Figure 1: Overview"
	regions := Parse(content)
	require.Len(t, regions, 3)

	assert.Equal(t, "text", regions[0].Type)
	assert.Equal(t, "First paragraph\nline two", regions[0].Text)
	assert.Equal(t, "image", regions[1].Type)
	assert.Empty(t, regions[1].Text)
	assert.Equal(t, "Figure 1: Overview", regions[2].Text)
	assert.Equal(t, types.BBox{0, 600, 500, 650}, regions[2].BBox)
}

func TestParse_DropsMalformedTag(t *testing.T) {
	content := "text[[1,2,3]]short box\ntitle[[1,2,3,4]]kept"
	regions := Parse(content)
	require.Len(t, regions, 1)
	assert.Equal(t, "title", regions[0].Type)
	assert.Equal(t, "kept", regions[0].Text)
}

func TestParse_ExtraCoordinatesIgnored(t *testing.T) {
	regions := Parse("table[[1,2,3,4,5,6]]cells")
	require.Len(t, regions, 1)
	assert.Equal(t, types.BBox{1, 2, 3, 4}, regions[0].BBox)
}

func TestParse_NoTags(t *testing.T) {
	assert.Empty(t, Parse("plain markdown with no grounding"))
}

func TestPlainText(t *testing.T) {
	got := PlainText([]types.Region{
		{Type: "title", Text: "Foo"},
		{Type: "image"},
		{Type: "text", Text: "Body"},
	})
	assert.Equal(t, "[title] Foo\n[text] Body\n", got)
}
