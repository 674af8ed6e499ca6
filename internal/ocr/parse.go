// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// regionTag matches TYPE[[x1,y1,x2,y2]]. Extra coordinates are tolerated
// and ignored.
var (
	regionTag  = regexp.MustCompile(`(\w+)\[\[([\d,\s]+)\]\]`)
	coordSplit = regexp.MustCompile(`[,\s]+`)
)

// Parse splits a tagged recognizer response into regions. The text of a
// region is everything after its tag up to the next tag, trimmed. A tag
// with fewer than four coordinates is dropped without affecting the
// others.
func Parse(content string) []types.Region {
	matches := regionTag.FindAllStringSubmatchIndex(content, -1)
	regions := make([]types.Region, 0, len(matches))
	for i, m := range matches {
		bbox, ok := parseBBox(content[m[4]:m[5]])
		if !ok {
			continue
		}
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		regions = append(regions, types.Region{
			Type: content[m[2]:m[3]],
			BBox: bbox,
			Text: strings.TrimSpace(content[m[1]:end]),
		})
	}
	return regions
}

func parseBBox(s string) (types.BBox, bool) {
	var bbox types.BBox
	n := 0
	for _, f := range coordSplit.Split(strings.TrimSpace(s), -1) {
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return bbox, false
		}
		if n < len(bbox) {
			bbox[n] = v
		}
		n++
	}
	return bbox, n >= len(bbox)
}

// PlainText renders regions as "[type] text" lines, skipping empty text.
func PlainText(regions []types.Region) string {
	var b strings.Builder
	for _, r := range regions {
		if r.Text == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(r.Type)
		b.WriteString("] ")
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return b.String()
}
