// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package note

import (
	"regexp"
	"strings"

	"github.com/pdiddy/daily-papers/pkg/types"
)

var (
	archKeywords   = []string{"arch", "framework", "overview", "model", "structure", "pipeline", "system", "design"}
	resultKeywords = []string{"result", "performance", "comparison", "ablation", "accuracy", "loss", "curve", "plot"}

	captionNumber = regexp.MustCompile(`(?i)(?:Figure|Fig\.|Table|Tab\.)\s*(\d+[a-z]?)`)
)

// Per-bucket quotas applied before filling up to the maximum.
const (
	archQuota   = 2
	resultQuota = 2
	tableQuota  = 1
)

func captionHas(f types.FigureCandidate, keywords []string) bool {
	c := strings.ToLower(f.Caption)
	for _, kw := range keywords {
		if strings.Contains(c, kw) {
			return true
		}
	}
	return false
}

func isArchitecture(f types.FigureCandidate) bool {
	return f.Kind == types.KindFigure && captionHas(f, archKeywords)
}

func isResult(f types.FigureCandidate) bool {
	return f.Kind == types.KindTable || (f.Kind == types.KindFigure && captionHas(f, resultKeywords))
}

// SelectFigures picks at most max figures: up to two architecture
// figures, two result (or otherwise uncaptioned) figures and one table,
// then fills from the remaining candidates in discovery order.
// descriptions are assigned to the selection by position.
func SelectFigures(all []types.FigureCandidate, descriptions []string, max int) []types.FigureCandidate {
	if max <= 0 || len(all) == 0 {
		return nil
	}

	var arch, results, tables []types.FigureCandidate
	for _, f := range all {
		switch {
		case f.Kind == types.KindTable:
			tables = append(tables, f)
		case captionHas(f, archKeywords):
			arch = append(arch, f)
		default:
			results = append(results, f)
		}
	}

	selected := make([]types.FigureCandidate, 0, max)
	taken := make(map[string]bool)
	take := func(fs []types.FigureCandidate, n int) {
		for _, f := range fs {
			if n == 0 || len(selected) == max {
				return
			}
			if taken[f.Path] {
				continue
			}
			taken[f.Path] = true
			selected = append(selected, f)
			n--
		}
	}
	take(arch, archQuota)
	take(results, resultQuota)
	take(tables, tableQuota)
	take(all, max)

	for i := range selected {
		if i < len(descriptions) {
			selected[i].Description = descriptions[i]
		}
	}
	return selected
}

// CleanCaption reduces a caption to its number, e.g. "Figure 3: ..." to
// "原文图3". Captions without a number yield "原文图" or "原文表".
func CleanCaption(caption string, kind types.FigureKind) string {
	prefix := "原文图"
	if m := captionNumber.FindStringSubmatch(caption); m != nil {
		if strings.Contains(strings.ToLower(caption), "tab") {
			prefix = "原文表"
		}
		return prefix + m[1]
	}
	if kind == types.KindTable {
		prefix = "原文表"
	}
	return prefix
}
