// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// ReportFile is the digest file name inside the day directory.
const ReportFile = "00_Daily_Report_CN.md"

// NothingFound is the overview of a run with no accepted papers.
const NothingFound = "今日没有发现符合兴趣方向的论文。"

const maxTitleRunes = 80

// Render writes the markdown digest for run. Links to local files are
// relative to run.Dir.
func Render(run types.RunResult, d types.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 📅 AI 科研情报 - %s\n\n", run.Date)
	fmt.Fprintf(&b, "> 共处理 %d 篇: 精读 %d 篇, 过滤 %d 篇, 失败 %d 篇\n\n",
		run.Total(), len(run.Interested), len(run.Ignored), len(run.Failed))

	section := 0
	heading := func(title string) {
		section++
		fmt.Fprintf(&b, "## %d. %s\n\n", section, title)
	}

	heading("今日概览 (Executive Summary)")
	b.WriteString(strings.TrimSpace(d.Overview))
	b.WriteString("\n\n")
	writeDigestDetails(&b, d)

	papers := sortedPapers(run.Interested)
	if len(papers) > 0 {
		heading(fmt.Sprintf("核心精读 (%d 篇)", len(papers)))
		for i, p := range papers {
			if i == 0 || papers[i-1].Category != p.Category {
				if i > 0 {
					b.WriteString("---\n\n")
				}
				fmt.Fprintf(&b, "### 📂 %s\n\n", p.Category)
			}
			writePaper(&b, run.Dir, p)
		}
		b.WriteString("---\n\n")
	}

	if len(run.Ignored) > 0 {
		heading(fmt.Sprintf("其他论文一览 (%d 篇)", len(run.Ignored)))
		b.WriteString("| 标题 | 过滤原因 |\n|---|---|\n")
		for _, p := range run.Ignored {
			fmt.Fprintf(&b, "| [%s](%s) | %s |\n", cell(ShortTitle(p.Paper.Title)), p.Paper.PDFURL, cell(p.Reason))
		}
		b.WriteString("\n")
	}

	if len(run.Failed) > 0 {
		heading(fmt.Sprintf("处理失败 (%d 篇)", len(run.Failed)))
		b.WriteString("| 标题 | 阶段 | 原因 |\n|---|---|---|\n")
		for _, p := range run.Failed {
			fmt.Fprintf(&b, "| [%s](%s) | %s | %s |\n",
				cell(ShortTitle(p.Paper.Title)), p.Paper.PDFURL, p.Stage, cell(p.Reason))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeDigestDetails(b *strings.Builder, d types.DailyReport) {
	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(b, "### %s\n\n", title)
		for _, it := range items {
			fmt.Fprintf(b, "- %s\n", it)
		}
		b.WriteString("\n")
	}
	list("关键洞察", d.Insights)
	if len(d.Directions) > 0 {
		b.WriteString("### 研究方向\n\n")
		for _, dir := range d.Directions {
			fmt.Fprintf(b, "- **%s**: %s\n", dir.Direction, dir.Summary)
		}
		b.WriteString("\n")
	}
	if len(d.Notable) > 0 {
		b.WriteString("### 值得关注\n\n")
		for _, n := range d.Notable {
			fmt.Fprintf(b, "- **%s**: %s\n", n.Title, n.Reason)
		}
		b.WriteString("\n")
	}
	list("趋势展望", d.Trends)
}

func writePaper(b *strings.Builder, dayDir string, p types.PaperResult) {
	fmt.Fprintf(b, "#### 📄 [%s](%s)\n", p.Paper.Title, p.Paper.PDFURL)
	fmt.Fprintf(b, "> **推荐理由**: %s\n", p.Reason)
	fmt.Fprintf(b, "- **核心贡献**: %s\n", contribution(p))
	fmt.Fprintf(b, "- **关键结论/Tricks**: %s\n", findings(p))

	var links []string
	if p.Paper.PDFPath != "" {
		links = append(links, fmt.Sprintf("[本地PDF](%s)", relPath(dayDir, p.Paper.PDFPath)))
	}
	if p.NotePath != "" {
		label := "深度笔记"
		if p.Light {
			label = "简要笔记"
		}
		links = append(links, fmt.Sprintf("📝 [%s](%s)", label, relPath(dayDir, p.NotePath)))
	}
	if len(links) > 0 {
		fmt.Fprintf(b, "- 🔗 %s\n", strings.Join(links, " | "))
	}
	if p.ArchiveError != "" {
		fmt.Fprintf(b, "- ⚠️ 归档失败: %s\n", p.ArchiveError)
	}
	b.WriteString("\n")
}

// ShortTitle truncates titles longer than 80 runes and appends "...".
func ShortTitle(title string) string {
	r := []rune(title)
	if len(r) <= maxTitleRunes {
		return title
	}
	return string(r[:maxTitleRunes]) + "..."
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func relPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Write stores content as ReportFile in dayDir and returns its path.
func Write(dayDir, content string) (string, error) {
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dayDir, err)
	}
	path := filepath.Join(dayDir, ReportFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
