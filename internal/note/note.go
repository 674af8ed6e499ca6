// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package note renders per-paper reading notes in Markdown: a full note
// from an analysis with embedded figure crops, or a light note from the
// bibliographic record and filter verdict alone.
package note

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// File names inside a paper directory.
const (
	NoteFile     = "note.md"
	AnalysisFile = "analysis.json"
)

// Placeholder is written for fields the analysis left empty.
const Placeholder = "未提取"

// Figure slots in the note body.
const (
	maxArchFigures   = 2
	maxResultFigures = 3
)

// Input is everything a full note is rendered from.
type Input struct {
	Paper    types.Paper
	Date     string
	Analysis types.AnalysisResult
	Figures  []types.FigureCandidate
	Usage    types.TokenUsage
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "- %s\n", Placeholder)
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// Compose renders the full note. Each figure appears at most once, in the
// method section if it is an architecture figure and otherwise in the
// results section if it shows results or is a table.
func Compose(in Input) string {
	a := in.Analysis
	var b strings.Builder

	title := a.Title
	if title == "" {
		title = in.Paper.Title
	}
	authors := []string(a.Authors)
	if len(authors) == 0 {
		authors = in.Paper.Authors
	}

	fmt.Fprintf(&b, "# %s\n\n", title)
	if a.TitleCN != "" {
		fmt.Fprintf(&b, "**中文标题**: %s\n\n", a.TitleCN)
	}
	fmt.Fprintf(&b, "**作者**: %s\n\n", strings.Join(authors, ", "))
	fmt.Fprintf(&b, "**来源**: arXiv %s | **日期**: %s\n\n", in.Paper.ID, in.Date)
	b.WriteString("---\n\n")

	b.WriteString("## 核心问题\n\n")
	fmt.Fprintf(&b, "%s\n\n", orPlaceholder(a.CoreProblem))

	b.WriteString("## 核心贡献\n\n")
	writeList(&b, a.CoreContribution)

	used := make(map[string]bool)

	b.WriteString("## 方法概述\n\n")
	fmt.Fprintf(&b, "%s\n\n", orPlaceholder(a.MethodSummary))
	writeFigures(&b, "架构图", in.Figures, isArchitecture, maxArchFigures, used)
	b.WriteString("---\n\n")

	b.WriteString("## 实验结果\n\n")
	fmt.Fprintf(&b, "%s\n\n", orPlaceholder(a.KeyResults))
	writeFigures(&b, "实验数据", in.Figures, isResult, maxResultFigures, used)
	b.WriteString("---\n\n")

	b.WriteString("## 结论\n\n")
	fmt.Fprintf(&b, "%s\n\n", orPlaceholder(a.Conclusion))
	b.WriteString("---\n\n")

	b.WriteString("## 个人思考\n\n")
	b.WriteString("### 亮点\n\n")
	writeList(&b, a.Pros)
	b.WriteString("### 局限性\n\n")
	writeList(&b, a.Cons)
	b.WriteString("### 启发\n\n")
	writeList(&b, a.Inspirations)
	b.WriteString("---\n\n")

	u := in.Usage
	b.WriteString("## 处理记录\n\n")
	fmt.Fprintf(&b, "- OCR模型: %s\n", orUnknown(u.OCRModel))
	fmt.Fprintf(&b, "- OCR调用次数: %d\n", u.OCRCalls)
	fmt.Fprintf(&b, "- OCR总tokens: %d\n", u.OCRTokens)
	fmt.Fprintf(&b, "- LLM模型: %s\n", orUnknown(u.LLMModel))
	fmt.Fprintf(&b, "- LLM调用次数: %d\n", u.LLMCalls)
	fmt.Fprintf(&b, "- LLM输入tokens: %d\n", u.LLMInputTokens)
	fmt.Fprintf(&b, "- LLM输出tokens: %d\n", u.LLMOutputTokens)
	fmt.Fprintf(&b, "- 处理时间: %.2f秒\n", u.ElapsedSeconds)
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func writeFigures(b *strings.Builder, heading string, figures []types.FigureCandidate, match func(types.FigureCandidate) bool, limit int, used map[string]bool) {
	var picked []types.FigureCandidate
	for _, f := range figures {
		if len(picked) == limit {
			break
		}
		if match(f) && !used[f.Path] {
			picked = append(picked, f)
		}
	}
	if len(picked) == 0 {
		return
	}

	fmt.Fprintf(b, "**%s**\n\n", heading)
	for _, f := range picked {
		used[f.Path] = true
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			abs = f.Path
		}
		caption := CleanCaption(f.Caption, f.Kind)
		if f.Description != "" {
			fmt.Fprintf(b, "%s\n\n", f.Description)
		}
		fmt.Fprintf(b, "![%s](file://%s)\n\n", caption, filepath.ToSlash(abs))
		fmt.Fprintf(b, "*%s*\n\n", caption)
	}
}

// Light renders a note from the record and filter verdict, used when OCR
// produced nothing or deep analysis was skipped. reason explains why.
func Light(p types.Paper, v types.FilterVerdict, tags []string, date, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "**作者**: %s\n\n", strings.Join(p.Authors, ", "))
	fmt.Fprintf(&b, "**来源**: arXiv %s | **日期**: %s\n\n", p.ID, date)
	if len(tags) > 0 {
		fmt.Fprintf(&b, "**标签**: %s\n\n", strings.Join(tags, ", "))
	}
	if reason != "" {
		fmt.Fprintf(&b, "> 未进行深度分析: %s\n\n", reason)
	}
	b.WriteString("---\n\n")

	b.WriteString("## 一句话总结\n\n")
	fmt.Fprintf(&b, "%s\n\n", orPlaceholder(v.Summary))
	b.WriteString("## 关键结论/Tricks\n\n")
	fmt.Fprintf(&b, "%s\n\n", orPlaceholder(v.KeyFindings))
	b.WriteString("## 推荐理由\n\n")
	fmt.Fprintf(&b, "%s\n\n", orPlaceholder(v.Reason))
	b.WriteString("## 摘要\n\n")
	fmt.Fprintf(&b, "%s\n", orPlaceholder(p.Abstract))
	return b.String()
}

// Record is the analysis.json payload.
type Record struct {
	Paper           types.Paper             `json:"paper_info"`
	Analysis        types.AnalysisResult    `json:"analysis"`
	SelectedFigures []types.FigureCandidate `json:"selected_figures"`
	AllFiguresCount int                     `json:"all_figures_count"`
	TokenUsage      types.TokenUsage        `json:"token_usage"`
}

// Write stores content as dir/note.md and returns its path.
func Write(dir, content string) (string, error) {
	path := filepath.Join(dir, NoteFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating note directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing note: %w", err)
	}
	return path, nil
}

// WriteRecord stores rec as dir/analysis.json.
func WriteRecord(dir string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling analysis record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, AnalysisFile), data, 0o644); err != nil {
		return fmt.Errorf("writing analysis record: %w", err)
	}
	return nil
}
