// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze turns the OCR pages of one paper into a structured
// summary with a single JSON-mode completion. Failure never propagates:
// after the last attempt the caller receives an empty AnalysisResult.
package analyze

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/daily-papers/internal/llm"
	"github.com/pdiddy/daily-papers/internal/ocr"
	"github.com/pdiddy/daily-papers/internal/retry"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// TruncationMarker is appended when the page text exceeds the budget.
const TruncationMarker = "\n... (内容已截断)"

var promptTmpl = template.Must(template.New("analyze").Parse(`你是一个专业的学术论文分析助手。请仔细分析以下论文的OCR内容，提取关键信息。

论文内容:
{{.}}

请提取以下信息并以JSON格式返回:
{
    "title": "论文标题",
    "title_cn": "论文中文标题或翻译",
    "authors": ["作者1", "作者2"],
    "abstract": "摘要内容",
    "core_problem": "核心问题描述，用1-2句话概括",
    "core_contribution": ["核心贡献1", "核心贡献2", "核心贡献3"],
    "method_summary": "方法概述（300-500字）：整体思路、关键技术、创新点、实现细节",
    "key_figures_description": ["图1: 架构图/概览图的中文描述", "图2: 实验结果图的中文描述"],
    "key_results": "主要实验结果（200-300字）：数据集、性能提升、与基线方法的对比",
    "key_tables": ["表1: 描述表格内容和关键数据"],
    "conclusion": "结论（100-200字）：论文的主要贡献和意义",
    "pros": ["论文亮点1", "论文亮点2"],
    "cons": ["局限性1", "局限性2"],
    "inspirations": ["对未来研究或实践的启发1", "启发2"]
}

注意：
1. 返回必须是有效的JSON格式
2. 所有描述必须使用中文（专有名词除外），英文内容请翻译成流畅的中文
3. key_figures_description 按图在论文中出现的顺序描述，不要使用 "Figure 1 shows..." 之类的英文表达
4. pros, cons, inspirations 必须根据论文内容给出具体分析，不要留空
`))

// BuildText concatenates pages in order as "=== Page N ===" blocks of
// "[type] text" lines and truncates the result to maxChars runes, keeping
// the beginning. maxChars <= 0 disables truncation.
func BuildText(pages []types.OCRPage, maxChars int) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "\n\n=== Page %d ===\n\n", p.PageNumber)
		b.WriteString(ocr.PlainText(p.Regions))
	}
	text := b.String()
	if maxChars <= 0 {
		return text
	}
	if r := []rune(text); len(r) > maxChars {
		return string(r[:maxChars]) + TruncationMarker
	}
	return text
}

// Usage is the model accounting for one Analyze call, summed over attempts.
type Usage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// Analyzer is the content analyzer stage.
type Analyzer struct {
	llm   llm.Completer
	model string
	cfg   types.AnalyzeConfig
	log   *zap.Logger
}

// New returns an analyzer that reports model in its usage.
func New(c llm.Completer, model string, cfg types.AnalyzeConfig, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{llm: c, model: model, cfg: cfg, log: log}
}

// Analyze summarizes pages, which must be sorted by page number. It
// retries with linear backoff and returns an empty result once the budget
// is spent.
func (a *Analyzer) Analyze(ctx context.Context, pages []types.OCRPage) (types.AnalysisResult, Usage) {
	usage := Usage{Model: a.model}
	if len(pages) == 0 {
		return types.AnalysisResult{}, usage
	}

	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, BuildText(pages, a.cfg.MaxChars)); err != nil {
		a.log.Error("rendering analysis prompt", zap.Error(err))
		return types.AnalysisResult{}, usage
	}
	req := llm.Request{
		Messages:    []llm.Message{llm.UserText(buf.String())},
		Temperature: llm.Temperature(a.cfg.Temperature),
	}

	policy := retry.Policy{
		Attempts: a.cfg.Retry.MaxAttempts,
		Backoff:  retry.Linear(a.cfg.Retry.Delay),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			a.log.Warn("analysis retry", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		},
	}
	res, err := retry.DoValue(ctx, policy, func(ctx context.Context) (types.AnalysisResult, error) {
		var out types.AnalysisResult
		u, err := llm.CompleteJSON(ctx, a.llm, req, &out)
		if err == nil || u.TotalTokens > 0 || u.PromptTokens > 0 {
			usage.Calls++
			usage.InputTokens += u.PromptTokens
			usage.OutputTokens += u.CompletionTokens
		}
		return out, err
	})
	if err != nil {
		a.log.Error("analysis gave up, using empty result", zap.Error(err))
		return types.AnalysisResult{}, usage
	}
	return res, usage
}
