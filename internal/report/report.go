// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report reduces the accepted papers of one run into a daily
// digest and renders 00_Daily_Report_CN.md. Papers are summarized in
// bounded batches, the batch summaries are merged level by level until
// they fit one call, and a final call writes the digest. Every model call
// has a placeholder fallback so the report is always written.
package report

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/daily-papers/internal/llm"
	"github.com/pdiddy/daily-papers/internal/retry"
	"github.com/pdiddy/daily-papers/pkg/types"
)

const (
	// maxEntryRunes caps the rendered description of one paper.
	maxEntryRunes = 1500

	// ignoredSample is the number of ignored titles shown to the digest call.
	ignoredSample = 10

	callConcurrency = 3
)

// FallbackOverview is used when the digest call fails and no batch
// summary is available either.
const FallbackOverview = "今日综述生成失败。"

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

var batchTmpl = template.Must(template.New("batch").Funcs(funcs).Parse(`你是一名资深AI研究负责人。下面是今日精读论文中的 {{len .}} 篇，请归纳它们。

{{range .}}{{.}}
{{end}}
请以JSON格式返回:
{
    "themes": ["主题1", "主题2"],
    "summary": "这批论文的中文综述（150-300字）",
    "highlights": ["最值得关注的论文标题及一句话理由"]
}
`))

var mergeTmpl = template.Must(template.New("merge").Funcs(funcs).Parse(`你是一名资深AI研究负责人。下面是若干批论文的阶段性综述，请把它们合并为一份。

{{range $i, $s := .}}### 第 {{inc $i}} 部分（{{$s.Papers}} 篇）
主题: {{join $s.Themes "、"}}
综述: {{$s.Summary}}
亮点: {{join $s.Highlights "；"}}

{{end}}请以JSON格式返回:
{
    "themes": ["主题1", "主题2"],
    "summary": "合并后的中文综述（200-400字）",
    "highlights": ["最值得关注的论文标题及一句话理由"]
}
`))

var digestTmpl = template.Must(template.New("digest").Funcs(funcs).Parse(`你是一名资深AI研究负责人，请为今日的AI科研日报撰写中文综述。

今日精读论文的阶段性综述:
{{range .Parts}}- 主题: {{join .Themes "、"}}
  综述: {{.Summary}}
  亮点: {{join .Highlights "；"}}
{{end}}
被过滤的论文（样本）:
{{range .Ignored}}- {{.}}
{{else}}- 无
{{end}}
要求:
1. overview: 概括今日的重点趋势，并用一句话说明被过滤论文的大致方向
2. insights: 跨论文的关键洞察
3. directions: 按研究方向分别总结
4. notable: 挑选1-3篇最值得关注的论文并说明理由
5. trends: 对未来研究趋势的展望
6. 风格专业、简洁，使用中文

请以JSON格式返回:
{
    "overview": "今日概览",
    "insights": ["洞察1", "洞察2"],
    "directions": [{"direction": "方向名称", "summary": "该方向总结"}],
    "notable": [{"title": "论文标题", "reason": "推荐理由"}],
    "trends": ["趋势1"]
}
`))

// Aggregator writes the digest of one run.
type Aggregator struct {
	llm llm.Completer
	cfg types.ReportConfig
	log *zap.Logger
}

// New returns an aggregator that calls c.
func New(c llm.Completer, cfg types.ReportConfig, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{llm: c, cfg: cfg, log: log}
}

// Digest reduces the interested papers of run. With no interested papers
// it returns a digest without calling the model.
func (a *Aggregator) Digest(ctx context.Context, run types.RunResult) types.DailyReport {
	papers := sortedPapers(run.Interested)
	if len(papers) == 0 {
		return types.DailyReport{Overview: NothingFound}
	}

	r := Reducer[types.PaperResult, types.BatchSummary]{
		BatchSize:   a.cfg.BatchSize,
		FanIn:       a.cfg.FanIn,
		MaxChars:    a.cfg.MaxInputChars,
		Concurrency: callConcurrency,
		ItemSize:    func(p types.PaperResult) int { return len([]rune(Entry(p))) },
		SummarySize: func(s types.BatchSummary) int { return len([]rune(s.Summary)) },
		Leaf:        a.summarizeBatch,
		Merge:       a.mergeSummaries,
	}
	parts, err := r.Reduce(ctx, papers)
	if err != nil {
		a.log.Error("reducing batches", zap.Error(err))
		return types.DailyReport{Overview: FallbackOverview}
	}
	a.log.Info("batches reduced", zap.Int("papers", len(papers)), zap.Int("parts", len(parts)))

	var ignored []string
	for _, p := range run.Ignored[:min(len(run.Ignored), ignoredSample)] {
		ignored = append(ignored, fmt.Sprintf("%s (原因: %s)", p.Paper.Title, p.Reason))
	}
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, struct {
		Parts   []types.BatchSummary
		Ignored []string
	}{parts, ignored}); err != nil {
		a.log.Error("rendering digest prompt", zap.Error(err))
		return fallbackDigest(parts)
	}
	var out types.DailyReport
	if err := a.complete(ctx, "digest", buf.String(), &out); err != nil {
		return fallbackDigest(parts)
	}
	if strings.TrimSpace(out.Overview) == "" {
		out.Overview = fallbackDigest(parts).Overview
	}
	return out
}

func (a *Aggregator) summarizeBatch(ctx context.Context, batch []types.PaperResult) (types.BatchSummary, error) {
	entries := make([]string, len(batch))
	for i, p := range batch {
		entries[i] = Entry(p)
	}
	var buf bytes.Buffer
	var out types.BatchSummary
	err := batchTmpl.Execute(&buf, entries)
	if err == nil {
		err = a.complete(ctx, "batch", buf.String(), &out)
	}
	if err != nil || strings.TrimSpace(out.Summary) == "" {
		out = fallbackBatch(batch)
	}
	out.Papers = len(batch)
	return out, nil
}

func (a *Aggregator) mergeSummaries(ctx context.Context, parts []types.BatchSummary) (types.BatchSummary, error) {
	var buf bytes.Buffer
	var out types.BatchSummary
	err := mergeTmpl.Execute(&buf, parts)
	if err == nil {
		err = a.complete(ctx, "merge", buf.String(), &out)
	}
	if err != nil || strings.TrimSpace(out.Summary) == "" {
		out = fallbackMerge(parts)
	}
	out.Papers = 0
	for _, p := range parts {
		out.Papers += p.Papers
	}
	return out, nil
}

// complete runs one JSON-mode call with linear backoff.
func (a *Aggregator) complete(ctx context.Context, step, prompt string, v any) error {
	policy := retry.Policy{
		Attempts: a.cfg.Retry.MaxAttempts,
		Backoff:  retry.Linear(a.cfg.Retry.Delay),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			a.log.Warn("report retry", zap.String("step", step), zap.Int("attempt", attempt),
				zap.Duration("wait", wait), zap.Error(err))
		},
	}
	req := llm.Request{
		Messages:    []llm.Message{llm.UserText(prompt)},
		Temperature: llm.Temperature(0.3),
	}
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		_, err := llm.CompleteJSON(ctx, a.llm, req, v)
		return err
	})
	if err != nil {
		a.log.Error("report call gave up, using fallback", zap.String("step", step), zap.Error(err))
	}
	return err
}

// Entry renders one accepted paper as model input.
func Entry(p types.PaperResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- 标题: %s\n", p.Paper.Title)
	fmt.Fprintf(&b, "  分类: %s\n", p.Category)
	if p.Reason != "" {
		fmt.Fprintf(&b, "  推荐理由: %s\n", p.Reason)
	}
	if s := contribution(p); s != "" {
		fmt.Fprintf(&b, "  核心贡献: %s\n", s)
	}
	if s := findings(p); s != "" {
		fmt.Fprintf(&b, "  关键结论: %s\n", s)
	}
	if s := p.Analysis.CoreProblem; s != "" {
		fmt.Fprintf(&b, "  核心问题: %s\n", s)
	}
	if s := p.Analysis.Conclusion; s != "" {
		fmt.Fprintf(&b, "  结论: %s\n", s)
	}
	if r := []rune(b.String()); len(r) > maxEntryRunes {
		return string(r[:maxEntryRunes]) + "...\n"
	}
	return b.String()
}

func contribution(p types.PaperResult) string {
	if p.Verdict.Summary != "" {
		return p.Verdict.Summary
	}
	return p.Analysis.CoreContribution.Join("；")
}

func findings(p types.PaperResult) string {
	if p.Verdict.KeyFindings != "" {
		return p.Verdict.KeyFindings
	}
	return p.Analysis.KeyResults
}

func fallbackBatch(batch []types.PaperResult) types.BatchSummary {
	var out types.BatchSummary
	var titles []string
	for _, p := range batch {
		if p.Category != "" && !slices.Contains(out.Themes, p.Category) {
			out.Themes = append(out.Themes, p.Category)
		}
		titles = append(titles, p.Paper.Title)
	}
	out.Highlights = titles
	out.Summary = "本批论文: " + strings.Join(titles, "；")
	return out
}

func fallbackMerge(parts []types.BatchSummary) types.BatchSummary {
	var out types.BatchSummary
	var summaries []string
	for _, p := range parts {
		for _, t := range p.Themes {
			if !slices.Contains(out.Themes, t) {
				out.Themes = append(out.Themes, t)
			}
		}
		out.Highlights = append(out.Highlights, p.Highlights...)
		summaries = append(summaries, p.Summary)
	}
	out.Summary = strings.Join(summaries, "\n")
	return out
}

func fallbackDigest(parts []types.BatchSummary) types.DailyReport {
	if len(parts) == 0 {
		return types.DailyReport{Overview: FallbackOverview}
	}
	m := fallbackMerge(parts)
	return types.DailyReport{
		Overview: FallbackOverview + "\n\n" + m.Summary,
		Insights: m.Highlights,
	}
}

// sortedPapers orders papers by category then id so the digest does not
// depend on completion order.
func sortedPapers(in []types.PaperResult) []types.PaperResult {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b types.PaperResult) int {
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return strings.Compare(a.Paper.ID, b.Paper.ID)
	})
	return out
}
