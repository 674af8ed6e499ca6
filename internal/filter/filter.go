// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter decides whether a paper is worth deep reading and assigns
// a category and tags, biased toward the archive's existing taxonomy.
package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/daily-papers/internal/llm"
	"github.com/pdiddy/daily-papers/internal/retry"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// Uncategorized is used when the model returns no category.
const Uncategorized = "Uncategorized"

// Classifier judges one paper. Implementations make a single attempt and
// return an error on any failure; retries happen in Judge.
type Classifier interface {
	Classify(ctx context.Context, title, abstract string, hint types.TaxonomyHint) (types.FilterVerdict, error)
}

var promptTmpl = template.Must(template.New("filter").Funcs(template.FuncMap{
	"json": func(v any) string {
		b, _ := json.Marshal(v)
		return string(b)
	},
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}).Parse(`Role: Senior AI Researcher.

User Interests:
{{range $i, $t := .Interests}}{{inc $i}}. {{$t}}
{{end}}
User Ignores: {{join .Ignores "; "}}

Reference Context (existing library):
- Existing Categories: {{json .Hint.Categories}}
- Frequent Tags: {{json .Hint.Tags}}

Task:
1. Interest Check: decide whether the paper matches the user interests.
2. Categorization: prefer one of the existing categories if it fits well; otherwise create a concise new category name (e.g. "Multimodal-Reasoning").
3. Tagging: generate 3-5 tags, preferring the frequent tags. Use lowercase English.
4. Extraction: "summary_cn" is a one-sentence summary in Chinese; "tricks_cn" lists the key tricks or findings in Chinese.

Input:
Title: {{.Title}}
Abstract: {{.Abstract}}

Return JSON strictly:
{"interested": true, "reason": "why it matches", "category": "CategoryName", "tags": ["tag1", "tag2"], "summary_cn": "中文一句话总结", "tricks_cn": "关键技巧或结论"}
`))

// LLMClassifier classifies papers with a chat model in JSON mode.
type LLMClassifier struct {
	llm llm.Completer
	cfg types.FilterConfig
}

// NewLLMClassifier returns a classifier backed by c.
func NewLLMClassifier(c llm.Completer, cfg types.FilterConfig) *LLMClassifier {
	return &LLMClassifier{llm: c, cfg: cfg}
}

// Classify makes one model call.
func (f *LLMClassifier) Classify(ctx context.Context, title, abstract string, hint types.TaxonomyHint) (types.FilterVerdict, error) {
	prompt, err := renderPrompt(f.cfg, title, abstract, hint)
	if err != nil {
		return types.FilterVerdict{}, fmt.Errorf("rendering prompt: %w", err)
	}

	var v types.FilterVerdict
	if _, err := llm.CompleteJSON(ctx, f.llm, llm.Request{
		Messages:    []llm.Message{llm.UserText(prompt)},
		Temperature: llm.Temperature(0.2),
	}, &v); err != nil {
		return types.FilterVerdict{}, err
	}
	return Normalize(v), nil
}

func renderPrompt(cfg types.FilterConfig, title, abstract string, hint types.TaxonomyHint) (string, error) {
	if hint.Categories == nil {
		hint.Categories = []string{}
	}
	if hint.Tags == nil {
		hint.Tags = []string{}
	}
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, struct {
		Interests []string
		Ignores   []string
		Hint      types.TaxonomyHint
		Title     string
		Abstract  string
	}{cfg.Interests, cfg.Ignores, hint, title, abstract})
	return buf.String(), err
}

// Normalize trims the verdict, lowercases and dedupes tags, and fills an
// empty category for interested papers.
func Normalize(v types.FilterVerdict) types.FilterVerdict {
	v.Reason = strings.TrimSpace(v.Reason)
	v.Category = strings.TrimSpace(v.Category)
	if v.Interested && v.Category == "" {
		v.Category = Uncategorized
	}
	var tags types.StringList
	seen := map[string]bool{}
	for _, t := range v.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	v.Tags = tags
	return v
}

// UnavailableReason prefixes the reason recorded when every attempt failed.
const UnavailableReason = "relevance filter unavailable"

// Judge classifies with retries and a fixed delay. When every attempt
// fails the paper is treated as not interesting, with the failure as the
// reason.
func Judge(ctx context.Context, c Classifier, p types.Paper, hint types.TaxonomyHint, cfg types.RetryConfig, log *zap.Logger) types.FilterVerdict {
	policy := retry.Policy{
		Attempts: cfg.MaxAttempts,
		Backoff:  retry.Fixed(cfg.Delay),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("filter retry", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		},
	}
	v, err := retry.DoValue(ctx, policy, func(ctx context.Context) (types.FilterVerdict, error) {
		return c.Classify(ctx, p.Title, p.Abstract, hint)
	})
	if err != nil {
		log.Error("filter gave up", zap.Error(err))
		return types.FilterVerdict{
			Interested: false,
			Reason:     fmt.Sprintf("%s: %v", UnavailableReason, err),
		}
	}
	return v
}
