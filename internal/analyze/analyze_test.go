// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/daily-papers/internal/llm"
	"github.com/pdiddy/daily-papers/pkg/types"
)

type fakeLLM struct {
	replies []string
	errs    []error
	calls   int
	prompt  string
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.prompt = req.Messages[0].Content.(string)
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return llm.Response{}, f.errs[i]
	}
	return llm.Response{
		Content: f.replies[min(i, len(f.replies)-1)],
		Usage:   llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}, nil
}

func pages() []types.OCRPage {
	return []types.OCRPage{
		{PageNumber: 1, Regions: []types.Region{{Type: "title", Text: "Foo"}, {Type: "text", Text: "Intro"}}},
		{PageNumber: 2, Regions: []types.Region{{Type: "text", Text: "Method"}}},
	}
}

func testConfig() types.AnalyzeConfig {
	return types.AnalyzeConfig{
		Retry:       types.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond},
		MaxChars:    12000,
		Temperature: 0.3,
	}
}

func TestBuildText(t *testing.T) {
	got := BuildText(pages(), 0)
	assert.Equal(t, "\n\n=== Page 1 ===\n\n[title] Foo\n[text] Intro\n\n\n=== Page 2 ===\n\n[text] Method\n", got)
}

func TestBuildText_TruncatesTail(t *testing.T) {
	got := BuildText(pages(), 20)
	assert.True(t, strings.HasSuffix(got, TruncationMarker))
	assert.Equal(t, []rune(BuildText(pages(), 0))[:20], []rune(strings.TrimSuffix(got, TruncationMarker)))
	assert.NotContains(t, got, "Method")
}

func TestBuildText_TruncatesOnRuneBoundary(t *testing.T) {
	p := []types.OCRPage{{PageNumber: 1, Regions: []types.Region{{Type: "text", Text: "注意力机制"}}}}
	got := BuildText(p, 27)
	assert.True(t, strings.HasSuffix(got, "注意"+TruncationMarker))
}

func TestAnalyze_Success(t *testing.T) {
	fake := &fakeLLM{replies: []string{"```json\n" + `{"title": "Foo", "core_contribution": "only one", "pros": ["a", "b"], "method_summary": "方法"}` + "\n```"}}
	a := New(fake, "gpt-test", testConfig(), zaptest.NewLogger(t))

	res, usage := a.Analyze(context.Background(), pages())
	assert.Equal(t, "Foo", res.Title)
	assert.Equal(t, types.StringList{"only one"}, res.CoreContribution)
	assert.Equal(t, types.StringList{"a", "b"}, res.Pros)
	assert.Equal(t, "方法", res.MethodSummary)

	assert.Equal(t, Usage{Model: "gpt-test", Calls: 1, InputTokens: 100, OutputTokens: 20}, usage)
	assert.Contains(t, fake.prompt, "=== Page 2 ===")
}

func TestAnalyze_RetriesMalformedJSON(t *testing.T) {
	fake := &fakeLLM{replies: []string{"not json", `{"title": "Foo"}`}}
	a := New(fake, "gpt-test", testConfig(), zaptest.NewLogger(t))

	res, usage := a.Analyze(context.Background(), pages())
	assert.Equal(t, "Foo", res.Title)
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, 2, usage.Calls, "tokens spent on the bad reply are counted")
}

func TestAnalyze_ExhaustedReturnsEmpty(t *testing.T) {
	boom := errors.New("timeout")
	fake := &fakeLLM{errs: []error{boom, boom, boom}, replies: []string{"{}"}}
	a := New(fake, "gpt-test", testConfig(), zaptest.NewLogger(t))

	res, usage := a.Analyze(context.Background(), pages())
	assert.True(t, res.IsEmpty())
	assert.Equal(t, 3, fake.calls)
	assert.Zero(t, usage.Calls)
}

func TestAnalyze_NoPages(t *testing.T) {
	fake := &fakeLLM{}
	res, _ := New(fake, "m", testConfig(), nil).Analyze(context.Background(), nil)
	require.True(t, res.IsEmpty())
	assert.Zero(t, fake.calls)
}
