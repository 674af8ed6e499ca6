// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/daily-papers/internal/llm"
	"github.com/pdiddy/daily-papers/pkg/types"
)

type fakeLLM struct {
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.prompts = append(f.prompts, req.Messages[0].Content.(string))
	i := len(f.prompts) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return llm.Response{}, f.errs[i]
	}
	return llm.Response{Content: f.replies[min(i, len(f.replies)-1)]}, nil
}

func TestLLMClassifier_PromptCarriesTaxonomy(t *testing.T) {
	fake := &fakeLLM{replies: []string{`{"interested": true, "reason": "RL agent", "category": "RL", "tags": ["RL", " agents ", "rl"], "summary_cn": "总结", "tricks_cn": "技巧"}`}}
	c := NewLLMClassifier(fake, types.FilterConfig{
		Interests: []string{"Reinforcement Learning"},
		Ignores:   []string{"music generation"},
	})

	v, err := c.Classify(context.Background(), "Foo", "An abstract.", types.TaxonomyHint{
		Categories: []string{"RL", "Vision"},
		Tags:       []string{"ppo"},
	})
	require.NoError(t, err)

	assert.True(t, v.Interested)
	assert.Equal(t, "RL", v.Category)
	assert.Equal(t, types.StringList{"rl", "agents"}, v.Tags)
	assert.Equal(t, "总结", v.Summary)
	assert.Equal(t, "技巧", v.KeyFindings)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, `["RL","Vision"]`)
	assert.Contains(t, prompt, `["ppo"]`)
	assert.Contains(t, prompt, "1. Reinforcement Learning")
	assert.Contains(t, prompt, "User Ignores: music generation")
	assert.Contains(t, prompt, "Title: Foo")
}

func TestLLMClassifier_EmptyTaxonomyRendersArrays(t *testing.T) {
	prompt, err := renderPrompt(types.FilterConfig{}, "T", "A", types.TaxonomyHint{})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(prompt, ": []"))
}

func TestNormalize(t *testing.T) {
	v := Normalize(types.FilterVerdict{Interested: true, Category: "  ", Reason: " ok "})
	assert.Equal(t, Uncategorized, v.Category)
	assert.Equal(t, "ok", v.Reason)

	v = Normalize(types.FilterVerdict{Interested: false})
	assert.Empty(t, v.Category)
}

type scriptedClassifier struct {
	calls int
	errs  []error
	v     types.FilterVerdict
}

func (s *scriptedClassifier) Classify(context.Context, string, string, types.TaxonomyHint) (types.FilterVerdict, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return types.FilterVerdict{}, s.errs[s.calls-1]
	}
	return s.v, nil
}

func TestJudge_RetriesThenSucceeds(t *testing.T) {
	c := &scriptedClassifier{
		errs: []error{errors.New("timeout")},
		v:    types.FilterVerdict{Interested: true, Category: "RL"},
	}
	v := Judge(context.Background(), c, types.Paper{Title: "Foo"}, types.TaxonomyHint{},
		types.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, zap.NewNop())

	assert.True(t, v.Interested)
	assert.Equal(t, 2, c.calls)
}

func TestJudge_FallsBackToNotInterested(t *testing.T) {
	boom := errors.New("model down")
	c := &scriptedClassifier{errs: []error{boom, boom, boom}}
	v := Judge(context.Background(), c, types.Paper{Title: "Foo"}, types.TaxonomyHint{},
		types.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, zap.NewNop())

	assert.False(t, v.Interested)
	assert.True(t, strings.HasPrefix(v.Reason, UnavailableReason))
	assert.Contains(t, v.Reason, "model down")
	assert.Equal(t, 3, c.calls)
}

func TestLLMClassifier_MalformedJSONIsError(t *testing.T) {
	fake := &fakeLLM{replies: []string{`{"interested": tru`}}
	_, err := NewLLMClassifier(fake, types.FilterConfig{}).Classify(context.Background(), "T", "A", types.TaxonomyHint{})
	assert.Error(t, err)
}
