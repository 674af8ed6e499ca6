// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-papers/internal/httputil"
	"github.com/pdiddy/daily-papers/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(types.LLMConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/1"},
		BaseURL:    ts.URL + "/v1/",
		Model:      "test-model",
		APIKey:     "sk-test",
	})
}

func TestComplete_SendsRequestAndParsesUsage(t *testing.T) {
	var got chatRequest
	var gotRaw map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "test/1", r.Header.Get("User-Agent"))
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		assert.NoError(t, json.Unmarshal([]byte(buf.String()), &got))
		assert.NoError(t, json.Unmarshal([]byte(buf.String()), &gotRaw))
		w.Write([]byte(`{"model":"test-model","choices":[{"message":{"content":"hello"}}],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`))
	})

	resp, err := c.Complete(context.Background(), Request{
		Messages:    []Message{UserText("hi")},
		Temperature: Temperature(0.3),
		JSON:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, Usage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}, resp.Usage)
	assert.Equal(t, "test-model", got.Model)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.3, *got.Temperature, 1e-9)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	_, hasMax := gotRaw["max_tokens"]
	assert.False(t, hasMax)
}

func TestComplete_ImageMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content []Part `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Messages, 1) && assert.Len(t, body.Messages[0].Content, 2) {
			parts := body.Messages[0].Content
			assert.Equal(t, "image_url", parts[0].Type)
			assert.True(t, strings.HasPrefix(parts[0].ImageURL.URL, "data:image/png;base64,"))
			assert.Equal(t, "describe", parts[1].Text)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	_, err := c.Complete(context.Background(), Request{
		Messages: []Message{UserImage("image/png", []byte{0x89, 'P', 'N', 'G'}, "describe")},
	})
	require.NoError(t, err)
}

func TestComplete_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	})

	_, err := c.Complete(context.Background(), Request{Messages: []Message{UserText("hi")}})
	var se *httputil.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestComplete_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})
	_, err := c.Complete(context.Background(), Request{Messages: []Message{UserText("hi")}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

type stubCompleter struct {
	content string
	err     error
	got     Request
}

func (s *stubCompleter) Complete(_ context.Context, req Request) (Response, error) {
	s.got = req
	return Response{Content: s.content, Usage: Usage{TotalTokens: 5}}, s.err
}

func TestCompleteJSON(t *testing.T) {
	stub := &stubCompleter{content: "```json\n{\"interested\": true}\n```"}
	var v struct {
		Interested bool `json:"interested"`
	}
	usage, err := CompleteJSON(context.Background(), stub, Request{}, &v)
	require.NoError(t, err)
	assert.True(t, v.Interested)
	assert.True(t, stub.got.JSON)
	assert.Equal(t, 5, usage.TotalTokens)

	stub.content = "not json at all"
	usage, err = CompleteJSON(context.Background(), stub, Request{}, &v)
	assert.Error(t, err)
	assert.Equal(t, 5, usage.TotalTokens)
}

func TestDecodeJSON(t *testing.T) {
	var v map[string]any
	require.NoError(t, DecodeJSON(`Sure! {"a": {"b": 1}} Hope that helps.`, &v))
	assert.Contains(t, v, "a")

	assert.Error(t, DecodeJSON(`{"a": `, &v))
	assert.Error(t, DecodeJSON(``, &v))
}
