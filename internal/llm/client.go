// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is a minimal client for OpenAI-compatible chat completion
// endpoints. It covers text prompts, image prompts, JSON response mode,
// and token usage reporting.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/daily-papers/internal/httputil"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// ErrEmptyResponse is returned when the endpoint answers without choices.
var ErrEmptyResponse = errors.New("empty completion")

// Completer abstracts the chat endpoint so stages can be tested with a fake.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Part is one element of a multi-part message.
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an http(s) or data: URL.
type ImageURL struct {
	URL string `json:"url"`
}

// Message is one chat turn. Content is either a string or []Part.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// UserText returns a plain user message.
func UserText(text string) Message {
	return Message{Role: "user", Content: text}
}

// UserImage returns a user message carrying an inline image followed by a
// text prompt.
func UserImage(mime string, data []byte, prompt string) Message {
	url := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	return Message{Role: "user", Content: []Part{
		{Type: "image_url", ImageURL: &ImageURL{URL: url}},
		{Type: "text", Text: prompt},
	}}
}

// Request is one chat completion call.
type Request struct {
	Messages []Message

	// Temperature is sent only when non-nil.
	Temperature *float64

	// JSON asks the endpoint for a JSON object response.
	JSON bool

	MaxTokens int
}

// Temperature is a convenience for building Request.Temperature.
func Temperature(t float64) *float64 { return &t }

// Usage is the token accounting reported by the endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the first choice of a completion.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	BaseURL   string
	APIKey    string
	Model     string
	UserAgent string
	HTTP      *http.Client
}

// New builds a client from cfg. The HTTP timeout is cfg.Timeout.
func New(cfg types.LLMConfig) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		UserAgent: cfg.UserAgent,
		HTTP:      &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Complete sends req and returns the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	body := chatRequest{
		Model:       c.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("calling %s: %w", c.Model, err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return Response{}, err
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Response{}, fmt.Errorf("decoding completion: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Response{}, ErrEmptyResponse
	}

	return Response{
		Content: cr.Choices[0].Message.Content,
		Model:   cr.Model,
		Usage:   cr.Usage,
	}, nil
}

// CompleteJSON sends req in JSON mode and decodes the reply into v. The
// usage is returned even when decoding fails, since the tokens were spent.
func CompleteJSON(ctx context.Context, c Completer, req Request, v any) (Usage, error) {
	req.JSON = true
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return Usage{}, err
	}
	if err := DecodeJSON(resp.Content, v); err != nil {
		return resp.Usage, err
	}
	return resp.Usage, nil
}

// DecodeJSON unmarshals the first JSON object in s, tolerating markdown
// code fences and surrounding prose.
func DecodeJSON(s string, v any) error {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in response: %q", truncate(s, 120))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
