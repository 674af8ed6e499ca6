// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/daily-papers/internal/llm"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// Recognition is one recognizer response for one page image.
type Recognition struct {
	// Text is in the tagged region format understood by Parse.
	Text   string
	Tokens int
}

// Recognizer turns one page image into tagged region text.
type Recognizer interface {
	// Name identifies the backend model for usage accounting.
	Name() string
	Recognize(ctx context.Context, imagePath string) (Recognition, error)
}

const visionTemperature = 0.1

// VisionRecognizer sends each page to a grounding vision model behind an
// OpenAI-compatible endpoint.
type VisionRecognizer struct {
	Client llm.Completer
	Model  string
	Prompt string
}

// NewVisionRecognizer builds a recognizer against cfg's endpoint.
func NewVisionRecognizer(cfg types.OCRConfig) *VisionRecognizer {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = types.DefaultOCRPrompt
	}
	return &VisionRecognizer{Client: llm.New(cfg.LLMConfig), Model: cfg.Model, Prompt: prompt}
}

func (v *VisionRecognizer) Name() string { return v.Model }

func (v *VisionRecognizer) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return Recognition{}, fmt.Errorf("reading page image: %w", err)
	}
	resp, err := v.Client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.UserImage("image/png", data, v.Prompt)},
		Temperature: llm.Temperature(visionTemperature),
	})
	if err != nil {
		return Recognition{}, err
	}
	return Recognition{Text: resp.Content, Tokens: resp.Usage.TotalTokens}, nil
}

// NewRecognizer returns the backend selected by cfg.Backend.
func NewRecognizer(cfg types.OCRConfig) (Recognizer, error) {
	switch cfg.Backend {
	case types.OCRVision, "":
		return NewVisionRecognizer(cfg), nil
	case types.OCRTesseract:
		t, err := NewTesseractRecognizer(cfg.Languages)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown OCR backend %q", cfg.Backend)
}
