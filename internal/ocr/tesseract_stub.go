// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !tesseract

package ocr

import (
	"context"
	"errors"
)

// ErrTesseractUnavailable is returned when the binary was built without
// the tesseract tag.
var ErrTesseractUnavailable = errors.New("tesseract backend not compiled in (build with -tags tesseract)")

// TesseractRecognizer is unavailable in this build.
type TesseractRecognizer struct{}

// NewTesseractRecognizer always fails in builds without the tesseract tag.
func NewTesseractRecognizer([]string) (*TesseractRecognizer, error) {
	return nil, ErrTesseractUnavailable
}

func (t *TesseractRecognizer) Name() string { return "tesseract" }

func (t *TesseractRecognizer) Recognize(context.Context, string) (Recognition, error) {
	return Recognition{}, ErrTesseractUnavailable
}
