// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// TesseractRecognizer runs the local tesseract engine. Paragraph boxes are
// emitted as text regions in the same tagged format the vision backend
// produces. It does not detect figures or tables.
type TesseractRecognizer struct {
	languages []string
}

// NewTesseractRecognizer checks that the engine loads with languages.
func NewTesseractRecognizer(languages []string) (*TesseractRecognizer, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(languages...); err != nil {
		return nil, fmt.Errorf("setting tesseract languages: %w", err)
	}
	return &TesseractRecognizer{languages: languages}, nil
}

func (t *TesseractRecognizer) Name() string {
	return "tesseract:" + strings.Join(t.languages, "+")
}

// Recognize creates a client per call; gosseract clients are not safe for
// concurrent use.
func (t *TesseractRecognizer) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	img, err := imaging.Open(imagePath)
	if err != nil {
		return Recognition{}, fmt.Errorf("opening page image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(t.languages...); err != nil {
		return Recognition{}, fmt.Errorf("setting tesseract languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return Recognition{}, fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return Recognition{}, fmt.Errorf("loading page image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_PARA)
	if err != nil {
		return Recognition{}, fmt.Errorf("recognizing page: %w", err)
	}
	return Recognition{Text: tagBoxes(boxes, img.Bounds())}, nil
}

func tagBoxes(boxes []gosseract.BoundingBox, bounds image.Rectangle) string {
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return ""
	}
	var b strings.Builder
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		r := box.Box.Sub(bounds.Min)
		fmt.Fprintf(&b, "text[[%d, %d, %d, %d]]\n%s\n",
			r.Min.X*types.NormalizedScale/w, r.Min.Y*types.NormalizedScale/h,
			r.Max.X*types.NormalizedScale/w, r.Max.Y*types.NormalizedScale/h,
			text)
	}
	return b.String()
}
