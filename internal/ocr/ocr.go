// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr extracts page-level regions and figure crops from a PDF. Pages
// are rasterized into a temporary directory, recognized concurrently by a
// Recognizer, and returned in page order. Recognizer output uses the tagged
// region format TYPE[[x1,y1,x2,y2]] text, coordinates normalized to 0-1000.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/daily-papers/internal/raster"
	"github.com/pdiddy/daily-papers/internal/retry"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// ErrNoPages is returned when not a single page was recognized.
var ErrNoPages = errors.New("no pages recognized")

var errEmptyRecognition = errors.New("recognizer returned no text")

// rasterize is a var so tests can supply page images without a PDF tool.
var rasterize = raster.Rasterize

// Result is the OCR output for one paper.
type Result struct {
	// Pages are sorted by page number with no duplicates.
	Pages []types.OCRPage

	// Figures are all crops in page order.
	Figures []types.FigureCandidate

	// Rendered is the number of rasterized pages, recognized or not.
	Rendered int

	Model  string
	Calls  int
	Tokens int
}

// Extractor runs rasterization and per-page recognition for one paper at a
// time. It is safe for concurrent use by different papers.
type Extractor struct {
	recognizer Recognizer
	rasterizer raster.Rasterizer
	cfg        types.OCRConfig
	log        *zap.Logger
}

// NewExtractor returns an extractor using rec for recognition and r for
// rasterization.
func NewExtractor(rec Recognizer, r raster.Rasterizer, cfg types.OCRConfig, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{recognizer: rec, rasterizer: r, cfg: cfg, log: log}
}

// Extract recognizes up to cfg.MaxPages pages of pdfPath with at most
// cfg.Workers pages in flight. Artifacts are written under paperDir/ocr and
// paperDir/figures. A page that fails every attempt is dropped; if every
// page is dropped the error wraps ErrNoPages.
func (e *Extractor) Extract(ctx context.Context, pdfPath, paperDir string) (Result, error) {
	tmp, err := os.MkdirTemp("", "daily-papers-pages-*")
	if err != nil {
		return Result{}, fmt.Errorf("creating page directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	images, err := rasterize(ctx, e.rasterizer, pdfPath, tmp, e.cfg.DPI, e.cfg.MaxPages)
	if err != nil {
		if errors.Is(err, raster.ErrNoPages) {
			return Result{}, fmt.Errorf("%w: %w", ErrNoPages, err)
		}
		return Result{}, fmt.Errorf("rasterizing %s: %w", pdfPath, err)
	}
	if err := os.MkdirAll(filepath.Join(paperDir, "ocr"), 0o755); err != nil {
		return Result{}, fmt.Errorf("creating ocr directory: %w", err)
	}

	var (
		mu     sync.Mutex
		slots  = make([]*types.OCRPage, len(images))
		calls  int
		tokens int
	)

	var g errgroup.Group
	g.SetLimit(max(e.cfg.Workers, 1))
	for i, img := range images {
		g.Go(func() error {
			log := e.log.With(zap.Int("page", img.Number))
			defer func() {
				if r := recover(); r != nil {
					log.Error("page panicked, dropping", zap.Any("panic", r))
				}
			}()

			page, err := e.page(ctx, img, paperDir, log)
			if err != nil {
				log.Warn("page dropped", zap.Error(err))
				return nil
			}
			mu.Lock()
			slots[i] = &page
			calls++
			tokens += page.Tokens
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Rendered: len(images), Model: e.recognizer.Name(), Calls: calls, Tokens: tokens}
	for _, p := range slots {
		if p == nil {
			continue
		}
		res.Pages = append(res.Pages, *p)
		res.Figures = append(res.Figures, p.Figures...)
	}
	if len(res.Pages) == 0 {
		return res, fmt.Errorf("%w: 0 of %d pages", ErrNoPages, len(images))
	}
	e.log.Info("ocr complete", zap.Int("pages", len(res.Pages)), zap.Int("rendered", len(images)), zap.Int("figures", len(res.Figures)))
	return res, nil
}

// page recognizes one image and writes its artifacts. Only recognition
// failure is an error; overlay and crop failures are logged.
func (e *Extractor) page(ctx context.Context, img raster.Page, paperDir string, log *zap.Logger) (types.OCRPage, error) {
	policy := retry.Policy{
		Attempts: e.cfg.Retry.MaxAttempts,
		Backoff:  retry.Linear(e.cfg.Retry.Delay),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("ocr retry", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		},
	}
	rec, err := retry.DoValue(ctx, policy, func(ctx context.Context) (Recognition, error) {
		r, err := e.recognizer.Recognize(ctx, img.Path)
		if err == nil && r.Text == "" {
			err = errEmptyRecognition
		}
		return r, err
	})
	if err != nil {
		return types.OCRPage{}, err
	}

	page := types.OCRPage{
		PageNumber: img.Number,
		Regions:    Parse(rec.Text),
		RawText:    rec.Text,
		Tokens:     rec.Tokens,
	}

	txtPath := filepath.Join(paperDir, "ocr", fmt.Sprintf("page_%03d.txt", img.Number))
	if err := os.WriteFile(txtPath, []byte(rec.Text), 0o644); err != nil {
		log.Warn("writing page text", zap.Error(err))
	}

	src, err := imaging.Open(img.Path)
	if err != nil {
		log.Warn("decoding page image, skipping crops", zap.Error(err))
		return page, nil
	}

	if e.cfg.Visualize {
		visPath := filepath.Join(paperDir, "ocr", fmt.Sprintf("page_%03d_vis.png", img.Number))
		if err := imaging.Save(DrawOverlay(src, page.Regions), visPath); err != nil {
			log.Warn("writing overlay", zap.Error(err))
		}
	}

	figures, err := ExtractFigures(page.Regions, src, paperDir, img.Number)
	if err != nil {
		log.Warn("extracting figures", zap.Error(err))
	}
	page.Figures = figures
	return page, nil
}
