// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/daily-papers/internal/raster"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// fakeRecognizer answers per page image name. Pages listed in fail always
// error; pages in flaky fail once.
type fakeRecognizer struct {
	mu       sync.Mutex
	fail     map[string]bool
	flaky    map[string]bool
	attempts map[string]int
	delay    func(name string) time.Duration
}

func (f *fakeRecognizer) Name() string { return "fake-ocr" }

func (f *fakeRecognizer) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	name := filepath.Base(imagePath)
	f.mu.Lock()
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	f.attempts[name]++
	n := f.attempts[name]
	f.mu.Unlock()

	if f.delay != nil {
		time.Sleep(f.delay(name))
	}
	if f.fail[name] || (f.flaky[name] && n == 1) {
		return Recognition{}, errors.New("backend timeout")
	}
	text := fmt.Sprintf("title[[0,0,1000,100]]%s\nfigure[[100,200,900,600]]\ncaption[[100,600,900,650]]Figure 1: System overview", name)
	return Recognition{Text: text, Tokens: 10}, nil
}

func stubRasterize(t *testing.T, pages int) {
	t.Helper()
	orig := rasterize
	rasterize = func(_ context.Context, _ raster.Rasterizer, _, outDir string, _, maxPages int) ([]raster.Page, error) {
		n := min(pages, maxPages)
		if n == 0 {
			return nil, raster.ErrNoPages
		}
		var out []raster.Page
		for i := 1; i <= n; i++ {
			path := filepath.Join(outDir, fmt.Sprintf("page-%02d.png", i))
			if err := imaging.Save(imaging.New(100, 200, color.White), path); err != nil {
				return nil, err
			}
			out = append(out, raster.Page{Number: i, Path: path})
		}
		return out, nil
	}
	t.Cleanup(func() { rasterize = orig })
}

func testConfig() types.OCRConfig {
	cfg := types.DefaultPipelineConfig().OCR
	cfg.Retry = types.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond}
	return cfg
}

func TestExtract_PagesSortedDespiteCompletionOrder(t *testing.T) {
	stubRasterize(t, 6)
	rec := &fakeRecognizer{delay: func(name string) time.Duration {
		// Earlier pages finish last.
		var n int
		fmt.Sscanf(name, "page-%d.png", &n)
		return time.Duration(7-n) * 3 * time.Millisecond
	}}
	dir := t.TempDir()

	cfg := testConfig()
	cfg.Workers = 6
	res, err := NewExtractor(rec, nil, cfg, zaptest.NewLogger(t)).Extract(context.Background(), "paper.pdf", dir)
	require.NoError(t, err)

	require.Len(t, res.Pages, 6)
	for i, p := range res.Pages {
		assert.Equal(t, i+1, p.PageNumber)
	}
	assert.Equal(t, 6, res.Calls)
	assert.Equal(t, 60, res.Tokens)
	assert.Equal(t, "fake-ocr", res.Model)
	require.Len(t, res.Figures, 6)
	assert.Equal(t, "Figure 1: System overview", res.Figures[0].Caption)
	assert.Equal(t, 1, res.Figures[0].Page)
	assert.Equal(t, 6, res.Figures[5].Page)

	assert.FileExists(t, filepath.Join(dir, "ocr", "page_001.txt"))
	assert.FileExists(t, filepath.Join(dir, "ocr", "page_001_vis.png"))
	assert.FileExists(t, filepath.Join(dir, "figures", "fig_p001_02.png"))
}

func TestExtract_DropsFailingPage(t *testing.T) {
	stubRasterize(t, 3)
	rec := &fakeRecognizer{
		fail:  map[string]bool{"page-02.png": true},
		flaky: map[string]bool{"page-03.png": true},
	}

	res, err := NewExtractor(rec, nil, testConfig(), zaptest.NewLogger(t)).Extract(context.Background(), "paper.pdf", t.TempDir())
	require.NoError(t, err)

	require.Len(t, res.Pages, 2)
	assert.Equal(t, 1, res.Pages[0].PageNumber)
	assert.Equal(t, 3, res.Pages[1].PageNumber)
	assert.Equal(t, 3, res.Rendered)
	assert.Equal(t, 2, rec.attempts["page-02.png"], "bounded retries")
	assert.Equal(t, 2, rec.attempts["page-03.png"])
}

func TestExtract_AllPagesFail(t *testing.T) {
	stubRasterize(t, 2)
	rec := &fakeRecognizer{fail: map[string]bool{"page-01.png": true, "page-02.png": true}}

	_, err := NewExtractor(rec, nil, testConfig(), zaptest.NewLogger(t)).Extract(context.Background(), "paper.pdf", t.TempDir())
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestExtract_ZeroPagePDF(t *testing.T) {
	stubRasterize(t, 0)

	_, err := NewExtractor(&fakeRecognizer{}, nil, testConfig(), zaptest.NewLogger(t)).Extract(context.Background(), "paper.pdf", t.TempDir())
	assert.ErrorIs(t, err, ErrNoPages)
	assert.ErrorIs(t, err, raster.ErrNoPages)
}

func TestExtract_MaxPagesCap(t *testing.T) {
	stubRasterize(t, 20)
	cfg := testConfig()
	cfg.MaxPages = 4
	cfg.Visualize = false
	dir := t.TempDir()

	res, err := NewExtractor(&fakeRecognizer{}, nil, cfg, zaptest.NewLogger(t)).Extract(context.Background(), "paper.pdf", dir)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 4)

	entries, err := os.ReadDir(filepath.Join(dir, "ocr"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), "_vis.png"), "overlay disabled")
	}
}

func TestNewRecognizer(t *testing.T) {
	cfg := testConfig()
	r, err := NewRecognizer(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Model, r.Name())

	cfg.Backend = "bogus"
	_, err = NewRecognizer(cfg)
	assert.Error(t, err)
}
