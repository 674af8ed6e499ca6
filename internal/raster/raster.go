// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package raster renders PDF pages to PNG images with an external tool.
// Tool detection tries pdftoppm first and falls back to mutool.
package raster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

const (
	binPdftoppm = "pdftoppm"
	binMutool   = "mutool"
)

// ErrNoPages is returned for a PDF with zero pages.
var ErrNoPages = errors.New("pdf has no pages")

// Page is one rendered page image.
type Page struct {
	// Number is the 1-based page number.
	Number int
	Path   string
}

// Rasterizer renders a page range of a PDF into PNG files in outDir.
type Rasterizer interface {
	// Name returns the tool name ("pdftoppm" or "mutool").
	Name() string

	// Available reports whether the tool binary exists on PATH.
	Available() bool

	// Render writes page images for pages 1..lastPage into outDir. File
	// names end in -<page number>.png, possibly zero padded.
	Render(ctx context.Context, pdfPath, outDir string, dpi, lastPage int) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}

// tool implements Rasterizer for a specific binary. pdftoppm and mutool
// differ only in binary name and argument layout.
type tool struct {
	bin  string
	args func(pdfPath, outDir string, dpi, lastPage int) []string
	exec executor
}

func (t *tool) Name() string { return t.bin }

func (t *tool) Available() bool {
	_, err := t.exec.LookPath(t.bin)
	return err == nil
}

func (t *tool) Render(ctx context.Context, pdfPath, outDir string, dpi, lastPage int) error {
	if err := t.exec.Run(ctx, t.bin, t.args(pdfPath, outDir, dpi, lastPage)...); err != nil {
		return fmt.Errorf("running %s on %s: %w", t.bin, pdfPath, err)
	}
	return nil
}

func newPdftoppm(exec executor) *tool {
	return &tool{
		bin: binPdftoppm,
		args: func(pdfPath, outDir string, dpi, lastPage int) []string {
			return []string{
				"-png", "-r", strconv.Itoa(dpi),
				"-f", "1", "-l", strconv.Itoa(lastPage),
				pdfPath, filepath.Join(outDir, "page"),
			}
		},
		exec: exec,
	}
}

func newMutool(exec executor) *tool {
	return &tool{
		bin: binMutool,
		args: func(pdfPath, outDir string, dpi, lastPage int) []string {
			return []string{
				"draw", "-q", "-r", strconv.Itoa(dpi),
				"-o", filepath.Join(outDir, "page-%d.png"),
				pdfPath, "1-" + strconv.Itoa(lastPage),
			}
		},
		exec: exec,
	}
}

var defaultExec = &osExecutor{}

// Detect returns the first available rasterizer. Returns an error if
// neither tool is installed.
func Detect() (Rasterizer, error) {
	return detect(defaultExec)
}

func detect(exec executor) (Rasterizer, error) {
	for _, t := range []*tool{newPdftoppm(exec), newMutool(exec)} {
		if t.Available() {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no rasterizer available: neither %s nor %s found on PATH", binPdftoppm, binMutool)
}

var pageFile = regexp.MustCompile(`-(\d+)\.png$`)

// Rasterize renders at most maxPages pages of pdfPath into outDir and
// returns them sorted by page number.
func Rasterize(ctx context.Context, r Rasterizer, pdfPath, outDir string, dpi, maxPages int) ([]Page, error) {
	n, err := PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoPages
	}
	last := min(n, maxPages)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating raster directory: %w", err)
	}
	if err := r.Render(ctx, pdfPath, outDir, dpi, last); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("reading raster directory: %w", err)
	}
	var pages []Page
	for _, e := range entries {
		m := pageFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num < 1 || num > last {
			continue
		}
		pages = append(pages, Page{Number: num, Path: filepath.Join(outDir, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return pages, nil
}
