// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads paper PDFs into the per-paper output directory
// and writes the paper's metadata record next to them.
package acquire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/daily-papers/internal/httputil"
	"github.com/pdiddy/daily-papers/internal/retry"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// RecordFile is the metadata record written into each paper directory.
const RecordFile = "paper.yaml"

var (
	// ErrEmptyDownload is returned when the server answers 200 with no body.
	ErrEmptyDownload = errors.New("empty download")

	// ErrNotPDF is returned when the body does not start with the PDF
	// signature, typically an HTML interstitial.
	ErrNotPDF = errors.New("response is not a PDF")
)

var pdfMagic = []byte("%PDF-")

// Fetcher retrieves PDFs with bounded exponential retry.
type Fetcher struct {
	client *http.Client
	cfg    types.FetchConfig
	log    *zap.Logger
}

// NewFetcher returns a fetcher. A nil client gets one with cfg.Timeout.
func NewFetcher(client *http.Client, cfg types.FetchConfig, log *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{client: client, cfg: cfg, log: log}
}

// Fetch stores the PDF at url as dest. A file already at dest that is
// larger than MinSize counts as done and no request is sent. Any failure,
// including a 4xx, is retried until the attempt budget is spent.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (skipped bool, err error) {
	if fi, statErr := os.Stat(dest); statErr == nil && fi.Size() > f.cfg.MinSize {
		f.log.Debug("pdf already present", zap.String("path", dest))
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	policy := retry.Policy{
		Attempts: f.cfg.Retry.MaxAttempts,
		Backoff:  retry.Exponential(f.cfg.Retry.Delay),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			f.log.Warn("download retry", zap.String("url", url),
				zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		},
	}
	if err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return f.get(ctx, url, dest)
	}); err != nil {
		return false, fmt.Errorf("downloading %s: %w", url, err)
	}
	return false, nil
}

func (f *Fetcher) get(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/pdf")
	if ua := f.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}
	return saveAtomic(dest, resp.Body)
}

// saveAtomic streams r into a hidden sibling of dest and renames it into
// place once complete, so dest is either absent or a whole PDF.
func saveAtomic(dest string, r io.Reader) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	br := bufio.NewReader(r)
	head, _ := br.Peek(len(pdfMagic))
	switch {
	case len(head) == 0:
		tmp.Close()
		return ErrEmptyDownload
	case !bytes.Equal(head, pdfMagic):
		tmp.Close()
		return ErrNotPDF
	}

	if _, err := io.Copy(tmp, br); err != nil {
		tmp.Close()
		return fmt.Errorf("writing download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), dest)
}

// WriteRecord writes the paper's metadata as YAML into dir.
func WriteRecord(dir string, task *types.PaperTask) error {
	data, err := yaml.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, RecordFile), data, 0o644)
}

// ReadRecord reads a record written by WriteRecord.
func ReadRecord(dir string) (*types.PaperTask, error) {
	data, err := os.ReadFile(filepath.Join(dir, RecordFile))
	if err != nil {
		return nil, err
	}
	var task types.PaperTask
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
