// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata looks up bibliographic records for paper identifiers.
// Records are streamed as each chunk of identifiers resolves so callers
// can start work before the full set is known.
package metadata

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/daily-papers/internal/httputil"
	"github.com/pdiddy/daily-papers/internal/retry"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// Base URLs, declared as vars so tests can substitute httptest servers.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivPDFBase = "https://arxiv.org/pdf/"
)

// rateLimitRetries is the number of extra tries on HTTP 429 within one attempt.
const rateLimitRetries = 2

var versionSuffix = regexp.MustCompile(`v\d+$`)

// Source streams records for a set of identifiers. The channel is closed
// once every identifier has been resolved or given up on.
type Source interface {
	Stream(ctx context.Context, ids []string) <-chan types.Paper
}

// Arxiv resolves identifiers against the arXiv export API in fixed-size
// chunks, spacing requests with a rate limiter.
type Arxiv struct {
	client  *http.Client
	cfg     types.MetadataConfig
	log     *zap.Logger
	limiter *rate.Limiter
}

// NewArxiv returns an arXiv source. A nil client gets one with cfg.Timeout.
func NewArxiv(client *http.Client, cfg types.MetadataConfig, log *zap.Logger) *Arxiv {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 10
	}
	limit := rate.Inf
	if cfg.ChunkDelay > 0 {
		limit = rate.Every(cfg.ChunkDelay)
	}
	return &Arxiv{
		client:  client,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Stream emits one record per resolved identifier. A chunk that still fails
// after its retry budget is logged and skipped.
func (a *Arxiv) Stream(ctx context.Context, ids []string) <-chan types.Paper {
	out := make(chan types.Paper)
	go func() {
		defer close(out)
		for start := 0; start < len(ids); start += a.cfg.ChunkSize {
			end := min(start+a.cfg.ChunkSize, len(ids))
			chunk := ids[start:end]

			papers, err := a.fetchChunk(ctx, chunk)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.log.Error("metadata chunk failed", zap.Strings("ids", chunk), zap.Error(err))
				continue
			}
			for _, p := range papers {
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (a *Arxiv) fetchChunk(ctx context.Context, ids []string) ([]types.Paper, error) {
	policy := retry.Policy{
		Attempts: a.cfg.Retry.MaxAttempts,
		Backoff:  retry.Linear(a.cfg.Retry.Delay),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			a.log.Warn("metadata chunk retry",
				zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		},
	}
	return retry.DoValue(ctx, policy, func(ctx context.Context) ([]types.Paper, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, retry.Permanent(err)
		}
		return a.query(ctx, ids)
	})
}

func (a *Arxiv) query(ctx context.Context, ids []string) ([]types.Paper, error) {
	q := url.Values{}
	q.Set("id_list", strings.Join(ids, ","))
	q.Set("max_results", strconv.Itoa(len(ids)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+q.Encode(), nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	if a.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", a.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, a.client, req, rateLimitRetries)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]types.Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if p, ok := e.paper(); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// paper converts an entry. Error entries (unknown ids) have no abs id and
// are rejected.
func (e arxivEntry) paper() (types.Paper, bool) {
	id := NormalizeID(path.Base(strings.TrimSpace(e.ID)))
	if id == "" || id == "." || !strings.Contains(e.ID, "/abs/") {
		return types.Paper{}, false
	}

	p := types.Paper{
		ID:       id,
		Title:    collapseSpace(e.Title),
		Abstract: collapseSpace(e.Summary),
		PDFURL:   arxivPDFBase + id,
	}
	for _, a := range e.Authors {
		if name := collapseSpace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		p.Published = t
	}
	return p, true
}

// NormalizeID strips the version suffix from an arXiv identifier.
func NormalizeID(id string) string {
	return versionSuffix.ReplaceAllString(strings.TrimSpace(id), "")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
