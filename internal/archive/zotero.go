// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/daily-papers/internal/httputil"
	"github.com/pdiddy/daily-papers/pkg/types"
)

const (
	apiVersion     = "3"
	pageLimit      = 100
	rateLimitTries = 3
)

// Collection is a library collection.
type Collection struct {
	Key  string
	Name string
}

// WriteError is a per-object failure inside a 200 write response.
type WriteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("zotero write failed: %d %s", e.Code, e.Message)
}

// ClientError reports whether the library rejected the object itself.
func (e *WriteError) ClientError() bool {
	return e.Code >= 400 && e.Code < 500
}

// Client talks to the Zotero Web API v3 for one library.
type Client struct {
	base      string
	apiKey    string
	userAgent string
	http      *http.Client
}

// NewClient returns a client for the library in cfg.
func NewClient(cfg types.ArchiveConfig) *Client {
	kind := "users"
	if cfg.LibraryType == "group" {
		kind = "groups"
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/") + "/" + kind + "/" + url.PathEscape(cfg.LibraryID),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.apiKey)
	req.Header.Set("Zotero-API-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// get decodes a GET response into out. Rate-limited reads are retried.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := httputil.DoWithRetry(ctx, c.http, req, rateLimitTries)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

type writeResponse struct {
	Success map[string]string     `json:"success"`
	Failed  map[string]WriteError `json:"failed"`
}

// create writes one object and returns its key. A throttled write was
// never applied, so it is resent like a read.
func (c *Client) create(ctx context.Context, path string, obj any) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, []any{obj})
	if err != nil {
		return "", err
	}
	resp, err := httputil.DoWithRetry(ctx, c.http, req, rateLimitTries)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return "", err
	}

	var wr writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("decoding write response: %w", err)
	}
	if key, ok := wr.Success["0"]; ok {
		return key, nil
	}
	if f, ok := wr.Failed["0"]; ok {
		return "", &f
	}
	return "", fmt.Errorf("zotero write to %s returned no key", path)
}

// Collections lists every collection in the library.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var out []Collection
	for start := 0; ; start += pageLimit {
		var page []struct {
			Key  string `json:"key"`
			Data struct {
				Name string `json:"name"`
			} `json:"data"`
		}
		q := url.Values{"limit": {strconv.Itoa(pageLimit)}, "start": {strconv.Itoa(start)}}
		if err := c.get(ctx, "/collections?"+q.Encode(), &page); err != nil {
			return out, fmt.Errorf("listing collections: %w", err)
		}
		for _, p := range page {
			out = append(out, Collection{Key: p.Key, Name: p.Data.Name})
		}
		if len(page) < pageLimit {
			return out, nil
		}
	}
}

// Tags returns up to limit tags in the library's default order.
func (c *Client) Tags(ctx context.Context, limit int) ([]string, error) {
	var page []struct {
		Tag string `json:"tag"`
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "/tags?"+q.Encode(), &page); err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	tags := make([]string, 0, len(page))
	for _, p := range page {
		tags = append(tags, p.Tag)
	}
	return tags, nil
}

// CreateCollection creates name under parent (empty for top level).
func (c *Client) CreateCollection(ctx context.Context, name, parent string) (string, error) {
	obj := map[string]any{"name": name}
	if parent != "" {
		obj["parentCollection"] = parent
	}
	return c.create(ctx, "/collections", obj)
}

// Creator is one item creator.
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// Tag is one item tag.
type Tag struct {
	Tag string `json:"tag"`
}

// Item is the subset of item fields this program writes.
type Item struct {
	ItemType     string    `json:"itemType"`
	Title        string    `json:"title,omitempty"`
	AbstractNote string    `json:"abstractNote,omitempty"`
	URL          string    `json:"url,omitempty"`
	Date         string    `json:"date,omitempty"`
	Creators     []Creator `json:"creators,omitempty"`
	Tags         []Tag     `json:"tags,omitempty"`
	Collections  []string  `json:"collections,omitempty"`

	ParentItem  string `json:"parentItem,omitempty"`
	LinkMode    string `json:"linkMode,omitempty"`
	Path        string `json:"path,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Note        string `json:"note,omitempty"`
}

// CreateItem creates item and returns its key.
func (c *Client) CreateItem(ctx context.Context, item Item) (string, error) {
	return c.create(ctx, "/items", item)
}
