// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover finds the paper identifiers listed for a given day.
package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// idPattern matches new-style arXiv identifiers without version.
var idPattern = regexp.MustCompile(`^\d{4}\.\d{4,5}$`)

// Discoverer returns the candidate identifiers for a date (YYYY-MM-DD).
// Order is not significant; an empty result is not an error.
type Discoverer interface {
	Discover(ctx context.Context, date string) ([]string, error)
}

// DailyListing scrapes a daily papers listing page. Papers are linked as
// /papers/<arxiv id>.
type DailyListing struct {
	client *http.Client
	cfg    types.DiscoveryConfig
}

// NewDailyListing returns a scraper using cfg. A nil client gets one with
// cfg.Timeout that honors proxy environment variables.
func NewDailyListing(client *http.Client, cfg types.DiscoveryConfig) *DailyListing {
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		}
	}
	return &DailyListing{client: client, cfg: cfg}
}

// Discover fetches the listing for date and returns the unique ids in page order.
func (d *DailyListing) Discover(ctx context.Context, date string) ([]string, error) {
	u, err := url.Parse(d.cfg.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("parsing listing url: %w", err)
	}
	q := u.Query()
	q.Set("date", date)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return ExtractIDs(doc), nil
}

// ExtractIDs collects paper ids from every /papers/<id> anchor in doc.
func ExtractIDs(doc *goquery.Document) []string {
	var ids []string
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "/papers/") || strings.Contains(href, "submit") {
			return
		}
		id := path.Base(href)
		if i := strings.IndexAny(id, "?#"); i >= 0 {
			id = id[:i]
		}
		if !idPattern.MatchString(id) {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	})
	return ids
}

// Static returns a fixed identifier list, used when ids are given on the
// command line.
type Static []string

// Discover returns the list unchanged.
func (s Static) Discover(context.Context, string) ([]string, error) {
	return []string(s), nil
}
