// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive files accepted papers into a Zotero library: a preprint
// item in the paper's category collection, a linked-file attachment for
// the local PDF and a child note carrying the reading note.
package archive

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/daily-papers/internal/httputil"
	"github.com/pdiddy/daily-papers/internal/retry"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// Archivist stores one paper in the reference library and returns the
// new item key.
type Archivist interface {
	Archive(ctx context.Context, p types.Paper, pdfPath, noteText string, tags []string, category string) (string, error)
}

// Nop archives nothing. It is used when no library is configured.
type Nop struct{}

func (Nop) Archive(context.Context, types.Paper, string, string, []string, string) (string, error) {
	return "", nil
}

// itemWriter is the subset of Client the archivist writes through.
type itemWriter interface {
	CreateItem(ctx context.Context, item Item) (string, error)
}

// Zotero is the library archivist.
type Zotero struct {
	items    itemWriter
	taxonomy *Taxonomy
	retry    types.RetryConfig
	log      *zap.Logger
}

// NewZotero returns an archivist writing items through c and resolving
// categories through tax.
func NewZotero(c itemWriter, tax *Taxonomy, cfg types.ArchiveConfig, log *zap.Logger) *Zotero {
	if log == nil {
		log = zap.NewNop()
	}
	return &Zotero{items: c, taxonomy: tax, retry: cfg.Retry, log: log}
}

// IsTransient reports whether err looks like a network condition worth
// retrying: timeouts, handshake failures and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"handshake", "timeout", "connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsClientError reports whether the library rejected the request itself.
func IsClientError(err error) bool {
	var se *httputil.StatusError
	if errors.As(err, &se) {
		return se.ClientError()
	}
	var we *WriteError
	return errors.As(err, &we) && we.ClientError()
}

// Archive creates the item, then its attachment and note. Only the parent
// item is retried, and only on transient errors. Attachment and note
// failures are logged and do not fail the call.
func (z *Zotero) Archive(ctx context.Context, p types.Paper, pdfPath, noteText string, tags []string, category string) (string, error) {
	item := Item{
		ItemType:     "preprint",
		Title:        p.Title,
		AbstractNote: p.Abstract,
		URL:          p.PDFURL,
		Creators:     Creators(p.Authors),
		Tags:         itemTags(tags, category),
	}
	if !p.Published.IsZero() {
		item.Date = p.Published.Format("2006-01-02")
	}
	if key := z.taxonomy.EnsureCategory(ctx, category); key != "" {
		item.Collections = []string{key}
	}

	policy := retry.Policy{
		Attempts: z.retry.MaxAttempts,
		Backoff:  retry.Linear(z.retry.Delay),
		OnRetry: func(attempt int, err error, wait time.Duration) {
			z.log.Warn("archive retry", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		},
	}
	key, err := retry.DoValue(ctx, policy, func(ctx context.Context) (string, error) {
		key, err := z.items.CreateItem(ctx, item)
		if err != nil && !IsTransient(err) {
			return "", retry.Permanent(err)
		}
		return key, err
	})
	if err != nil {
		return "", fmt.Errorf("creating item: %w", err)
	}

	if _, statErr := os.Stat(pdfPath); statErr == nil {
		abs, _ := filepath.Abs(pdfPath)
		_, err := z.items.CreateItem(ctx, Item{
			ItemType:    "attachment",
			LinkMode:    "linked_file",
			Title:       filepath.Base(pdfPath),
			Path:        abs,
			ContentType: "application/pdf",
			ParentItem:  key,
		})
		if err != nil {
			z.log.Warn("linking pdf", zap.String("key", key), zap.Error(err))
		}
	}

	if _, err := z.items.CreateItem(ctx, Item{
		ItemType:   "note",
		Note:       NoteHTML(p.Title, noteText),
		ParentItem: key,
	}); err != nil {
		z.log.Warn("attaching note", zap.String("key", key), zap.Error(err))
	}
	return key, nil
}

// Creators splits each author on the first space into first and last name.
func Creators(authors []string) []Creator {
	out := make([]Creator, 0, len(authors))
	for _, a := range authors {
		first, last, _ := strings.Cut(strings.TrimSpace(a), " ")
		out = append(out, Creator{CreatorType: "author", FirstName: first, LastName: last})
	}
	return out
}

// itemTags adds category to tags, dropping empties and duplicates.
func itemTags(tags []string, category string) []Tag {
	seen := make(map[string]bool)
	var out []Tag
	for _, t := range append(append([]string(nil), tags...), category) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, Tag{Tag: t})
	}
	return out
}

// NoteHTML wraps a Markdown note for a Zotero note item.
func NoteHTML(title, note string) string {
	return "<h1>" + html.EscapeString(title) + "</h1><hr>" + strings.ReplaceAll(note, "\n", "<br>")
}
