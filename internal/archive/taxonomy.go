// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// collectionCreator is the subset of Client the taxonomy writes through.
type collectionCreator interface {
	CreateCollection(ctx context.Context, name, parent string) (string, error)
}

// Taxonomy is the run-wide view of the library's categories and tags. It
// is built once before the pipeline starts and shared by every paper.
// Categories created during the run are added to the name cache.
type Taxonomy struct {
	mu   sync.RWMutex
	keys map[string]string
	tags []string

	creator collectionCreator
	root    string
	group   singleflight.Group
	log     *zap.Logger
}

// NewTaxonomy returns a taxonomy seeded with collections and tags. New
// collections are created through creator under root. A nil creator
// makes EnsureCategory resolve unknown names to root.
func NewTaxonomy(collections []Collection, tags []string, creator collectionCreator, root string, log *zap.Logger) *Taxonomy {
	if log == nil {
		log = zap.NewNop()
	}
	keys := make(map[string]string, len(collections))
	for _, c := range collections {
		keys[c.Name] = c.Key
	}
	return &Taxonomy{keys: keys, tags: tags, creator: creator, root: root, log: log}
}

// LoadTaxonomy reads the library taxonomy. A failed read is logged and
// yields an empty taxonomy that can still create categories.
func LoadTaxonomy(ctx context.Context, c *Client, cfg types.ArchiveConfig, log *zap.Logger) *Taxonomy {
	if log == nil {
		log = zap.NewNop()
	}
	collections, err := c.Collections(ctx)
	if err != nil {
		log.Warn("reading collections, continuing with empty taxonomy", zap.Error(err))
		return NewTaxonomy(nil, nil, c, cfg.RootCollection, log)
	}
	tags, err := c.Tags(ctx, cfg.TagLimit)
	if err != nil {
		log.Warn("reading tags", zap.Error(err))
	}
	log.Info("taxonomy loaded", zap.Int("collections", len(collections)), zap.Int("tags", len(tags)))
	return NewTaxonomy(collections, tags, c, cfg.RootCollection, log)
}

// Hint returns a sorted snapshot of category names and the tag list.
func (t *Taxonomy) Hint() types.TaxonomyHint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.keys))
	for name := range t.keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return types.TaxonomyHint{Categories: names, Tags: append([]string(nil), t.tags...)}
}

func (t *Taxonomy) lookup(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key, ok := t.keys[name]
	return key, ok
}

// EnsureCategory returns the collection key for name, creating the
// collection on first use. Concurrent calls for the same new name share
// one creation. When creation fails the root collection key is returned
// and the name stays uncached so a later paper can try again.
func (t *Taxonomy) EnsureCategory(ctx context.Context, name string) string {
	if key, ok := t.lookup(name); ok {
		return key
	}
	if t.creator == nil {
		return t.root
	}

	v, _, _ := t.group.Do(name, func() (any, error) {
		if key, ok := t.lookup(name); ok {
			return key, nil
		}
		key, err := t.creator.CreateCollection(ctx, name, t.root)
		if err != nil {
			t.log.Warn("creating collection, using root", zap.String("category", name), zap.Error(err))
			return t.root, nil
		}
		t.mu.Lock()
		t.keys[name] = key
		t.mu.Unlock()
		t.log.Info("collection created", zap.String("category", name), zap.String("key", key))
		return key, nil
	})
	return v.(string)
}
