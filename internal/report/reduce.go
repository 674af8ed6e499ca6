// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Reducer folds a list of items into at most FanIn summaries so that no
// single Leaf or Merge call sees more than its bound. Leaves take up to
// BatchSize items; merges take up to FanIn summaries; both stop a group
// early when the rendered size would pass MaxChars. Calls within one level
// run concurrently, bounded by Concurrency.
type Reducer[T, S any] struct {
	BatchSize   int
	FanIn       int
	MaxChars    int
	Concurrency int

	// ItemSize and SummarySize return the rendered length of one input.
	// Nil counts every input as zero.
	ItemSize    func(T) int
	SummarySize func(S) int

	Leaf  func(ctx context.Context, items []T) (S, error)
	Merge func(ctx context.Context, parts []S) (S, error)
}

// Reduce returns the top level of the tree. It is empty when items is.
func (r Reducer[T, S]) Reduce(ctx context.Context, items []T) ([]S, error) {
	if len(items) == 0 {
		return nil, nil
	}
	level, err := mapGroups(ctx, r.Concurrency, group(items, r.BatchSize, r.MaxChars, r.ItemSize), r.Leaf)
	if err != nil {
		return nil, err
	}
	for len(level) > max(r.FanIn, 2) || (len(level) > 1 && total(level, r.SummarySize) > r.MaxChars && r.MaxChars > 0) {
		groups := group(level, max(r.FanIn, 2), r.MaxChars, r.SummarySize)
		if len(groups) == len(level) {
			// Every summary already fills a call on its own.
			break
		}
		if level, err = mapGroups(ctx, r.Concurrency, groups, r.Merge); err != nil {
			return nil, err
		}
	}
	return level, nil
}

// group splits items in order into runs of at most n entries and at most
// maxChars total size. An entry larger than maxChars forms its own run.
func group[E any](items []E, n, maxChars int, size func(E) int) [][]E {
	n = max(n, 1)
	var (
		out   [][]E
		cur   []E
		chars int
	)
	for _, it := range items {
		s := 0
		if size != nil {
			s = size(it)
		}
		if len(cur) > 0 && (len(cur) == n || (maxChars > 0 && chars+s > maxChars)) {
			out = append(out, cur)
			cur, chars = nil, 0
		}
		cur = append(cur, it)
		chars += s
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func total[E any](items []E, size func(E) int) int {
	if size == nil {
		return 0
	}
	n := 0
	for _, it := range items {
		n += size(it)
	}
	return n
}

// mapGroups applies fn to every group concurrently and keeps group order.
func mapGroups[E, S any](ctx context.Context, limit int, groups [][]E, fn func(context.Context, []E) (S, error)) ([]S, error) {
	out := make([]S, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, grp := range groups {
		g.Go(func() error {
			s, err := fn(ctx, grp)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
