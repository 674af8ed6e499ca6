// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup(t *testing.T) {
	tests := []struct {
		name     string
		items    []int
		n        int
		maxChars int
		want     [][]int
	}{
		{"count only", []int{1, 2, 3, 4, 5}, 2, 0, [][]int{{1, 2}, {3, 4}, {5}}},
		{"char bound", []int{4, 4, 4, 4}, 10, 10, [][]int{{4, 4}, {4, 4}}},
		{"oversized alone", []int{3, 20, 3}, 10, 10, [][]int{{3}, {20}, {3}}},
		{"empty", nil, 3, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := group(tt.items, tt.n, tt.maxChars, func(i int) int { return i })
			assert.Equal(t, tt.want, got)
		})
	}
}

// concat keeps the leaves in order so the tree shape is observable.
func concatReducer(batch, fanIn int, leaves, merges *atomic.Int32) Reducer[int, []int] {
	return Reducer[int, []int]{
		BatchSize:   batch,
		FanIn:       fanIn,
		Concurrency: 4,
		Leaf: func(_ context.Context, items []int) ([]int, error) {
			leaves.Add(1)
			return append([]int(nil), items...), nil
		},
		Merge: func(_ context.Context, parts [][]int) ([]int, error) {
			merges.Add(1)
			var out []int
			for _, p := range parts {
				out = append(out, p...)
			}
			return out, nil
		},
	}
}

func TestReduce_SingleLevel(t *testing.T) {
	var leaves, merges atomic.Int32
	r := concatReducer(10, 10, &leaves, &merges)

	got, err := r.Reduce(context.Background(), []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, {11, 12}}, got)
	assert.Equal(t, int32(2), leaves.Load())
	assert.Zero(t, merges.Load())
}

func TestReduce_MergesUntilFanIn(t *testing.T) {
	var leaves, merges atomic.Int32
	r := concatReducer(1, 2, &leaves, &merges)

	got, err := r.Reduce(context.Background(), []int{1, 2, 3, 4, 5})
	require.NoError(t, err)

	// 5 leaves -> 3 -> 2.
	assert.Equal(t, [][]int{{1, 2, 3, 4}, {5}}, got)
	assert.Equal(t, int32(5), leaves.Load())
	assert.Equal(t, int32(5), merges.Load())
}

func TestReduce_MergesWhenTooLarge(t *testing.T) {
	var leaves, merges atomic.Int32
	r := concatReducer(1, 10, &leaves, &merges)
	r.MaxChars = 3
	r.ItemSize = func(int) int { return 1 }
	r.SummarySize = func(s []int) int { return len(s) }

	got, err := r.Reduce(context.Background(), []int{1, 2, 3, 4})
	require.NoError(t, err)

	// Four leaves of size 1 exceed the bound together; one merge of three
	// and one pass-through leave two parts totalling 4, which cannot shrink
	// further because each merge group is full.
	assert.Equal(t, [][]int{{1, 2, 3}, {4}}, got)
	assert.Equal(t, int32(2), merges.Load())
}

func TestReduce_Empty(t *testing.T) {
	var leaves, merges atomic.Int32
	got, err := concatReducer(2, 2, &leaves, &merges).Reduce(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, leaves.Load())
}

func TestReduce_LeafError(t *testing.T) {
	boom := errors.New("boom")
	r := Reducer[int, int]{
		BatchSize: 1,
		FanIn:     2,
		Leaf: func(_ context.Context, items []int) (int, error) {
			if items[0] == 2 {
				return 0, boom
			}
			return items[0], nil
		},
		Merge: func(context.Context, []int) (int, error) { return 0, nil },
	}
	_, err := r.Reduce(context.Background(), []int{1, 2, 3})
	assert.ErrorIs(t, err, boom)
}
