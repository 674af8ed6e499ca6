// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/daily-papers/pkg/types"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", DBFile))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// tick makes each call to now one second later than the last.
func tick(t *testing.T) {
	t.Helper()
	base := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	n := 0
	orig := now
	now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	t.Cleanup(func() { now = orig })
}

func seed(t *testing.T, l *Ledger) types.RunResult {
	t.Helper()
	ctx := context.Background()
	run := types.RunResult{RunID: "run-1", Date: "2026-10-14"}
	records := []types.PaperResult{
		{Outcome: types.OutcomeInterested, Paper: types.Paper{ID: "2401.00001", Title: "Foo RL"},
			Stage: types.StatusAnalyzing, Category: "RL", Tags: []string{"rl", "RL"}, Reason: "fits", NotePath: "/n.md", ArchiveKey: "K1"},
		{Outcome: types.OutcomeIgnored, Paper: types.Paper{ID: "2401.00002", Title: "Music"},
			Stage: types.StatusPending, Reason: "entertainment"},
		{Outcome: types.OutcomeFailed, Paper: types.Paper{ID: "2401.00003", Title: "Broken"},
			Stage: types.StatusDownloading, Reason: "download failed: HTTP 404"},
	}
	for _, r := range records {
		run.Add(r)
		require.NoError(t, l.Record(ctx, run, r))
	}
	return run
}

func TestHistory_NewestFirst(t *testing.T) {
	tick(t)
	l := openTest(t)
	seed(t, l)

	entries, err := l.History(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2401.00003", entries[0].PaperID)
	assert.Equal(t, "2401.00001", entries[2].PaperID)

	foo := entries[2]
	assert.Equal(t, "run-1", foo.RunID)
	assert.Equal(t, "2026-10-14", foo.Date)
	assert.Equal(t, types.OutcomeInterested, foo.Outcome)
	assert.Equal(t, types.StatusAnalyzing, foo.Stage)
	assert.Equal(t, []string{"rl", "RL"}, foo.Tags)
	assert.Equal(t, "K1", foo.ArchiveKey)
	assert.Equal(t, "/n.md", foo.NotePath)
	assert.False(t, foo.RecordedAt.IsZero())
}

func TestHistory_Filters(t *testing.T) {
	tick(t)
	l := openTest(t)
	seed(t, l)
	ctx := context.Background()

	failed, err := l.History(ctx, Query{Outcome: types.OutcomeFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "Broken", failed[0].Title)

	search, err := l.History(ctx, Query{Search: "entertain"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "2401.00002", search[0].PaperID)

	other, err := l.History(ctx, Query{Date: "2026-10-13"})
	require.NoError(t, err)
	assert.Empty(t, other)

	limited, err := l.History(ctx, Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRecord_ReplacesSamePaper(t *testing.T) {
	tick(t)
	l := openTest(t)
	ctx := context.Background()
	run := types.RunResult{RunID: "run-1", Date: "2026-10-14"}
	p := types.PaperResult{Outcome: types.OutcomeFailed, Paper: types.Paper{ID: "1"}}
	require.NoError(t, l.Record(ctx, run, p))
	p.Outcome = types.OutcomeInterested
	require.NoError(t, l.Record(ctx, run, p))

	entries, err := l.History(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.OutcomeInterested, entries[0].Outcome)
}

func TestFinishRun(t *testing.T) {
	tick(t)
	l := openTest(t)
	ctx := context.Background()
	run := seed(t, l)

	require.NoError(t, l.FinishRun(ctx, run, "/data/00_Daily_Report_CN.md"))
	// A run with no records is inserted by FinishRun.
	require.NoError(t, l.FinishRun(ctx, types.RunResult{RunID: "run-2", Date: "2026-10-15"}, ""))

	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	got := runs[1]
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, 1, got.Interested)
	assert.Equal(t, 1, got.Ignored)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, "/data/00_Daily_Report_CN.md", got.ReportPath)
	assert.NotEmpty(t, got.FinishedAt)
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("papers", DBFile), Path(types.PipelineConfig{BaseDir: "papers"}))
	assert.Equal(t, "/tmp/x.db", Path(types.PipelineConfig{BaseDir: "papers", LedgerPath: "/tmp/x.db"}))
}

func TestWriteEntries(t *testing.T) {
	entries := []Entry{{Date: "2026-10-14", PaperID: "1", Outcome: types.OutcomeIgnored, Title: "Foo"}}

	var table bytes.Buffer
	require.NoError(t, WriteEntries(&table, entries, FormatTable))
	assert.Contains(t, table.String(), "DATE")
	assert.Contains(t, table.String(), "Foo")

	var js bytes.Buffer
	require.NoError(t, WriteEntries(&js, entries, FormatJSON))
	var decoded []Entry
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "Foo", decoded[0].Title)

	var ym bytes.Buffer
	require.NoError(t, WriteEntries(&ym, entries, FormatYAML))
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, "Foo", fromYAML[0]["title"])

	assert.Error(t, WriteEntries(&js, entries, "xml"))
}
