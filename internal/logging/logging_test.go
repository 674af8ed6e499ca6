// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/daily-papers/pkg/types"
)

func captureStderr(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stderr
	stderr = zapcore.AddSync(&buf)
	t.Cleanup(func() { stderr = orig })
	return &buf
}

func TestNew_ConsoleRespectsLevel(t *testing.T) {
	buf := captureStderr(t)

	l, err := New(types.LogConfig{Level: "warn"})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", zap.String("paper_id", "2401.00001"))
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "2401.00001")
}

func TestNew_JSONEncoding(t *testing.T) {
	buf := captureStderr(t)

	l, err := New(types.LogConfig{Encoding: "json"})
	require.NoError(t, err)
	Paper(l, "2401.00002", "filter").Info("stage started")
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "stage started", entry["msg"])
	assert.Equal(t, "2401.00002", entry["paper_id"])
	assert.Equal(t, "filter", entry["stage"])
}

func TestNew_FileSink(t *testing.T) {
	captureStderr(t)
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	l, err := New(types.LogConfig{File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	l.Info("to file")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"to file"`))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(types.LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = New(types.LogConfig{Encoding: "xml"})
	assert.Error(t, err)
}
