// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/daily-papers/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		subdirs []string
		want    map[string]string
	}{
		{
			name: "trims values",
			files: map[string]string{
				OpenAIKey:       "  sk_abc123  \n",
				ZoteroKey:       "zk_xyz789",
				ZoteroLibraryID: "123456\n",
			},
			want: map[string]string{
				OpenAIKey:       "sk_abc123",
				ZoteroKey:       "zk_xyz789",
				ZoteroLibraryID: "123456",
			},
		},
		{
			name:  "drops blank files",
			files: map[string]string{OCRKey: "k", "empty": "", "blank": " \n\t "},
			want:  map[string]string{OCRKey: "k"},
		},
		{
			name:  "ignores hidden files",
			files: map[string]string{".gitkeep": "", ".old-key": "secret", ZoteroKey: "zk"},
			want:  map[string]string{ZoteroKey: "zk"},
		},
		{
			name:    "ignores directories",
			files:   map[string]string{OpenAIKey: "sk"},
			subdirs: []string{"archive"},
			want:    map[string]string{OpenAIKey: "sk"},
		},
		{
			name: "empty directory",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			for _, sub := range tt.subdirs {
				require.NoError(t, os.Mkdir(filepath.Join(dir, sub), 0o755))
			}

			got, err := Load(dir, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_MissingDir(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), DefaultDir), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_SkipsUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not apply to root")
	}
	dir := t.TempDir()
	writeFile(t, dir, OpenAIKey, "sk")
	locked := filepath.Join(dir, ZoteroKey)
	require.NoError(t, os.WriteFile(locked, []byte("zk"), 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o644) })

	got, err := Load(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{OpenAIKey: "sk"}, got)
}

func TestApply(t *testing.T) {
	cfg := types.DefaultPipelineConfig()
	cfg.Archive.APIKey = "from-config"
	Apply(&cfg, map[string]string{
		OpenAIKey:       "sk",
		ZoteroKey:       "zk",
		ZoteroLibraryID: "42",
	})

	assert.Equal(t, "sk", cfg.LLM.APIKey)
	assert.Equal(t, "sk", cfg.OCR.APIKey, "ocr falls back to the chat key")
	assert.Equal(t, "from-config", cfg.Archive.APIKey, "configured value wins")
	assert.Equal(t, "42", cfg.Archive.LibraryID)

	Apply(&cfg, map[string]string{OCRKey: "ok"})
	assert.Equal(t, "sk", cfg.OCR.APIKey, "already filled")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
