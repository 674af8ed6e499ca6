// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials kept one per file in a directory that
// stays out of version control, and folds them into the run config.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// Key file names.
const (
	OpenAIKey       = "openai-api-key"
	OCRKey          = "ocr-api-key"
	ZoteroKey       = "zotero-api-key"
	ZoteroLibraryID = "zotero-library-id"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Load returns the trimmed contents of every regular, non-hidden file in
// dir keyed by file name. Empty files are left out. A missing directory
// yields an empty map; a file that cannot be read is logged and skipped.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	found := map[string]string{}
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return found, nil
	case err != nil:
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn("skipping unreadable secret", zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		if v := strings.TrimSpace(string(raw)); v != "" {
			found[e.Name()] = v
		}
	}
	return found, nil
}

// Apply fills credentials in cfg that are still empty. The OCR endpoint
// falls back to the chat key when no OCR key is present.
func Apply(cfg *types.PipelineConfig, secrets map[string]string) {
	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := secrets[k]; v != "" {
				*dst = v
				return
			}
		}
	}
	fill(&cfg.LLM.APIKey, OpenAIKey)
	fill(&cfg.OCR.APIKey, OCRKey, OpenAIKey)
	fill(&cfg.Archive.APIKey, ZoteroKey)
	fill(&cfg.Archive.LibraryID, ZoteroLibraryID)
}
