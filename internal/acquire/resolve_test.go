// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/daily-papers/pkg/types"
)

func TestParseArxivID(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"bare", "2301.07041", "2301.07041", true},
		{"prefixed", "arXiv:2301.07041", "2301.07041", true},
		{"versioned", "2301.07041v2", "2301.07041", true},
		{"five digit", "2301.12345", "2301.12345", true},
		{"abs url", "https://arxiv.org/abs/2301.07041v1", "2301.07041", true},
		{"pdf url", "https://arxiv.org/pdf/2301.07041.pdf", "2301.07041", true},
		{"whitespace trimmed", "  2301.07041  ", "2301.07041", true},
		{"doi", "10.1145/1234567.1234568", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ParseArxivID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Foo: A Study", "Foo_A_Study"},
		{`a/b\c*d?e"f<g>h|i`, "abcdefghi"},
		{"  spaced   out  ", "spaced_out"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestStem(t *testing.T) {
	p := types.Paper{ID: "2401.00001", Title: "Foo", Authors: []string{"Jane Doe"}}
	assert.Equal(t, "Doe_Foo", Stem(p))

	long := types.Paper{
		Title:   "Scaling Laws for Reward Model Overoptimization in Direct Alignment",
		Authors: []string{"Rafael Rafailov", "Someone Else"},
	}
	stem := Stem(long)
	assert.Equal(t, "Rafailov_Scaling_Laws_for_Reward_Model_Overoptimi", stem)

	noAuthor := types.Paper{ID: "2401.00002", Title: "?"}
	assert.Equal(t, "Unknown_2401.00002", Stem(noAuthor))
}

func TestPaperDirAndPDFPath(t *testing.T) {
	p := types.Paper{Title: "Foo", Authors: []string{"Jane Doe"}}
	dir := PaperDir(filepath.Join("base", "2024-01-22"), "RL", p)
	assert.Equal(t, filepath.Join("base", "2024-01-22", "RL", "Doe_Foo"), dir)
	assert.Equal(t, filepath.Join(dir, "Doe_Foo.pdf"), PDFPath(dir))

	assert.Equal(t, filepath.Join("d", "Uncategorized", "Doe_Foo"), PaperDir("d", "", p))
}

func TestPDFURL(t *testing.T) {
	assert.Equal(t, "https://x/y.pdf", PDFURL(types.Paper{ID: "1", PDFURL: "https://x/y.pdf"}))
	assert.Equal(t, arxivPDFBase+"2401.00001", PDFURL(types.Paper{ID: "2401.00001"}))
}
