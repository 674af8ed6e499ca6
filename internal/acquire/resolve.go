// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// arxivPDFBase is the PDF endpoint used when a record carries no PDF link.
// Declared as a var so tests can substitute an httptest server.
var arxivPDFBase = "https://arxiv.org/pdf/"

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:|https?://arxiv\.org/(?:abs|pdf)/)?(\d{4}\.\d{4,5})(?:v\d+)?(?:\.pdf)?$`)

// unsafeChars are stripped from path components.
var unsafeChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// maxTitleRunes bounds the title part of a paper directory name.
const maxTitleRunes = 40

// ParseArxivID extracts the versionless arXiv id from a bare id, an
// "arXiv:" prefixed id, or an abs/pdf URL.
func ParseArxivID(identifier string) (string, bool) {
	m := arxivPattern.FindStringSubmatch(strings.TrimSpace(identifier))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PDFURL returns the paper's PDF link, falling back to the arXiv endpoint.
func PDFURL(p types.Paper) string {
	if p.PDFURL != "" {
		return p.PDFURL
	}
	return arxivPDFBase + p.ID
}

// SanitizeFilename removes characters that are unsafe in file names and
// replaces spaces with underscores.
func SanitizeFilename(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, " ", "_")
}

// Stem returns "<first author surname>_<title prefix>" for p.
func Stem(p types.Paper) string {
	author := SanitizeFilename(surname(p.FirstAuthor()))
	if author == "" {
		author = "Unknown"
	}
	title := []rune(SanitizeFilename(p.Title))
	if len(title) > maxTitleRunes {
		title = title[:maxTitleRunes]
	}
	t := strings.TrimRight(string(title), "_.")
	if t == "" {
		t = SanitizeFilename(p.ID)
	}
	return author + "_" + t
}

// PaperDir returns <dayDir>/<category>/<stem>.
func PaperDir(dayDir, category string, p types.Paper) string {
	cat := SanitizeFilename(category)
	if cat == "" {
		cat = "Uncategorized"
	}
	return filepath.Join(dayDir, cat, Stem(p))
}

// PDFPath returns the PDF location inside the paper directory.
func PDFPath(paperDir string) string {
	return filepath.Join(paperDir, filepath.Base(paperDir)+".pdf")
}

func surname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
