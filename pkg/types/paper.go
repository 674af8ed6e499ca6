// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Paper holds the bibliographic record for one candidate paper as returned
// by the metadata source, plus the local paths assigned once it is fetched.
type Paper struct {
	// ID is the stable external identifier without version suffix (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract with newlines collapsed to spaces.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Published is the preprint publication time.
	Published time.Time `json:"published" yaml:"published"`

	// PDFURL is the remote location of the paper PDF.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// PDFPath is the local filesystem path to the downloaded PDF.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
}

// FirstAuthor returns the first listed author or "Unknown".
func (p Paper) FirstAuthor() string {
	if len(p.Authors) == 0 || p.Authors[0] == "" {
		return "Unknown"
	}
	return p.Authors[0]
}

// Status is the pipeline position of a PaperTask.
type Status string

const (
	StatusPending     Status = "pending"
	StatusFilteredOut Status = "filtered_out"
	StatusDownloading Status = "downloading"
	StatusOCR         Status = "ocr"
	StatusAnalyzing   Status = "analyzing"
	StatusArchived    Status = "archived"
	StatusFailed      Status = "failed"
)

// statusRank orders the non-terminal path through the pipeline. Terminal
// side exits (filtered_out, failed) are handled separately in CanAdvance.
var statusRank = map[Status]int{
	StatusPending:     0,
	StatusDownloading: 1,
	StatusOCR:         2,
	StatusAnalyzing:   3,
	StatusArchived:    4,
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFilteredOut || s == StatusArchived || s == StatusFailed
}

// CanAdvance reports whether moving from s to next keeps the status
// monotonic. Forward jumps are allowed (a paper whose OCR fails skips
// analyzing); re-entering the current or an earlier stage is not.
func (s Status) CanAdvance(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusFailed:
		return true
	case StatusFilteredOut:
		return s == StatusPending
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// PaperTask is one candidate paper moving through the pipeline. The
// orchestrator owns it exclusively; later stages receive copies of the
// data they need.
type PaperTask struct {
	Paper

	// Status is the current pipeline position.
	Status Status `json:"status" yaml:"status"`

	// Category is assigned once after filtering.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Tags accumulate over the run and are never removed.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// NewPaperTask creates a pending task for p.
func NewPaperTask(p Paper) *PaperTask {
	return &PaperTask{Paper: p, Status: StatusPending}
}

// Advance moves the task to next, rejecting any non-monotonic transition.
func (t *PaperTask) Advance(next Status) error {
	if !t.Status.CanAdvance(next) {
		return fmt.Errorf("paper %s: invalid status transition %s -> %s", t.ID, t.Status, next)
	}
	t.Status = next
	return nil
}

// SetCategory assigns the category. A second call with a different value
// is rejected.
func (t *PaperTask) SetCategory(category string) error {
	if t.Category != "" && t.Category != category {
		return fmt.Errorf("paper %s: category already set to %q", t.ID, t.Category)
	}
	t.Category = category
	return nil
}

// AddTags appends tags not already present, preserving first-seen order.
// Empty strings are ignored.
func (t *PaperTask) AddTags(tags ...string) {
	seen := make(map[string]bool, len(t.Tags))
	for _, tag := range t.Tags {
		seen[tag] = true
	}
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		t.Tags = append(t.Tags, tag)
	}
}
