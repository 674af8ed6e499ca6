// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Outcome names the result bucket a paper ends in.
type Outcome string

const (
	OutcomeInterested Outcome = "interested"
	OutcomeIgnored    Outcome = "ignored"
	OutcomeFailed     Outcome = "failed"
)

// PaperResult is the terminal record for one paper.
type PaperResult struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Paper   Paper   `json:"paper" yaml:"paper"`

	// Reason is the filter's reason for interested and ignored papers, or
	// the failure cause for failed ones.
	Reason string `json:"reason" yaml:"reason"`

	// Stage is the last status reached before the terminal state.
	Stage Status `json:"stage" yaml:"stage"`

	Category string         `json:"category,omitempty" yaml:"category,omitempty"`
	Tags     []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Verdict  FilterVerdict  `json:"verdict" yaml:"verdict"`
	Analysis AnalysisResult `json:"analysis" yaml:"analysis"`

	// Light is true when the note was generated from title and abstract only.
	Light bool `json:"light,omitempty" yaml:"light,omitempty"`

	NotePath   string `json:"note_path,omitempty" yaml:"note_path,omitempty"`
	ArchiveKey string `json:"archive_key,omitempty" yaml:"archive_key,omitempty"`

	// ArchiveError is set when the archive step failed for an otherwise
	// accepted paper.
	ArchiveError string `json:"archive_error,omitempty" yaml:"archive_error,omitempty"`
}

// RunResult groups the terminal records of one run. Papers appear in
// completion order, not discovery order.
type RunResult struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Date       string        `json:"date" yaml:"date"`
	Dir        string        `json:"dir" yaml:"dir"`
	Interested []PaperResult `json:"interested" yaml:"interested"`
	Ignored    []PaperResult `json:"ignored" yaml:"ignored"`
	Failed     []PaperResult `json:"failed" yaml:"failed"`
}

// Total returns the number of papers recorded.
func (r RunResult) Total() int {
	return len(r.Interested) + len(r.Ignored) + len(r.Failed)
}

// HasFailures reports whether any paper failed.
func (r RunResult) HasFailures() bool {
	return len(r.Failed) > 0
}

// Add files res into its bucket.
func (r *RunResult) Add(res PaperResult) {
	switch res.Outcome {
	case OutcomeInterested:
		r.Interested = append(r.Interested, res)
	case OutcomeIgnored:
		r.Ignored = append(r.Ignored, res)
	default:
		r.Failed = append(r.Failed, res)
	}
}

// BatchSummary is the reduction of a bounded group of accepted papers.
type BatchSummary struct {
	Themes     StringList `json:"themes" yaml:"themes"`
	Summary    string     `json:"summary" yaml:"summary"`
	Highlights StringList `json:"highlights" yaml:"highlights"`

	// Papers is the number of accepted papers covered.
	Papers int `json:"papers" yaml:"papers"`
}

// DirectionSummary summarizes one research direction in the digest.
type DirectionSummary struct {
	Direction string `json:"direction" yaml:"direction"`
	Summary   string `json:"summary" yaml:"summary"`
}

// NotablePick is one paper the digest calls out.
type NotablePick struct {
	Title  string `json:"title" yaml:"title"`
	Reason string `json:"reason" yaml:"reason"`
}

// DailyReport is the final digest reduced from all batch summaries.
type DailyReport struct {
	Overview   string             `json:"overview" yaml:"overview"`
	Insights   StringList         `json:"insights" yaml:"insights"`
	Directions []DirectionSummary `json:"directions" yaml:"directions"`
	Notable    []NotablePick      `json:"notable" yaml:"notable"`
	Trends     StringList         `json:"trends" yaml:"trends"`
}
