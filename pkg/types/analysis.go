// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"strings"
)

// StringList decodes from either a JSON array of strings or a single
// string. Model output is inconsistent about which one it returns.
type StringList []string

// UnmarshalJSON accepts ["a","b"], "a", or null.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = StringList{s}
	return nil
}

// Join renders the list with sep.
func (l StringList) Join(sep string) string {
	return strings.Join(l, sep)
}

// FilterVerdict is the relevance filter's classification of one paper.
type FilterVerdict struct {
	Interested bool       `json:"interested" yaml:"interested"`
	Reason     string     `json:"reason" yaml:"reason"`
	Category   string     `json:"category" yaml:"category"`
	Tags       StringList `json:"tags" yaml:"tags"`

	// Summary is a one-sentence Chinese summary.
	Summary string `json:"summary_cn" yaml:"summary_cn"`

	// KeyFindings lists the key tricks or conclusions in Chinese.
	KeyFindings string `json:"tricks_cn" yaml:"tricks_cn"`
}

// AnalysisResult is the structured summary of one paper derived from its
// OCR pages. The zero value is a valid, empty analysis.
type AnalysisResult struct {
	Title                 string     `json:"title" yaml:"title"`
	TitleCN               string     `json:"title_cn" yaml:"title_cn"`
	Authors               StringList `json:"authors" yaml:"authors"`
	Abstract              string     `json:"abstract" yaml:"abstract"`
	CoreProblem           string     `json:"core_problem" yaml:"core_problem"`
	CoreContribution      StringList `json:"core_contribution" yaml:"core_contribution"`
	MethodSummary         string     `json:"method_summary" yaml:"method_summary"`
	KeyFiguresDescription StringList `json:"key_figures_description" yaml:"key_figures_description"`
	KeyResults            string     `json:"key_results" yaml:"key_results"`
	KeyTables             StringList `json:"key_tables" yaml:"key_tables"`
	Conclusion            string     `json:"conclusion" yaml:"conclusion"`
	Pros                  StringList `json:"pros" yaml:"pros"`
	Cons                  StringList `json:"cons" yaml:"cons"`
	Inspirations          StringList `json:"inspirations" yaml:"inspirations"`
}

// IsEmpty reports whether no field carries content.
func (a AnalysisResult) IsEmpty() bool {
	return a.Title == "" && a.TitleCN == "" && len(a.Authors) == 0 &&
		a.Abstract == "" && a.CoreProblem == "" && len(a.CoreContribution) == 0 &&
		a.MethodSummary == "" && len(a.KeyFiguresDescription) == 0 &&
		a.KeyResults == "" && len(a.KeyTables) == 0 && a.Conclusion == "" &&
		len(a.Pros) == 0 && len(a.Cons) == 0 && len(a.Inspirations) == 0
}

// TokenUsage accumulates model usage for one paper.
type TokenUsage struct {
	OCRModel        string  `json:"ocr_model" yaml:"ocr_model"`
	OCRCalls        int     `json:"ocr_calls" yaml:"ocr_calls"`
	OCRTokens       int     `json:"ocr_tokens" yaml:"ocr_tokens"`
	LLMModel        string  `json:"llm_model" yaml:"llm_model"`
	LLMCalls        int     `json:"llm_calls" yaml:"llm_calls"`
	LLMInputTokens  int     `json:"llm_tokens_input" yaml:"llm_tokens_input"`
	LLMOutputTokens int     `json:"llm_tokens_output" yaml:"llm_tokens_output"`
	ElapsedSeconds  float64 `json:"total_time" yaml:"total_time"`
}

// TaxonomyHint is the read-only view of the archive's existing categories
// and frequent tags given to the relevance filter.
type TaxonomyHint struct {
	Categories []string `json:"categories" yaml:"categories"`
	Tags       []string `json:"tags" yaml:"tags"`
}
