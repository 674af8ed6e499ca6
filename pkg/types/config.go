package types

import (
	"errors"
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "daily-papers/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig bounds the retry loop of one stage.
type RetryConfig struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// Delay is the base wait between attempts. How it grows depends on the stage.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// LLMConfig holds settings for an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the bearer token.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// GateConfig sets the capacity of each stage admission gate.
type GateConfig struct {
	Filter   int `json:"filter" yaml:"filter" mapstructure:"filter"`
	Download int `json:"download" yaml:"download" mapstructure:"download"`
	OCR      int `json:"ocr" yaml:"ocr" mapstructure:"ocr"`
	Analyze  int `json:"analyze" yaml:"analyze" mapstructure:"analyze"`
}

// SetAll overrides every gate with n.
func (g *GateConfig) SetAll(n int) {
	g.Filter, g.Download, g.OCR, g.Analyze = n, n, n, n
}

// DiscoveryConfig holds settings for the daily listing scraper.
type DiscoveryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// ListingURL is the daily listing page; the date is passed as ?date=.
	ListingURL string `json:"listing_url" yaml:"listing_url" mapstructure:"listing_url"`
}

// MetadataConfig holds settings for the bibliographic lookup.
type MetadataConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// ChunkSize is the number of identifiers per API request.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`

	// ChunkDelay is the minimum spacing between consecutive requests.
	ChunkDelay time.Duration `json:"chunk_delay" yaml:"chunk_delay" mapstructure:"chunk_delay"`
}

// FilterConfig holds settings for the relevance filter.
type FilterConfig struct {
	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// Interests lists the topics the reader follows.
	Interests []string `json:"interests" yaml:"interests" mapstructure:"interests"`

	// Ignores lists topics to skip.
	Ignores []string `json:"ignores" yaml:"ignores" mapstructure:"ignores"`
}

// FetchConfig holds settings for PDF download.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// MinSize is the byte size above which an existing file counts as fetched.
	MinSize int64 `json:"min_size" yaml:"min_size" mapstructure:"min_size"`
}

// OCRBackend selects the page recognizer.
type OCRBackend string

const (
	OCRVision    OCRBackend = "vision"
	OCRTesseract OCRBackend = "tesseract"
)

// OCRConfig holds settings for rasterization and page recognition.
type OCRConfig struct {
	LLMConfig `yaml:",inline" mapstructure:",squash"`
	Retry     RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// Backend is "vision" (grounding vision model) or "tesseract".
	Backend OCRBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Workers bounds concurrent page recognition within one paper.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// MaxPages caps the number of rasterized pages.
	MaxPages int `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`

	// DPI is the rasterization resolution.
	DPI int `json:"dpi" yaml:"dpi" mapstructure:"dpi"`

	// Prompt is sent with every page image to the vision backend.
	Prompt string `json:"prompt" yaml:"prompt" mapstructure:"prompt"`

	// Visualize writes page_NNN_vis.png overlays.
	Visualize bool `json:"visualize" yaml:"visualize" mapstructure:"visualize"`

	// Languages are the tesseract language packs.
	Languages []string `json:"languages" yaml:"languages" mapstructure:"languages"`
}

// AnalyzeConfig holds settings for deep analysis.
type AnalyzeConfig struct {
	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// MaxChars is the OCR text budget sent to the model.
	MaxChars int `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`

	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// NoteConfig holds settings for note composition.
type NoteConfig struct {
	// MaxFigures caps the figures embedded in a note.
	MaxFigures int `json:"max_figures" yaml:"max_figures" mapstructure:"max_figures"`
}

// ArchiveConfig holds settings for the reference library.
type ArchiveConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// BaseURL is the Web API root.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// LibraryType is "user" or "group".
	LibraryType string `json:"library_type" yaml:"library_type" mapstructure:"library_type"`

	// LibraryID is the numeric user or group id. Empty disables archiving.
	LibraryID string `json:"library_id" yaml:"library_id" mapstructure:"library_id"`

	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// RootCollection is the parent key for new collections.
	RootCollection string `json:"root_collection" yaml:"root_collection" mapstructure:"root_collection"`

	// TagLimit caps the tags read into the taxonomy.
	TagLimit int `json:"tag_limit" yaml:"tag_limit" mapstructure:"tag_limit"`
}

// Enabled reports whether enough is configured to talk to the library.
func (c ArchiveConfig) Enabled() bool {
	return c.LibraryID != "" && c.APIKey != ""
}

// ReportConfig holds settings for digest aggregation.
type ReportConfig struct {
	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// BatchSize is the number of papers per first-level summary.
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// FanIn is the number of summaries merged per higher-level call.
	FanIn int `json:"fan_in" yaml:"fan_in" mapstructure:"fan_in"`

	// MaxInputChars caps the rendered input of a single call.
	MaxInputChars int `json:"max_input_chars" yaml:"max_input_chars" mapstructure:"max_input_chars"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	Encoding   string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`
	File       string `json:"file" yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress" mapstructure:"compress"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	// BaseDir is the root of per-date output directories.
	BaseDir string `json:"base_dir" yaml:"base_dir" mapstructure:"base_dir"`

	// LedgerPath is the run history database. Empty means <base_dir>/ledger.db.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path" mapstructure:"ledger_path"`

	// SkipAnalysis archives accepted papers with a light note only.
	SkipAnalysis bool `json:"skip_analysis" yaml:"skip_analysis" mapstructure:"skip_analysis"`

	Gates     GateConfig      `json:"gates" yaml:"gates" mapstructure:"gates"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery" mapstructure:"discovery"`
	Metadata  MetadataConfig  `json:"metadata" yaml:"metadata" mapstructure:"metadata"`
	Filter    FilterConfig    `json:"filter" yaml:"filter" mapstructure:"filter"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	OCR       OCRConfig       `json:"ocr" yaml:"ocr" mapstructure:"ocr"`
	Analyze   AnalyzeConfig   `json:"analyze" yaml:"analyze" mapstructure:"analyze"`
	Note      NoteConfig      `json:"note" yaml:"note" mapstructure:"note"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive" mapstructure:"archive"`
	Report    ReportConfig    `json:"report" yaml:"report" mapstructure:"report"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultUserAgent is sent on every outbound request unless overridden.
const DefaultUserAgent = "daily-papers/0.1"

// DefaultOCRPrompt asks a grounding vision model for tagged markdown.
const DefaultOCRPrompt = "<|grounding|>Convert the document to markdown."

// DefaultPipelineConfig returns the configuration used when no file or
// environment override is present.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BaseDir: "papers",
		Gates:   GateConfig{Filter: 3, Download: 3, OCR: 3, Analyze: 3},
		LLM: LLMConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: DefaultUserAgent},
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
		},
		Discovery: DiscoveryConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: DefaultUserAgent},
			ListingURL: "https://huggingface.co/papers",
		},
		Metadata: MetadataConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: DefaultUserAgent},
			Retry:      RetryConfig{MaxAttempts: 5, Delay: 5 * time.Second},
			ChunkSize:  10,
			ChunkDelay: 3 * time.Second,
		},
		Filter: FilterConfig{
			Retry: RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second},
			Interests: []string{
				"Language LLMs",
				"Reinforcement Learning (RL)",
				"Multimodal (Understanding, Grounding, RL-Agents)",
				"CV Foundation Models (YOLO, SAM)",
			},
			Ignores: []string{"Pure entertainment generation (Music/Art) unless technically novel"},
		},
		Fetch: FetchConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: DefaultUserAgent},
			Retry:      RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second},
			MinSize:    10 * 1024,
		},
		OCR: OCRConfig{
			LLMConfig: LLMConfig{
				HTTPConfig: HTTPConfig{Timeout: 120 * time.Second, UserAgent: DefaultUserAgent},
				BaseURL:    "http://localhost:8000/v1",
				Model:      "deepseek-ai/DeepSeek-OCR",
			},
			Retry:     RetryConfig{MaxAttempts: 3, Delay: 5 * time.Second},
			Backend:   OCRVision,
			Workers:   3,
			MaxPages:  15,
			DPI:       200,
			Prompt:    DefaultOCRPrompt,
			Visualize: true,
			Languages: []string{"eng"},
		},
		Analyze: AnalyzeConfig{
			Retry:       RetryConfig{MaxAttempts: 3, Delay: 5 * time.Second},
			MaxChars:    12000,
			Temperature: 0.3,
		},
		Note: NoteConfig{MaxFigures: 4},
		Archive: ArchiveConfig{
			HTTPConfig:  HTTPConfig{Timeout: 30 * time.Second, UserAgent: DefaultUserAgent},
			Retry:       RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second},
			BaseURL:     "https://api.zotero.org",
			LibraryType: "user",
			TagLimit:    50,
		},
		Report: ReportConfig{
			Retry:         RetryConfig{MaxAttempts: 3, Delay: 5 * time.Second},
			BatchSize:     10,
			FanIn:         10,
			MaxInputChars: 24000,
		},
		Log: LogConfig{
			Level:      "info",
			Encoding:   "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Validate reports every setting that would make a run impossible.
func (c PipelineConfig) Validate() error {
	var errs []error
	if c.BaseDir == "" {
		errs = append(errs, errors.New("base_dir must not be empty"))
	}
	for name, n := range map[string]int{
		"gates.filter":        c.Gates.Filter,
		"gates.download":      c.Gates.Download,
		"gates.ocr":           c.Gates.OCR,
		"gates.analyze":       c.Gates.Analyze,
		"ocr.workers":         c.OCR.Workers,
		"ocr.max_pages":       c.OCR.MaxPages,
		"ocr.dpi":             c.OCR.DPI,
		"report.batch_size":   c.Report.BatchSize,
		"metadata.chunk_size": c.Metadata.ChunkSize,
	} {
		if n < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", name, n))
		}
	}
	if c.Report.FanIn < 2 {
		errs = append(errs, fmt.Errorf("report.fan_in must be at least 2, got %d", c.Report.FanIn))
	}
	if c.Note.MaxFigures < 0 {
		errs = append(errs, fmt.Errorf("note.max_figures must not be negative, got %d", c.Note.MaxFigures))
	}
	switch c.OCR.Backend {
	case OCRVision, OCRTesseract:
	default:
		errs = append(errs, fmt.Errorf("ocr.backend must be %q or %q, got %q", OCRVision, OCRTesseract, c.OCR.Backend))
	}
	return errors.Join(errs...)
}
