// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives every discovered paper through filter, fetch,
// OCR, analysis, note composition and archiving. Each paper runs in its
// own goroutine; four weighted semaphores bound how many papers may be
// inside the filter, download, OCR and analyze stages at once. A paper
// holds a gate only while that stage runs, so different papers occupy
// different stages at the same time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/daily-papers/internal/acquire"
	"github.com/pdiddy/daily-papers/internal/analyze"
	"github.com/pdiddy/daily-papers/internal/archive"
	"github.com/pdiddy/daily-papers/internal/filter"
	"github.com/pdiddy/daily-papers/internal/logging"
	"github.com/pdiddy/daily-papers/internal/note"
	"github.com/pdiddy/daily-papers/internal/ocr"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// Fetcher downloads a PDF. skipped is true when a valid file was already
// present.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) (skipped bool, err error)
}

// Extractor runs OCR over one PDF.
type Extractor interface {
	Extract(ctx context.Context, pdfPath, paperDir string) (ocr.Result, error)
}

// Analyzer summarizes sorted OCR pages. It never fails; an exhausted
// analysis is returned empty.
type Analyzer interface {
	Analyze(ctx context.Context, pages []types.OCRPage) (types.AnalysisResult, analyze.Usage)
}

// HintSource supplies the current taxonomy to the relevance filter.
type HintSource interface {
	Hint() types.TaxonomyHint
}

// Sink receives every terminal record as it is produced. Calls come from
// a single goroutine.
type Sink interface {
	Record(ctx context.Context, run types.RunResult, res types.PaperResult) error
}

// Stages are the collaborators of one run.
type Stages struct {
	Classifier filter.Classifier
	Fetcher    Fetcher
	OCR        Extractor
	Analyzer   Analyzer
	Archivist  archive.Archivist
}

type gates struct {
	filter, download, ocr, analyze *semaphore.Weighted
}

// Pipeline is one configured run.
type Pipeline struct {
	stages   Stages
	taxonomy HintSource
	cfg      types.PipelineConfig
	gates    gates
	log      *zap.Logger

	// Sink, when set, is given each terminal record. Sink errors are
	// logged and never fail the run.
	Sink Sink

	// Progress, when set, is called from the collecting goroutine after
	// each terminal record.
	Progress func(res types.PaperResult, done int)
}

// New returns a pipeline with gates sized from cfg.Gates.
func New(stages Stages, taxonomy HintSource, cfg types.PipelineConfig, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if stages.Archivist == nil {
		stages.Archivist = archive.Nop{}
	}
	return &Pipeline{
		stages:   stages,
		taxonomy: taxonomy,
		cfg:      cfg,
		log:      log,
		gates: gates{
			filter:   semaphore.NewWeighted(int64(max(cfg.Gates.Filter, 1))),
			download: semaphore.NewWeighted(int64(max(cfg.Gates.Download, 1))),
			ocr:      semaphore.NewWeighted(int64(max(cfg.Gates.OCR, 1))),
			analyze:  semaphore.NewWeighted(int64(max(cfg.Gates.Analyze, 1))),
		},
	}
}

// DayDir returns <base_dir>/<date>.
func (p *Pipeline) DayDir(date string) string {
	return filepath.Join(p.cfg.BaseDir, date)
}

// Run starts one goroutine per paper received on papers, as papers
// arrive, and returns once every paper has a terminal record. Records are
// bucketed in completion order. Duplicate ids are processed once.
func (p *Pipeline) Run(ctx context.Context, date string, papers <-chan types.Paper) types.RunResult {
	run := types.RunResult{RunID: uuid.NewString(), Date: date, Dir: p.DayDir(date)}
	p.log.Info("run started", zap.String("run_id", run.RunID), zap.String("date", date))

	results := make(chan types.PaperResult)
	go func() {
		var wg sync.WaitGroup
		seen := make(map[string]bool)
		for paper := range papers {
			if seen[paper.ID] {
				p.log.Warn("duplicate paper skipped", zap.String("paper_id", paper.ID))
				continue
			}
			seen[paper.ID] = true
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- p.process(ctx, date, paper)
			}()
		}
		wg.Wait()
		close(results)
	}()

	for res := range results {
		run.Add(res)
		if p.Sink != nil {
			if err := p.Sink.Record(ctx, run, res); err != nil {
				p.log.Warn("recording result", zap.String("paper_id", res.Paper.ID), zap.Error(err))
			}
		}
		if p.Progress != nil {
			p.Progress(res, run.Total())
		}
	}

	p.log.Info("run finished",
		zap.String("run_id", run.RunID),
		zap.Int("interested", len(run.Interested)),
		zap.Int("ignored", len(run.Ignored)),
		zap.Int("failed", len(run.Failed)))
	return run
}

// paperRun carries the state of one paper through its stages.
type paperRun struct {
	task *types.PaperTask
	res  types.PaperResult
	log  *zap.Logger
}

// finish moves the task to a terminal status and fills the record.
func (r *paperRun) finish(outcome types.Outcome, status types.Status, reason string) types.PaperResult {
	r.res.Stage = r.task.Status
	if err := r.task.Advance(status); err != nil {
		r.log.Error("status transition", zap.Error(err))
	}
	r.res.Outcome = outcome
	if reason != "" {
		r.res.Reason = reason
	}
	r.res.Paper = r.task.Paper
	r.res.Category = r.task.Category
	r.res.Tags = r.task.Tags
	return r.res
}

func (r *paperRun) fail(reason string) types.PaperResult {
	r.log.Error("paper failed", zap.String("stage", string(r.task.Status)), zap.String("reason", reason))
	return r.finish(types.OutcomeFailed, types.StatusFailed, reason)
}

// process returns exactly one terminal record for paper. A panic in any
// stage becomes a failed record.
func (p *Pipeline) process(ctx context.Context, date string, paper types.Paper) (out types.PaperResult) {
	r := &paperRun{
		task: types.NewPaperTask(paper),
		res:  types.PaperResult{Paper: paper},
		log:  p.log.With(zap.String("paper_id", paper.ID)),
	}
	defer func() {
		if v := recover(); v != nil {
			out = r.fail(fmt.Sprintf("internal error: %v", v))
		}
	}()
	return p.stagesFor(ctx, date, r)
}

// withGate holds gate for the duration of fn.
func withGate(ctx context.Context, gate *semaphore.Weighted, fn func()) error {
	if err := gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer gate.Release(1)
	fn()
	return nil
}

func (p *Pipeline) stagesFor(ctx context.Context, date string, r *paperRun) types.PaperResult {
	paper := r.task.Paper

	// Filter.
	var verdict types.FilterVerdict
	stageLog := logging.Paper(p.log, paper.ID, "filter")
	if err := withGate(ctx, p.gates.filter, func() {
		stageLog.Info("stage started")
		verdict = filter.Judge(ctx, p.stages.Classifier, paper, p.hint(), p.cfg.Filter.Retry, stageLog)
		stageLog.Info("stage finished", zap.Bool("interested", verdict.Interested))
	}); err != nil {
		return r.fail(fmt.Sprintf("waiting for filter: %v", err))
	}
	r.res.Verdict = verdict
	r.res.Reason = verdict.Reason
	if !verdict.Interested {
		return r.finish(types.OutcomeIgnored, types.StatusFilteredOut, "")
	}

	category := verdict.Category
	if category == "" {
		category = filter.Uncategorized
	}
	if err := r.task.SetCategory(category); err != nil {
		return r.fail(err.Error())
	}
	r.task.AddTags(verdict.Tags...)
	r.task.AddTags("Date:"+date, category)

	paperDir := acquire.PaperDir(p.DayDir(date), category, paper)
	r.task.PDFPath = acquire.PDFPath(paperDir)

	// Fetch.
	if err := r.task.Advance(types.StatusDownloading); err != nil {
		return r.fail(err.Error())
	}
	stageLog = logging.Paper(p.log, paper.ID, "download")
	var fetchErr error
	if err := withGate(ctx, p.gates.download, func() {
		stageLog.Info("stage started", zap.String("url", paper.PDFURL))
		var skipped bool
		skipped, fetchErr = p.stages.Fetcher.Fetch(ctx, paper.PDFURL, r.task.PDFPath)
		stageLog.Info("stage finished", zap.Bool("skipped", skipped), zap.Error(fetchErr))
	}); err != nil {
		return r.fail(fmt.Sprintf("waiting for download: %v", err))
	}
	if fetchErr != nil {
		return r.fail(fmt.Sprintf("download failed: %v", fetchErr))
	}
	if err := acquire.WriteRecord(paperDir, r.task); err != nil {
		stageLog.Warn("writing paper record", zap.Error(err))
	}

	content, err := p.compose(ctx, date, paperDir, r)
	if err != nil {
		return r.fail(err.Error())
	}
	notePath, err := note.Write(paperDir, content)
	if err != nil {
		return r.fail(err.Error())
	}
	r.res.NotePath = notePath

	// Archive.
	stageLog = logging.Paper(p.log, paper.ID, "archive")
	stageLog.Info("stage started", zap.String("category", category))
	key, err := p.stages.Archivist.Archive(ctx, r.task.Paper, r.task.PDFPath, content, r.task.Tags, category)
	if err != nil {
		if archive.IsClientError(err) {
			return r.fail(fmt.Sprintf("archive rejected: %v", err))
		}
		stageLog.Error("archive step aborted", zap.Error(err))
		r.res.ArchiveError = err.Error()
	}
	r.res.ArchiveKey = key
	stageLog.Info("stage finished", zap.String("key", key))
	return r.finish(types.OutcomeInterested, types.StatusArchived, "")
}

// compose runs OCR and analysis and renders the note. OCR failure, or a
// run with analysis skipped, yields a light note instead of an error.
func (p *Pipeline) compose(ctx context.Context, date, paperDir string, r *paperRun) (string, error) {
	paper := r.task.Paper
	light := func(reason string) string {
		r.res.Light = true
		return note.Light(paper, r.res.Verdict, r.task.Tags, date, reason)
	}
	if p.cfg.SkipAnalysis {
		return light("deep analysis skipped"), nil
	}

	start := time.Now()
	if err := r.task.Advance(types.StatusOCR); err != nil {
		return "", err
	}
	stageLog := logging.Paper(p.log, paper.ID, "ocr")
	var (
		ocrRes ocr.Result
		ocrErr error
	)
	if err := withGate(ctx, p.gates.ocr, func() {
		stageLog.Info("stage started")
		ocrRes, ocrErr = p.stages.OCR.Extract(ctx, r.task.PDFPath, paperDir)
		stageLog.Info("stage finished", zap.Int("pages", len(ocrRes.Pages)), zap.Error(ocrErr))
	}); err != nil {
		return "", fmt.Errorf("waiting for ocr: %w", err)
	}
	if ocrErr != nil {
		if !errors.Is(ocrErr, ocr.ErrNoPages) {
			stageLog.Error("ocr failed", zap.Error(ocrErr))
		}
		return light(fmt.Sprintf("ocr failed: %v", ocrErr)), nil
	}

	if err := r.task.Advance(types.StatusAnalyzing); err != nil {
		return "", err
	}
	stageLog = logging.Paper(p.log, paper.ID, "analyze")
	var (
		analysis types.AnalysisResult
		usage    analyze.Usage
	)
	if err := withGate(ctx, p.gates.analyze, func() {
		stageLog.Info("stage started", zap.Int("pages", len(ocrRes.Pages)))
		analysis, usage = p.stages.Analyzer.Analyze(ctx, ocrRes.Pages)
		stageLog.Info("stage finished", zap.Bool("empty", analysis.IsEmpty()))
	}); err != nil {
		return "", fmt.Errorf("waiting for analysis: %w", err)
	}
	r.res.Analysis = analysis

	figures := note.SelectFigures(ocrRes.Figures, analysis.KeyFiguresDescription, p.cfg.Note.MaxFigures)
	tokens := types.TokenUsage{
		OCRModel:        ocrRes.Model,
		OCRCalls:        ocrRes.Calls,
		OCRTokens:       ocrRes.Tokens,
		LLMModel:        usage.Model,
		LLMCalls:        usage.Calls,
		LLMInputTokens:  usage.InputTokens,
		LLMOutputTokens: usage.OutputTokens,
		ElapsedSeconds:  time.Since(start).Seconds(),
	}
	if err := note.WriteRecord(paperDir, note.Record{
		Paper:           paper,
		Analysis:        analysis,
		SelectedFigures: figures,
		AllFiguresCount: len(ocrRes.Figures),
		TokenUsage:      tokens,
	}); err != nil {
		stageLog.Warn("writing analysis record", zap.Error(err))
	}

	return note.Compose(note.Input{
		Paper:    paper,
		Date:     date,
		Analysis: analysis,
		Figures:  figures,
		Usage:    tokens,
	}), nil
}

func (p *Pipeline) hint() types.TaxonomyHint {
	if p.taxonomy == nil {
		return types.TaxonomyHint{}
	}
	return p.taxonomy.Hint()
}
