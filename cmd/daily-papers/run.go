// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/daily-papers/internal/acquire"
	"github.com/pdiddy/daily-papers/internal/analyze"
	"github.com/pdiddy/daily-papers/internal/archive"
	"github.com/pdiddy/daily-papers/internal/discover"
	"github.com/pdiddy/daily-papers/internal/filter"
	"github.com/pdiddy/daily-papers/internal/ledger"
	"github.com/pdiddy/daily-papers/internal/llm"
	"github.com/pdiddy/daily-papers/internal/logging"
	"github.com/pdiddy/daily-papers/internal/metadata"
	"github.com/pdiddy/daily-papers/internal/ocr"
	"github.com/pdiddy/daily-papers/internal/pipeline"
	"github.com/pdiddy/daily-papers/internal/raster"
	"github.com/pdiddy/daily-papers/internal/report"
	"github.com/pdiddy/daily-papers/pkg/types"
)

const dateLayout = "2006-01-02"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Triage the papers of one day",
	Long: `Run discovers the day's papers, filters them against your interests,
downloads and reads the accepted ones, writes a note per paper, archives them
and writes the daily digest. Papers that fail are reported at the end; one
failing paper never stops the others.`,
	RunE: runRun,
}

func init() {
	registerRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "day to process as YYYY-MM-DD (default: today)")
	cmd.Flags().Int("workers", 0, "capacity of every stage gate (default from config)")
	cmd.Flags().Bool("skip-analysis", false, "archive accepted papers with a light note, without OCR or analysis")
	cmd.Flags().String("base-dir", "", "root of per-date output directories")
	cmd.Flags().StringSlice("ids", nil, "process these arXiv ids instead of the daily listing")
	cmd.Flags().Bool("no-archive", false, "do not write to the reference library")
}

// runOptions are the validated command-line overrides.
type runOptions struct {
	date      string
	ids       []string
	noArchive bool
}

func applyRunFlags(cmd *cobra.Command, cfg *types.PipelineConfig) (runOptions, error) {
	var opts runOptions

	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return opts, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
	}
	opts.date = date

	if cmd.Flags().Changed("workers") {
		n, _ := cmd.Flags().GetInt("workers")
		if n < 1 {
			return opts, fmt.Errorf("--workers must be at least 1, got %d", n)
		}
		cfg.Gates.SetAll(n)
	}
	if skip, _ := cmd.Flags().GetBool("skip-analysis"); skip {
		cfg.SkipAnalysis = true
	}
	if dir, _ := cmd.Flags().GetString("base-dir"); dir != "" {
		cfg.BaseDir = dir
	}
	opts.ids, _ = cmd.Flags().GetStringSlice("ids")
	opts.noArchive, _ = cmd.Flags().GetBool("no-archive")
	return opts, cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := applyRunFlags(cmd, &cfg)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, cmd.OutOrStdout(), cfg, opts, log)
}

func execute(ctx context.Context, w io.Writer, cfg types.PipelineConfig, opts runOptions, log *zap.Logger) error {
	var disc discover.Discoverer = discover.NewDailyListing(nil, cfg.Discovery)
	if len(opts.ids) > 0 {
		disc = discover.Static(opts.ids)
	}
	ids, err := disc.Discover(ctx, opts.date)
	if err != nil {
		log.Warn("discovery failed", zap.String("date", opts.date), zap.Error(err))
	}
	if len(ids) == 0 {
		return fmt.Errorf("no papers found for %s", opts.date)
	}
	fmt.Fprintf(w, "Discovered %d papers for %s\n", len(ids), opts.date)

	archivist, taxonomy := buildArchive(ctx, cfg, opts, log)

	chat := llm.New(cfg.LLM)
	stages := pipeline.Stages{
		Classifier: filter.NewLLMClassifier(chat, cfg.Filter),
		Fetcher:    acquire.NewFetcher(nil, cfg.Fetch, log),
		Analyzer:   analyze.New(chat, cfg.LLM.Model, cfg.Analyze, log),
		Archivist:  archivist,
	}
	if !cfg.SkipAnalysis {
		ext, err := buildExtractor(cfg.OCR, log)
		if err != nil {
			return fmt.Errorf("%w (use --skip-analysis to archive without OCR)", err)
		}
		stages.OCR = ext
	}

	p := pipeline.New(stages, taxonomy, cfg, log)
	led, err := ledger.Open(ledger.Path(cfg))
	if err != nil {
		log.Warn("run ledger unavailable", zap.Error(err))
	} else {
		defer led.Close()
		p.Sink = led
	}
	p.Progress = func(res types.PaperResult, done int) {
		fmt.Fprintf(w, "[%d/%d] %-10s %s\n", done, len(ids), res.Outcome, res.Paper.Title)
	}

	papers := metadata.NewArxiv(nil, cfg.Metadata, log).Stream(ctx, ids)
	run := p.Run(ctx, opts.date, papers)

	digest := report.New(chat, cfg.Report, log).Digest(ctx, run)
	path, err := report.Write(run.Dir, report.Render(run, digest))
	if err != nil {
		return err
	}
	if led != nil {
		if err := led.FinishRun(ctx, run, path); err != nil {
			log.Warn("recording run", zap.Error(err))
		}
	}

	fmt.Fprintf(w, "\nRun %s: %d interested, %d ignored, %d failed\n",
		run.RunID, len(run.Interested), len(run.Ignored), len(run.Failed))
	fmt.Fprintf(w, "Report: %s\n", path)
	for _, f := range run.Failed {
		fmt.Fprintf(w, "  failed %s (%s): %s\n", f.Paper.ID, f.Stage, f.Reason)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	if run.HasFailures() {
		return fmt.Errorf("%d paper(s) failed", len(run.Failed))
	}
	return nil
}

// buildArchive returns the library archivist and its taxonomy. Without a
// configured library both are local no-ops.
func buildArchive(ctx context.Context, cfg types.PipelineConfig, opts runOptions, log *zap.Logger) (archive.Archivist, *archive.Taxonomy) {
	if opts.noArchive || !cfg.Archive.Enabled() {
		log.Info("archive disabled")
		return archive.Nop{}, archive.NewTaxonomy(nil, nil, nil, "", log)
	}
	client := archive.NewClient(cfg.Archive)
	tax := archive.LoadTaxonomy(ctx, client, cfg.Archive, log)
	return archive.NewZotero(client, tax, cfg.Archive, log), tax
}

func buildExtractor(cfg types.OCRConfig, log *zap.Logger) (*ocr.Extractor, error) {
	rec, err := ocr.NewRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	r, err := raster.Detect()
	if err != nil {
		return nil, err
	}
	log.Info("ocr ready", zap.String("recognizer", rec.Name()), zap.String("rasterizer", r.Name()))
	return ocr.NewExtractor(rec, r, cfg, log), nil
}
