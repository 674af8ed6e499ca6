// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps the history of every run in a local SQLite
// database: one row per run and one row per terminal paper record.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/daily-papers/pkg/types"
)

// DBFile is the ledger file name under the base directory.
const DBFile = "ledger.db"

const defaultLimit = 50

// now is replaced in tests.
var now = time.Now

// Ledger is the run history store.
type Ledger struct {
	db *sql.DB
}

// Path returns the ledger location for cfg.
func Path(cfg types.PipelineConfig) string {
	if cfg.LedgerPath != "" {
		return cfg.LedgerPath
	}
	return filepath.Join(cfg.BaseDir, DBFile)
}

// Open opens or creates the ledger at path and ensures the schema.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			interested INTEGER NOT NULL DEFAULT 0,
			ignored INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			report_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			run_id TEXT NOT NULL REFERENCES runs(id),
			paper_id TEXT NOT NULL,
			title TEXT,
			outcome TEXT NOT NULL,
			stage TEXT,
			category TEXT,
			tags TEXT,
			reason TEXT,
			light INTEGER NOT NULL DEFAULT 0,
			note_path TEXT,
			archive_key TEXT,
			archive_error TEXT,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (run_id, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_outcome ON papers(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one terminal record, creating the run row on first use.
// Recording the same paper twice in a run replaces the earlier row.
func (l *Ledger) Record(ctx context.Context, run types.RunResult, res types.PaperResult) error {
	ts := now().UTC().Format(time.RFC3339)
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO runs (id, date, started_at) VALUES (?, ?, ?)`,
		run.RunID, run.Date, ts,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}

	tags, _ := json.Marshal(res.Tags)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO papers
			(run_id, paper_id, title, outcome, stage, category, tags, reason,
			 light, note_path, archive_key, archive_error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, res.Paper.ID, res.Paper.Title, string(res.Outcome), string(res.Stage),
		res.Category, string(tags), res.Reason, res.Light, res.NotePath,
		res.ArchiveKey, res.ArchiveError, ts,
	); err != nil {
		return fmt.Errorf("inserting paper %s: %w", res.Paper.ID, err)
	}
	return tx.Commit()
}

// FinishRun stores the bucket counts and report location of run.
func (l *Ledger) FinishRun(ctx context.Context, run types.RunResult, reportPath string) error {
	ts := now().UTC().Format(time.RFC3339)
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, date, started_at, finished_at, interested, ignored, failed, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			interested = excluded.interested,
			ignored = excluded.ignored,
			failed = excluded.failed,
			report_path = excluded.report_path`,
		run.RunID, run.Date, ts, ts, len(run.Interested), len(run.Ignored), len(run.Failed), reportPath,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", run.RunID, err)
	}
	return nil
}

// Query filters History. Zero fields match everything.
type Query struct {
	Date    string
	Outcome types.Outcome

	// Search matches a substring of the title or reason.
	Search string

	// Limit caps the result count. Zero uses 50.
	Limit int
}

// Entry is one recorded paper with its run date.
type Entry struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	Date         string        `json:"date" yaml:"date"`
	PaperID      string        `json:"paper_id" yaml:"paper_id"`
	Title        string        `json:"title" yaml:"title"`
	Outcome      types.Outcome `json:"outcome" yaml:"outcome"`
	Stage        types.Status  `json:"stage,omitempty" yaml:"stage,omitempty"`
	Category     string        `json:"category,omitempty" yaml:"category,omitempty"`
	Tags         []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	Reason       string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Light        bool          `json:"light,omitempty" yaml:"light,omitempty"`
	NotePath     string        `json:"note_path,omitempty" yaml:"note_path,omitempty"`
	ArchiveKey   string        `json:"archive_key,omitempty" yaml:"archive_key,omitempty"`
	ArchiveError string        `json:"archive_error,omitempty" yaml:"archive_error,omitempty"`
	RecordedAt   time.Time     `json:"recorded_at" yaml:"recorded_at"`
}

// History returns recorded papers, newest first.
func (l *Ledger) History(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT p.run_id, r.date, p.paper_id, p.title, p.outcome, p.stage, p.category,
			p.tags, p.reason, p.light, p.note_path, p.archive_key, p.archive_error, p.recorded_at
		FROM papers p
		JOIN runs r ON r.id = p.run_id
		WHERE 1=1`)
	if q.Date != "" {
		qb.WriteString(" AND r.date = ?")
		args = append(args, q.Date)
	}
	if q.Outcome != "" {
		qb.WriteString(" AND p.outcome = ?")
		args = append(args, string(q.Outcome))
	}
	if q.Search != "" {
		qb.WriteString(" AND (p.title LIKE ? OR p.reason LIKE ?)")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
	}
	qb.WriteString(" ORDER BY p.recorded_at DESC, p.paper_id LIMIT ?")
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                                    Entry
			outcome, stage, tags, recorded       string
			category, reason, note, key, archErr sql.NullString
		)
		if err := rows.Scan(&e.RunID, &e.Date, &e.PaperID, &e.Title, &outcome, &stage, &category,
			&tags, &reason, &e.Light, &note, &key, &archErr, &recorded); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Outcome = types.Outcome(outcome)
		e.Stage = types.Status(stage)
		e.Category, e.Reason, e.NotePath = category.String, reason.String, note.String
		e.ArchiveKey, e.ArchiveError = key.String, archErr.String
		if tags != "" && tags != "null" {
			if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
				return nil, fmt.Errorf("decoding tags of %s: %w", e.PaperID, err)
			}
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339, recorded); err != nil {
			return nil, fmt.Errorf("parsing time of %s: %w", e.PaperID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Run is one row of the runs table.
type Run struct {
	ID         string `json:"id" yaml:"id"`
	Date       string `json:"date" yaml:"date"`
	StartedAt  string `json:"started_at" yaml:"started_at"`
	FinishedAt string `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Interested int    `json:"interested" yaml:"interested"`
	Ignored    int    `json:"ignored" yaml:"ignored"`
	Failed     int    `json:"failed" yaml:"failed"`
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`
}

// Runs returns the latest runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, date, started_at, finished_at, interested, ignored, failed, report_path
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                Run
			finished, report sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Date, &r.StartedAt, &finished, &r.Interested, &r.Ignored, &r.Failed, &report); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.FinishedAt, r.ReportPath = finished.String, report.String
		out = append(out, r)
	}
	return out, rows.Err()
}
