// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-papers/internal/ledger"
	"github.com/pdiddy/daily-papers/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query past runs from the local ledger",
	Long: `History lists the terminal record of every paper processed by past runs,
newest first. Use --runs to list runs with their bucket counts instead.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("date", "", "only papers of this day (YYYY-MM-DD)")
	historyCmd.Flags().String("status", "", "only papers with this outcome: interested, ignored, failed")
	historyCmd.Flags().String("search", "", "substring of the title or reason")
	historyCmd.Flags().Int("limit", 50, "maximum number of rows")
	historyCmd.Flags().String("format", "table", "output format: table, yaml, json")
	historyCmd.Flags().String("base-dir", "", "root of per-date output directories")
	historyCmd.Flags().Bool("runs", false, "list runs instead of papers")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("base-dir"); dir != "" {
		cfg.BaseDir = dir
	}

	path := ledger.Path(cfg)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no ledger at %s: %w", path, err)
	}
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	w := cmd.OutOrStdout()

	if runs, _ := cmd.Flags().GetBool("runs"); runs {
		rows, err := l.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tDATE\tSTARTED\tINTERESTED\tIGNORED\tFAILED")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", r.ID, r.Date, r.StartedAt, r.Interested, r.Ignored, r.Failed)
		}
		return tw.Flush()
	}

	q := ledger.Query{Limit: limit}
	q.Date, _ = cmd.Flags().GetString("date")
	q.Search, _ = cmd.Flags().GetString("search")
	status, _ := cmd.Flags().GetString("status")
	switch o := types.Outcome(status); o {
	case "", types.OutcomeInterested, types.OutcomeIgnored, types.OutcomeFailed:
		q.Outcome = o
	default:
		return fmt.Errorf("invalid --status %q: want interested, ignored or failed", status)
	}

	entries, err := l.History(cmd.Context(), q)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	return ledger.WriteEntries(w, entries, ledger.Format(format))
}
