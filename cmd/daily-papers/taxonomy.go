// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-papers/internal/archive"
	"github.com/pdiddy/daily-papers/pkg/types"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the library's collections and frequent tags",
	Long: `Taxonomy prints the collections and the most used tags of the configured
Zotero library. This is the view the relevance filter receives when it picks
a category for a paper.`,
	RunE: runTaxonomy,
}

func init() {
	taxonomyCmd.Flags().Int("tags", 0, "number of tags to read (default from config)")
	rootCmd.AddCommand(taxonomyCmd)
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Archive.Enabled() {
		return errors.New("archive not configured: set archive.library_id and the zotero-api-key secret")
	}
	if n, _ := cmd.Flags().GetInt("tags"); n > 0 {
		cfg.Archive.TagLimit = n
	}
	return printTaxonomy(cmd, cmd.OutOrStdout(), cfg.Archive)
}

func printTaxonomy(cmd *cobra.Command, w io.Writer, cfg types.ArchiveConfig) error {
	client := archive.NewClient(cfg)
	collections, err := client.Collections(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading collections: %w", err)
	}
	tags, err := client.Tags(cmd.Context(), cfg.TagLimit)
	if err != nil {
		return fmt.Errorf("reading tags: %w", err)
	}

	sort.Slice(collections, func(i, j int) bool { return collections[i].Name < collections[j].Name })
	fmt.Fprintf(w, "Collections (%d):\n", len(collections))
	for _, c := range collections {
		fmt.Fprintf(w, "  %-40s %s\n", c.Name, c.Key)
	}
	fmt.Fprintf(w, "\nTags (%d):\n", len(tags))
	for _, t := range tags {
		fmt.Fprintf(w, "  %s\n", t)
	}
	return nil
}
