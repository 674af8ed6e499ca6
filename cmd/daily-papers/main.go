// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the daily-papers CLI.
package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/daily-papers/internal/secrets"
	"github.com/pdiddy/daily-papers/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from the secrets directory at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the daily-papers CLI.
var rootCmd = &cobra.Command{
	Use:   "daily-papers",
	Short: "Daily research paper triage",
	Long: `daily-papers collects the day's trending preprints, keeps the ones that
match your interests, reads them with a vision OCR model, writes a reading
note per paper, files them into a Zotero library and writes a Chinese daily
digest.

Output lands in <base_dir>/<date>/<category>/<author>_<title>/ with the digest
at <base_dir>/<date>/00_Daily_Report_CN.md.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, nil)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Credentials from %s: %s\n", dir, strings.Join(slices.Sorted(maps.Keys(s)), ", "))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./daily-papers.yaml or ~/.config/daily-papers/daily-papers.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory of API key files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if f, _ := rootCmd.PersistentFlags().GetString("config"); f != "" {
		viper.SetConfigFile(f)
	} else {
		viper.SetConfigName("daily-papers")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "daily-papers"))
		}
	}

	viper.SetEnvPrefix("DAILY_PAPERS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Unmarshal only sees keys viper knows about, so credentials that
	// usually come from the environment are bound explicitly.
	for _, key := range []string{"base_dir", "llm.api_key", "ocr.api_key", "archive.api_key", "archive.library_id"} {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the viper state over the defaults and fills missing
// credentials from the secrets directory.
func loadConfig() (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
