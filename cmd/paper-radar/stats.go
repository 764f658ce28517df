// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/history"
	"github.com/pdiddy/paper-radar/internal/report"
	"github.com/pdiddy/paper-radar/internal/rules"
)

var statsCmd = &cobra.Command{
	Use:   "stats [digest.json]",
	Short: "Print per-institution counts for a digest",
	Long: `Stats prints a table of record counts per institution, with labs shown
under their parent school, followed by totals. The digest defaults to the
daily digest file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	path := cfg.History.DailyFile
	if len(args) == 1 {
		path = args[0]
	}
	digest, err := history.ReadDigest(path)
	if err != nil {
		return fmt.Errorf("reading digest: %w", err)
	}

	index, err := rules.LoadFiles(cfg.Rules, log.With("cmd", "rules"))
	if err != nil {
		log.Warn("parent institutions unavailable", "error", err)
		index = nil
	}
	return report.WriteStats(os.Stdout, digest, index)
}
