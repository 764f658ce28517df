// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/history"
	"github.com/pdiddy/paper-radar/internal/report"
	"github.com/pdiddy/paper-radar/internal/rules"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write Markdown and HTML pages for the daily digest",
	Long: `Report ranks the day's distinct papers by score, credits each to its
institution (or the lab's parent school), and writes digest.md and
digest.html to the output directory.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("daily", "", "daily digest file (default data/daily_papers.json)")
	reportCmd.Flags().String("out-dir", "data/site", "output directory")
	reportCmd.Flags().Int("top", report.DefaultTop, "number of papers in the ranked list")
	reportCmd.Flags().String("title", "Paper Radar", "page title")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	path, _ := cmd.Flags().GetString("daily")
	if path == "" {
		path = cfg.History.DailyFile
	}
	outDir, _ := cmd.Flags().GetString("out-dir")
	top, _ := cmd.Flags().GetInt("top")
	title, _ := cmd.Flags().GetString("title")

	digest, err := history.ReadDigest(path)
	if err != nil {
		return fmt.Errorf("reading digest: %w", err)
	}
	index, err := rules.LoadFiles(cfg.Rules, log.With("cmd", "rules"))
	if err != nil {
		log.Warn("parent institutions unavailable", "error", err)
		index = nil
	}

	page := report.Page{
		Title:   title,
		Date:    time.Now().UTC().Format("2006-01-02"),
		Summary: report.Summarize(digest, index),
		Top:     report.TopPapers(digest, index, top),
	}
	md := report.Markdown(page)
	html, err := report.HTML(title, md)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for name, data := range map[string][]byte{"digest.md": md, "digest.html": html} {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	log.Info("wrote report", "dir", outDir, "papers", len(page.Top))
	return nil
}
