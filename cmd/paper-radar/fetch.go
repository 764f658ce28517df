// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-radar/internal/acquire"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Harvest the day's papers into the raw papers file",
	Long: `Fetch lists recent papers in the configured categories from the archive's
OAI-PMH endpoint, drops old and off-category records, downloads each paper's
HTML rendering, and writes the cleaned records as a JSON array.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("output", "", "raw papers file (default data/raw_papers.json)")
	fetchCmd.Flags().Int("max-papers", 0, "stop after this many papers (0 = no cap)")
	fetchCmd.Flags().Int("max-age-days", 0, "drop papers older than this many days (default 10)")
	viper.BindPFlag("acquisition.max_papers", fetchCmd.Flags().Lookup("max-papers"))
	viper.BindPFlag("acquisition.max_age_days", fetchCmd.Flags().Lookup("max-age-days"))

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig().Acquisition
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.OutputFile = out
	}
	ctx, cancel := signalContext()
	defer cancel()

	h := acquire.NewHarvester(cfg, log.With("cmd", "fetch"), os.Stdout)
	papers, stats, err := h.Harvest(ctx, time.Now())
	if err != nil {
		if len(papers) == 0 {
			return fmt.Errorf("harvest: %w", err)
		}
		log.Warn("harvest incomplete, keeping partial results", "papers", len(papers), "error", err)
	}

	if err := acquire.WritePapers(cfg.OutputFile, papers); err != nil {
		return err
	}
	log.Info("wrote raw papers", "path", cfg.OutputFile, "papers", len(papers),
		"listed", stats.Listed, "with_body", stats.WithBody, "pages", stats.Pages)
	return nil
}
