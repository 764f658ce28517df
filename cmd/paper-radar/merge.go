// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-radar/internal/history"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the daily digest into the rolling history",
	Long: `Merge adds the daily digest's records to the history database, skipping
papers already listed under the same institution, prunes records older than
the retention window, and exports the remaining history as JSON.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().String("daily", "", "daily digest file (default data/daily_papers.json)")
	mergeCmd.Flags().String("export", "", "history export file (default data/history_papers.json)")
	mergeCmd.Flags().Int("retention-days", 0, "keep records this many days (default 30)")
	viper.BindPFlag("history.retention_days", mergeCmd.Flags().Lookup("retention-days"))

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg := loadConfig().History
	if daily, _ := cmd.Flags().GetString("daily"); daily != "" {
		cfg.DailyFile = daily
	}
	if export, _ := cmd.Flags().GetString("export"); export != "" {
		cfg.ExportFile = export
	}
	if cfg.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", cfg.RetentionDays)
	}
	ctx, cancel := signalContext()
	defer cancel()

	daily, err := history.ReadDigest(cfg.DailyFile)
	if err != nil {
		return fmt.Errorf("reading daily digest: %w", err)
	}
	if len(daily) == 0 {
		log.Info("no new records", "path", cfg.DailyFile)
	}

	store, err := history.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := store.Merge(ctx, daily)
	if err != nil {
		return err
	}
	pruned, err := store.Prune(ctx, time.Now(), cfg.RetentionDays)
	if err != nil {
		return err
	}
	digest, err := store.Digest(ctx)
	if err != nil {
		return err
	}
	if err := history.WriteDigest(cfg.ExportFile, digest); err != nil {
		return err
	}

	log.Info("history updated", "added", added, "pruned", pruned,
		"records", digest.Len(), "institutions", len(digest), "export", cfg.ExportFile)
	return nil
}
