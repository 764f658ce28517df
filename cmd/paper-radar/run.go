// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-radar/internal/acquire"
	"github.com/pdiddy/paper-radar/internal/history"
	"github.com/pdiddy/paper-radar/internal/inference"
	"github.com/pdiddy/paper-radar/internal/pipeline"
	"github.com/pdiddy/paper-radar/internal/rank"
	"github.com/pdiddy/paper-radar/internal/rules"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Filter, verify and rank the raw papers into the daily digest",
	Long: `Run loads the institution rules and the raw papers, then applies the
three stages: topic filtering, affiliation verification and quality ranking.
The surviving papers are written as a digest keyed by institution.

An unreachable inference service degrades the result but never fails the
run; the diagnostics show how many calls were exhausted.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("input", "", "raw papers file (default data/raw_papers.json)")
	runCmd.Flags().String("output", "", "daily digest file (default data/daily_papers.json)")
	runCmd.Flags().String("diagnostics", "", "write run diagnostics as YAML to this file")
	runCmd.Flags().String("model", "", "inference model identifier")
	runCmd.Flags().Int("workers", 0, "pool width for topic and affiliation stages (default 50)")
	viper.BindPFlag("inference.model", runCmd.Flags().Lookup("model"))
	viper.BindPFlag("pipeline.workers", runCmd.Flags().Lookup("workers"))

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if in, _ := cmd.Flags().GetString("input"); in != "" {
		cfg.Acquisition.OutputFile = in
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.History.DailyFile = out
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	index, err := rules.LoadFiles(cfg.Rules, log.With("cmd", "rules"))
	if err != nil {
		return err
	}

	papers, err := acquire.ReadPapers(cfg.Acquisition.OutputFile)
	if err != nil {
		return fmt.Errorf("reading raw papers: %w", err)
	}

	backend, err := inference.NewAnthropicBackend(cfg.Inference)
	if err != nil {
		return err
	}
	client := inference.NewClient(backend, cfg.Inference, log.With("component", "inference"))

	var fetcher rank.AbstractFetcher
	if cfg.Pipeline.FetchAbstracts {
		fetcher = rank.NewPageFetcher(cfg.Pipeline.AbstractTimeout, cfg.Acquisition.UserAgent)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("starting pipeline", "papers", len(papers), "rules", index.Len(), "model", backend.Model())
	res := pipeline.New(cfg.Pipeline, index, client, fetcher, log).Run(ctx, papers)

	if err := history.WriteDigest(cfg.History.DailyFile, res.Digest); err != nil {
		return err
	}
	log.Info("wrote daily digest", "path", cfg.History.DailyFile,
		"institutions", len(res.Digest), "records", res.Digest.Len())

	if path, _ := cmd.Flags().GetString("diagnostics"); path != "" {
		if err := writeDiagnostics(path, res.Diagnostics); err != nil {
			return err
		}
	}
	return nil
}

func writeDiagnostics(path string, d pipeline.Diagnostics) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling diagnostics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
