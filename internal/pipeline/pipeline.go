// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs topic filtering, affiliation verification and
// ranking in sequence and groups the survivors by institution.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pdiddy/paper-radar/internal/affiliation"
	"github.com/pdiddy/paper-radar/internal/inference"
	"github.com/pdiddy/paper-radar/internal/rank"
	"github.com/pdiddy/paper-radar/internal/rules"
	"github.com/pdiddy/paper-radar/internal/topic"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Classifier is the inference call shared by every stage.
type Classifier interface {
	Classify(ctx context.Context, system, user string, maxTokens int) string
}

// StatsReporter is implemented by classifiers that count their calls.
type StatsReporter interface {
	Stats() inference.Stats
}

// Diagnostics reports what each stage did. Degradation from an unavailable
// service shows up here rather than as an error.
type Diagnostics struct {
	Input       int               `json:"input" yaml:"input"`
	Topic       topic.Stats       `json:"topic" yaml:"topic"`
	Affiliation affiliation.Stats `json:"affiliation" yaml:"affiliation"`
	Rank        rank.Stats        `json:"rank" yaml:"rank"`
	Inference   inference.Stats   `json:"inference" yaml:"inference"`
	Records     int               `json:"records" yaml:"records"`
	Duplicates  int               `json:"duplicates" yaml:"duplicates"`
	Highlights  int               `json:"highlights" yaml:"highlights"`
	Elapsed     StageTimes        `json:"elapsed" yaml:"elapsed"`
}

// StageTimes holds wall-clock time per stage.
type StageTimes struct {
	Topic       time.Duration `json:"topic" yaml:"topic"`
	Affiliation time.Duration `json:"affiliation" yaml:"affiliation"`
	Rank        time.Duration `json:"rank" yaml:"rank"`
}

// Result is the output of one run.
type Result struct {
	Digest      types.Digest
	Ranked      []types.RankedPaper
	Diagnostics Diagnostics
}

// Pipeline holds the three stages built from one configuration.
type Pipeline struct {
	index      *rules.Index
	classifier Classifier
	topic      *topic.Filter
	verifier   *affiliation.Verifier
	ranker     *rank.Ranker
	logger     *slog.Logger
}

// New wires the stages. fetcher may be nil to summarize from the listed
// abstract only.
func New(cfg types.PipelineConfig, index *rules.Index, c Classifier, fetcher rank.AbstractFetcher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if index == nil {
		index = rules.NewBuilder().Build()
	}
	return &Pipeline{
		index:      index,
		classifier: c,
		topic:      topic.NewFilter(c, cfg, logger.With("stage", "topic")),
		verifier:   affiliation.NewVerifier(index, c, cfg, logger.With("stage", "affiliation")),
		ranker:     rank.NewRanker(c, fetcher, cfg, logger.With("stage", "rank")),
		logger:     logger,
	}
}

// Run processes one batch. It always returns a digest, possibly empty.
func (p *Pipeline) Run(ctx context.Context, papers []types.Paper) Result {
	diag := Diagnostics{Input: len(papers)}

	start := time.Now()
	relevant, ts := p.topic.Run(ctx, papers)
	diag.Topic = ts
	diag.Elapsed.Topic = time.Since(start)

	start = time.Now()
	verified, as := p.verifier.Run(ctx, relevant)
	diag.Affiliation = as
	diag.Elapsed.Affiliation = time.Since(start)

	start = time.Now()
	ranked, rs := p.ranker.Run(ctx, verified)
	diag.Rank = rs
	diag.Elapsed.Rank = time.Since(start)

	digest := make(types.Digest)
	asm := Assemble(digest, ranked, p.index)
	diag.Records = asm.Inserted
	diag.Duplicates = asm.Duplicates
	diag.Highlights = asm.Highlights

	if sr, ok := p.classifier.(StatsReporter); ok {
		diag.Inference = sr.Stats()
	}

	p.logger.Info("pipeline done",
		"input", diag.Input, "relevant", len(relevant), "verified", len(verified),
		"institutions", len(digest), "records", diag.Records,
		"inference_calls", diag.Inference.Calls, "inference_failures", diag.Inference.Failures)
	return Result{Digest: digest, Ranked: ranked, Diagnostics: diag}
}
