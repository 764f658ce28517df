// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package topic decides which harvested papers are relevant to embodied AI
// and robotics. A keyword whitelist accepts papers for free; everything else
// is put to the inference service, which is told to reject only papers that
// are clearly unrelated.
package topic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-radar/internal/textutil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Whitelist terms. A lower-cased title+abstract containing any of them is
// relevant without an inference call.
var Whitelist = []string{
	"robot", "manipulat", "embodied", "humanoid", "locomotion", "navigation",
	"actuator", "sensorimotor", "teleoperation", "end-to-end control",
	"sim-to-real", "policy learning", "robotic", "dexterous", "gripper",
	"quadruped", "bipedal", "mobile agent", "vision-language-action",
}

const systemPrompt = `You are a research assistant screening papers for an Embodied AI and Robotics digest.
Accept papers on: Robotics, Embodied AI, Computer Vision (especially 3D), Foundation Models that imply reasoning or planning, and Reinforcement Learning.
Reject only if the paper is completely unrelated to these areas.
Output exactly "YES" or "NO".`

// Classifier is the inference call used for papers the whitelist misses.
type Classifier interface {
	Classify(ctx context.Context, system, user string, maxTokens int) string
}

// Stats counts Stage 1 outcomes.
type Stats struct {
	Total     int `json:"total" yaml:"total"`
	Whitelist int `json:"whitelist" yaml:"whitelist"`
	Inferred  int `json:"inferred" yaml:"inferred"`
	Accepted  int `json:"accepted" yaml:"accepted"`
	Rejected  int `json:"rejected" yaml:"rejected"`
}

// Filter is Stage 1.
type Filter struct {
	classifier    Classifier
	workers       int
	abstractChars int
	maxTokens     int
	logger        *slog.Logger
}

// NewFilter builds a Filter from the pipeline settings.
func NewFilter(c Classifier, cfg types.PipelineConfig, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f := &Filter{
		classifier:    c,
		workers:       cfg.Workers,
		abstractChars: cfg.PromptAbstractChars,
		maxTokens:     cfg.Budgets.Probe,
		logger:        logger,
	}
	if f.workers <= 0 {
		f.workers = 50
	}
	if f.abstractChars <= 0 {
		f.abstractChars = 1500
	}
	if f.maxTokens <= 0 {
		f.maxTokens = 5
	}
	return f
}

// Run returns the relevant papers in their input order.
func (f *Filter) Run(ctx context.Context, papers []types.Paper) ([]types.Paper, Stats) {
	stats := Stats{Total: len(papers)}
	keep := make([]bool, len(papers))
	var whitelisted, inferred atomic.Int64

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i := range papers {
		g.Go(func() error {
			if _, ok := MatchWhitelist(papers[i]); ok {
				whitelisted.Add(1)
				keep[i] = true
				return nil
			}
			inferred.Add(1)
			resp := f.classifier.Classify(ctx, systemPrompt, buildPrompt(papers[i], f.abstractChars), f.maxTokens)
			keep[i] = ParseVerdict(resp)
			return nil
		})
	}
	_ = g.Wait()

	var out []types.Paper
	for i, ok := range keep {
		if ok {
			out = append(out, papers[i])
		}
	}

	stats.Whitelist = int(whitelisted.Load())
	stats.Inferred = int(inferred.Load())
	stats.Accepted = len(out)
	stats.Rejected = stats.Total - stats.Accepted
	f.logger.Info("topic filter done",
		"total", stats.Total, "whitelist", stats.Whitelist, "inferred", stats.Inferred,
		"accepted", stats.Accepted, "rejected", stats.Rejected)
	return out, stats
}

// MatchWhitelist returns the first whitelist term found in the paper's title
// or abstract.
func MatchWhitelist(p types.Paper) (string, bool) {
	text := strings.ToLower(p.Title + " " + p.Abstract)
	for _, term := range Whitelist {
		if strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}

// ParseVerdict reports whether a response accepts the paper. Anything
// without the literal affirmative, the failure sentinel included, rejects.
func ParseVerdict(resp string) bool {
	return strings.Contains(resp, "YES")
}

func buildPrompt(p types.Paper, abstractChars int) string {
	return fmt.Sprintf("Title: %s\nAbstract: %s\nIs this relevant to AI/Robotics?",
		p.Title, textutil.Truncate(p.Abstract, abstractChars))
}
