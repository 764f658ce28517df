// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank summarizes verified papers and scores them against each other
// in a single batch call so scores are comparable and tie-free.
package rank

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-radar/internal/inference"
	"github.com/pdiddy/paper-radar/internal/textutil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const summaryPrompt = "You are a robotics expert. Summarize this paper in ONE dense sentence (max 25 words)."

const rankingPrompt = `You are a strict judge for an Embodied AI research digest. Score every paper from 0 to 100.
Bands:
- 90-100: real-robot experiments, sim-to-real transfer, vision-language-action models, world models.
- 80-89: vision, language or learning work with a credible path to embodied tasks.
- below 80: general AI that is only indirectly related.
Use the full range. Every score must be UNIQUE. NO TIES.
Output one line per paper in the format "[Index] Score".`

// MaxScore bounds scores from above; 0 bounds them from below.
const MaxScore = 100.0

// tieStep is the amount a duplicate score is moved to make it unique.
const tieStep = 0.01

// Classifier is the inference call used for summaries and ranking.
type Classifier interface {
	Classify(ctx context.Context, system, user string, maxTokens int) string
}

// AbstractFetcher returns a fuller abstract for a paper page.
type AbstractFetcher interface {
	FetchAbstract(ctx context.Context, url string) (string, error)
}

// Stats counts Stage 3 outcomes.
type Stats struct {
	Papers           int `json:"papers" yaml:"papers"`
	FetchedAbstracts int `json:"fetched_abstracts" yaml:"fetched_abstracts"`
	FallbackSummary  int `json:"fallback_summaries" yaml:"fallback_summaries"`
	Scored           int `json:"scored" yaml:"scored"`
	Unscored         int `json:"unscored" yaml:"unscored"`
	TiesBroken       int `json:"ties_broken" yaml:"ties_broken"`
}

// Ranker is Stage 3.
type Ranker struct {
	classifier    Classifier
	fetcher       AbstractFetcher
	workers       int
	summaryTokens int
	rankingTokens int
	logger        *slog.Logger
}

// NewRanker builds a Ranker. fetcher may be nil, in which case the known
// abstract is always used.
func NewRanker(c Classifier, fetcher AbstractFetcher, cfg types.PipelineConfig, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Ranker{
		classifier:    c,
		fetcher:       fetcher,
		workers:       cfg.SummaryWorkers,
		summaryTokens: cfg.Budgets.Summary,
		rankingTokens: cfg.Budgets.Ranking,
		logger:        logger,
	}
	if r.workers <= 0 {
		r.workers = 5
	}
	if r.summaryTokens <= 0 {
		r.summaryTokens = 60
	}
	if r.rankingTokens <= 0 {
		r.rankingTokens = 500
	}
	return r
}

// Run summarizes and scores papers. The result is index-aligned with the
// input.
func (r *Ranker) Run(ctx context.Context, papers []types.VerifiedPaper) ([]types.RankedPaper, Stats) {
	stats := Stats{Papers: len(papers)}
	if len(papers) == 0 {
		return nil, stats
	}

	ranked := make([]types.RankedPaper, len(papers))
	for i, p := range papers {
		ranked[i].VerifiedPaper = p
	}

	fetched, fallback := r.summarize(ctx, ranked)
	stats.FetchedAbstracts = fetched
	stats.FallbackSummary = fallback

	resp := r.classifier.Classify(ctx, rankingPrompt, buildRankingPrompt(papers), r.rankingTokens)
	scores, ties := ParseScores(resp, len(papers))
	stats.TiesBroken = ties
	for i := range ranked {
		if s, ok := scores[i]; ok {
			ranked[i].Score = s
			ranked[i].Scored = true
			stats.Scored++
		}
	}
	stats.Unscored = stats.Papers - stats.Scored

	r.logger.Info("ranking done",
		"papers", stats.Papers, "scored", stats.Scored, "unscored", stats.Unscored,
		"ties_broken", stats.TiesBroken, "fallback_summaries", stats.FallbackSummary)
	return ranked, stats
}

// summarize fills Summary on every paper using a narrow pool.
func (r *Ranker) summarize(ctx context.Context, ranked []types.RankedPaper) (fetched, fallback int) {
	var nFetched, nFallback atomic.Int64

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := range ranked {
		g.Go(func() error {
			p := &ranked[i]
			abstract := p.Abstract
			if r.fetcher != nil {
				if full, err := r.fetcher.FetchAbstract(ctx, p.URL); err == nil && full != "" {
					abstract = full
					nFetched.Add(1)
				} else if err != nil {
					r.logger.Debug("abstract fetch failed, using listed abstract", "url", p.URL, "err", err)
				}
			}

			user := fmt.Sprintf("Title: %s\nAbstract: %s", p.Title, abstract)
			resp := strings.TrimSpace(r.classifier.Classify(ctx, summaryPrompt, user, r.summaryTokens))
			if usableSummary(resp) {
				p.Summary = resp
			} else {
				p.Summary = textutil.Ellipsize(p.Abstract, 100)
				nFallback.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(nFetched.Load()), int(nFallback.Load())
}

// usableSummary rejects the failure sentinel and empty text.
func usableSummary(s string) bool {
	return s != "" && s != inference.Sentinel
}

func buildRankingPrompt(papers []types.VerifiedPaper) string {
	var sb strings.Builder
	for i, p := range papers {
		fmt.Fprintf(&sb, "[%d] %s\n", i, p.Title)
	}
	return sb.String()
}

var scoreLine = regexp.MustCompile(`\[(\d+)\]\s*([\d.]+)`)

// ParseScores reads "[index] score" lines for a batch of n papers.
//
// Lines that do not parse, name an index outside [0,n) or repeat an index
// already seen are skipped. Scores are clamped to [0,MaxScore]. A score
// equal to one already assigned is moved by tieStep, downward first, until
// it is unique; the second return value counts those moves.
func ParseScores(resp string, n int) (map[int]float64, int) {
	scores := make(map[int]float64)
	taken := make(map[int64]bool)
	ties := 0

	for _, line := range strings.Split(resp, "\n") {
		m := scoreLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		if _, seen := scores[idx]; seen {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimRight(m[2], "."), 64)
		if err != nil || math.IsNaN(v) {
			continue
		}
		v = math.Max(0, math.Min(MaxScore, v))

		key := scoreKey(v)
		if taken[key] {
			ties++
			v = unique(v, taken)
			key = scoreKey(v)
		}
		taken[key] = true
		scores[idx] = v
	}
	return scores, ties
}

// scoreKey buckets a score at tieStep resolution so float noise cannot hide
// a tie.
func scoreKey(v float64) int64 {
	return int64(math.Round(v / tieStep))
}

func unique(v float64, taken map[int64]bool) float64 {
	for c := v - tieStep; c > -tieStep/2; c -= tieStep {
		if !taken[scoreKey(c)] {
			return math.Round(c/tieStep) * tieStep
		}
	}
	for c := v + tieStep; ; c += tieStep {
		if !taken[scoreKey(c)] {
			return math.Round(c/tieStep) * tieStep
		}
	}
}
