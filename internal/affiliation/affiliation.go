// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package affiliation decides which institutions authored each paper.
//
// A rule keyword found near the head of the body text is trusted as an
// author affiliation. Keywords found only further down may be citations or
// comparisons, so they are put to the inference service, one request per
// paper. Confirmations from either source are unioned and never revoked.
package affiliation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-radar/internal/rules"
	"github.com/pdiddy/paper-radar/internal/textutil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const systemPrompt = `Check if the Candidate appears in the Author Affiliation section.
A mention in citations, related work or comparisons does not count.
Output one line per candidate:
[YES] <Candidate>
[NO] <Candidate>`

// Classifier is the inference call used for queued keywords.
type Classifier interface {
	Classify(ctx context.Context, system, user string, maxTokens int) string
}

// Stats counts Stage 2 outcomes.
type Stats struct {
	Input     int `json:"input" yaml:"input"`
	NoBody    int `json:"no_body" yaml:"no_body"`
	NoMatch   int `json:"no_match" yaml:"no_match"`
	RuleOnly  int `json:"rule_only" yaml:"rule_only"`
	Tasks     int `json:"tasks" yaml:"tasks"`
	Confirmed int `json:"confirmed" yaml:"confirmed"`
	Verified  int `json:"verified" yaml:"verified"`
}

// candidate is the per-paper match record. It lives only inside Run.
type candidate struct {
	paper     types.Paper
	names     map[string][]string
	confirmed []string
	queued    []string
}

// Verifier is Stage 2.
type Verifier struct {
	index         *rules.Index
	classifier    Classifier
	workers       int
	headWindow    int
	contextWindow int
	maxTokens     int
	logger        *slog.Logger
}

// NewVerifier builds a Verifier from the pipeline settings.
func NewVerifier(index *rules.Index, c Classifier, cfg types.PipelineConfig, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	v := &Verifier{
		index:         index,
		classifier:    c,
		workers:       cfg.Workers,
		headWindow:    cfg.HeadWindow,
		contextWindow: cfg.ContextWindow,
		maxTokens:     cfg.Budgets.Affiliation,
		logger:        logger,
	}
	if v.workers <= 0 {
		v.workers = 50
	}
	if v.headWindow <= 0 {
		v.headWindow = 800
	}
	if v.contextWindow <= 0 {
		v.contextWindow = 5000
	}
	if v.maxTokens <= 0 {
		v.maxTokens = 300
	}
	return v
}

// Run returns one VerifiedPaper per identity that ends with at least one
// confirmed institution, in first-seen input order.
func (v *Verifier) Run(ctx context.Context, papers []types.Paper) ([]types.VerifiedPaper, Stats) {
	stats := Stats{Input: len(papers)}
	if v.index == nil || v.index.Len() == 0 {
		v.logger.Warn("no rule keywords loaded, every paper is unverifiable", "papers", len(papers))
		stats.NoMatch = len(papers)
		return nil, stats
	}

	m := newMerger()
	var tasks []*candidate
	for _, p := range papers {
		if strings.TrimSpace(p.BodyText) == "" {
			stats.NoBody++
			v.logger.Debug("skipping paper without body text", "url", p.Key())
			continue
		}
		c := v.candidateFor(p)
		if len(c.names) == 0 {
			stats.NoMatch++
			continue
		}
		m.add(p, c.namesFor(c.confirmed))
		if len(c.queued) == 0 {
			stats.RuleOnly++
			continue
		}
		tasks = append(tasks, c)
	}
	stats.Tasks = len(tasks)

	// Each worker writes only its own slot; the merge below is serial.
	results := make([][]string, len(tasks))
	var g errgroup.Group
	g.SetLimit(v.workers)
	for i, c := range tasks {
		g.Go(func() error {
			resp := v.classifier.Classify(ctx, systemPrompt, v.buildPrompt(c), v.maxTokens)
			results[i] = ParseConfirmations(resp, c.queued)
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range tasks {
		stats.Confirmed += len(results[i])
		m.add(c.paper, c.namesFor(results[i]))
	}

	out := m.verified()
	stats.Verified = len(out)
	v.logger.Info("affiliation verification done",
		"input", stats.Input, "no_body", stats.NoBody, "no_match", stats.NoMatch,
		"rule_only", stats.RuleOnly, "tasks", stats.Tasks,
		"confirmed", stats.Confirmed, "verified", stats.Verified)
	return out, stats
}

// candidateFor matches every rule keyword against the body and splits them
// by position.
func (v *Verifier) candidateFor(p types.Paper) *candidate {
	lowered := strings.ToLower(p.BodyText)
	head := textutil.Truncate(lowered, v.headWindow)

	c := &candidate{paper: p, names: make(map[string][]string)}
	for _, kw := range v.index.Match(lowered) {
		c.names[kw] = v.index.Lookup(kw)
		if strings.Contains(head, kw) {
			c.confirmed = append(c.confirmed, kw)
		} else {
			c.queued = append(c.queued, kw)
		}
	}
	return c
}

func (c *candidate) namesFor(keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		out = append(out, c.names[kw]...)
	}
	return out
}

func (v *Verifier) buildPrompt(c *candidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Paper: %s\nCandidates:\n", c.paper.Title)
	for _, kw := range c.queued {
		fmt.Fprintf(&sb, "- %s\n", kw)
	}
	fmt.Fprintf(&sb, "\nText:\n%s\n\nCheck each candidate. Return [YES] or [NO].",
		textutil.Truncate(c.paper.BodyText, v.contextWindow))
	return sb.String()
}

const yesTag = "[YES]"

// ParseConfirmations returns the queued keywords the response confirms.
//
// Each "[YES] name" line is matched against the queued keywords by
// case-insensitive containment in either direction. This can over-confirm
// when one keyword is a substring of another institution's name. Only
// keywords queued for this paper can match.
func ParseConfirmations(resp string, queued []string) []string {
	hit := make(map[string]bool)
	for _, line := range strings.Split(resp, "\n") {
		if !strings.Contains(line, yesTag) {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(line, yesTag, "")))
		if name == "" {
			continue
		}
		for _, kw := range queued {
			if strings.Contains(name, kw) || strings.Contains(kw, name) {
				hit[kw] = true
			}
		}
	}

	var out []string
	for _, kw := range queued {
		if hit[kw] {
			out = append(out, kw)
		}
	}
	return out
}

// merger unions institution names per paper identity.
type merger struct {
	order  []string
	papers map[string]types.Paper
	names  map[string]map[string]struct{}
}

func newMerger() *merger {
	return &merger{
		papers: make(map[string]types.Paper),
		names:  make(map[string]map[string]struct{}),
	}
}

func (m *merger) add(p types.Paper, names []string) {
	key := p.Key()
	set, ok := m.names[key]
	if !ok {
		set = make(map[string]struct{})
		m.names[key] = set
		m.papers[key] = p
		m.order = append(m.order, key)
	}
	for _, n := range names {
		set[n] = struct{}{}
	}
}

func (m *merger) verified() []types.VerifiedPaper {
	var out []types.VerifiedPaper
	for _, key := range m.order {
		set := m.names[key]
		if len(set) == 0 {
			continue
		}
		insts := make([]string, 0, len(set))
		for n := range set {
			insts = append(insts, n)
		}
		sort.Strings(insts)
		out = append(out, types.VerifiedPaper{Paper: m.papers[key], Institutions: insts})
	}
	return out
}
