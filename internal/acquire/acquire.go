// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire harvests the daily paper listing from the archive's
// OAI-PMH endpoint and attaches cleaned full text from the HTML rendering.
package acquire

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// ErrNoHTML is returned when the archive has no HTML rendering of a paper.
var ErrNoHTML = errors.New("no HTML rendering")

// Stats counts what a harvest did.
type Stats struct {
	Pages     int            `json:"pages"`
	Listed    int            `json:"listed"`
	Kept      int            `json:"kept"`
	Dropped   map[string]int `json:"dropped"`
	WithBody  int            `json:"with_body"`
	NoBody    int            `json:"no_body"`
	Truncated bool           `json:"truncated"`
}

// Harvester lists and fetches papers.
type Harvester struct {
	Client *http.Client
	Config types.AcquisitionConfig
	Logger *slog.Logger

	// Out receives one progress line per fetched paper. May be nil.
	Out io.Writer
}

// NewHarvester returns a Harvester with an HTTP client bounded by
// cfg.Timeout.
func NewHarvester(cfg types.AcquisitionConfig, logger *slog.Logger, out io.Writer) *Harvester {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if out == nil {
		out = io.Discard
	}
	return &Harvester{
		Client: &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
		Logger: logger,
		Out:    out,
	}
}

// Harvest lists the papers kept by the filter for now and fetches each
// one's body text. Papers whose body cannot be fetched keep an empty body.
// A listing error after at least one page returns the papers gathered so
// far along with the error.
func (h *Harvester) Harvest(ctx context.Context, now time.Time) ([]types.Paper, Stats, error) {
	papers, stats, err := h.List(ctx, now)
	if len(papers) == 0 {
		return papers, stats, err
	}

	for i := range papers {
		if i > 0 {
			if werr := sleep(ctx, h.Config.FetchDelay); werr != nil {
				return papers, stats, werr
			}
		}
		body, ferr := h.FetchBody(ctx, papers[i].ID)
		if ferr != nil {
			stats.NoBody++
			h.Logger.Debug("no body text", "id", papers[i].ID, "error", ferr)
			fmt.Fprintf(h.Out, "[%d/%d] %s: no html (%v)\n", i+1, len(papers), papers[i].ID, ferr)
			continue
		}
		papers[i].BodyText = body
		stats.WithBody++
		fmt.Fprintf(h.Out, "[%d/%d] %s: %d chars\n", i+1, len(papers), papers[i].ID, len([]rune(body)))
	}
	h.Logger.Info("harvest done", "kept", stats.Kept, "with_body", stats.WithBody, "no_body", stats.NoBody)
	return papers, stats, err
}

// List pages through ListRecords from the cutoff day onward.
func (h *Harvester) List(ctx context.Context, now time.Time) ([]types.Paper, Stats, error) {
	filter := NewFilter(h.Config.Categories, now, h.Config.MaxAgeDays)
	stats := Stats{Dropped: make(map[string]int)}

	params := url.Values{}
	params.Set("verb", "ListRecords")
	params.Set("metadataPrefix", "arXiv")
	params.Set("set", "cs")
	params.Set("from", filter.Cutoff.Format(dateLayout))

	var papers []types.Paper
	for {
		page, err := h.fetchPage(ctx, params)
		if err != nil {
			return papers, stats, err
		}
		stats.Pages++

		if page.Error != nil {
			if page.Error.Code == noRecordsMatch {
				h.Logger.Info("no records", "from", params.Get("from"))
				return papers, stats, nil
			}
			return papers, stats, fmt.Errorf("OAI error %s: %s", page.Error.Code, page.Error.Message)
		}

		for _, rec := range page.Records {
			stats.Listed++
			if reason := filter.Keep(rec); reason != KeepOK {
				stats.Dropped[reason]++
				continue
			}
			papers = append(papers, toPaper(rec.Meta))
			stats.Kept++
			if h.Config.MaxPapers > 0 && len(papers) >= h.Config.MaxPapers {
				stats.Truncated = true
				return papers, stats, nil
			}
		}
		h.Logger.Debug("listing page", "page", stats.Pages, "records", len(page.Records), "kept", stats.Kept)

		if page.Token == "" {
			return papers, stats, nil
		}
		params = url.Values{}
		params.Set("verb", "ListRecords")
		params.Set("resumptionToken", page.Token)
		if err := sleep(ctx, h.Config.FetchDelay); err != nil {
			return papers, stats, err
		}
	}
}

func (h *Harvester) fetchPage(ctx context.Context, params url.Values) (*oaiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oaiBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", h.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OAI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OAI returned HTTP %d", resp.StatusCode)
	}

	var page oaiResponse
	if err := xml.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing OAI response: %w", err)
	}
	return &page, nil
}

// FetchBody downloads the HTML rendering of id and returns its cleaned text.
func (h *Harvester) FetchBody(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, htmlBase+StripVersion(id), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", h.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNoHTML
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	text := CleanHTML(string(data))
	if text == "" {
		return "", ErrNoHTML
	}
	return text, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// WritePapers writes papers as an indented JSON array, creating the
// parent directory. The file is replaced atomically.
func WritePapers(path string, papers []types.Paper) error {
	if papers == nil {
		papers = []types.Paper{}
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling papers: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".papers-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, errors.Join(werr, cerr))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadPapers reads a JSON array written by WritePapers.
func ReadPapers(path string) ([]types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var papers []types.Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return papers, nil
}
