// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-radar/internal/textutil"
)

// ErrNoAbstract is returned when the page has no abstract block.
var ErrNoAbstract = errors.New("abstract block not found")

// PageFetcher scrapes the abstract block of an archive abstract page.
type PageFetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
}

// NewPageFetcher returns a PageFetcher whose every fetch is bounded by
// timeout (15s when zero).
func NewPageFetcher(timeout time.Duration, userAgent string) *PageFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PageFetcher{Client: &http.Client{}, Timeout: timeout, UserAgent: userAgent}
}

// FetchAbstract implements AbstractFetcher.
func (f *PageFetcher) FetchAbstract(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}
	return extractAbstract(doc)
}

// extractAbstract returns the abstract text without its "Abstract:" label.
func extractAbstract(doc *goquery.Document) (string, error) {
	block := doc.Find("blockquote.abstract").First()
	if block.Length() == 0 {
		return "", ErrNoAbstract
	}
	block.Find("span.descriptor").Remove()
	text := textutil.CollapseSpace(block.Text())
	if text == "" {
		return "", ErrNoAbstract
	}
	return text, nil
}
