// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pdiddy/paper-radar/internal/textutil"
)

// MaxBodyRunes bounds the cleaned full text. The affiliation block sits in
// the first few thousand characters; the rest is kept for footnotes.
const MaxBodyRunes = 50000

// noise lists elements dropped before text extraction: page chrome, the
// table of contents, the bibliography (whose institutions belong to cited
// work) and the footer.
const noise = "script, style, noscript, nav, .ltx_TOC, .ltx_bibliography, .ltx_page_footer"

// CleanHTML reduces a rendered paper page to whitespace-collapsed body text.
func CleanHTML(page string) string {
	if strings.TrimSpace(page) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find(noise).Remove()

	var sb strings.Builder
	for _, n := range body.Nodes {
		collectText(n, &sb)
	}
	return textutil.Truncate(textutil.CollapseSpace(sb.String()), MaxBodyRunes)
}

// collectText writes every text node under n, separated so adjacent
// elements do not run together.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
