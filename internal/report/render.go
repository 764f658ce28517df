// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const noSummary = "No details provided."

// Page is the input to Markdown.
type Page struct {
	Title   string
	Date    string
	Summary Summary
	Top     []TopPaper
}

// Markdown renders the ranked list followed by the institution table.
func Markdown(p Page) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.Date != "" {
		fmt.Fprintf(&b, "_%s_\n\n", p.Date)
	}
	fmt.Fprintf(&b, "%d papers from %d institutions.\n\n", p.Summary.UniquePapers, len(p.Summary.Rows))

	b.WriteString("## Top papers\n\n")
	if len(p.Top) == 0 {
		b.WriteString("Waiting for daily updates.\n\n")
	}
	for i, tp := range p.Top {
		fmt.Fprintf(&b, "%d. **[%s](%s)** `%.1f %s`  \n", i+1, escapeLink(tp.Title), tp.URL, tp.Score, Band(tp.Score))
		meta := tp.Source
		if tp.Date != "" {
			meta += " · " + tp.Date
		}
		if tp.IsHighlight {
			meta += " · ★"
		}
		fmt.Fprintf(&b, "   %s  \n", meta)
		if tp.AuthorsText != "" {
			fmt.Fprintf(&b, "   %s  \n", tp.AuthorsText)
		}
		summary := strings.TrimSpace(tp.Summary)
		if summary == "" {
			summary = noSummary
		}
		fmt.Fprintf(&b, "   %s\n\n", summary)
	}

	if len(p.Summary.Rows) > 0 {
		b.WriteString("## Institutions\n\n| Institution | Papers |\n|---|---:|\n")
		for _, row := range p.Summary.Rows {
			fmt.Fprintf(&b, "| %s | %d |\n", escapeCell(row.Display), row.Count)
		}
	}
	return b.Bytes()
}

// HTML converts Markdown output into a standalone page.
func HTML(title string, md []byte) ([]byte, error) {
	var body bytes.Buffer
	conv := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := conv.Convert(md, &body); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	var page bytes.Buffer
	page.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>")
	page.WriteString(html.EscapeString(title))
	page.WriteString("</title><style>" + pageCSS + "</style></head><body><main>")
	page.Write(body.Bytes())
	page.WriteString("</main></body></html>\n")
	return page.Bytes(), nil
}

const pageCSS = "body{background:#0b1121;color:#e2e8f0;font-family:system-ui,sans-serif;} " +
	"main{max-width:960px;margin:0 auto;padding:1rem;} a{color:#60a5fa;} " +
	"code{color:#34d399;} table{border-collapse:collapse;width:100%;} " +
	"th,td{border:1px solid #334155;padding:0.3rem 0.5rem;text-align:left;}"

func escapeLink(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
