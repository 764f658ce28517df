// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders digests for people: a terminal summary table, a
// ranked list of the day's best papers, and Markdown and HTML pages.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pdiddy/paper-radar/internal/rules"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const (
	nameWidth = 50
	nameLimit = 48
	barWidth  = 20
	ruleWidth = 70
)

// InstitutionCount is one row of the summary table.
type InstitutionCount struct {
	Name    string
	Display string
	Count   int
}

// Summary aggregates a digest.
type Summary struct {
	Rows         []InstitutionCount
	Attributions int
	UniquePapers int
}

// Summarize counts records per institution, sorted by count descending
// and then by name. Labs with a known parent display as "lab [parent]".
func Summarize(digest types.Digest, index *rules.Index) Summary {
	var s Summary
	urls := make(map[string]struct{})
	for _, name := range digest.Institutions() {
		recs := digest[name]
		if len(recs) == 0 {
			continue
		}
		display := name
		if index != nil {
			if parent, ok := index.Parent(name); ok && parent != name {
				display = fmt.Sprintf("%s [%s]", name, parent)
			}
		}
		s.Rows = append(s.Rows, InstitutionCount{Name: name, Display: display, Count: len(recs)})
		s.Attributions += len(recs)
		for _, r := range recs {
			urls[r.URL] = struct{}{}
		}
	}
	sort.SliceStable(s.Rows, func(i, j int) bool { return s.Rows[i].Count > s.Rows[j].Count })
	s.UniquePapers = len(urls)
	return s
}

// WriteStats prints the summary table for digest.
func WriteStats(w io.Writer, digest types.Digest, index *rules.Index) error {
	s := Summarize(digest, index)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", ruleWidth))
	fmt.Fprintf(&b, "Institutions: %d\n", len(s.Rows))
	fmt.Fprintf(&b, "Attributions: %d\n", s.Attributions)
	fmt.Fprintf(&b, "Papers:       %d (unique)\n", s.UniquePapers)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", ruleWidth))

	if len(s.Rows) == 0 {
		b.WriteString("No records.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	peak := s.Rows[0].Count
	fmt.Fprintf(&b, "%s | %-5s | %s\n", runewidth.FillRight("Institution [parent]", nameWidth), "Count", "Share")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", ruleWidth))
	for _, row := range s.Rows {
		name := runewidth.Truncate(row.Display, nameLimit, "...")
		fmt.Fprintf(&b, "%s | %-5d | %s\n", runewidth.FillRight(name, nameWidth), row.Count, Bar(row.Count, peak, barWidth))
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", ruleWidth))

	_, err := io.WriteString(w, b.String())
	return err
}

// Bar draws count as a share of peak in at most width cells.
func Bar(count, peak, width int) string {
	if peak <= 0 || count <= 0 {
		return ""
	}
	return strings.Repeat("█", count*width/peak)
}
