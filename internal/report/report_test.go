// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/internal/rules"
	"github.com/pdiddy/paper-radar/pkg/types"
)

func testIndex() *rules.Index {
	b := rules.NewBuilder()
	b.Add("iiis", "THU IIIS")
	b.SetParent("THU IIIS", "清华大学")
	b.Add("deepmind", "Google DeepMind")
	return b.Build()
}

func testDigest() types.Digest {
	shared := types.OutputRecord{Title: "Legged Walker", URL: "u1", Score: 95, Summary: "Walks."}
	return types.Digest{
		"THU IIIS": {shared, {Title: "Grasping", URL: "u2", Score: 82}},
		"Google DeepMind": {
			shared,
			{Title: "World Models", URL: "u3", Score: 88, IsHighlight: true},
			{Title: "Unscored", URL: "u4"},
		},
		"Empty Lab": {},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(testDigest(), testIndex())

	require.Len(t, s.Rows, 2)
	assert.Equal(t, InstitutionCount{Name: "Google DeepMind", Display: "Google DeepMind", Count: 3}, s.Rows[0])
	assert.Equal(t, "THU IIIS [清华大学]", s.Rows[1].Display)
	assert.Equal(t, 5, s.Attributions)
	assert.Equal(t, 4, s.UniquePapers)
}

func TestWriteStatsAlignsWideNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, testDigest(), testIndex()))
	out := buf.String()

	assert.Contains(t, out, "Papers:       4 (unique)")
	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, " | ") && !strings.HasPrefix(line, "Institution") {
			rows = append(rows, line)
		}
	}
	require.Len(t, rows, 2)
	for _, line := range rows {
		name := strings.SplitN(line, " | ", 2)[0]
		assert.Equal(t, nameWidth, runewidth.StringWidth(name), line)
	}
	assert.Contains(t, rows[0], strings.Repeat("█", barWidth))
	assert.Contains(t, rows[1], "| 2     | "+strings.Repeat("█", 2*barWidth/3))
}

func TestWriteStatsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, types.Digest{}, nil))
	assert.Contains(t, buf.String(), "No records.")
}

func TestWriteStatsTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("Institute of Very Long Names ", 4)
	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, types.Digest{long: {{URL: "u"}}}, nil))
	assert.Contains(t, buf.String(), "...")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(0, 10, 20))
	assert.Equal(t, "", Bar(3, 0, 20))
	assert.Equal(t, strings.Repeat("█", 10), Bar(5, 10, 20))
	assert.Equal(t, strings.Repeat("█", 20), Bar(10, 10, 20))
}

func TestBand(t *testing.T) {
	assert.Equal(t, BandCore, Band(90))
	assert.Equal(t, BandEnabling, Band(89.99))
	assert.Equal(t, BandEnabling, Band(80))
	assert.Equal(t, BandGeneral, Band(79.9))
	assert.Equal(t, BandGeneral, Band(0))
}

func TestTopPapers(t *testing.T) {
	top := TopPapers(testDigest(), testIndex(), 3)

	require.Len(t, top, 3)
	assert.Equal(t, []string{"u1", "u3", "u2"}, []string{top[0].URL, top[1].URL, top[2].URL})
	// u1 is listed under both; DeepMind sorts first and has no parent.
	assert.Equal(t, "Google DeepMind", top[0].Source)
	assert.Equal(t, "清华大学", top[2].Source)
}

func TestTopPapersDefaultsAndDedup(t *testing.T) {
	d := types.Digest{}
	for i := 0; i < 15; i++ {
		d.Insert("Lab", types.OutputRecord{URL: string(rune('a' + i)), Score: float64(i)})
	}
	d.Insert("Other", types.OutputRecord{URL: "a"})
	top := TopPapers(d, nil, 0)
	require.Len(t, top, DefaultTop)
	assert.Equal(t, 14.0, top[0].Score)
}

func TestMarkdownAndHTML(t *testing.T) {
	d := testDigest()
	page := Page{
		Title:   "Paper Radar",
		Date:    "2025-01-12",
		Summary: Summarize(d, testIndex()),
		Top:     TopPapers(d, testIndex(), DefaultTop),
	}
	md := string(Markdown(page))

	assert.Contains(t, md, "# Paper Radar")
	assert.Contains(t, md, "4 papers from 2 institutions.")
	assert.Contains(t, md, "1. **[Legged Walker](u1)** `95.0 core`")
	assert.Contains(t, md, "`88.0 enabling`")
	assert.Contains(t, md, "Google DeepMind · ★")
	assert.Contains(t, md, "No details provided.")
	assert.Contains(t, md, "| THU IIIS [清华大学] | 2 |")

	out, err := HTML(page.Title, []byte(md))
	require.NoError(t, err)
	html := string(out)
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, "<title>Paper Radar</title>")
	assert.Contains(t, html, `<a href="u1">Legged Walker</a>`)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>THU IIIS [清华大学]</td>")
}

func TestMarkdownEmpty(t *testing.T) {
	md := string(Markdown(Page{Title: "Paper Radar"}))
	assert.Contains(t, md, "Waiting for daily updates.")
	assert.NotContains(t, md, "## Institutions")
}

func TestEscapes(t *testing.T) {
	assert.Equal(t, `A \[draft\]`, escapeLink("A [draft]"))
	assert.Equal(t, `a \| b`, escapeCell("a | b"))
}
