// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
	httputil.MaxRetryAfter = 2 * time.Millisecond
}

var testNow = time.Date(2025, 1, 12, 9, 30, 0, 0, time.UTC)

func record(id, created, cats string, authors ...string) string {
	var as strings.Builder
	for _, a := range authors {
		parts := strings.SplitN(a, " ", 2)
		fmt.Fprintf(&as, "<author><keyname>%s</keyname><forenames>%s</forenames></author>", parts[1], parts[0])
	}
	return fmt.Sprintf(`<record><header><identifier>oai:arXiv.org:%[1]s</identifier></header>
<metadata><arXiv xmlns="http://arxiv.org/OAI/arXiv/">
<id>%[1]s</id><created>%[2]s</created>
<authors>%[4]s</authors>
<title>Title of
  %[1]s</title>
<categories>%[3]s</categories>
<abstract>  Abstract of %[1]s.
</abstract>
</arXiv></metadata></record>`, id, created, cats, as.String())
}

func page(token string, records ...string) string {
	tok := ""
	if token != "" {
		tok = `<resumptionToken cursor="0">` + token + `</resumptionToken>`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/"><ListRecords>` +
		strings.Join(records, "\n") + tok + `</ListRecords></OAI-PMH>`
}

func testConfig() types.AcquisitionConfig {
	cfg := types.DefaultConfig().Acquisition
	cfg.FetchDelay = 0
	return cfg
}

// withServer points the endpoints at h for the duration of the test.
func withServer(t *testing.T, h http.Handler) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	oldOAI, oldHTML := oaiBase, htmlBase
	oaiBase, htmlBase = ts.URL+"/oai2", ts.URL+"/html/"
	t.Cleanup(func() { oaiBase, htmlBase = oldOAI, oldHTML })
}

func TestFilterKeep(t *testing.T) {
	f := NewFilter([]string{"cs.RO", "cs.CV"}, testNow, 10)
	assert.Equal(t, "2025-01-02", f.Cutoff.Format(dateLayout))

	meta := func(id, created, cats string) oaiRecord {
		var r oaiRecord
		r.Meta = &arxivMeta{ID: id, Created: created, Categories: cats}
		return r
	}
	deleted := meta("2501.00001", "2025-01-10", "cs.RO")
	deleted.Header.Status = "deleted"

	tests := []struct {
		name string
		rec  oaiRecord
		want string
	}{
		{"kept", meta("2501.00001", "2025-01-10", "cs.RO math.OC"), KeepOK},
		{"deleted", deleted, DropDeleted},
		{"no metadata", oaiRecord{}, DropNoPayload},
		{"other category", meta("2501.00002", "2025-01-10", "cs.CL"), DropCategory},
		{"old id prefix", meta("2312.09822", "2025-01-10", "cs.CV"), DropOld},
		{"created before cutoff", meta("2501.00003", "2025-01-01", "cs.CV"), DropOld},
		{"cutoff day kept", meta("2501.00004", "2025-01-02", "cs.CV"), KeepOK},
		{"bad created date kept", meta("2501.00005", "Jan 5", "cs.CV"), KeepOK},
		{"versioned id", meta("2501.00006v3", "2025-01-11", "cs.CV"), KeepOK},
		{"old-style id", meta("cs/0101001", "2025-01-11", "cs.RO"), KeepOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Keep(tt.rec))
		})
	}
}

func TestFilterNoCategories(t *testing.T) {
	f := Filter{}
	r := oaiRecord{Meta: &arxivMeta{ID: "1001.00001", Categories: "q-bio.NC"}}
	assert.Equal(t, KeepOK, f.Keep(r))
}

func TestStripVersion(t *testing.T) {
	assert.Equal(t, "2501.01234", StripVersion("2501.01234v2"))
	assert.Equal(t, "2501.01234", StripVersion(" 2501.01234 "))
	assert.Equal(t, "cs/0101001", StripVersion("cs/0101001v1"))
}

func TestToPaper(t *testing.T) {
	m := &arxivMeta{
		ID: "2501.00007v2", Created: "2025-01-10",
		Title: "  Whole-Body\n  Control ", Abstract: "We   walk.", Categories: "cs.RO cs.AI",
	}
	for _, n := range []string{"A", "B", "C", "D", "E", "F"} {
		m.Authors = append(m.Authors, oaiAuthor{Keyname: n + "son", Forenames: n + "."})
	}

	p := toPaper(m)
	assert.Equal(t, "2501.00007", p.ID)
	assert.Equal(t, "https://arxiv.org/abs/2501.00007", p.URL)
	assert.Equal(t, "Whole-Body Control", p.Title)
	assert.Equal(t, "We walk.", p.Abstract)
	assert.Equal(t, "A. Ason, B. Bson, C. Cson, D. Dson, E. Eson", p.AuthorsDisplay)
	assert.Equal(t, []string{"cs.RO", "cs.AI"}, p.Categories)
	assert.Empty(t, p.BodyText)
}

func TestListFollowsResumptionToken(t *testing.T) {
	var pages int32
	var firstQuery, secondQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/oai2", func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&pages, 1) {
		case 1:
			firstQuery = r.URL.RawQuery
			fmt.Fprint(w, page("tok-1",
				record("2501.00001", "2025-01-10", "cs.RO", "Chelsea Finn"),
				record("2501.00002", "2025-01-10", "cs.CL", "Some One"),
			))
		default:
			secondQuery = r.URL.RawQuery
			fmt.Fprint(w, page("",
				record("2312.09822", "2023-12-15", "cs.CV", "Old Timer"),
				record("2501.00003", "2025-01-11", "cs.CV", "Fei-Fei Li"),
			))
		}
	})
	withServer(t, mux)

	h := NewHarvester(testConfig(), nil, nil)
	papers, stats, err := h.List(context.Background(), testNow)
	require.NoError(t, err)

	assert.Contains(t, firstQuery, "metadataPrefix=arXiv")
	assert.Contains(t, firstQuery, "set=cs")
	assert.Contains(t, firstQuery, "from=2025-01-02")
	assert.Equal(t, "resumptionToken=tok-1&verb=ListRecords", secondQuery)

	require.Len(t, papers, 2)
	assert.Equal(t, "2501.00001", papers[0].ID)
	assert.Equal(t, "Chelsea Finn", papers[0].AuthorsDisplay)
	assert.Equal(t, "Title of 2501.00001", papers[0].Title)
	assert.Equal(t, "Abstract of 2501.00001.", papers[0].Abstract)
	assert.Equal(t, "2501.00003", papers[1].ID)

	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 4, stats.Listed)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 1, stats.Dropped[DropCategory])
	assert.Equal(t, 1, stats.Dropped[DropOld])
}

func TestListNoRecordsMatch(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
<error code="noRecordsMatch">No records</error></OAI-PMH>`)
	}))
	papers, _, err := NewHarvester(testConfig(), nil, nil).List(context.Background(), testNow)
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestListOAIError(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<OAI-PMH><error code="badArgument">bad from</error></OAI-PMH>`)
	}))
	_, _, err := NewHarvester(testConfig(), nil, nil).List(context.Background(), testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badArgument")
}

func TestListRetriesBusyServer(t *testing.T) {
	var calls int32
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "20")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, page("", record("2501.00001", "2025-01-10", "cs.RO", "A B")))
	}))
	papers, _, err := NewHarvester(testConfig(), nil, nil).List(context.Background(), testNow)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListMaxPapers(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page("more",
			record("2501.00001", "2025-01-10", "cs.RO", "A B"),
			record("2501.00002", "2025-01-10", "cs.RO", "A B"),
			record("2501.00003", "2025-01-10", "cs.RO", "A B"),
		))
	}))
	cfg := testConfig()
	cfg.MaxPapers = 2
	papers, stats, err := NewHarvester(cfg, nil, nil).List(context.Background(), testNow)
	require.NoError(t, err)
	assert.Len(t, papers, 2)
	assert.True(t, stats.Truncated)
	assert.Equal(t, 1, stats.Pages)
}

func TestHarvestAttachesBodies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oai2", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page("",
			record("2501.00001v2", "2025-01-10", "cs.RO", "A B"),
			record("2501.00002", "2025-01-10", "cs.RO", "C D"),
		))
	})
	mux.HandleFunc("/html/2501.00001", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><nav>Contents</nav><h1>Walker</h1><p>Tsinghua University</p></body></html>`)
	})
	mux.HandleFunc("/html/2501.00002", http.NotFound)
	withServer(t, mux)

	var out bytes.Buffer
	papers, stats, err := NewHarvester(testConfig(), nil, &out).Harvest(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	assert.Equal(t, "Walker Tsinghua University", papers[0].BodyText)
	assert.Empty(t, papers[1].BodyText)
	assert.Equal(t, 1, stats.WithBody)
	assert.Equal(t, 1, stats.NoBody)
	assert.Contains(t, out.String(), "[2/2] 2501.00002: no html")
}

func TestHarvestCancelledBetweenFetches(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/html/") {
			fmt.Fprint(w, "<body>x</body>")
			return
		}
		fmt.Fprint(w, page("",
			record("2501.00001", "2025-01-10", "cs.RO", "A B"),
			record("2501.00002", "2025-01-10", "cs.RO", "C D"),
		))
	}))
	cfg := testConfig()
	cfg.FetchDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	papers, _, err := NewHarvester(cfg, nil, nil).Harvest(ctx, testNow)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, papers, 2)
	assert.Equal(t, "x", papers[0].BodyText)
}

func TestCleanHTML(t *testing.T) {
	page := `<!DOCTYPE html><html><head><title>T</title><style>p{}</style></head>
<body>
<nav class="ltx_page_navbar">Table of contents</nav>
<script>var x = 1;</script>
<div class="ltx_TOC">1 Introduction</div>
<h1 class="ltx_title">Legged   Walking</h1>
<div class="ltx_authors"><span>Jane Doe</span><span>Tsinghua University</span></div>
<!-- generated -->
<section class="ltx_bibliography">MIT CSAIL 2019</section>
<footer class="ltx_page_footer">Generated by LaTeXML</footer>
</body></html>`

	assert.Equal(t, "Legged Walking Jane Doe Tsinghua University", CleanHTML(page))
	assert.Equal(t, "", CleanHTML("   "))
}

func TestCleanHTMLTruncates(t *testing.T) {
	page := "<body><p>" + strings.Repeat("é", MaxBodyRunes+10) + "</p></body>"
	assert.Len(t, []rune(CleanHTML(page)), MaxBodyRunes)
}

func TestWriteReadPapers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "raw_papers.json")
	in := []types.Paper{{ID: "2501.00001", URL: "https://arxiv.org/abs/2501.00001", Title: "T", BodyText: "body"}}
	require.NoError(t, WritePapers(path, in))

	out, err := ReadPapers(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	require.NoError(t, WritePapers(path, nil))
	out, err = ReadPapers(path)
	require.NoError(t, err)
	assert.Empty(t, out)
}
