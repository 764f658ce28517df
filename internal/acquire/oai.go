// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"encoding/xml"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/textutil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Endpoints. Declared as vars so tests can substitute httptest servers.
var (
	oaiBase  = "https://export.arxiv.org/oai2"
	htmlBase = "https://arxiv.org/html/"
	absBase  = "https://arxiv.org/abs/"
)

const (
	// displayAuthors is how many authors appear in AuthorsDisplay.
	displayAuthors = 5

	noRecordsMatch = "noRecordsMatch"
	dateLayout     = "2006-01-02"
)

// OAI-PMH ListRecords response with the arXiv metadata format.
type oaiResponse struct {
	XMLName xml.Name    `xml:"OAI-PMH"`
	Error   *oaiError   `xml:"error"`
	Records []oaiRecord `xml:"ListRecords>record"`
	Token   string      `xml:"ListRecords>resumptionToken"`
}

type oaiError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

type oaiRecord struct {
	Header struct {
		Status     string `xml:"status,attr"`
		Identifier string `xml:"identifier"`
	} `xml:"header"`
	Meta *arxivMeta `xml:"metadata>arXiv"`
}

type arxivMeta struct {
	ID         string      `xml:"id"`
	Created    string      `xml:"created"`
	Title      string      `xml:"title"`
	Abstract   string      `xml:"abstract"`
	Categories string      `xml:"categories"`
	Authors    []oaiAuthor `xml:"authors>author"`
}

type oaiAuthor struct {
	Keyname   string `xml:"keyname"`
	Forenames string `xml:"forenames"`
}

var (
	versionSuffix = regexp.MustCompile(`v\d+$`)
	newStyleID    = regexp.MustCompile(`^\d{4}\.\d{4,5}`)
)

// StripVersion drops a trailing version ("2501.01234v2" -> "2501.01234").
func StripVersion(id string) string {
	return versionSuffix.ReplaceAllString(strings.TrimSpace(id), "")
}

// Filter decides which listed records are kept.
type Filter struct {
	Categories []string
	// Cutoff is the oldest creation day kept.
	Cutoff time.Time
}

// NewFilter keeps records in categories created within maxAgeDays of now.
func NewFilter(categories []string, now time.Time, maxAgeDays int) Filter {
	day := now.UTC().Truncate(24 * time.Hour)
	return Filter{Categories: categories, Cutoff: day.AddDate(0, 0, -maxAgeDays)}
}

// Reason values reported by Filter.Keep.
const (
	KeepOK        = ""
	DropDeleted   = "deleted"
	DropCategory  = "category"
	DropOld       = "old"
	DropNoPayload = "no_metadata"
)

// Keep reports whether rec passes and, when it does not, why.
func (f Filter) Keep(rec oaiRecord) string {
	if rec.Header.Status == "deleted" {
		return DropDeleted
	}
	if rec.Meta == nil {
		return DropNoPayload
	}
	if !f.inCategories(strings.Fields(rec.Meta.Categories)) {
		return DropCategory
	}
	if f.tooOld(rec.Meta) {
		return DropOld
	}
	return KeepOK
}

func (f Filter) inCategories(cats []string) bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range cats {
		for _, want := range f.Categories {
			if c == want {
				return true
			}
		}
	}
	return false
}

// tooOld applies two checks: a new-style ID whose YYMM prefix predates the
// cutoff month, and a created date before the cutoff. An unparseable
// created date does not drop the record.
func (f Filter) tooOld(m *arxivMeta) bool {
	if f.Cutoff.IsZero() {
		return false
	}
	id := StripVersion(m.ID)
	if newStyleID.MatchString(id) && id[:4] < f.Cutoff.Format("0601") {
		return true
	}
	created, err := time.Parse(dateLayout, strings.TrimSpace(m.Created))
	if err != nil {
		return false
	}
	return created.Before(f.Cutoff)
}

// toPaper converts listed metadata to a Paper with no body text.
func toPaper(m *arxivMeta) types.Paper {
	id := StripVersion(textutil.CollapseSpace(m.ID))
	names := make([]string, 0, displayAuthors)
	for i, a := range m.Authors {
		if i == displayAuthors {
			break
		}
		name := textutil.CollapseSpace(a.Forenames + " " + a.Keyname)
		names = append(names, name)
	}
	return types.Paper{
		ID:             id,
		URL:            absBase + id,
		Title:          textutil.CollapseSpace(m.Title),
		Abstract:       textutil.CollapseSpace(m.Abstract),
		Date:           textutil.CollapseSpace(m.Created),
		AuthorsDisplay: strings.Join(names, ", "),
		Categories:     strings.Fields(m.Categories),
	}
}
