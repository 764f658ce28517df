// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the records that flow between pipeline stages and the
// configuration values threaded into them.
package types

// Paper is one harvested paper record. It is produced by acquisition and is
// never mutated by the pipeline.
type Paper struct {
	// ID is the archive identifier without version suffix (e.g. "2501.01234").
	ID string `json:"id" yaml:"id"`

	// URL is the canonical abstract page and the paper's identity.
	URL string `json:"link" yaml:"link"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the abstract as listed by the archive.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Date is the submission date, "YYYY-MM-DD".
	Date string `json:"date" yaml:"date"`

	// AuthorsDisplay is the comma-joined author list shown to readers.
	AuthorsDisplay string `json:"authors_display" yaml:"authors_display"`

	// Categories lists archive subject classes (e.g. "cs.RO").
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// BodyText is the cleaned full text, empty when no HTML rendering exists.
	BodyText string `json:"html_content,omitempty" yaml:"html_content,omitempty"`
}

// Key returns the identity used for deduplication.
func (p Paper) Key() string {
	if p.URL != "" {
		return p.URL
	}
	return p.ID
}

// VerifiedPaper is a Paper with the union of institutions confirmed for it.
type VerifiedPaper struct {
	Paper

	// Institutions is sorted and free of duplicates.
	Institutions []string `json:"institutions" yaml:"institutions"`
}

// RankedPaper adds the Stage 3 summary and score.
type RankedPaper struct {
	VerifiedPaper

	Summary string `json:"summary" yaml:"summary"`

	// Score is in [0,100]. Scored is false when the ranking response never
	// mentioned the paper, in which case Score is 0.
	Score  float64 `json:"score" yaml:"score"`
	Scored bool    `json:"scored" yaml:"scored"`
}
