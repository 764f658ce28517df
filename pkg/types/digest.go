// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "sort"

// OutputRecord is one paper listed under one institution.
type OutputRecord struct {
	Title       string  `json:"title" yaml:"title" db:"title"`
	URL         string  `json:"url" yaml:"url" db:"url"`
	Date        string  `json:"date" yaml:"date" db:"date"`
	AuthorsText string  `json:"authors_text" yaml:"authors_text" db:"authors_text"`
	IsHighlight bool    `json:"is_highlight" yaml:"is_highlight" db:"is_highlight"`
	Score       float64 `json:"score" yaml:"score" db:"score"`
	Summary     string  `json:"summary" yaml:"summary" db:"summary"`
}

// Digest maps a canonical institution name to its records, most recent
// insertion first.
type Digest map[string][]OutputRecord

// Insert places rec at the front of name's list. It returns false and leaves
// the digest unchanged when a record with the same URL is already listed
// under name.
func (d Digest) Insert(name string, rec OutputRecord) bool {
	for _, existing := range d[name] {
		if existing.URL == rec.URL {
			return false
		}
	}
	d[name] = append([]OutputRecord{rec}, d[name]...)
	return true
}

// Institutions returns the digest keys in sorted order.
func (d Digest) Institutions() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of records across institutions.
func (d Digest) Len() int {
	n := 0
	for _, recs := range d {
		n += len(recs)
	}
	return n
}
