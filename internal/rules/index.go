// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rules holds the keyword tables that map affiliation strings found in
// paper text to canonical institution names.
package rules

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds s to the form used for every keyword and person comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// Index is an immutable keyword table. All methods are safe for concurrent
// use without locking.
type Index struct {
	keywords map[string][]string
	sorted   []string
	people   []string
	parents  map[string]string
}

// Builder accumulates rules before they are frozen into an Index.
type Builder struct {
	keywords map[string]map[string]struct{}
	people   map[string]struct{}
	parents  map[string]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		keywords: make(map[string]map[string]struct{}),
		people:   make(map[string]struct{}),
		parents:  make(map[string]string),
	}
}

// Add maps keyword to canonical. A keyword already mapped to other names keeps
// them all.
func (b *Builder) Add(keyword, canonical string) {
	kw := Normalize(keyword)
	canonical = strings.TrimSpace(canonical)
	if kw == "" || canonical == "" {
		return
	}
	set, ok := b.keywords[kw]
	if !ok {
		set = make(map[string]struct{})
		b.keywords[kw] = set
	}
	set[canonical] = struct{}{}
}

// AddPerson records a notable person name.
func (b *Builder) AddPerson(name string) {
	if n := Normalize(name); n != "" {
		b.people[n] = struct{}{}
	}
}

// SetParent records the school a lab belongs to.
func (b *Builder) SetParent(canonical, parent string) {
	canonical, parent = strings.TrimSpace(canonical), strings.TrimSpace(parent)
	if canonical != "" && parent != "" {
		b.parents[canonical] = parent
	}
}

// Build freezes the accumulated rules. The Builder may keep being used; later
// additions do not affect the returned Index.
func (b *Builder) Build() *Index {
	idx := &Index{
		keywords: make(map[string][]string, len(b.keywords)),
		parents:  make(map[string]string, len(b.parents)),
	}
	for kw, set := range b.keywords {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		idx.keywords[kw] = names
		idx.sorted = append(idx.sorted, kw)
	}
	sort.Strings(idx.sorted)
	for p := range b.people {
		idx.people = append(idx.people, p)
	}
	sort.Strings(idx.people)
	for k, v := range b.parents {
		idx.parents[k] = v
	}
	return idx
}

// Len returns the number of keywords.
func (x *Index) Len() int { return len(x.sorted) }

// Keywords returns every keyword in sorted order.
func (x *Index) Keywords() []string {
	return append([]string(nil), x.sorted...)
}

// Lookup returns the canonical names for a keyword, nil when unknown.
func (x *Index) Lookup(keyword string) []string {
	names := x.keywords[Normalize(keyword)]
	if names == nil {
		return nil
	}
	return append([]string(nil), names...)
}

// Match returns the keywords that occur in lowered, which the caller has
// already passed through strings.ToLower. The result is sorted.
func (x *Index) Match(lowered string) []string {
	var hits []string
	for _, kw := range x.sorted {
		if strings.Contains(lowered, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// IsHighlight reports whether any notable person occurs in authors.
func (x *Index) IsHighlight(authors string) bool {
	if authors == "" {
		return false
	}
	lowered := Normalize(authors)
	for _, p := range x.people {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// Parent returns the school a lab belongs to. Companies and unknown names
// have no parent.
func (x *Index) Parent(canonical string) (string, bool) {
	p, ok := x.parents[canonical]
	return p, ok
}
