// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"sort"

	"github.com/pdiddy/paper-radar/internal/rules"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// DefaultTop is the length of the ranked list.
const DefaultTop = 10

// Score bands.
const (
	BandCore     = "core"
	BandEnabling = "enabling"
	BandGeneral  = "general"
)

// TopPaper is a record with the institution it is credited to.
type TopPaper struct {
	types.OutputRecord
	Source string
}

// Band classifies a score.
func Band(score float64) string {
	switch {
	case score >= 90:
		return BandCore
	case score >= 80:
		return BandEnabling
	default:
		return BandGeneral
	}
}

// TopPapers returns the n highest-scored distinct papers in digest. A paper
// listed under several institutions is credited to the first in name
// order, shown as its parent institution when the index knows one.
func TopPapers(digest types.Digest, index *rules.Index, n int) []TopPaper {
	if n <= 0 {
		n = DefaultTop
	}
	seen := make(map[string]struct{})
	var flat []TopPaper
	for _, name := range digest.Institutions() {
		source := name
		if index != nil {
			if parent, ok := index.Parent(name); ok {
				source = parent
			}
		}
		for _, r := range digest[name] {
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			flat = append(flat, TopPaper{OutputRecord: r, Source: source})
		}
	}
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].Score > flat[j].Score })
	if len(flat) > n {
		flat = flat[:n]
	}
	return flat
}
