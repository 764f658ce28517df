// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/paper-radar/internal/rules"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// AssembleStats counts what Assemble did.
type AssembleStats struct {
	Inserted   int
	Duplicates int
	Highlights int
}

// Assemble adds one record per (institution, paper) to digest. A paper
// already listed under an institution is skipped, so assembling the same
// papers twice leaves the digest unchanged.
func Assemble(digest types.Digest, ranked []types.RankedPaper, index *rules.Index) AssembleStats {
	var stats AssembleStats
	for _, rp := range ranked {
		highlight := index != nil && index.IsHighlight(rp.AuthorsDisplay)
		if highlight {
			stats.Highlights++
		}
		rec := types.OutputRecord{
			Title:       rp.Title,
			URL:         rp.Key(),
			Date:        rp.Date,
			AuthorsText: rp.AuthorsDisplay,
			IsHighlight: highlight,
			Score:       rp.Score,
			Summary:     rp.Summary,
		}
		for _, inst := range rp.Institutions {
			if digest.Insert(inst, rec) {
				stats.Inserted++
			} else {
				stats.Duplicates++
			}
		}
	}
	return stats
}
