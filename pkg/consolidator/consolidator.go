// Package consolidator deduplicates memory records before retrieval
// considers them.
package consolidator

import (
	"time"

	"github.com/engramdev/engram/pkg/memory"
)

type identity struct {
	content   string
	timestamp time.Time
}

// Consolidate removes duplicate records, preserving first-seen order.
// Identity is the exact (content, timestamp) pair: this is strict
// matching, not fuzzy deduplication, so near-duplicates with different
// timestamps survive as distinct records.
func Consolidate(records []memory.Record) []memory.Record {
	if len(records) == 0 {
		return records
	}

	seen := make(map[identity]bool, len(records))
	out := make([]memory.Record, 0, len(records))
	for _, r := range records {
		key := identity{content: r.Content, timestamp: r.Timestamp}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
