package memory

import "strings"

// NormalizeCategories trims, lowercases, and deduplicates categories while
// preserving first-seen order. Empty entries are dropped. The result is
// never empty: a record with no usable category gets DefaultCategory.
// This is the single normalization boundary: every component downstream
// of storage sees exactly this canonical shape.
func NormalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	seen := make(map[string]struct{}, len(categories))

	for _, cat := range categories {
		cat = strings.ToLower(strings.TrimSpace(cat))
		if cat == "" {
			continue
		}
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}

	if len(out) == 0 {
		return []string{DefaultCategory}
	}
	return out
}

// HasCategory reports whether the record carries the category,
// case-insensitively.
func (r *Record) HasCategory(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range r.Categories {
		if c == category {
			return true
		}
	}
	return false
}
