// Package merger combines ordered result lists by item identifier.
package merger

import "github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"

// Merge concatenates lists in order, keeping the first occurrence of each
// identifier and dropping later duplicates, and truncates to limit. A
// non-positive limit yields an empty result.
func Merge(limit int, lists ...[]catalog.Item) []catalog.Item {
	if limit <= 0 {
		return []catalog.Item{}
	}
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make([]catalog.Item, 0, min(total, limit))
	seen := make(map[int64]struct{}, min(total, limit))
	for _, l := range lists {
		for _, item := range l {
			if len(out) == limit {
				return out
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
