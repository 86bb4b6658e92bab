package snippets

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog renders the mapping as a plain-text listing grouped by category.
//
// The output includes:
//   - One section per category, in sorted order ("4B", "5", "7", "8B", "9", "Other")
//   - Triggers sorted within each section
//   - The tier of every entry
//
// Returns a formatted string ready for a terminal.
func Catalog(m Mapping, prefix string) string {
	grouped := groupByCategory(m, prefix)

	categories := make([]string, 0, len(grouped))
	for c := range grouped {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var out strings.Builder
	fmt.Fprintf(&out, "Available Snippets (%d):\n", m.Len())
	for _, c := range categories {
		fmt.Fprintf(&out, "\n%s:\n", c)
		for _, s := range grouped[c] {
			formatSnippet(&out, s)
		}
	}
	return out.String()
}

// formatSnippet writes one catalog line: trigger, expansion, tier.
func formatSnippet(out *strings.Builder, s Snippet) {
	fmt.Fprintf(out, "  %-10s %s (%s)\n", s.Trigger, s.Expansion, s.Tier)
}

// groupByCategory groups entries by Category. Mapping order is already sorted
// by trigger, so sections come out sorted too.
func groupByCategory(m Mapping, prefix string) map[string][]Snippet {
	grouped := make(map[string][]Snippet)
	m.Each(func(s Snippet) {
		c := Category(s.Trigger, prefix)
		grouped[c] = append(grouped[c], s)
	})
	return grouped
}
