package snippets

import "github.com/sahilm/fuzzy"

// Suggest finds triggers similar to query using fuzzy matching, for "did you
// mean" hints when a lookup misses. Returns at most limit triggers, best first.
func Suggest(query string, m Mapping, limit int) []string {
	triggers := m.Triggers()
	if len(triggers) == 0 || limit <= 0 {
		return nil
	}

	matches := fuzzy.Find(query, triggers)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	suggestions := make([]string, 0, len(matches))
	for _, match := range matches {
		suggestions = append(suggestions, triggers[match.Index])
	}
	return suggestions
}
