package engine

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/TrishulMallur/EchoKey/internal/snippets"
)

// DefaultMaxSuggestions caps the overlay list.
const DefaultMaxSuggestions = 6

// Minimum query length bounds, counted in runes including the prefix.
const (
	DefaultMinChars = 2
	MinMinChars     = 1
	MaxMinChars     = 5
)

// Score bands. Within the first two bands a shorter trigger scores higher.
const (
	scorePrefix    = 10000
	scoreContains  = 5000
	scoreExpansion = 1000
)

// Candidate is one ranked suggestion.
type Candidate struct {
	Trigger   string
	Expansion string
	Score     int
}

// Query extracts the suggestion query from the buffer: the lowercased text
// from the last prefix marker to the end, marker included.
func Query(buffer, prefix string) (string, bool) {
	lower := lowerRunes(buffer)
	i := strings.LastIndex(lower, lowerRunes(prefix))
	if prefix == "" || i < 0 {
		return "", false
	}
	return lower[i:], true
}

// ClampMinChars bounds a configured minimum query length.
func ClampMinChars(n int) int {
	return max(MinMinChars, min(MaxMinChars, n))
}

// Rank scores every entry against query and returns at most limit
// candidates, best first. Entries matching in none of the bands are left
// out. Equal scores are ordered by trigger.
func Rank(query string, m snippets.Mapping, limit int) []Candidate {
	if limit <= 0 {
		return nil
	}
	q := lowerRunes(query)

	var out []Candidate
	m.Each(func(s snippets.Snippet) {
		trigger := lowerRunes(s.Trigger)
		n := utf8.RuneCountInString(trigger)

		var score int
		switch {
		case strings.HasPrefix(trigger, q):
			score = scorePrefix - n
		case strings.Contains(trigger, q):
			score = scoreContains - n
		case strings.Contains(lowerRunes(s.Expansion), q):
			score = scoreExpansion
		default:
			return
		}
		out = append(out, Candidate{Trigger: s.Trigger, Expansion: s.Expansion, Score: score})
	})

	slices.SortFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Trigger, b.Trigger)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
