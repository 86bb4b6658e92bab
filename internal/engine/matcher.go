package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/TrishulMallur/EchoKey/internal/snippets"
)

// MatchResult is the trigger found at the end of the buffer.
type MatchResult struct {
	Snippet snippets.Snippet
	// Length is the trigger length in runes: how much to remove before the
	// caret.
	Length int
}

// Match finds the longest trigger that the buffer ends with, ignoring case.
// Mapping keys are unique once lowercased, so two matches of equal length
// cannot differ; the mapping's sorted order keeps the result deterministic
// anyway.
func Match(buffer string, m snippets.Mapping) (MatchResult, bool) {
	lower := lowerRunes(buffer)

	var best MatchResult
	found := false
	m.Each(func(s snippets.Snippet) {
		trigger := lowerRunes(s.Trigger)
		if !strings.HasSuffix(lower, trigger) {
			return
		}
		n := utf8.RuneCountInString(trigger)
		if !found || n > best.Length {
			best = MatchResult{Snippet: s, Length: n}
			found = true
		}
	})
	return best, found
}

// lowerRunes lowercases rune by rune, keeping the rune count intact so
// offsets computed on the result apply to the original text.
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}
