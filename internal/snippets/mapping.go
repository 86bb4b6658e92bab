package snippets

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// Mapping is the effective trigger → expansion view: managed and user tiers
// merged with user entries winning. A Mapping is immutable once built; the
// registry replaces it wholesale on reload.
type Mapping struct {
	// entries are sorted by trigger so iteration order is deterministic.
	entries []Snippet
	// index maps the lowercased trigger to its position in entries.
	index   map[string]int
	longest int
}

// Conflict records a managed entry shadowed by a user entry.
type Conflict struct {
	Trigger    string
	Overridden Snippet
	Winner     Snippet
}

// Merge builds the effective mapping from the two tiers. Keys collide
// case-insensitively. Entries with an empty expansion are dropped.
func Merge(managed, user map[string]string) (Mapping, []Conflict) {
	byKey := make(map[string]Snippet, len(managed)+len(user))
	var conflicts []Conflict

	// Lowest priority first so the user tier overwrites on collision.
	for _, tier := range []struct {
		tier    Tier
		entries map[string]string
	}{
		{TierManaged, managed},
		{TierUser, user},
	} {
		for _, trigger := range slices.Sorted(maps.Keys(tier.entries)) {
			expansion := tier.entries[trigger]
			if trigger == "" || expansion == "" {
				continue
			}
			key := strings.ToLower(trigger)
			s := Snippet{Trigger: trigger, Expansion: expansion, Tier: tier.tier}
			if existing, ok := byKey[key]; ok && existing.Tier != s.Tier {
				conflicts = append(conflicts, Conflict{Trigger: key, Overridden: existing, Winner: s})
			}
			byKey[key] = s
		}
	}

	return newMapping(byKey), conflicts
}

// FromMap builds a single-tier mapping. Useful for tests and previews.
func FromMap(entries map[string]string, tier Tier) Mapping {
	if tier == TierUser {
		m, _ := Merge(nil, entries)
		return m
	}
	m, _ := Merge(entries, nil)
	return m
}

func newMapping(byKey map[string]Snippet) Mapping {
	m := Mapping{
		entries: make([]Snippet, 0, len(byKey)),
		index:   make(map[string]int, len(byKey)),
	}
	for _, key := range slices.Sorted(maps.Keys(byKey)) {
		s := byKey[key]
		m.index[key] = len(m.entries)
		m.entries = append(m.entries, s)
		if n := utf8.RuneCountInString(s.Trigger); n > m.longest {
			m.longest = n
		}
	}
	return m
}

// Len returns the number of entries.
func (m Mapping) Len() int { return len(m.entries) }

// Longest returns the rune length of the longest trigger.
func (m Mapping) Longest() int { return m.longest }

// Entries returns a copy of all entries sorted by lowercased trigger.
func (m Mapping) Entries() []Snippet {
	return slices.Clone(m.entries)
}

// Each calls fn for every entry in order without copying.
func (m Mapping) Each(fn func(Snippet)) {
	for _, s := range m.entries {
		fn(s)
	}
}

// Lookup finds an entry case-insensitively.
func (m Mapping) Lookup(trigger string) (Snippet, bool) {
	i, ok := m.index[strings.ToLower(trigger)]
	if !ok {
		return Snippet{}, false
	}
	return m.entries[i], true
}

// Triggers returns every trigger in order.
func (m Mapping) Triggers() []string {
	out := make([]string, len(m.entries))
	for i, s := range m.entries {
		out[i] = s.Trigger
	}
	return out
}
