package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store keys. The names are the wire contract shared with every other
// collaborator reading the same installation.
const (
	KeyManagedSnippets = "managedSnippets"
	KeyUserSnippets    = "userSnippets"
	// KeyLegacySnippets holds the single-tier map written before schema 2.
	KeyLegacySnippets = "snippets"
	KeyEnabled        = "enabled"
	KeySchemaVersion  = "schemaVersion"
	KeyTeamSettings   = "teamSettings"
	KeyStats          = "stats"
	KeyDailyStats     = "dailyStats"
	KeyStatsPending   = "statsPending"
)

// SchemaVersion is the layout written by this module: two snippet tiers.
const SchemaVersion = 2

// DateLayout formats the daily stats key.
const DateLayout = "2006-01-02"

// SnippetStat is the per-trigger usage record.
type SnippetStat struct {
	Count    int        `json:"count"`
	LastUsed *time.Time `json:"lastUsed"`
}

// Stats is the cumulative usage record.
type Stats struct {
	Expansions int                    `json:"expansions"`
	LastUsed   *time.Time             `json:"lastUsed"`
	PerSnippet map[string]SnippetStat `json:"perSnippet"`
}

// DailyStats counts expansions for one UTC calendar date.
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PendingStats is the teardown fallback record. It only exists between a
// session being torn down with unflushed deltas and the next session load.
type PendingStats struct {
	TotalInc   int                    `json:"totalInc"`
	PerSnippet map[string]SnippetStat `json:"perSnippet"`
	// Timestamp is Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// TeamSettings are administrator-controlled engine knobs. Pointer fields
// distinguish "not set" from the zero value.
type TeamSettings struct {
	AutocompleteMinChars *int  `json:"autocompleteMinChars,omitempty"`
	ShowFeedbackFlash    *bool `json:"showFeedbackFlash,omitempty"`
}

// EmptyStats returns a zeroed stats record.
func EmptyStats() Stats {
	return Stats{PerSnippet: map[string]SnippetStat{}}
}

// Today returns the daily stats key for t.
func Today(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Decode unmarshals raw[key] into v. It reports false when the key is absent.
func Decode(raw map[string][]byte, key string, v any) (bool, error) {
	b, ok := raw[key]
	if !ok || len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Encode marshals each value to JSON.
func Encode(values map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

// Read fetches a single key into v.
func Read(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return Decode(raw, key, v)
}

// Write encodes values and stores them in one batch.
func Write(ctx context.Context, s Store, values map[string]any) error {
	raw, err := Encode(values)
	if err != nil {
		return err
	}
	return s.Set(ctx, raw)
}
