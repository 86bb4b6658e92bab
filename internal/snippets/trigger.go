package snippets

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultPrefix is the marker every trigger starts with.
const DefaultPrefix = ";"

var (
	// ErrInvalidTrigger is returned when a trigger cannot ever be typed.
	ErrInvalidTrigger = errors.New("invalid trigger")
	// ErrNotFound is returned when a trigger is not in the mapping.
	ErrNotFound = errors.New("snippet not found")
)

// NormalizeTrigger lowercases and trims a trigger. Triggers compare
// case-insensitively everywhere, so stores written by this module keep them
// lowercased.
func NormalizeTrigger(trigger string) string {
	return strings.ToLower(strings.TrimSpace(trigger))
}

// ValidateTrigger checks that trigger starts with prefix, has a body, and
// contains no whitespace (whitespace is a trigger key and would clear the
// keystroke buffer before the trigger could ever complete).
func ValidateTrigger(trigger, prefix string) error {
	if trigger == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTrigger)
	}
	if !strings.HasPrefix(trigger, prefix) {
		return fmt.Errorf("%w: %q must start with %q", ErrInvalidTrigger, trigger, prefix)
	}
	if len(trigger) == len(prefix) {
		return fmt.Errorf("%w: %q has nothing after the prefix", ErrInvalidTrigger, trigger)
	}
	if strings.IndexFunc(trigger, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidTrigger, trigger)
	}
	return nil
}

// Category derives the reporting category from a trigger body:
// "8B", "4B", "5", "7", "9" or "Other".
func Category(trigger, prefix string) string {
	body := strings.ToLower(strings.TrimPrefix(trigger, prefix))
	switch {
	case strings.HasPrefix(body, "8b"):
		return "8B"
	case strings.HasPrefix(body, "4b"):
		return "4B"
	case strings.HasPrefix(body, "5"):
		return "5"
	case strings.HasPrefix(body, "7"):
		return "7"
	case strings.HasPrefix(body, "9"):
		return "9"
	}
	return "Other"
}

// Conflicts reports prefix shadowing between candidate and the existing
// triggers. A trigger that is a prefix of another expands first on the way to
// typing the longer one only if the user presses a trigger key in between;
// either way it is worth a warning before saving.
//
// Exact duplicates (case-insensitive) are skipped: replacing an entry is
// handled by the caller.
func Conflicts(candidate string, existing []string) []string {
	var warnings []string
	lower := strings.ToLower(candidate)
	for _, other := range existing {
		otherLower := strings.ToLower(other)
		if otherLower == lower {
			continue
		}
		switch {
		case strings.HasPrefix(otherLower, lower):
			warnings = append(warnings, fmt.Sprintf("%s is a prefix of %s; the shorter trigger completes first", candidate, other))
		case strings.HasPrefix(lower, otherLower):
			warnings = append(warnings, fmt.Sprintf("existing %s is a prefix of %s; it completes first", other, candidate))
		}
	}
	return warnings
}
