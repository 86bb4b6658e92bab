package snippets

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.yaml.in/yaml/v4"
)

// ErrInvalidPack is returned when pack data is not a mapping of triggers.
var ErrInvalidPack = errors.New("invalid snippet pack")

// PackSource is written into the meta block of exported packs.
const PackSource = "EchoKey Admin Panel"

// PackMeta describes an exported pack.
type PackMeta struct {
	ExportedAt   time.Time `json:"exportedAt" yaml:"exportedAt"`
	SnippetCount int       `json:"snippetCount" yaml:"snippetCount"`
	Source       string    `json:"source" yaml:"source"`
}

// Pack is the distribution format for the managed tier.
type Pack struct {
	Meta            PackMeta          `json:"meta" yaml:"meta"`
	ManagedSnippets map[string]string `json:"managedSnippets" yaml:"managedSnippets"`
}

// NewPack wraps managed snippets for export.
func NewPack(managed map[string]string, now time.Time) Pack {
	cp := make(map[string]string, len(managed))
	for k, v := range managed {
		cp[k] = v
	}
	return Pack{
		Meta: PackMeta{
			ExportedAt:   now.UTC(),
			SnippetCount: len(cp),
			Source:       PackSource,
		},
		ManagedSnippets: cp,
	}
}

// ParsePack decodes pack data. Two layouts are accepted:
//
//   - the pack format: {"meta": {...}, "managedSnippets": {";code": "text"}}
//   - a flat mapping:  {";code": "text"}
//
// The data may be JSON or YAML (JSON documents are valid YAML). Triggers are
// lowercased; entries whose key does not start with prefix or whose value is
// not a non-empty string are skipped. Anything that is not a mapping is
// rejected as a whole with ErrInvalidPack.
func ParsePack(data []byte, prefix string) (map[string]string, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}
	top, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping of triggers", ErrInvalidPack)
	}

	source := top
	if nested, ok := top["managedSnippets"].(map[string]any); ok && top["meta"] != nil {
		source = nested
	}

	out := make(map[string]string, len(source))
	var skipped int
	for code, v := range source {
		expansion, ok := v.(string)
		if !ok || expansion == "" || !strings.HasPrefix(code, prefix) {
			skipped++
			continue
		}
		out[strings.ToLower(code)] = expansion
	}
	if skipped > 0 {
		slog.Debug("Skipped pack entries", "skipped", skipped, "accepted", len(out))
	}
	return out, nil
}
