package snippets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TrishulMallur/EchoKey/internal/storage"
)

// registry is the concrete implementation of the Registry interface.
type registry struct {
	store storage.Store

	mu      sync.RWMutex
	mapping Mapping
}

// NewRegistry creates a registry reading from store. Call Load before use;
// until then the mapping is empty.
func NewRegistry(store storage.Store) Registry {
	return &registry{store: store}
}

// Load reads the tiers and swaps in the new mapping.
//
// Stores written before schema version 2 carry a single "snippets" map; it is
// read as the managed tier so old installations keep expanding.
func (r *registry) Load(ctx context.Context) (Mapping, error) {
	raw, err := r.store.Get(ctx,
		storage.KeySchemaVersion,
		storage.KeyManagedSnippets,
		storage.KeyUserSnippets,
		storage.KeyLegacySnippets,
	)
	if err != nil {
		return Mapping{}, fmt.Errorf("read snippet tiers: %w", err)
	}

	var version int
	if _, err := storage.Decode(raw, storage.KeySchemaVersion, &version); err != nil {
		slog.Warn("Ignoring unreadable schema version", "error", err)
	}

	var managed, user map[string]string
	var loadErrors []error

	if version >= storage.SchemaVersion {
		if _, err := storage.Decode(raw, storage.KeyManagedSnippets, &managed); err != nil {
			slog.Warn("Failed to decode managed snippets", "error", err)
			loadErrors = append(loadErrors, fmt.Errorf("managed tier: %w", err))
		}
		if _, err := storage.Decode(raw, storage.KeyUserSnippets, &user); err != nil {
			slog.Warn("Failed to decode user snippets", "error", err)
			loadErrors = append(loadErrors, fmt.Errorf("user tier: %w", err))
		}
	} else {
		if _, err := storage.Decode(raw, storage.KeyLegacySnippets, &managed); err != nil {
			slog.Warn("Failed to decode legacy snippets", "error", err)
			loadErrors = append(loadErrors, fmt.Errorf("legacy snippets: %w", err))
		}
		slog.Debug("Reading legacy single-tier snippets", "schema_version", version)
	}

	mapping, conflicts := Merge(managed, user)
	for _, c := range conflicts {
		slog.Debug("Snippet trigger conflict resolved",
			"trigger", c.Trigger,
			"overridden_tier", c.Overridden.Tier,
			"winner_tier", c.Winner.Tier,
		)
	}
	if len(conflicts) > 0 {
		slog.Info("User snippets override managed snippets", "conflicts", len(conflicts))
	}

	if len(loadErrors) > 0 && mapping.Len() == 0 {
		slog.Error("All snippet tiers failed to load", "errors", len(loadErrors))
		// Keep serving the previous mapping rather than going blank.
		return r.Mapping(), errors.Join(loadErrors...)
	}

	r.mu.Lock()
	r.mapping = mapping
	r.mu.Unlock()

	slog.Info("Snippet loading completed",
		"total_snippets", mapping.Len(),
		"managed_snippets", len(managed),
		"user_snippets", len(user),
	)
	return mapping, nil
}

func (r *registry) Mapping() Mapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mapping
}

func (r *registry) Find(trigger string) (*Snippet, error) {
	s, ok := r.Mapping().Lookup(trigger)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, trigger)
	}
	return &s, nil
}

func (r *registry) List() []Snippet {
	return r.Mapping().Entries()
}

func (r *registry) Reload(ctx context.Context) error {
	_, err := r.Load(ctx)
	return err
}
