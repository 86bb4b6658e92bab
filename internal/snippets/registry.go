package snippets

import "context"

// Registry provides the merged snippet mapping to the engine and to admin
// tooling. Snippets are read from the managed and user tiers of the durable
// store and merged with user entries taking precedence.
type Registry interface {
	// Load reads both tiers from the store and replaces the current mapping.
	// A tier that fails to decode is logged and treated as empty. An error is
	// returned when the store cannot be read, or when every tier failed; the
	// previous mapping stays in place in that case.
	Load(ctx context.Context) (Mapping, error)

	// Mapping returns the current effective mapping. It never blocks on I/O.
	Mapping() Mapping

	// Find looks up a trigger case-insensitively.
	// Returns an error wrapping ErrNotFound when it is not present.
	Find(trigger string) (*Snippet, error)

	// List returns all entries of the current mapping in trigger order.
	List() []Snippet

	// Reload is Load without the result, for change-notification handlers.
	Reload(ctx context.Context) error
}
