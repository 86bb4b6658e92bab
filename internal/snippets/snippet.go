package snippets

// Snippet is one trigger → expansion entry of the effective mapping.
type Snippet struct {
	// Trigger is the prefixed token the user types, e.g. ";4bpcmt".
	// Matching is case-insensitive; Trigger keeps the case it was stored with.
	Trigger string

	// Expansion is the literal replacement text. Never empty.
	Expansion string

	// Tier records which tier the entry came from after merging.
	Tier Tier
}

// Tier identifies the owner of a snippet definition.
type Tier string

const (
	// TierManaged entries are distributed by an administrator and read-only
	// to end users.
	TierManaged Tier = "managed"
	// TierUser entries are owned by the local user and win on collision.
	TierUser Tier = "user"
)
