// Package snippets owns the shortcode store: the managed and user tiers kept
// in the durable store, the merged mapping the engine reads, and the pack
// format used to distribute the managed tier.
//
// # Tiers
//
// Two tiers are merged into one effective mapping, in order of precedence
// (highest to lowest):
//
//  1. User tier (`userSnippets`): edited freely by the local user.
//  2. Managed tier (`managedSnippets`): distributed by an administrator,
//     read-only to end users.
//
// Keys collide case-insensitively; the user entry wins. Stores written before
// schema version 2 hold a single `snippets` map, read as the managed tier.
//
// The engine never reads the tier maps directly. It asks the Registry for the
// current Mapping, which is replaced wholesale whenever the store reports a
// change to either tier.
//
// # Triggers
//
// A trigger is a prefixed token (default prefix `;`) with no whitespace.
// Matching is case-insensitive. Conflicts reports triggers that shadow each
// other by prefix, and Category buckets triggers for reporting:
//
//	;4bpcmt → 4B
//	;5bicsr → 5
//	;8btpv  → 8B
//	;hello  → Other
//
// # Packs
//
// Packs are JSON or YAML documents in either the pack layout
//
//	{"meta": {"exportedAt": "...", "snippetCount": 2, "source": "..."},
//	 "managedSnippets": {";ab": "Alpha Beta", ";cd": "Charlie Delta"}}
//
// or a flat mapping of trigger to expansion. LoadPackDir merges every pack
// file in a directory, logging and skipping files that fail to parse.
package snippets
