// Package surface provides in-memory editable surfaces for hosts that have no
// widget toolkit of their own: a single-line Field and a multi-line Region
// with an undo history. Both satisfy the engine's surface and locator
// interfaces and know how to apply a key's default action, so a host only
// has to route keys through Deliver.
package surface
