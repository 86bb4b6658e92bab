// Package engine turns keystrokes on an editable surface into snippet
// expansions.
//
// A Session owns one keystroke buffer. Hosts deliver every keydown through
// HandleKey and honor the returned Verdict; characters accumulate in the
// buffer, and a trigger key (Space, Tab, Enter) expands the longest trigger
// the buffer ends with. While the user types after the prefix marker, a
// debounced ranking feeds the suggestion Overlay, which the arrow keys,
// Tab, Enter and Escape drive while it is open.
//
// # Surfaces
//
// The engine edits two kinds of surface. A ValueSurface is a plain field
// with a string value and a caret offset; a RangeSurface is a rich region
// edited through a selection. Splice handles both and emits the input and
// change notifications a host listens for. Anything else is not editable
// and its keys pass untouched.
//
// # Timers
//
// Suggestion ranking runs on a Scheduler. TimerScheduler fires callbacks on
// their own goroutine; hosts with an event loop provide a Scheduler that
// posts the callback to that loop instead. Callbacks take the session lock,
// so a Scheduler must never run them synchronously from AfterFunc.
package engine
