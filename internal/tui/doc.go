// Package tui is the interactive playground: a terminal host for one
// expansion session.
//
// The screen has a single-line plain field and a multi-line rich region.
// Keys go to the session first and land in the focused pane only when the
// session passes them through, exactly as a browser delivers keydown
// before the default action. Suggestions float under the caret and answer
// to the arrow keys, Tab, Enter, Escape and the mouse.
//
// Timers never touch the session from their own goroutine. The debounce
// timer posts its callback to the program, and Update runs it between key
// events.
package tui
