// Package completions draws the suggestion list of the terminal playground.
//
// The list opens under the caret of the focused pane once the text typed
// after the prefix is long enough, and shows each candidate's trigger with
// a one-line preview of its expansion. Characters of the trigger matched by
// the typed query are highlighted. A hint line under the items lists the
// keys the list answers to.
package completions
