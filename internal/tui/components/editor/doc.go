// Package editor provides the input panes of the terminal playground.
//
// # Panes
//
// A pane wraps one editable surface and knows where it sits on screen:
//
//   - A field pane holds a single-line plain field. Text wider than the pane
//     scrolls horizontally so the caret stays visible.
//   - A region pane holds a multi-line rich region with undo. It scrolls
//     vertically to keep the caret line visible.
//
// # Geometry
//
// Panes are drawn inside a one-cell border. Layout gives a pane its outer
// box; the pane hands its content box to the surface so the expansion
// session can place the suggestion list under the caret. A region's box is
// shifted by the scroll offset, so the caret cell reported by the surface
// is the cell it occupies on screen.
//
// # Keys
//
// Panes do not interpret keys themselves. The host delivers keys to the
// session with surface.Deliver, which applies the default action of every
// key the session passes through, and then calls Sync so the pane can
// scroll and re-place its surface.
package editor
