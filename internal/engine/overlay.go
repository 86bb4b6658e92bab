package engine

// HintLine is shown under the suggestion list.
const HintLine = "↑↓ Navigate · Tab/Enter Accept · Esc Dismiss"

// Overlay is the floating suggestion list. The session calls it while
// holding its lock, so implementations must not call back into the session.
type Overlay interface {
	Show(items []Candidate, selected int, at Point)
	Select(index int)
	Hide()
	// Viewport is the area the overlay must stay inside.
	Viewport() Size
}

// Flasher acknowledges an expansion on the target. It must not block.
type Flasher interface {
	Flash(target any)
}

// NopOverlay discards everything. Headless hosts use it.
type NopOverlay struct{}

func (NopOverlay) Show([]Candidate, int, Point) {}
func (NopOverlay) Select(int)                   {}
func (NopOverlay) Hide()                        {}
func (NopOverlay) Viewport() Size               { return Size{W: 1 << 16, H: 1 << 16} }
