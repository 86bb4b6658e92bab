package engine

// Point is a viewport coordinate.
type Point struct {
	X, Y int
}

// Size is a width and height.
type Size struct {
	W, H int
}

// Rect is an element or selection box in viewport coordinates.
type Rect struct {
	Left, Top, Width, Height int
}

func (r Rect) Bottom() int { return r.Top + r.Height }

// Empty reports a zero-area rect, as a collapsed range at the start of a
// region reports.
func (r Rect) Empty() bool { return r.Width == 0 && r.Height == 0 }

// ElementLocator reports where a surface sits in the viewport.
type ElementLocator interface {
	ElementRect() Rect
}

// SelectionLocator reports the box of a rich region's current range. ok is
// false when there is no range.
type SelectionLocator interface {
	SelectionRect() (r Rect, ok bool)
}

// FieldLocator reports the caret inside a plain field's content box,
// relative to the element's top-left corner.
type FieldLocator interface {
	CaretOffset() (Point, error)
	LineHeight() int
}

// Geometry holds the overlay placement constants.
type Geometry struct {
	Overlay Size
	// Gap separates the caret line from the overlay.
	Gap int
	// Margin is the minimum distance from the viewport's top and left edges.
	Margin int
	// RightPad is kept free at the right edge when clamping.
	RightPad int
	// FlipGap is the extra room left above the caret when flipping up.
	FlipGap int
	// Inset offsets the overlay into a rich region whose range has no box.
	Inset int
	// FieldEdge keeps the caret point this far inside a plain field's width.
	FieldEdge int
	// LineHeight is used when a field reports none.
	LineHeight int
}

// DefaultGeometry returns the standard overlay placement.
func DefaultGeometry() Geometry {
	return Geometry{
		Overlay:    Size{W: 380, H: 200},
		Gap:        2,
		Margin:     4,
		RightPad:   10,
		FlipGap:    20,
		Inset:      4,
		FieldEdge:  20,
		LineHeight: 20,
	}
}

// Place positions the overlay for a caret point. It prefers below the caret,
// flips above when the bottom would overflow, then clamps horizontally.
func (g Geometry) Place(caret Point, viewport Size) Point {
	x, y := caret.X, caret.Y

	if x+g.Overlay.W > viewport.W {
		x = viewport.W - g.Overlay.W - g.RightPad
	}
	if x < g.Margin {
		x = g.Margin
	}

	if y+g.Overlay.H > viewport.H {
		y = caret.Y - g.Overlay.H - g.FlipGap
		if y < g.Margin {
			y = g.Margin
		}
	}
	return Point{X: x, Y: y}
}

// CaretPoint derives the caret position of target, by surface kind. ok is
// false when target cannot locate itself.
func (g Geometry) CaretPoint(target any) (Point, bool) {
	el, ok := target.(ElementLocator)
	if !ok {
		return Point{}, false
	}
	box := el.ElementRect()

	if _, rich := target.(RangeSurface); rich {
		if sl, ok := target.(SelectionLocator); ok {
			if r, ok := sl.SelectionRect(); ok {
				if r.Empty() {
					return Point{X: box.Left + g.Inset, Y: box.Bottom() + g.Gap}, true
				}
				return Point{X: r.Left, Y: r.Bottom() + g.Gap}, true
			}
		}
		return Point{X: box.Left, Y: box.Bottom() + g.Gap}, true
	}

	fl, ok := target.(FieldLocator)
	if !ok {
		return Point{X: box.Left, Y: box.Bottom() + g.Gap}, true
	}
	off, err := fl.CaretOffset()
	if err != nil {
		off = Point{}
	}
	lh := fl.LineHeight()
	if lh <= 0 {
		lh = g.LineHeight
	}
	x := box.Left + min(off.X, box.Width-g.FieldEdge)
	x = max(x, box.Left)
	y := box.Top + off.Y + lh + g.Gap
	return Point{X: x, Y: y}, true
}
