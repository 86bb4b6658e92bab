package surface

import (
	"errors"
	"slices"

	"github.com/TrishulMallur/EchoKey/internal/engine"
)

// errNoRange is returned by selection edits while the region has no range.
var errNoRange = errors.New("selection has no range")

// Region is a multi-line rich editing area with a single selection range and
// an undo history. Offsets are in runes; lines are separated by '\n'.
type Region struct {
	text       []rune
	start, end int
	hasRange   bool
	history    []snapshot
	rect       engine.Rect
	listener   func(engine.EventKind)

	// readOnlySelection makes the undo-aware path fail, as regions that do
	// not support selection modification do.
	readOnlySelection bool
}

type snapshot struct {
	text  []rune
	caret int
}

// RegionOption configures a Region.
type RegionOption func(*Region)

// WithRegionRect places the region on screen.
func WithRegionRect(r engine.Rect) RegionOption {
	return func(g *Region) { g.rect = r }
}

// WithoutSelectionEditing makes ExtendBackward fail so edits take the direct
// range path.
func WithoutSelectionEditing() RegionOption {
	return func(g *Region) { g.readOnlySelection = true }
}

// NewRegion returns a region holding text with a collapsed range at the end.
func NewRegion(text string, opts ...RegionOption) *Region {
	g := &Region{text: []rune(text), hasRange: true}
	g.start, g.end = len(g.text), len(g.text)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnEvent registers the single listener for input notifications.
func (g *Region) OnEvent(fn func(engine.EventKind)) { g.listener = fn }

func (g *Region) Dispatch(e engine.EventKind) {
	if g.listener != nil {
		g.listener(e)
	}
}

// Text returns the region content.
func (g *Region) Text() string { return string(g.text) }

// Caret returns the range end.
func (g *Region) Caret() int { return g.end }

// Blur drops the selection range, as losing focus does.
func (g *Region) Blur() { g.hasRange = false }

// Focus collapses a range at the end if the region has none.
func (g *Region) Focus() {
	if !g.hasRange {
		g.start, g.end = len(g.text), len(g.text)
		g.hasRange = true
	}
}

func (g *Region) Selection() engine.Selection { return &selection{g: g} }

func (g *Region) SetRect(r engine.Rect) { g.rect = r }

func (g *Region) ElementRect() engine.Rect { return g.rect }

// SelectionRect is the one-cell box at the range end, offset from the
// region's origin by line and column.
func (g *Region) SelectionRect() (engine.Rect, bool) {
	if !g.hasRange {
		return engine.Rect{}, false
	}
	line, col := g.lineCol(g.end)
	return engine.Rect{
		Left:   g.rect.Left + col,
		Top:    g.rect.Top + line,
		Width:  1,
		Height: 1,
	}, true
}

// LineCol returns the zero-based line and column of the caret.
func (g *Region) LineCol() (line, col int) { return g.lineCol(g.end) }

func (g *Region) lineCol(offset int) (line, col int) {
	for _, r := range g.text[:offset] {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		col++
	}
	return line, col
}

// Undo restores the content before the last undo-aware edit. It reports
// false when there is nothing to undo.
func (g *Region) Undo() bool {
	if len(g.history) == 0 {
		return false
	}
	last := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]
	g.text = last.text
	g.start, g.end = last.caret, last.caret
	g.hasRange = true
	g.Dispatch(engine.EventInput)
	return true
}

func (g *Region) record() {
	g.history = append(g.history, snapshot{text: slices.Clone(g.text), caret: g.end})
}

// ApplyKey performs the default action of a key the engine passed through.
func (g *Region) ApplyKey(ev engine.KeyEvent) {
	g.Focus()
	switch ev.Code {
	case engine.CodeBackspace:
		if g.start != g.end {
			g.replace("")
			return
		}
		if g.end > 0 {
			g.start = g.end - 1
			g.replace("")
		}
		return
	case engine.CodeDelete:
		if g.end < len(g.text) {
			g.end++
			g.replace("")
		}
		return
	case engine.CodeArrowLeft:
		g.collapse(max(0, g.end-1))
		return
	case engine.CodeArrowRight:
		g.collapse(min(len(g.text), g.end+1))
		return
	case engine.CodeArrowUp:
		g.collapse(g.verticalMove(-1))
		return
	case engine.CodeArrowDown:
		g.collapse(g.verticalMove(1))
		return
	case engine.CodeHome:
		g.collapse(g.lineStart(g.end))
		return
	case engine.CodeEnd:
		g.collapse(g.lineEnd(g.end))
		return
	case engine.CodePageUp:
		g.collapse(0)
		return
	case engine.CodePageDown:
		g.collapse(len(g.text))
		return
	case engine.CodeEnter:
		g.replace("\n")
		return
	case engine.CodeTab:
		// Focus traversal belongs to the host.
		return
	}
	if r, ok := printable(ev); ok {
		g.replace(string(r))
	}
}

// replace swaps the range for s through the undo history.
func (g *Region) replace(s string) {
	g.record()
	t := []rune(s)
	g.text = slices.Concat(g.text[:g.start], t, g.text[g.end:])
	g.start += len(t)
	g.end = g.start
	g.Dispatch(engine.EventInput)
}

func (g *Region) collapse(offset int) { g.start, g.end = offset, offset }

func (g *Region) lineStart(offset int) int {
	for i := offset; i > 0; i-- {
		if g.text[i-1] == '\n' {
			return i
		}
	}
	return 0
}

func (g *Region) lineEnd(offset int) int {
	for i := offset; i < len(g.text); i++ {
		if g.text[i] == '\n' {
			return i
		}
	}
	return len(g.text)
}

func (g *Region) verticalMove(dir int) int {
	line, col := g.lineCol(g.end)
	target := line + dir
	if target < 0 {
		return 0
	}
	offset, cur := 0, 0
	for cur < target {
		next := g.lineEnd(offset)
		if next == len(g.text) {
			return len(g.text)
		}
		offset = next + 1
		cur++
	}
	return min(offset+col, g.lineEnd(offset))
}

type selection struct{ g *Region }

func (s *selection) RangeCount() int {
	if s.g.hasRange {
		return 1
	}
	return 0
}

func (s *selection) ExtendBackward() error {
	if s.g.readOnlySelection {
		return errors.New("selection cannot be modified")
	}
	if !s.g.hasRange {
		return errNoRange
	}
	if s.g.start > 0 {
		s.g.start--
	}
	return nil
}

func (s *selection) InsertText(text string) error {
	if !s.g.hasRange {
		return errNoRange
	}
	s.g.replace(text)
	return nil
}

func (s *selection) Range() engine.Range {
	return &textRange{g: s.g, start: s.g.start, end: s.g.end}
}

func (s *selection) SetRange(r engine.Range) {
	s.g.start, s.g.end = r.Start(), r.End()
	s.g.hasRange = true
}

// textRange is a detached span; edits apply to the region immediately but
// bypass the undo history.
type textRange struct {
	g          *Region
	start, end int
}

func (r *textRange) Start() int { return r.start }
func (r *textRange) End() int   { return r.end }

func (r *textRange) SetStart(offset int) {
	r.start = max(0, min(offset, r.end))
}

func (r *textRange) DeleteContents() {
	r.g.text = slices.Delete(r.g.text, r.start, r.end)
	r.end = r.start
}

func (r *textRange) InsertText(text string) {
	t := []rune(text)
	r.g.text = slices.Insert(r.g.text, r.start, t...)
	r.end = r.start + len(t)
}

func (r *textRange) Collapse(toStart bool) {
	if toStart {
		r.end = r.start
	} else {
		r.start = r.end
	}
}
