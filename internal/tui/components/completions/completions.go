package completions

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/TrishulMallur/EchoKey/internal/engine"
)

// Width is the outer width of the suggestion box in cells.
const Width = 48

// chrome is the rows the box adds around its items: two borders and the
// hint line.
const chrome = 3

// Item is one row of the suggestion list, ready to draw.
//
// The row text is the trigger followed by a one-line preview of the
// expansion, cut to fit the box. Matched holds rune offsets into Text of
// the characters the typed query matched, for highlighting.
type Item struct {
	Candidate engine.Candidate
	Text      string
	Matched   []int
	Selected  bool
}

// Overlay is the suggestion list of a terminal host. It implements
// engine.Overlay by recording what the session asked for; the host draws it
// from Items and Bounds on the next render.
//
// The session calls Show, Select and Hide with its lock held, and the host
// reads the state while rendering, so every method takes the overlay's own
// lock and nothing here calls back into the session.
type Overlay struct {
	mu       sync.Mutex
	items    []engine.Candidate
	selected int
	at       engine.Point
	open     bool
	viewport engine.Size
}

// New returns a closed overlay confined to viewport.
func New(viewport engine.Size) *Overlay {
	return &Overlay{viewport: viewport, selected: -1}
}

// Geometry returns overlay placement constants in terminal cells for a list
// of at most maxItems rows.
func Geometry(maxItems int) engine.Geometry {
	return engine.Geometry{
		Overlay:    engine.Size{W: Width, H: maxItems + chrome},
		Gap:        0,
		Margin:     0,
		RightPad:   1,
		FlipGap:    1,
		Inset:      1,
		FieldEdge:  2,
		LineHeight: 1,
	}
}

func (o *Overlay) Show(items []engine.Candidate, selected int, at engine.Point) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items[:0], items...)
	o.selected = selected
	o.at = at
	o.open = true
}

func (o *Overlay) Select(index int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selected = index
}

func (o *Overlay) Hide() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = false
	o.items = nil
	o.selected = -1
}

func (o *Overlay) Viewport() engine.Size {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.viewport
}

// SetViewport updates the area the overlay is placed in, after a resize.
func (o *Overlay) SetViewport(s engine.Size) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viewport = s
}

// Open reports whether the list is showing.
func (o *Overlay) Open() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

// Bounds returns the box the list occupies. It is empty when closed.
func (o *Overlay) Bounds() engine.Rect {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		return engine.Rect{}
	}
	return engine.Rect{Left: o.at.X, Top: o.at.Y, Width: Width, Height: len(o.items) + chrome}
}

// HitTest returns the index of the item row under p.
func (o *Overlay) HitTest(p engine.Point) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open || p.X < o.at.X || p.X >= o.at.X+Width {
		return 0, false
	}
	row := p.Y - o.at.Y - 1
	if row < 0 || row >= len(o.items) {
		return 0, false
	}
	return row, true
}

// Items returns the rows to draw, highlighting where query matches each
// trigger.
func (o *Overlay) Items(query string) []Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		return nil
	}
	out := make([]Item, 0, len(o.items))
	for i, c := range o.items {
		out = append(out, Item{
			Candidate: c,
			Text:      itemText(c, Width-2),
			Matched:   matchedRunes(query, c.Trigger),
			Selected:  i == o.selected,
		})
	}
	return out
}

// itemText renders a candidate as "trigger  preview", cut to width runes.
func itemText(c engine.Candidate, width int) string {
	preview := strings.Join(strings.Fields(c.Expansion), " ")
	text := " " + c.Trigger + "  " + preview
	if utf8.RuneCountInString(text) <= width {
		return text
	}
	r := []rune(text)
	return string(r[:width-1]) + "…"
}

// matchedRunes maps fuzzy match positions in trigger to rune offsets in the
// row text, which starts with one space.
func matchedRunes(query, trigger string) []int {
	if query == "" {
		return nil
	}
	matches := fuzzy.Find(query, []string{trigger})
	if len(matches) == 0 {
		return nil
	}
	out := make([]int, 0, len(matches[0].MatchedIndexes))
	for _, b := range matches[0].MatchedIndexes {
		if b > len(trigger) {
			continue
		}
		out = append(out, 1+utf8.RuneCountInString(trigger[:b]))
	}
	return out
}
