package editor

import (
	"strings"

	"github.com/TrishulMallur/EchoKey/internal/engine"
	"github.com/TrishulMallur/EchoKey/internal/surface"
)

// Kind is the surface a pane holds.
type Kind int

const (
	KindField Kind = iota
	KindRegion
)

func (k Kind) String() string {
	if k == KindRegion {
		return "rich"
	}
	return "plain"
}

// Pane is one bordered input on screen.
type Pane struct {
	title  string
	kind   Kind
	field  *surface.Field
	region *surface.Region

	box     engine.Rect
	scrollX int
	scrollY int
}

// NewFieldPane returns a pane holding an empty single-line field.
func NewFieldPane(title string) *Pane {
	p := &Pane{title: title, kind: KindField, field: surface.NewField("")}
	p.field.OnEvent(p.onEdit)
	return p
}

// NewRegionPane returns a pane holding an empty multi-line region. The
// region starts blurred.
func NewRegionPane(title string) *Pane {
	p := &Pane{title: title, kind: KindRegion, region: surface.NewRegion("")}
	p.region.Blur()
	p.region.OnEvent(p.onEdit)
	return p
}

// onEdit follows the surface's edit notifications, including the ones an
// expansion sends, so the pane scrolls without being told.
func (p *Pane) onEdit(e engine.EventKind) {
	if e == engine.EventInput {
		p.Sync()
	}
}

func (p *Pane) Title() string    { return p.title }
func (p *Pane) Kind() Kind       { return p.kind }
func (p *Pane) Box() engine.Rect { return p.box }

// Target is the surface keys are delivered to.
func (p *Pane) Target() surface.Editor {
	if p.kind == KindRegion {
		return p.region
	}
	return p.field
}

// Value returns the pane's text.
func (p *Pane) Value() string {
	if p.kind == KindRegion {
		return p.region.Text()
	}
	return p.field.Value()
}

// Focus gives the pane the caret.
func (p *Pane) Focus() {
	if p.region != nil {
		p.region.Focus()
	}
	p.Sync()
}

// Blur takes the caret away.
func (p *Pane) Blur() {
	if p.region != nil {
		p.region.Blur()
	}
}

// Undo reverts the last edit of a region pane.
func (p *Pane) Undo() bool {
	if p.region == nil {
		return false
	}
	return p.region.Undo()
}

// Contains reports whether pt is inside the pane's outer box.
func (p *Pane) Contains(pt engine.Point) bool {
	return pt.X >= p.box.Left && pt.X < p.box.Left+p.box.Width &&
		pt.Y >= p.box.Top && pt.Y < p.box.Bottom()
}

// Layout places the pane's outer box, border included.
func (p *Pane) Layout(box engine.Rect) {
	p.box = box
	p.Sync()
}

// content is the box inside the border.
func (p *Pane) content() engine.Rect {
	return engine.Rect{
		Left:   p.box.Left + 1,
		Top:    p.box.Top + 1,
		Width:  max(p.box.Width-2, 1),
		Height: max(p.box.Height-2, 1),
	}
}

// Sync scrolls so the caret is visible and re-places the surface. Edits
// call it through the surface's notifications; caret moves send none, so
// hosts call it after navigation keys.
func (p *Pane) Sync() {
	c := p.content()
	if p.kind == KindField {
		p.scrollX = scrollTo(p.scrollX, p.field.Caret(), c.Width)
		p.scrollY = 0
		p.field.SetRect(c)
		return
	}

	line, col := p.region.LineCol()
	p.scrollY = scrollTo(p.scrollY, line, c.Height)
	p.scrollX = scrollTo(p.scrollX, col, c.Width)
	p.region.SetRect(engine.Rect{
		Left:   c.Left - p.scrollX,
		Top:    c.Top - p.scrollY,
		Width:  c.Width,
		Height: c.Height,
	})
}

// scrollTo returns the smallest change to offset that keeps pos inside a
// window of size cells.
func scrollTo(offset, pos, size int) int {
	switch {
	case pos < offset:
		return pos
	case pos >= offset+size:
		return pos - size + 1
	}
	return offset
}

// Lines returns the visible content rows, each cut to the content width, and
// the caret cell relative to the content box.
func (p *Pane) Lines() ([]string, engine.Point) {
	c := p.content()
	if p.kind == KindField {
		return []string{window(p.field.Value(), p.scrollX, c.Width)},
			engine.Point{X: p.field.Caret() - p.scrollX}
	}

	all := strings.Split(p.region.Text(), "\n")
	end := min(p.scrollY+c.Height, len(all))
	rows := make([]string, 0, c.Height)
	for _, l := range all[min(p.scrollY, len(all)):end] {
		rows = append(rows, window(l, p.scrollX, c.Width))
	}
	line, col := p.region.LineCol()
	return rows, engine.Point{X: col - p.scrollX, Y: line - p.scrollY}
}

// window returns width runes of s starting at rune offset from.
func window(s string, from, width int) string {
	r := []rune(s)
	if from >= len(r) {
		return ""
	}
	r = r[from:]
	if len(r) > width {
		r = r[:width]
	}
	return string(r)
}
