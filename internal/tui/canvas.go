package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// canvas is a grid of cells drawn plain and styled on render. Later draws
// overwrite earlier ones, which is how the suggestion list floats over the
// panes. Every rune is assumed to take one cell.
type canvas struct {
	w, h    int
	cells   [][]rune
	styles  [][]styleID
	palette *palette
}

func newCanvas(w, h int, p *palette) *canvas {
	c := &canvas{w: max(w, 0), h: max(h, 0), palette: p}
	c.cells = make([][]rune, c.h)
	c.styles = make([][]styleID, c.h)
	for y := range c.h {
		c.cells[y] = []rune(strings.Repeat(" ", c.w))
		c.styles[y] = make([]styleID, c.w)
	}
	return c
}

func (c *canvas) set(x, y int, r rune, st styleID) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	if r == '\t' || r == '\n' {
		r = ' '
	}
	c.cells[y][x] = r
	c.styles[y][x] = st
}

// text draws s from (x, y) and returns the column after it.
func (c *canvas) text(x, y int, s string, st styleID) int {
	for _, r := range s {
		c.set(x, y, r, st)
		x++
	}
	return x
}

// style restyles a cell without changing its rune.
func (c *canvas) style(x, y int, st styleID) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.styles[y][x] = st
}

// fill paints a rectangle with spaces.
func (c *canvas) fill(x, y, w, h int, st styleID) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			c.set(col, row, ' ', st)
		}
	}
}

// box draws a rounded border with title set into the top edge.
func (c *canvas) box(x, y, w, h int, title string, st styleID) {
	if w < 2 || h < 2 {
		return
	}
	b := lipgloss.RoundedBorder()
	top := []rune(b.Top)[0]
	side := []rune(b.Left)[0]

	c.set(x, y, []rune(b.TopLeft)[0], st)
	c.set(x+w-1, y, []rune(b.TopRight)[0], st)
	c.set(x, y+h-1, []rune(b.BottomLeft)[0], st)
	c.set(x+w-1, y+h-1, []rune(b.BottomRight)[0], st)
	for col := x + 1; col < x+w-1; col++ {
		c.set(col, y, top, st)
		c.set(col, y+h-1, []rune(b.Bottom)[0], st)
	}
	for row := y + 1; row < y+h-1; row++ {
		c.set(x, row, side, st)
		c.set(x+w-1, row, []rune(b.Right)[0], st)
	}
	if title != "" && w > 4 {
		t := []rune(" " + title + " ")
		if len(t) > w-4 {
			t = t[:w-4]
		}
		c.text(x+2, y, string(t), st)
	}
}

// render joins the rows, styling each run of cells that share a style.
func (c *canvas) render() string {
	var out strings.Builder
	for y := range c.h {
		if y > 0 {
			out.WriteByte('\n')
		}
		start := 0
		for x := 1; x <= c.w; x++ {
			if x < c.w && c.styles[y][x] == c.styles[y][start] {
				continue
			}
			out.WriteString(c.palette.style(c.styles[y][start]).Render(string(c.cells[y][start:x])))
			start = x
		}
	}
	return out.String()
}

// plain returns the canvas text without styles.
func (c *canvas) plain() string {
	rows := make([]string, c.h)
	for y := range c.h {
		rows[y] = string(c.cells[y])
	}
	return strings.Join(rows, "\n")
}
