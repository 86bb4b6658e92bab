package engine

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// fakeField is a plain input: one string value and a caret.
type fakeField struct {
	value    []rune
	caret    int
	caretErr error
	events   []EventKind
	setter   int
	rect     Rect
	offset   Point
}

func newField(value string) *fakeField {
	v := []rune(value)
	return &fakeField{value: v, caret: len(v), rect: Rect{Left: 100, Top: 100, Width: 300, Height: 24}}
}

func (f *fakeField) Dispatch(e EventKind)         { f.events = append(f.events, e) }
func (f *fakeField) Value() string                { return string(f.value) }
func (f *fakeField) SelectionStart() (int, error) { return f.caret, f.caretErr }
func (f *fakeField) SetNativeValue(v string)      { f.value = []rune(v); f.setter++ }
func (f *fakeField) SetSelectionRange(_, end int) { f.caret = end }
func (f *fakeField) ElementRect() Rect            { return f.rect }
func (f *fakeField) CaretOffset() (Point, error)  { return f.offset, nil }
func (f *fakeField) LineHeight() int              { return 16 }

// insert is what the host does with a key the engine passed through.
func (f *fakeField) insert(r rune) {
	switch r {
	case '\t', '\n':
		// Tab and Enter do not change a single-line value in these tests.
		return
	}
	f.value = slices.Insert(f.value, f.caret, r)
	f.caret++
}

// fakeRegion is a rich region with a single selection range.
type fakeRegion struct {
	text       []rune
	start, end int
	failExtend bool
	failInsert bool
	noRange    bool
	undo       []string
	events     []EventKind
	rect       Rect
	selRect    *Rect
}

func newRegion(text string) *fakeRegion {
	t := []rune(text)
	return &fakeRegion{text: t, start: len(t), end: len(t), rect: Rect{Left: 50, Top: 50, Width: 400, Height: 100}}
}

func (r *fakeRegion) Dispatch(e EventKind) { r.events = append(r.events, e) }
func (r *fakeRegion) Selection() Selection { return &fakeSelection{r: r} }
func (r *fakeRegion) ElementRect() Rect    { return r.rect }
func (r *fakeRegion) String() string       { return string(r.text) }
func (r *fakeRegion) SelectionRect() (Rect, bool) {
	if r.selRect == nil {
		return Rect{}, false
	}
	return *r.selRect, true
}

func (r *fakeRegion) insert(c rune) {
	if c == '\t' || c == '\n' {
		return
	}
	r.text = slices.Insert(r.text, r.end, c)
	r.end++
	r.start = r.end
}

type fakeSelection struct{ r *fakeRegion }

func (s *fakeSelection) RangeCount() int {
	if s.r.noRange {
		return 0
	}
	return 1
}

func (s *fakeSelection) ExtendBackward() error {
	if s.r.failExtend {
		return errors.New("modify unsupported")
	}
	if s.r.start > 0 {
		s.r.start--
	}
	return nil
}

func (s *fakeSelection) InsertText(text string) error {
	if s.r.failInsert {
		return errors.New("insertText rejected")
	}
	s.r.undo = append(s.r.undo, string(s.r.text))
	t := []rune(text)
	s.r.text = slices.Concat(s.r.text[:s.r.start], t, s.r.text[s.r.end:])
	s.r.start += len(t)
	s.r.end = s.r.start
	return nil
}

func (s *fakeSelection) Range() Range {
	return &fakeRange{r: s.r, start: s.r.start, end: s.r.end}
}

func (s *fakeSelection) SetRange(rg Range) {
	fr := rg.(*fakeRange)
	s.r.start, s.r.end = fr.start, fr.end
}

type fakeRange struct {
	r          *fakeRegion
	start, end int
}

func (g *fakeRange) Start() int          { return g.start }
func (g *fakeRange) End() int            { return g.end }
func (g *fakeRange) SetStart(offset int) { g.start = offset }

func (g *fakeRange) DeleteContents() {
	g.r.text = slices.Delete(g.r.text, g.start, g.end)
	g.end = g.start
}

func (g *fakeRange) InsertText(text string) {
	t := []rune(text)
	g.r.text = slices.Insert(g.r.text, g.start, t...)
	g.end = g.start + len(t)
}

func (g *fakeRange) Collapse(toStart bool) {
	if toStart {
		g.end = g.start
	} else {
		g.start = g.end
	}
}

// fakeOverlay records what the session asked it to show.
type fakeOverlay struct {
	shows    int
	items    []Candidate
	selected int
	at       Point
	visible  bool
	hides    int
	viewport Size
}

func (o *fakeOverlay) Show(items []Candidate, selected int, at Point) {
	o.shows++
	o.items = items
	o.selected = selected
	o.at = at
	o.visible = true
}
func (o *fakeOverlay) Select(i int) { o.selected = i }
func (o *fakeOverlay) Hide() {
	o.hides++
	o.visible = false
}
func (o *fakeOverlay) Viewport() Size { return o.viewport }

type fakeFlasher struct{ n int }

func (f *fakeFlasher) Flash(any) { f.n++ }

// manualScheduler holds tasks until the test fires them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	fn      func()
	delay   time.Duration
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{fn: fn, delay: d}
	m.tasks = append(m.tasks, t)
	return t
}

// Fire runs every task that has not been stopped and returns how many ran.
func (m *manualScheduler) Fire() int {
	return m.run(false)
}

// FireAll also runs stopped tasks, as a timer that lost the race with Stop
// would.
func (m *manualScheduler) FireAll() int {
	return m.run(true)
}

func (m *manualScheduler) run(includeStopped bool) int {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()

	n := 0
	for _, t := range tasks {
		if t.fired || (t.stopped && !includeStopped) {
			continue
		}
		t.fired = true
		t.fn()
		n++
	}
	return n
}

func (m *manualScheduler) live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
