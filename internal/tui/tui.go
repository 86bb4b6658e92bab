package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/TrishulMallur/EchoKey/internal/admin"
	"github.com/TrishulMallur/EchoKey/internal/engine"
	"github.com/TrishulMallur/EchoKey/internal/metrics"
	"github.com/TrishulMallur/EchoKey/internal/snippets"
	"github.com/TrishulMallur/EchoKey/internal/storage"
	"github.com/TrishulMallur/EchoKey/internal/tui/components/completions"
	"github.com/TrishulMallur/EchoKey/internal/tui/components/editor"
)

// flashDuration is how long a pane border stays lit after an expansion.
const flashDuration = 300 * time.Millisecond

const (
	headerRows = 2
	fieldRows  = 3
	minWidth   = 20
)

// Options configures the playground.
type Options struct {
	Store   storage.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	Prefix         string
	MaxBuffer      int
	MaxSuggestions int
	Debounce       time.Duration
	FlushInterval  time.Duration
}

type flashDoneMsg struct{}

type model struct {
	session  *engine.Session
	svc      *admin.Service
	overlay  *completions.Overlay
	sched    *loopScheduler
	panes    []*editor.Pane
	focus    int
	keys     keyMap
	help     help.Model
	palette  *palette
	prefix   string
	status   string
	flashing any
	flashAt  time.Time

	width, height int
}

func newModel(opts Options, sched *loopScheduler) *model {
	maxSuggestions := opts.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = engine.DefaultMaxSuggestions
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = snippets.DefaultPrefix
	}
	m := &model{
		svc:     admin.NewService(opts.Store, admin.WithPrefix(prefix)),
		overlay: completions.New(engine.Size{W: 80, H: 24}),
		sched:   sched,
		panes: []*editor.Pane{
			editor.NewFieldPane("Plain field"),
			editor.NewRegionPane("Rich region"),
		},
		keys:    defaultKeyMap(),
		help:    help.New(),
		palette: defaultPalette(),
		prefix:  prefix,
		width:   80,
		height:  24,
	}
	geometry := completions.Geometry(maxSuggestions)
	m.session = engine.NewSession(engine.Options{
		Store:          opts.Store,
		Registry:       snippets.NewRegistry(opts.Store),
		Overlay:        m.overlay,
		Flasher:        m,
		Scheduler:      sched,
		Metrics:        opts.Metrics,
		Logger:         opts.Logger,
		Prefix:         prefix,
		MaxBuffer:      opts.MaxBuffer,
		MaxSuggestions: maxSuggestions,
		Debounce:       opts.Debounce,
		FlushInterval:  opts.FlushInterval,
		Geometry:       &geometry,
	})
	m.layout()
	m.panes[m.focus].Focus()
	return m
}

// Run starts a session on the store and runs the playground until the user
// quits or ctx is cancelled. The session is disposed on the way out.
func Run(ctx context.Context, opts Options) error {
	sched := &loopScheduler{}
	m := newModel(opts, sched)
	if err := m.session.Init(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer func() {
		if err := m.session.Dispose(context.WithoutCancel(ctx)); err != nil {
			slog.Error("Failed to dispose session", "error", err)
		}
	}()

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	sched.attach(p.Send)
	defer sched.attach(nil)

	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("run playground: %w", err)
	}
	return nil
}

// Flash lights the border of the pane holding target. The session calls it
// with its lock held, from Update.
func (m *model) Flash(target any) {
	m.flashing = target
	m.flashAt = time.Now()
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil
	case runMsg:
		msg.fn()
		return m, m.flashCmd()
	case flashDoneMsg:
		if time.Since(m.flashAt) >= flashDuration {
			m.flashing = nil
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	pane := m.panes[m.focus]
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Switch):
		m.focusPane((m.focus + 1) % len(m.panes))
		return nil
	case key.Matches(msg, m.keys.Toggle):
		m.toggle()
		return nil
	case key.Matches(msg, m.keys.Undo):
		m.session.FocusChanged()
		if !pane.Undo() {
			m.status = "Nothing to undo"
		}
		return nil
	case key.Matches(msg, m.keys.Clear):
		m.session.FocusChanged()
		m.panes[m.focus] = m.freshPane(pane)
		return nil
	}

	m.status = ""
	for _, ev := range keyEvents(msg) {
		if m.session.HandleKey(pane.Target(), ev) == engine.Pass {
			pane.Target().ApplyKey(ev)
			// Caret moves send no edit notification.
			pane.Sync()
		}
	}
	return m.flashCmd()
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	at := engine.Point{X: msg.X, Y: msg.Y}
	idx, onList := m.overlay.HitTest(at)

	switch {
	case msg.Action == tea.MouseActionMotion:
		if onList {
			m.session.Hover(idx)
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if onList {
			m.session.Accept(m.panes[m.focus].Target(), idx)
			return m.flashCmd()
		}
		m.session.Clicked()
		for i, p := range m.panes {
			if i != m.focus && p.Contains(at) {
				m.focusPane(i)
				break
			}
		}
	}
	return nil
}

func (m *model) focusPane(i int) {
	m.session.FocusChanged()
	m.panes[m.focus].Blur()
	m.focus = i
	m.panes[m.focus].Focus()
}

// freshPane replaces p with an empty pane of the same kind.
func (m *model) freshPane(p *editor.Pane) *editor.Pane {
	var np *editor.Pane
	if p.Kind() == editor.KindRegion {
		np = editor.NewRegionPane(p.Title())
	} else {
		np = editor.NewFieldPane(p.Title())
	}
	np.Layout(p.Box())
	np.Focus()
	return np
}

// toggle flips the kill switch through the store, the way an administrator
// would; the session hears about it from its store subscription.
func (m *model) toggle() {
	on := !m.session.Enabled()
	if err := m.svc.SetEnabled(context.Background(), on); err != nil {
		slog.Error("Failed to toggle expansion", "error", err)
		m.status = "Toggle failed: " + err.Error()
		return
	}
	m.status = ""
}

func (m *model) flashCmd() tea.Cmd {
	if m.flashing == nil || time.Since(m.flashAt) >= flashDuration {
		return nil
	}
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashDoneMsg{} })
}

// layout stacks the panes under the header and sizes the overlay's
// viewport to the drawing area.
func (m *model) layout() {
	w := max(m.width, minWidth)
	area := max(m.height-1, headerRows+fieldRows+3)
	m.overlay.SetViewport(engine.Size{W: w, H: area})

	m.panes[0].Layout(engine.Rect{Left: 0, Top: headerRows, Width: w, Height: fieldRows})
	top := headerRows + fieldRows + 1
	m.panes[1].Layout(engine.Rect{Left: 0, Top: top, Width: w, Height: area - top})
}

func (m *model) View() string {
	w := max(m.width, minWidth)
	c := newCanvas(w, max(m.height-1, 1), m.palette)

	m.drawHeader(c)
	for i, p := range m.panes {
		m.drawPane(c, p, i == m.focus)
	}
	m.drawList(c)

	return c.render() + "\n" + m.help.View(m.keys)
}

func (m *model) drawHeader(c *canvas) {
	x := c.text(0, 0, "EchoKey playground", stTitle)
	if m.session.Enabled() {
		x = c.text(x, 0, "  expansion on", stStatus)
	} else {
		x = c.text(x, 0, "  expansion OFF", stWarn)
	}
	x = c.text(x, 0, fmt.Sprintf("  %d snippets  %s", m.session.Mapping().Len(), m.session.State()), stStatus)
	if buf := m.session.Buffer(); buf != "" {
		c.text(x, 0, fmt.Sprintf("  buffer %q", buf), stStatus)
	}
	if m.status != "" {
		c.text(0, 1, m.status, stWarn)
	}
}

func (m *model) drawPane(c *canvas, p *editor.Pane, focused bool) {
	box := p.Box()
	border := stBorder
	switch {
	case m.flashing != nil && m.flashing == any(p.Target()) && time.Since(m.flashAt) < flashDuration:
		border = stBorderFlash
	case focused:
		border = stBorderFocus
	}
	c.box(box.Left, box.Top, box.Width, box.Height, p.Title(), border)

	rows, caret := p.Lines()
	for i, row := range rows {
		c.text(box.Left+1, box.Top+1+i, row, stNormal)
	}
	if focused {
		c.style(box.Left+1+caret.X, box.Top+1+caret.Y, stCaret)
	}
}

func (m *model) drawList(c *canvas) {
	query, _ := engine.Query(m.session.Buffer(), m.prefix)
	items := m.overlay.Items(query)
	if len(items) == 0 {
		return
	}
	b := m.overlay.Bounds()
	c.fill(b.Left, b.Top, b.Width, b.Height, stList)
	c.box(b.Left, b.Top, b.Width, b.Height, "", stListBorder)

	for i, it := range items {
		y := b.Top + 1 + i
		base, match := stList, stMatch
		if it.Selected {
			base, match = stSelected, stSelectedMatch
		}
		c.fill(b.Left+1, y, b.Width-2, 1, base)
		c.text(b.Left+1, y, it.Text, base)
		for _, off := range it.Matched {
			c.style(b.Left+1+off, y, match)
		}
	}
	c.text(b.Left+2, b.Top+1+len(items), engine.HintLine, stHint)
}
