package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/TrishulMallur/EchoKey/internal/engine"
)

// keyMap holds the playground's own bindings. Everything else goes to the
// expansion session first.
type keyMap struct {
	Quit   key.Binding
	Switch key.Binding
	Toggle key.Binding
	Undo   key.Binding
	Clear  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Switch: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next pane"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "toggle expansion"),
		),
		Undo: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "undo (rich pane)"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear pane"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Toggle, k.Undo, k.Clear, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keyCodes = map[tea.KeyType]engine.KeyEvent{
	tea.KeySpace:     {Code: engine.CodeSpace, Key: " "},
	tea.KeyTab:       {Code: engine.CodeTab, Key: engine.CodeTab},
	tea.KeyEnter:     {Code: engine.CodeEnter, Key: engine.CodeEnter},
	tea.KeyBackspace: {Code: engine.CodeBackspace, Key: engine.CodeBackspace},
	tea.KeyDelete:    {Code: engine.CodeDelete, Key: engine.CodeDelete},
	tea.KeyEsc:       {Code: engine.CodeEscape, Key: engine.CodeEscape},
	tea.KeyUp:        {Code: engine.CodeArrowUp, Key: engine.CodeArrowUp},
	tea.KeyDown:      {Code: engine.CodeArrowDown, Key: engine.CodeArrowDown},
	tea.KeyLeft:      {Code: engine.CodeArrowLeft, Key: engine.CodeArrowLeft},
	tea.KeyRight:     {Code: engine.CodeArrowRight, Key: engine.CodeArrowRight},
	tea.KeyHome:      {Code: engine.CodeHome, Key: engine.CodeHome},
	tea.KeyEnd:       {Code: engine.CodeEnd, Key: engine.CodeEnd},
	tea.KeyPgUp:      {Code: engine.CodePageUp, Key: engine.CodePageUp},
	tea.KeyPgDown:    {Code: engine.CodePageDown, Key: engine.CodePageDown},
}

// keyEvents translates a terminal key into the events a browser would have
// delivered. A paste arrives as one message and becomes one event per rune.
func keyEvents(msg tea.KeyMsg) []engine.KeyEvent {
	if msg.Type == tea.KeyRunes {
		evs := make([]engine.KeyEvent, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			ev := engine.RuneKey(r)
			ev.Alt = msg.Alt
			evs = append(evs, ev)
		}
		return evs
	}
	if ev, ok := keyCodes[msg.Type]; ok {
		ev.Alt = msg.Alt
		return []engine.KeyEvent{ev}
	}
	// Control combinations and keys without a browser code.
	name := msg.String()
	return []engine.KeyEvent{{
		Code: name,
		Key:  name,
		Ctrl: strings.HasPrefix(name, "ctrl+"),
		Alt:  msg.Alt,
	}}
}
