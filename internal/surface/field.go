package surface

import (
	"slices"

	"github.com/TrishulMallur/EchoKey/internal/engine"
)

// Field is a single-line plain input: a value and a caret, both in runes.
type Field struct {
	value    []rune
	caret    int
	rect     engine.Rect
	noCaret  bool
	listener func(engine.EventKind)
}

// FieldOption configures a Field.
type FieldOption func(*Field)

// WithRect places the field on screen.
func WithRect(r engine.Rect) FieldOption {
	return func(f *Field) { f.rect = r }
}

// WithoutCaret makes SelectionStart fail, as input types without a text
// selection do.
func WithoutCaret() FieldOption {
	return func(f *Field) { f.noCaret = true }
}

// NewField returns a field holding value with the caret at the end.
func NewField(value string, opts ...FieldOption) *Field {
	f := &Field{value: []rune(value)}
	f.caret = len(f.value)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// OnEvent registers the single listener for input and change notifications.
func (f *Field) OnEvent(fn func(engine.EventKind)) { f.listener = fn }

func (f *Field) Dispatch(e engine.EventKind) {
	if f.listener != nil {
		f.listener(e)
	}
}

func (f *Field) Value() string { return string(f.value) }

func (f *Field) SelectionStart() (int, error) {
	if f.noCaret {
		return 0, engine.ErrCaretUnsupported
	}
	return f.caret, nil
}

// SetNativeValue replaces the value. The caret is clamped into the new value.
func (f *Field) SetNativeValue(v string) {
	f.value = []rune(v)
	f.caret = min(f.caret, len(f.value))
}

func (f *Field) SetSelectionRange(_, end int) {
	f.caret = max(0, min(end, len(f.value)))
}

// Caret returns the caret offset in runes.
func (f *Field) Caret() int { return f.caret }

// SetRect moves the field.
func (f *Field) SetRect(r engine.Rect) { f.rect = r }

func (f *Field) ElementRect() engine.Rect { return f.rect }

// CaretOffset is the caret position inside the content box, one cell per
// rune.
func (f *Field) CaretOffset() (engine.Point, error) {
	return engine.Point{X: f.caret}, nil
}

func (f *Field) LineHeight() int { return 1 }

// ApplyKey performs the default action of a key the engine passed through.
// Enter and Tab do nothing on a single line.
func (f *Field) ApplyKey(ev engine.KeyEvent) {
	switch ev.Code {
	case engine.CodeBackspace:
		if f.caret > 0 {
			f.value = slices.Delete(f.value, f.caret-1, f.caret)
			f.caret--
			f.Dispatch(engine.EventInput)
		}
		return
	case engine.CodeDelete:
		if f.caret < len(f.value) {
			f.value = slices.Delete(f.value, f.caret, f.caret+1)
			f.Dispatch(engine.EventInput)
		}
		return
	case engine.CodeArrowLeft:
		f.caret = max(0, f.caret-1)
		return
	case engine.CodeArrowRight:
		f.caret = min(len(f.value), f.caret+1)
		return
	case engine.CodeHome, engine.CodeArrowUp, engine.CodePageUp:
		f.caret = 0
		return
	case engine.CodeEnd, engine.CodeArrowDown, engine.CodePageDown:
		f.caret = len(f.value)
		return
	case engine.CodeTab, engine.CodeEnter:
		return
	}
	if r, ok := printable(ev); ok {
		f.value = slices.Insert(f.value, f.caret, r)
		f.caret++
		f.Dispatch(engine.EventInput)
	}
}
