package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// Splice replaces the n characters before the caret with text, leaves the
// caret after the inserted text and notifies the host. The strategy is picked
// from the target's capabilities: a RangeSurface is edited through its live
// selection, a ValueSurface through its native value setter.
func Splice(target any, n int, text string) error {
	switch t := target.(type) {
	case RangeSurface:
		return spliceRange(t, n, text)
	case ValueSurface:
		return spliceValue(t, n, text)
	}
	return ErrUnsupportedSurface
}

func spliceValue(t ValueSurface, n int, text string) error {
	pos, err := t.SelectionStart()
	if err != nil {
		if !errors.Is(err, ErrCaretUnsupported) {
			err = fmt.Errorf("%w: %w", ErrCaretUnsupported, err)
		}
		return err
	}

	value := []rune(t.Value())
	pos = max(0, min(pos, len(value)))
	start := max(0, pos-n)

	before := string(value[:start])
	after := string(value[pos:])
	t.SetNativeValue(before + text + after)

	caret := start + utf8.RuneCountInString(text)
	t.SetSelectionRange(caret, caret)

	t.Dispatch(EventInput)
	t.Dispatch(EventChange)
	return nil
}

func spliceRange(t RangeSurface, n int, text string) error {
	sel := t.Selection()
	if sel == nil || sel.RangeCount() == 0 {
		return ErrNoSelection
	}
	original := sel.Range()

	if err := extendAndInsert(sel, n, text); err != nil {
		slog.Warn("Rich splice failed, editing range directly", "error", err)

		r := original
		if sel.RangeCount() > 0 {
			r = sel.Range()
		}
		// Anchor on the end: a partial extend has already moved the start.
		r.SetStart(max(0, r.End()-n))
		r.DeleteContents()
		r.InsertText(text)
		r.Collapse(false)
		sel.SetRange(r)
	}

	t.Dispatch(EventInput)
	return nil
}

func extendAndInsert(sel Selection, n int, text string) error {
	for range n {
		if err := sel.ExtendBackward(); err != nil {
			return fmt.Errorf("extend selection: %w", err)
		}
	}
	if err := sel.InsertText(text); err != nil {
		return fmt.Errorf("insert text: %w", err)
	}
	return nil
}
