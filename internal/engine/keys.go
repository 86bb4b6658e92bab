package engine

import "unicode/utf8"

// Key codes the engine reacts to. They follow the DOM KeyboardEvent.code
// names so hosts that already speak that vocabulary can pass codes through.
const (
	CodeSpace      = "Space"
	CodeTab        = "Tab"
	CodeEnter      = "Enter"
	CodeBackspace  = "Backspace"
	CodeDelete     = "Delete"
	CodeEscape     = "Escape"
	CodeArrowUp    = "ArrowUp"
	CodeArrowDown  = "ArrowDown"
	CodeArrowLeft  = "ArrowLeft"
	CodeArrowRight = "ArrowRight"
	CodeHome       = "Home"
	CodeEnd        = "End"
	CodePageUp     = "PageUp"
	CodePageDown   = "PageDown"
)

// KeyEvent is one keydown delivered by the host.
type KeyEvent struct {
	// Code identifies the physical key ("Space", "ArrowUp", "KeyA").
	Code string
	// Key is the produced value: a single character for printable keys,
	// otherwise a key name.
	Key string

	Ctrl bool
	Meta bool
	Alt  bool
}

// KeyKind is how the keystroke buffer treats a key.
type KeyKind int

const (
	// KeyIgnored leaves the buffer untouched.
	KeyIgnored KeyKind = iota
	// KeyCharacter appends Key to the buffer.
	KeyCharacter
	// KeyTrigger attempts an expansion and then clears the buffer.
	KeyTrigger
	// KeyReset clears the buffer without attempting an expansion.
	KeyReset
	// KeyBackspace removes one trailing character.
	KeyBackspace
)

func (k KeyKind) String() string {
	switch k {
	case KeyCharacter:
		return "character"
	case KeyTrigger:
		return "trigger"
	case KeyReset:
		return "reset"
	case KeyBackspace:
		return "backspace"
	}
	return "ignored"
}

var triggerCodes = map[string]bool{
	CodeSpace: true,
	CodeTab:   true,
	CodeEnter: true,
}

var resetCodes = map[string]bool{
	CodeArrowUp:    true,
	CodeArrowDown:  true,
	CodeArrowLeft:  true,
	CodeArrowRight: true,
	CodeHome:       true,
	CodeEnd:        true,
	CodePageUp:     true,
	CodePageDown:   true,
	CodeEscape:     true,
	CodeDelete:     true,
}

// Classify maps a key event to its buffer effect. Trigger, reset and
// backspace codes are checked first; after those, any Ctrl, Meta or Alt combo
// is ignored, and a key producing exactly one character is a character.
func Classify(ev KeyEvent) KeyKind {
	switch {
	case triggerCodes[ev.Code]:
		return KeyTrigger
	case resetCodes[ev.Code]:
		return KeyReset
	case ev.Code == CodeBackspace:
		return KeyBackspace
	case ev.Ctrl || ev.Meta || ev.Alt:
		return KeyIgnored
	case utf8.RuneCountInString(ev.Key) == 1:
		return KeyCharacter
	}
	return KeyIgnored
}

// RuneKey builds the event a host would deliver for typing r. Space, tab and
// newline map to their trigger codes.
func RuneKey(r rune) KeyEvent {
	switch r {
	case ' ':
		return KeyEvent{Code: CodeSpace, Key: " "}
	case '\t':
		return KeyEvent{Code: CodeTab, Key: CodeTab}
	case '\n', '\r':
		return KeyEvent{Code: CodeEnter, Key: CodeEnter}
	}
	return KeyEvent{Key: string(r)}
}
