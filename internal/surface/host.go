package surface

import (
	"unicode/utf8"

	"github.com/TrishulMallur/EchoKey/internal/engine"
)

// Editor is a surface that can perform the default action of a key.
type Editor interface {
	ApplyKey(ev engine.KeyEvent)
}

// Deliver hands ev to the session and applies the key's default action
// unless the session intercepted it. It returns the session's verdict.
func Deliver(s *engine.Session, target Editor, ev engine.KeyEvent) engine.Verdict {
	v := s.HandleKey(target, ev)
	if v == engine.Pass {
		target.ApplyKey(ev)
	}
	return v
}

// Type delivers text one rune at a time, as if typed.
func Type(s *engine.Session, target Editor, text string) {
	for _, r := range text {
		Deliver(s, target, engine.RuneKey(r))
	}
}

// printable returns the rune a key inserts, if it inserts exactly one.
func printable(ev engine.KeyEvent) (rune, bool) {
	if ev.Ctrl || ev.Meta || ev.Alt || utf8.RuneCountInString(ev.Key) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(ev.Key)
	return r, true
}
