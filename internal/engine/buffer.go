package engine

// DefaultMaxBuffer is the keystroke buffer cap before the mapping is known.
const DefaultMaxBuffer = 20

// BufferMargin is added to the longest trigger when sizing the buffer.
const BufferMargin = 4

// Buffer is the trailing window of recently typed characters. It holds runes
// so the cap and every trim are counted in characters.
type Buffer struct {
	runes []rune
	cap   int
}

// NewBuffer returns an empty buffer holding at most capacity runes.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultMaxBuffer
	}
	return &Buffer{cap: capacity}
}

// Append adds r, dropping the oldest runes past the cap.
func (b *Buffer) Append(r rune) {
	b.runes = append(b.runes, r)
	b.trim()
}

// Backspace removes one trailing rune. No-op when empty.
func (b *Buffer) Backspace() {
	if len(b.runes) > 0 {
		b.runes = b.runes[:len(b.runes)-1]
	}
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.runes = b.runes[:0]
}

// SetCap changes the cap, trimming from the front if needed.
func (b *Buffer) SetCap(capacity int) {
	if capacity < 1 {
		return
	}
	b.cap = capacity
	b.trim()
}

func (b *Buffer) trim() {
	if over := len(b.runes) - b.cap; over > 0 {
		b.runes = append(b.runes[:0], b.runes[over:]...)
	}
}

// Cap returns the maximum length in runes.
func (b *Buffer) Cap() int { return b.cap }

// Len returns the current length in runes.
func (b *Buffer) Len() int { return len(b.runes) }

func (b *Buffer) String() string { return string(b.runes) }
