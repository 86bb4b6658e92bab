package engine

import "errors"

var (
	// ErrCaretUnsupported is returned when a plain field cannot report its
	// caret. The expansion is abandoned for that field only.
	ErrCaretUnsupported = errors.New("caret position unsupported for this field")
	// ErrUnsupportedSurface is returned when a target is neither a value
	// surface nor a range surface.
	ErrUnsupportedSurface = errors.New("target is not an editable surface")
	// ErrNoSelection is returned when a rich region has no selection range
	// to anchor a splice on.
	ErrNoSelection = errors.New("region has no selection")
)

// EventKind is a change notification sent to the host after a splice.
type EventKind string

const (
	EventInput  EventKind = "input"
	EventChange EventKind = "change"
)

// Notifier receives the same events the surface would emit for typed input.
type Notifier interface {
	Dispatch(EventKind)
}

// ValueSurface is a plain form field whose content is one string value.
// Offsets are in runes.
type ValueSurface interface {
	Notifier
	Value() string
	// SelectionStart returns the caret offset. Field kinds without a caret
	// return an error.
	SelectionStart() (int, error)
	// SetNativeValue assigns the value through the field's own setter,
	// skipping any interception the host installed on the public one.
	SetNativeValue(string)
	SetSelectionRange(start, end int)
}

// RangeSurface is a rich editable region edited through its live selection.
type RangeSurface interface {
	Notifier
	Selection() Selection
}

// Selection is the live selection of a rich region.
type Selection interface {
	RangeCount() int
	// ExtendBackward moves the focus one character back, growing the
	// selection.
	ExtendBackward() error
	// InsertText replaces the selection with text through the undo-aware
	// editing path.
	InsertText(text string) error
	// Range returns the current first range. Call it again after a failed
	// edit; an earlier Range may no longer be valid.
	Range() Range
	// SetRange replaces every range with r.
	SetRange(r Range)
}

// Range is a span of a rich region. Offsets are in runes.
type Range interface {
	Start() int
	End() int
	SetStart(offset int)
	DeleteContents()
	InsertText(text string)
	Collapse(toStart bool)
}

// Editable reports whether target can be spliced.
func Editable(target any) bool {
	switch target.(type) {
	case RangeSurface, ValueSurface:
		return true
	}
	return false
}
