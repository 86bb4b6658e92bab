package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/TrishulMallur/EchoKey/internal/metrics"
	"github.com/TrishulMallur/EchoKey/internal/snippets"
	"github.com/TrishulMallur/EchoKey/internal/stats"
	"github.com/TrishulMallur/EchoKey/internal/storage"
)

// Verdict tells the host what to do with the key it just delivered.
type Verdict int

const (
	// Pass lets the key through to the surface.
	Pass Verdict = iota
	// Intercept means the engine consumed the key; the host must suppress
	// its default action.
	Intercept
)

// State is the session's interaction state.
type State int

const (
	Idle State = iota
	Buffering
	SuggestionOpen
)

func (s State) String() string {
	switch s {
	case Buffering:
		return "buffering"
	case SuggestionOpen:
		return "suggestion_open"
	}
	return "idle"
}

// Options configures a Session. Store and Registry are required; everything
// else has a default.
type Options struct {
	Store    storage.Store
	Registry snippets.Registry
	// Stats defaults to a buffer on Store.
	Stats     *stats.Buffer
	Overlay   Overlay
	Flasher   Flasher
	Scheduler Scheduler
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	Prefix         string
	MaxBuffer      int
	MaxSuggestions int
	Debounce       time.Duration
	// FlushInterval is the stats flush period. Negative disables the loop.
	FlushInterval time.Duration
	Geometry      *Geometry
}

// Session is the engine for one host context. All event entry points are
// serialized by one mutex; store I/O never happens while it is held.
type Session struct {
	id       string
	log      *slog.Logger
	store    storage.Store
	registry snippets.Registry
	stats    *stats.Buffer
	overlay  Overlay
	flasher  Flasher
	metrics  *metrics.Metrics
	debounce *Debouncer
	geometry Geometry

	prefix         string
	maxBuffer      int
	maxSuggestions int
	flushInterval  time.Duration

	mu       sync.Mutex
	buf      *Buffer
	mapping  snippets.Mapping
	enabled  bool
	minChars int
	flash    bool
	items    []Candidate
	selected int
	open     bool
	started  bool
	disposed bool

	unwatch  func()
	stopLoop context.CancelFunc
	loopDone chan struct{}
}

// NewSession builds a session. Call Init before delivering events.
func NewSession(opts Options) *Session {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:             id,
		log:            logger.With("session_id", id),
		store:          opts.Store,
		registry:       opts.Registry,
		stats:          opts.Stats,
		overlay:        opts.Overlay,
		flasher:        opts.Flasher,
		metrics:        opts.Metrics,
		debounce:       NewDebouncer(opts.Scheduler, orDefault(opts.Debounce, DefaultDebounce)),
		geometry:       DefaultGeometry(),
		prefix:         opts.Prefix,
		maxBuffer:      orDefault(opts.MaxBuffer, DefaultMaxBuffer),
		maxSuggestions: orDefault(opts.MaxSuggestions, DefaultMaxSuggestions),
		flushInterval:  orDefault(opts.FlushInterval, stats.DefaultFlushInterval),
		enabled:        true,
		minChars:       DefaultMinChars,
		flash:          true,
		selected:       -1,
	}
	if opts.FlushInterval < 0 {
		s.flushInterval = -1
	}
	if s.prefix == "" {
		s.prefix = snippets.DefaultPrefix
	}
	if opts.Geometry != nil {
		s.geometry = *opts.Geometry
	}
	if s.overlay == nil {
		s.overlay = NopOverlay{}
	}
	if s.stats == nil {
		s.stats = stats.New(opts.Store, stats.WithMetrics(opts.Metrics))
	}
	s.buf = NewBuffer(s.maxBuffer)
	return s
}

// orDefault returns v, or def when v is not positive.
func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Init loads the mapping and settings, subscribes to store changes, folds in
// any pending stats from an earlier teardown and starts the flush loop.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("session already initialized")
	}
	s.started = true
	s.mu.Unlock()

	unwatch := s.store.Watch(s.onChange)
	if err := s.reload(ctx); err != nil {
		unwatch()
		return fmt.Errorf("load session: %w", err)
	}

	if err := s.stats.Recover(ctx); err != nil {
		s.log.Warn("Failed to recover pending stats", "error", err)
	}

	s.mu.Lock()
	s.unwatch = unwatch
	if s.flushInterval > 0 {
		loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		s.stopLoop, s.loopDone = cancel, done
		go func() {
			defer close(done)
			s.stats.Run(loopCtx, s.flushInterval)
		}()
	}
	enabled, n := s.enabled, s.mapping.Len()
	s.mu.Unlock()

	s.log.Info("Session started", "snippets", n, "enabled", enabled)
	return nil
}

// Dispose stops timers and the change subscription and writes any unflushed
// stats to the pending record. Safe to call more than once.
func (s *Session) Dispose(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.debounce.Cancel()
	s.hideLocked()
	s.buf.Reset()
	unwatch, stop, done := s.unwatch, s.stopLoop, s.loopDone
	s.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	if stop != nil {
		stop()
		<-done
	}
	if err := s.stats.Teardown(ctx); err != nil {
		s.log.Error("Failed to write pending stats", "error", err)
		return err
	}
	s.log.Info("Session disposed")
	return nil
}

// reload reads the mapping, the enabled flag and team settings, then swaps
// them in.
func (s *Session) reload(ctx context.Context) error {
	if err := s.registry.Reload(ctx); err != nil {
		s.log.Warn("Snippet reload failed, keeping previous mapping", "error", err)
	}
	// The registry keeps its previous mapping when a reload fails.
	mapping := s.registry.Mapping()

	raw, err := s.store.Get(ctx, storage.KeyEnabled, storage.KeyTeamSettings)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	var enabled bool
	hasEnabled, err := storage.Decode(raw, storage.KeyEnabled, &enabled)
	if err != nil {
		s.log.Warn("Ignoring unreadable enabled flag", "error", err)
	}
	var team storage.TeamSettings
	if _, err := storage.Decode(raw, storage.KeyTeamSettings, &team); err != nil {
		s.log.Warn("Ignoring unreadable team settings", "error", err)
	}

	s.mu.Lock()
	s.mapping = mapping
	s.buf.SetCap(max(s.maxBuffer, mapping.Longest()+BufferMargin))
	if hasEnabled {
		s.setEnabledLocked(enabled)
	}
	if team.AutocompleteMinChars != nil {
		s.minChars = ClampMinChars(*team.AutocompleteMinChars)
	}
	if team.ShowFeedbackFlash != nil {
		s.flash = *team.ShowFeedbackFlash
	}
	minChars, flash, on, size := s.minChars, s.flash, s.enabled, s.mapping.Len()
	s.mu.Unlock()

	s.metrics.MappingSize(size)
	s.log.Debug("Session settings loaded",
		"snippets", size,
		"enabled", on,
		"min_chars", minChars,
		"flash", flash,
	)
	return nil
}

// onChange is the store change feed. Snippet tiers and team settings reload
// everything; the enabled flag toggles in place.
func (s *Session) onChange(changes storage.Changes) {
	if changes.Has(storage.KeyManagedSnippets, storage.KeyUserSnippets, storage.KeyLegacySnippets, storage.KeyTeamSettings) {
		if err := s.reload(context.Background()); err != nil {
			s.log.Warn("Failed to reload after store change", "error", err)
		}
	}
	if c, ok := changes[storage.KeyEnabled]; ok {
		var on bool
		if len(c.New) > 0 {
			if err := json.Unmarshal(c.New, &on); err != nil {
				s.log.Warn("Ignoring unreadable enabled flag", "error", err)
				on = false
			}
		}
		s.mu.Lock()
		s.setEnabledLocked(on)
		s.mu.Unlock()
		s.log.Info("Expansion toggled", "enabled", on)
	}
}

func (s *Session) setEnabledLocked(on bool) {
	s.enabled = on
	if !on {
		s.buf.Reset()
		s.debounce.Cancel()
		s.hideLocked()
	}
}

// HandleKey processes one keydown on target. Keys on targets that are not
// editable surfaces pass untouched.
func (s *Session) HandleKey(target any, ev KeyEvent) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || !s.enabled || !Editable(target) {
		return Pass
	}

	if s.open {
		switch ev.Code {
		case CodeArrowDown:
			s.selectLocked((s.selected + 1) % len(s.items))
			return Intercept
		case CodeArrowUp:
			s.selectLocked((s.selected - 1 + len(s.items)) % len(s.items))
			return Intercept
		case CodeTab, CodeEnter:
			if s.selected >= 0 && len(s.items) > 0 {
				s.acceptLocked(target, s.selected)
				return Intercept
			}
		case CodeEscape:
			s.hideLocked()
			return Intercept
		}
	}

	switch Classify(ev) {
	case KeyTrigger:
		s.debounce.Cancel()
		s.hideLocked()
		if !s.expandLocked(target) {
			s.buf.Reset()
		}
	case KeyReset:
		s.buf.Reset()
		s.debounce.Cancel()
		s.hideLocked()
	case KeyBackspace:
		s.buf.Backspace()
		s.scheduleLocked(target)
	case KeyCharacter:
		r, _ := utf8.DecodeRuneInString(ev.Key)
		s.buf.Append(r)
		s.scheduleLocked(target)
	}
	return Pass
}

// expandLocked expands the trigger at the end of the buffer, if any.
func (s *Session) expandLocked(target any) bool {
	text := s.buf.String()
	if !strings.Contains(text, s.prefix) {
		return false
	}
	res, ok := Match(text, s.mapping)
	if !ok {
		return false
	}
	if err := Splice(target, res.Length, res.Snippet.Expansion); err != nil {
		s.log.Warn("Expansion abandoned", "trigger", res.Snippet.Trigger, "error", err)
		return false
	}

	s.buf.Reset()
	s.flashLocked(target)
	s.stats.Record(res.Snippet.Trigger)
	s.metrics.Expansion(metrics.SourceTrigger)
	s.log.Debug("Expanded trigger", "trigger", res.Snippet.Trigger, "tier", res.Snippet.Tier)
	return true
}

func (s *Session) scheduleLocked(target any) {
	s.debounce.Schedule(func(gen uint64) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.disposed || !s.debounce.Current(gen) {
			return
		}
		if s.enabled && strings.Contains(s.buf.String(), s.prefix) {
			s.showLocked(target)
		} else {
			s.hideLocked()
		}
	})
}

func (s *Session) showLocked(target any) {
	query, ok := Query(s.buf.String(), s.prefix)
	if !ok || utf8.RuneCountInString(query) < s.minChars {
		s.hideLocked()
		return
	}
	items := Rank(query, s.mapping, s.maxSuggestions)
	if len(items) == 0 {
		s.hideLocked()
		return
	}

	caret, _ := s.geometry.CaretPoint(target)
	at := s.geometry.Place(caret, s.overlay.Viewport())

	s.items = items
	s.selected = 0
	s.open = true
	s.overlay.Show(items, 0, at)
	s.metrics.SuggestionsShown()
}

func (s *Session) selectLocked(i int) {
	s.selected = i
	s.overlay.Select(i)
}

func (s *Session) hideLocked() {
	if s.open {
		s.overlay.Hide()
	}
	s.open = false
	s.items = nil
	s.selected = -1
}

// acceptLocked replaces what was typed since the last prefix marker with the
// expansion of item idx.
func (s *Session) acceptLocked(target any, idx int) {
	item := s.items[idx]
	text := s.buf.String()

	typed := utf8.RuneCountInString(text)
	lower := lowerRunes(text)
	if i := strings.LastIndex(lower, lowerRunes(s.prefix)); i >= 0 {
		typed = utf8.RuneCountInString(lower[i:])
	}

	s.buf.Reset()
	s.hideLocked()
	if err := Splice(target, typed, item.Expansion); err != nil {
		s.log.Warn("Suggestion abandoned", "trigger", item.Trigger, "error", err)
		return
	}

	s.flashLocked(target)
	s.stats.Record(item.Trigger)
	s.metrics.Expansion(metrics.SourceSuggestion)
	s.log.Debug("Accepted suggestion", "trigger", item.Trigger)
}

func (s *Session) flashLocked(target any) {
	if s.flash && s.flasher != nil {
		s.flasher.Flash(target)
	}
}

// Accept takes suggestion idx, as a pointer press on a list item does.
// It reports whether anything was accepted.
func (s *Session) Accept(target any, idx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || !s.open || idx < 0 || idx >= len(s.items) {
		return false
	}
	s.acceptLocked(target, idx)
	return true
}

// Hover moves the selection to idx.
func (s *Session) Hover(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open && idx >= 0 && idx < len(s.items) {
		s.selectLocked(idx)
	}
}

// FocusChanged clears the buffer and closes suggestions. Hosts call it before
// their own focus handling.
func (s *Session) FocusChanged() { s.interrupt() }

// Clicked clears the buffer and closes suggestions. Hosts call it before
// their own click handling.
func (s *Session) Clicked() { s.interrupt() }

func (s *Session) interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
	s.debounce.Cancel()
	s.hideLocked()
}

// State returns the current interaction state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.open:
		return SuggestionOpen
	case s.buf.Len() > 0:
		return Buffering
	}
	return Idle
}

// Buffer returns the keystroke buffer contents.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// BufferCap returns the current buffer cap in runes.
func (s *Session) BufferCap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Cap()
}

// Enabled reports the kill switch.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Suggestions returns the open list and its selected index, or nil and -1.
func (s *Session) Suggestions() ([]Candidate, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, -1
	}
	out := make([]Candidate, len(s.items))
	copy(out, s.items)
	return out, s.selected
}

// Mapping returns the effective mapping the session expands from.
func (s *Session) Mapping() snippets.Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapping
}

// Stats returns the session's stats buffer.
func (s *Session) Stats() *stats.Buffer { return s.stats }
