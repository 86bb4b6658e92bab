package engine

import (
	"context"
	"testing"

	"github.com/TrishulMallur/EchoKey/internal/snippets"
	"github.com/TrishulMallur/EchoKey/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	session *Session
	store   *storage.Memory
	overlay *fakeOverlay
	sched   *manualScheduler
	flasher *fakeFlasher
}

func newHarness(t *testing.T, values map[string]any) *harness {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()
	seedValues := map[string]any{
		storage.KeySchemaVersion:   storage.SchemaVersion,
		storage.KeyManagedSnippets: map[string]string{";ab": "Alpha Beta", ";abc": "Abba City", ";xab": "has ab in middle"},
	}
	for k, v := range values {
		seedValues[k] = v
	}
	require.NoError(t, storage.Write(ctx, store, seedValues))
	return startHarness(t, store)
}

func startHarness(t *testing.T, store *storage.Memory) *harness {
	t.Helper()
	h := &harness{
		store:   store,
		overlay: &fakeOverlay{viewport: Size{W: 1280, H: 800}},
		sched:   &manualScheduler{},
		flasher: &fakeFlasher{},
	}
	h.session = NewSession(Options{
		Store:         store,
		Registry:      snippets.NewRegistry(store),
		Overlay:       h.overlay,
		Flasher:       h.flasher,
		Scheduler:     h.sched,
		FlushInterval: -1,
	})
	require.NoError(t, h.session.Init(context.Background()))
	t.Cleanup(func() { _ = h.session.Dispose(context.Background()) })
	return h
}

// typeText delivers each rune as a keydown and lets passed keys land in the
// field, as a host would.
func (h *harness) typeText(f *fakeField, text string) {
	for _, r := range text {
		if h.session.HandleKey(f, RuneKey(r)) == Pass && Classify(RuneKey(r)) != KeyIgnored {
			f.insert(r)
		}
	}
}

func (h *harness) key(target any, code string) Verdict {
	return h.session.HandleKey(target, KeyEvent{Code: code, Key: code})
}

func TestSession_ExpandsOnTriggerKey(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, "Hello ;ab ")

	assert.Equal(t, "Hello Alpha Beta ", f.Value(), "the trigger key lands after the expansion")
	assert.Equal(t, len([]rune("Hello Alpha Beta ")), f.caret)
	assert.Equal(t, "", h.session.Buffer())
	assert.Equal(t, Idle, h.session.State())
	assert.Equal(t, 1, h.flasher.n)

	total, per := h.session.Stats().Pending()
	assert.Equal(t, 1, total)
	assert.Equal(t, map[string]int{";ab": 1}, per)
}

func TestSession_LongestTriggerWins(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, ";ABC\t")
	assert.Equal(t, "Abba City", f.Value(), "matching ignores case")
}

func TestSession_TriggerWithoutMatchClearsBuffer(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, ";zz")
	assert.Equal(t, ";zz", h.session.Buffer())
	assert.Equal(t, Buffering, h.session.State())

	h.typeText(f, " ")
	assert.Equal(t, ";zz ", f.Value(), "no match, no mutation")
	assert.Equal(t, "", h.session.Buffer())
	assert.Equal(t, Idle, h.session.State())
}

func TestSession_ResetAndModifierKeys(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, ";a")
	assert.Equal(t, Pass, h.session.HandleKey(f, KeyEvent{Code: "KeyC", Key: "c", Ctrl: true}))
	assert.Equal(t, ";a", h.session.Buffer(), "modifier combos leave the buffer alone")

	assert.Equal(t, Pass, h.key(f, CodeArrowLeft))
	assert.Equal(t, "", h.session.Buffer())

	h.typeText(f, ";abx")
	h.key(f, CodeBackspace)
	assert.Equal(t, ";ab", h.session.Buffer())
}

func TestSession_FocusAndClickReset(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, ";ab")
	h.sched.Fire()
	require.Equal(t, SuggestionOpen, h.session.State())

	h.session.Clicked()
	assert.Equal(t, Idle, h.session.State())
	assert.Equal(t, "", h.session.Buffer())
	assert.False(t, h.overlay.visible)

	h.typeText(f, ";a")
	h.session.FocusChanged()
	assert.Equal(t, 0, h.sched.live(), "pending suggestion evaluation is cancelled")
	assert.Equal(t, Idle, h.session.State())
}

func TestSession_SuggestionsOpenAfterDebounce(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, ";a")
	assert.Equal(t, Buffering, h.session.State(), "nothing shows before the debounce fires")
	assert.Equal(t, 0, h.overlay.shows)

	h.typeText(f, "b")
	assert.Equal(t, 1, h.sched.live(), "each keystroke replaces the pending evaluation")

	require.Equal(t, 1, h.sched.Fire())
	assert.Equal(t, SuggestionOpen, h.session.State())
	assert.Equal(t, 1, h.overlay.shows)

	items, selected := h.session.Suggestions()
	assert.Equal(t, 0, selected)
	require.Len(t, items, 2)
	assert.Equal(t, ";ab", items[0].Trigger)
	assert.Equal(t, ";abc", items[1].Trigger)
}

func TestSession_StaleDebounceDoesNotShow(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, ";ab")
	h.key(f, CodeArrowLeft)

	h.sched.FireAll()
	assert.Equal(t, 0, h.overlay.shows)
	assert.Equal(t, Idle, h.session.State())
}

func TestSession_MinChars(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, ";")
	h.sched.Fire()
	assert.Equal(t, 0, h.overlay.shows, "a bare marker is below the default minimum")

	one := 1
	require.NoError(t, storage.Write(context.Background(), h.store, map[string]any{
		storage.KeyTeamSettings: storage.TeamSettings{AutocompleteMinChars: &one},
	}))
	h.session.Clicked()
	h.typeText(f, ";")
	h.sched.Fire()
	assert.Equal(t, 1, h.overlay.shows)
}

func TestSession_NavigateAndAccept(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("Say ")

	h.typeText(f, ";ab")
	h.sched.Fire()
	require.Equal(t, SuggestionOpen, h.session.State())

	assert.Equal(t, Intercept, h.key(f, CodeArrowDown))
	_, selected := h.session.Suggestions()
	assert.Equal(t, 1, selected)
	assert.Equal(t, 1, h.overlay.selected)

	assert.Equal(t, Intercept, h.key(f, CodeArrowDown))
	_, selected = h.session.Suggestions()
	assert.Equal(t, 0, selected, "selection wraps")

	assert.Equal(t, Intercept, h.key(f, CodeArrowUp))
	_, selected = h.session.Suggestions()
	assert.Equal(t, 1, selected, "selection wraps backwards")

	assert.Equal(t, Intercept, h.key(f, CodeEnter))
	assert.Equal(t, "Say Abba City", f.Value())
	assert.Equal(t, Idle, h.session.State())
	assert.False(t, h.overlay.visible)

	_, per := h.session.Stats().Pending()
	assert.Equal(t, map[string]int{";abc": 1}, per)
}

func TestSession_EscapeKeepsBuffer(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, ";ab")
	h.sched.Fire()

	assert.Equal(t, Intercept, h.key(f, CodeEscape))
	assert.Equal(t, Buffering, h.session.State())
	assert.Equal(t, ";ab", h.session.Buffer())

	// Closed now, so Escape is an ordinary reset key again.
	assert.Equal(t, Pass, h.key(f, CodeEscape))
	assert.Equal(t, Idle, h.session.State())
}

func TestSession_PointerAcceptAndHover(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	h.typeText(f, "x;a")
	h.sched.Fire()

	h.session.Hover(1)
	_, selected := h.session.Suggestions()
	assert.Equal(t, 1, selected)
	h.session.Hover(7)
	_, selected = h.session.Suggestions()
	assert.Equal(t, 1, selected, "out of range hover is ignored")

	assert.False(t, h.session.Accept(f, 9))
	require.True(t, h.session.Accept(f, 1))
	assert.Equal(t, "xAbba City", f.Value(), "only the text from the marker is replaced")
	assert.False(t, h.session.Accept(f, 0), "nothing open after acceptance")
}

func TestSession_RichRegion(t *testing.T) {
	h := newHarness(t, nil)
	r := newRegion("Hi ")

	for _, c := range ";ab " {
		if h.session.HandleKey(r, RuneKey(c)) == Pass {
			r.insert(c)
		}
	}
	assert.Equal(t, "Hi Alpha Beta ", r.String())
}

func TestSession_CaretUnsupportedAbandonsExpansion(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")
	h.typeText(f, ";ab")
	f.caretErr = ErrCaretUnsupported

	h.typeText(f, " ")
	assert.Equal(t, ";ab ", f.Value())
	assert.Equal(t, "", h.session.Buffer())
	total, _ := h.session.Stats().Pending()
	assert.Zero(t, total)
	assert.Zero(t, h.flasher.n)
}

func TestSession_RegionWithoutSelectionAbandonsExpansion(t *testing.T) {
	h := newHarness(t, nil)
	r := newRegion("")
	for _, c := range ";ab" {
		if h.session.HandleKey(r, RuneKey(c)) == Pass {
			r.insert(c)
		}
	}
	r.noRange = true

	assert.Equal(t, Pass, h.session.HandleKey(r, RuneKey(' ')))
	assert.Equal(t, ";ab", r.String())
	assert.Equal(t, "", h.session.Buffer())
	total, _ := h.session.Stats().Pending()
	assert.Zero(t, total, "nothing expanded, nothing counted")
	assert.Zero(t, h.flasher.n)
}

func TestSession_NonEditableTargetPasses(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, Pass, h.session.HandleKey("label", RuneKey(';')))
	assert.Equal(t, "", h.session.Buffer())
}

func TestSession_ReloadsOnTierChange(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	require.NoError(t, storage.Write(context.Background(), h.store, map[string]any{
		storage.KeyUserSnippets: map[string]string{";ab": "Mine", ";new": "Brand new"},
	}))

	h.typeText(f, ";new ;ab ")
	assert.Equal(t, "Brand new Mine ", f.Value(), "user tier wins without a restart")
}

func TestSession_UnreadableTiersKeepPreviousMapping(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")

	require.NoError(t, h.store.Set(context.Background(), map[string][]byte{
		storage.KeyManagedSnippets: []byte("{not json"),
		storage.KeyUserSnippets:    []byte("[1,2]"),
	}))

	assert.Equal(t, 3, h.session.Mapping().Len())
	h.typeText(f, ";ab ")
	assert.Equal(t, "Alpha Beta ", f.Value())
}

func TestSession_EnabledToggle(t *testing.T) {
	h := newHarness(t, nil)
	f := newField("")
	ctx := context.Background()

	h.typeText(f, ";ab")
	h.sched.Fire()
	require.Equal(t, SuggestionOpen, h.session.State())

	require.NoError(t, storage.Write(ctx, h.store, map[string]any{storage.KeyEnabled: false}))
	assert.False(t, h.session.Enabled())
	assert.Equal(t, Idle, h.session.State(), "disabling clears the buffer and closes suggestions")
	assert.False(t, h.overlay.visible)

	h.typeText(f, ";ab ")
	assert.Equal(t, "", h.session.Buffer())
	assert.Equal(t, ";ab;ab ", f.Value())
	assert.Equal(t, 0, h.sched.live())

	require.NoError(t, storage.Write(ctx, h.store, map[string]any{storage.KeyEnabled: true}))
	h.typeText(f, ";ab ")
	assert.Equal(t, ";ab;ab Alpha Beta ", f.Value())
}

func TestSession_FlashSetting(t *testing.T) {
	off := false
	h := newHarness(t, map[string]any{
		storage.KeyTeamSettings: storage.TeamSettings{ShowFeedbackFlash: &off},
	})
	f := newField("")
	h.typeText(f, ";ab ")
	assert.Equal(t, "Alpha Beta ", f.Value())
	assert.Zero(t, h.flasher.n)
}

func TestSession_BufferCapFollowsLongestTrigger(t *testing.T) {
	long := ";abcdefghijklmnopqrstuvwxyz0123"
	h := newHarness(t, map[string]any{
		storage.KeyManagedSnippets: map[string]string{long: "Long one"},
	})
	assert.Equal(t, len(long)+BufferMargin, h.session.BufferCap())

	f := newField("")
	h.typeText(f, "prefix text "+long+" ")
	assert.Equal(t, "prefix text Long one ", f.Value())
}

func TestSession_TeardownThenReloadKeepsCounts(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, storage.Write(ctx, store, map[string]any{
		storage.KeySchemaVersion:   storage.SchemaVersion,
		storage.KeyManagedSnippets: map[string]string{";t": "Tee"},
	}))

	first := startHarness(t, store)
	f := newField("")
	first.typeText(f, ";t ;t ;t ")
	require.NoError(t, first.session.Dispose(ctx))

	_ = startHarness(t, store)

	var st storage.Stats
	_, err := storage.Read(ctx, store, storage.KeyStats, &st)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Expansions)
	assert.Equal(t, 3, st.PerSnippet[";t"].Count)

	raw, err := store.Get(ctx, storage.KeyStatsPending)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestSession_DisposeIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.session.Dispose(ctx))
	require.NoError(t, h.session.Dispose(ctx))

	f := newField("")
	assert.Equal(t, Pass, h.session.HandleKey(f, RuneKey(';')))
	assert.Equal(t, "", h.session.Buffer())
}

func TestSession_InitTwice(t *testing.T) {
	h := newHarness(t, nil)
	assert.Error(t, h.session.Init(context.Background()))
}
