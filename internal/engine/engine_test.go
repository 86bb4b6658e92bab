package engine

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/TrishulMallur/EchoKey/internal/snippets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ev   KeyEvent
		want KeyKind
	}{
		{"space", KeyEvent{Code: CodeSpace, Key: " "}, KeyTrigger},
		{"tab", KeyEvent{Code: CodeTab, Key: "Tab"}, KeyTrigger},
		{"enter", KeyEvent{Code: CodeEnter, Key: "Enter"}, KeyTrigger},
		{"arrow", KeyEvent{Code: CodeArrowLeft, Key: "ArrowLeft"}, KeyReset},
		{"escape", KeyEvent{Code: CodeEscape, Key: "Escape"}, KeyReset},
		{"delete", KeyEvent{Code: CodeDelete, Key: "Delete"}, KeyReset},
		{"page down", KeyEvent{Code: CodePageDown, Key: "PageDown"}, KeyReset},
		{"backspace", KeyEvent{Code: CodeBackspace, Key: "Backspace"}, KeyBackspace},
		{"letter", KeyEvent{Code: "KeyA", Key: "a"}, KeyCharacter},
		{"semicolon", KeyEvent{Code: "Semicolon", Key: ";"}, KeyCharacter},
		{"non-ascii", KeyEvent{Key: "é"}, KeyCharacter},
		{"ctrl combo", KeyEvent{Code: "KeyC", Key: "c", Ctrl: true}, KeyIgnored},
		{"meta combo", KeyEvent{Code: "KeyV", Key: "v", Meta: true}, KeyIgnored},
		{"alt combo", KeyEvent{Code: "KeyX", Key: "x", Alt: true}, KeyIgnored},
		{"shift only", KeyEvent{Code: "ShiftLeft", Key: "Shift"}, KeyIgnored},
		{"function key", KeyEvent{Code: "F5", Key: "F5"}, KeyIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ev))
		})
	}
}

func TestRuneKey(t *testing.T) {
	assert.Equal(t, KeyTrigger, Classify(RuneKey(' ')))
	assert.Equal(t, KeyTrigger, Classify(RuneKey('\t')))
	assert.Equal(t, KeyTrigger, Classify(RuneKey('\n')))
	assert.Equal(t, KeyCharacter, Classify(RuneKey('x')))
}

func TestBuffer_CapKeepsMostRecent(t *testing.T) {
	b := NewBuffer(5)
	for _, r := range "abcdefghij" {
		b.Append(r)
		assert.LessOrEqual(t, b.Len(), b.Cap())
	}
	assert.Equal(t, "fghij", b.String())

	b.Backspace()
	assert.Equal(t, "fghi", b.String())

	b.SetCap(2)
	assert.Equal(t, "hi", b.String())

	b.Reset()
	assert.Equal(t, "", b.String())
	b.Backspace()
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_CountsRunes(t *testing.T) {
	b := NewBuffer(3)
	for _, r := range "ääää" {
		b.Append(r)
	}
	assert.Equal(t, "äää", b.String())
}

func TestMatch(t *testing.T) {
	m := snippets.FromMap(map[string]string{
		";ab":  "Alpha Beta",
		";abc": "Abba City",
		"c":    "see",
		"bc":   "bee see",
	}, snippets.TierManaged)

	tests := []struct {
		buffer  string
		trigger string
		found   bool
	}{
		{"Hello ;ab", ";ab", true},
		{"x;ABC", ";abc", true},
		{"abc", "bc", true},
		{"zzz", "", false},
		{";a", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.buffer, func(t *testing.T) {
			res, ok := Match(tt.buffer, m)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.trigger, res.Snippet.Trigger)
				assert.Equal(t, len([]rune(tt.trigger)), res.Length)
			}
		})
	}
}

func TestMatch_LongestSuffixProperty(t *testing.T) {
	triggers := []string{";a", ";ab", ";abc", "b", "bc", ";b", ";x", ";xab", "c;ab"}
	entries := make(map[string]string, len(triggers))
	for _, tr := range triggers {
		entries[tr] = "x" + tr
	}
	m := snippets.FromMap(entries, snippets.TierManaged)

	rng := rand.New(rand.NewPCG(1, 2))
	alphabet := []rune(";abcxAB")
	for range 2000 {
		n := rng.IntN(8)
		buf := make([]rune, n)
		for i := range buf {
			buf[i] = alphabet[rng.IntN(len(alphabet))]
		}
		buffer := string(buf)

		want := ""
		for _, tr := range triggers {
			if strings.HasSuffix(strings.ToLower(buffer), tr) && len(tr) > len(want) {
				want = tr
			}
		}

		res, ok := Match(buffer, m)
		if want == "" {
			assert.False(t, ok, "buffer %q", buffer)
			continue
		}
		require.True(t, ok, "buffer %q", buffer)
		assert.Equal(t, want, res.Snippet.Trigger, "buffer %q", buffer)
	}
}

func TestRank_Example(t *testing.T) {
	m := snippets.FromMap(map[string]string{
		";ab":  "Alpha Beta",
		";abc": "Abba City",
		";xab": "has ab in middle",
	}, snippets.TierManaged)

	got := Rank("ab", m, DefaultMaxSuggestions)
	require.Len(t, got, 3)
	assert.Equal(t, []string{";ab", ";abc", ";xab"}, []string{got[0].Trigger, got[1].Trigger, got[2].Trigger})
}

func TestRank_Bands(t *testing.T) {
	m := snippets.FromMap(map[string]string{
		";pc":      "Postal code",
		";pcode":   "Postal code long",
		";zippc":   "Zip",
		";other":   "mentions ;pc inside",
		";nothing": "unrelated",
	}, snippets.TierManaged)

	got := Rank(";pc", m, DefaultMaxSuggestions)
	require.Len(t, got, 3)

	assert.Equal(t, ";pc", got[0].Trigger)
	assert.Equal(t, 10000-3, got[0].Score)
	assert.Equal(t, ";pcode", got[1].Trigger)
	assert.Equal(t, 10000-6, got[1].Score)
	assert.Equal(t, ";other", got[2].Trigger)
	assert.Equal(t, 1000, got[2].Score)

	got = Rank("pc", m, DefaultMaxSuggestions)
	order := make([]string, len(got))
	for i, c := range got {
		order[i] = c.Trigger
	}
	assert.Equal(t, []string{";pc", ";pcode", ";zippc", ";other"}, order, "ties on score order by trigger")
	assert.Equal(t, 5000-3, got[0].Score)
	assert.Equal(t, got[1].Score, got[2].Score)
}

func TestRank_Limit(t *testing.T) {
	entries := map[string]string{}
	for _, c := range "abcdefghij" {
		entries[";a"+string(c)] = "x"
	}
	m := snippets.FromMap(entries, snippets.TierManaged)

	got := Rank(";a", m, DefaultMaxSuggestions)
	assert.Len(t, got, DefaultMaxSuggestions)
	assert.Equal(t, ";aa", got[0].Trigger)
	assert.Nil(t, Rank(";a", m, 0))
}

func TestQuery(t *testing.T) {
	q, ok := Query("Hello ;AB;Cd", ";")
	require.True(t, ok)
	assert.Equal(t, ";cd", q)

	_, ok = Query("no marker", ";")
	assert.False(t, ok)
}

func TestClampMinChars(t *testing.T) {
	assert.Equal(t, 1, ClampMinChars(0))
	assert.Equal(t, 3, ClampMinChars(3))
	assert.Equal(t, 5, ClampMinChars(9))
}

func TestPlace(t *testing.T) {
	g := DefaultGeometry()
	vp := Size{W: 1000, H: 800}

	tests := []struct {
		name  string
		caret Point
		want  Point
	}{
		{"fits below", Point{100, 100}, Point{100, 100}},
		{"flips above", Point{100, 700}, Point{100, 700 - 200 - 20}},
		{"near the top stays below", Point{100, 150}, Point{100, 150}},
		{"clamped right", Point{900, 100}, Point{1000 - 380 - 10, 100}},
		{"clamped left", Point{-20, 100}, Point{4, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Place(tt.caret, vp))
		})
	}

	// A viewport too short for either side pins the overlay to the margin.
	assert.Equal(t, Point{4, 4}, g.Place(Point{0, 100}, Size{W: 300, H: 150}))
}

func TestCaretPoint(t *testing.T) {
	g := DefaultGeometry()

	t.Run("rich region with range box", func(t *testing.T) {
		r := newRegion("text")
		r.selRect = &Rect{Left: 120, Top: 60, Width: 1, Height: 18}
		p, ok := g.CaretPoint(r)
		require.True(t, ok)
		assert.Equal(t, Point{120, 60 + 18 + 2}, p)
	})

	t.Run("rich region with empty range box", func(t *testing.T) {
		r := newRegion("")
		r.selRect = &Rect{}
		p, _ := g.CaretPoint(r)
		assert.Equal(t, Point{50 + 4, 150 + 2}, p)
	})

	t.Run("rich region without range", func(t *testing.T) {
		p, _ := g.CaretPoint(newRegion(""))
		assert.Equal(t, Point{50, 152}, p)
	})

	t.Run("plain field", func(t *testing.T) {
		f := newField("hello")
		f.offset = Point{X: 40, Y: 0}
		p, _ := g.CaretPoint(f)
		assert.Equal(t, Point{140, 100 + 0 + 16 + 2}, p)
	})

	t.Run("plain field caret past the edge", func(t *testing.T) {
		f := newField("hello")
		f.offset = Point{X: 900, Y: 16}
		p, _ := g.CaretPoint(f)
		assert.Equal(t, Point{100 + 300 - 20, 100 + 16 + 16 + 2}, p)
	})

	t.Run("unlocatable target", func(t *testing.T) {
		_, ok := g.CaretPoint(struct{}{})
		assert.False(t, ok)
	})
}

func TestDebouncer_CancelAndReplace(t *testing.T) {
	sched := &manualScheduler{}
	d := NewDebouncer(sched, DefaultDebounce)

	var fired []uint64
	fn := func(gen uint64) {
		if d.Current(gen) {
			fired = append(fired, gen)
		}
	}
	d.Schedule(fn)
	d.Schedule(fn)
	d.Schedule(fn)
	assert.Equal(t, 1, sched.live(), "only the latest task is live")
	assert.True(t, d.Pending())

	// Stale callbacks that beat Stop are dropped by the generation check.
	assert.Equal(t, 3, sched.FireAll())
	assert.Len(t, fired, 1)
	assert.False(t, d.Pending())

	d.Schedule(fn)
	d.Cancel()
	assert.Equal(t, 0, sched.live())
	sched.FireAll()
	assert.Len(t, fired, 1, "cancelled task never acts")
}

func TestSplice_ValueSurface(t *testing.T) {
	f := newField("Hello ;ab")
	require.NoError(t, Splice(f, 3, "Alpha Beta"))
	assert.Equal(t, "Hello Alpha Beta", f.Value())
	assert.Equal(t, len([]rune("Hello Alpha Beta")), f.caret)
	assert.Equal(t, []EventKind{EventInput, EventChange}, f.events)
	assert.Equal(t, 1, f.setter, "value goes through the native setter")
}

func TestSplice_ValueSurfaceMidText(t *testing.T) {
	f := newField("a ;x b")
	f.caret = 4
	require.NoError(t, Splice(f, 2, "XX"))
	assert.Equal(t, "a XX b", f.Value())
	assert.Equal(t, 4, f.caret)
}

func TestSplice_CaretUnsupported(t *testing.T) {
	f := newField("mail;ab")
	f.caretErr = assert.AnError
	err := Splice(f, 3, "Alpha")
	assert.ErrorIs(t, err, ErrCaretUnsupported)
	assert.Equal(t, "mail;ab", f.Value())
	assert.Empty(t, f.events)
}

func TestSplice_RangeSurface(t *testing.T) {
	r := newRegion("Hello ;ab")
	require.NoError(t, Splice(r, 3, "Alpha Beta"))
	assert.Equal(t, "Hello Alpha Beta", r.String())
	assert.Equal(t, 16, r.start)
	assert.Equal(t, 16, r.end)
	assert.Len(t, r.undo, 1, "primary path goes through the undo-aware insert")
	assert.Equal(t, []EventKind{EventInput}, r.events)
}

func TestSplice_RangeSurfaceFallback(t *testing.T) {
	tests := []struct {
		name       string
		failExtend bool
		failInsert bool
	}{
		{"insert fails after extend", false, true},
		{"extend fails", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegion("Hello ;ab")
			r.failExtend = tt.failExtend
			r.failInsert = tt.failInsert

			require.NoError(t, Splice(r, 3, "Alpha Beta"))
			assert.Equal(t, "Hello Alpha Beta", r.String())
			assert.Equal(t, 16, r.start)
			assert.Equal(t, 16, r.end)
			assert.Empty(t, r.undo)
			assert.Equal(t, []EventKind{EventInput}, r.events)
		})
	}
}

func TestSplice_RangeSurfaceWithoutSelection(t *testing.T) {
	r := newRegion("Hello ;ab")
	r.noRange = true

	assert.ErrorIs(t, Splice(r, 3, "Alpha Beta"), ErrNoSelection)
	assert.Equal(t, "Hello ;ab", r.String())
	assert.Empty(t, r.events)
}

func TestSplice_Unsupported(t *testing.T) {
	assert.ErrorIs(t, Splice("not a surface", 1, "x"), ErrUnsupportedSurface)
}
