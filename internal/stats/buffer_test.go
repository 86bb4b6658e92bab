package stats

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TrishulMallur/EchoKey/internal/metrics"
	"github.com/TrishulMallur/EchoKey/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func readStats(t *testing.T, s storage.Store) (storage.Stats, storage.DailyStats) {
	t.Helper()
	var st storage.Stats
	var daily storage.DailyStats
	_, err := storage.Read(context.Background(), s, storage.KeyStats, &st)
	require.NoError(t, err)
	_, err = storage.Read(context.Background(), s, storage.KeyDailyStats, &daily)
	require.NoError(t, err)
	return st, daily
}

func TestFlush_MergesIntoStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := New(store, WithClock(fixedClock(now)))

	b.Record(";ab")
	b.Record(";ab")
	b.Record(";cd")
	require.NoError(t, b.Flush(ctx))

	total, per := b.Pending()
	assert.Zero(t, total)
	assert.Empty(t, per)

	st, daily := readStats(t, store)
	assert.Equal(t, 3, st.Expansions)
	require.NotNil(t, st.LastUsed)
	assert.True(t, now.Equal(*st.LastUsed))
	assert.Equal(t, 2, st.PerSnippet[";ab"].Count)
	assert.Equal(t, 1, st.PerSnippet[";cd"].Count)
	assert.Equal(t, storage.DailyStats{Date: "2024-03-01", Count: 3}, daily)

	// A second flush adds on top of the stored record.
	b.Record(";ab")
	require.NoError(t, b.Flush(ctx))
	st, daily = readStats(t, store)
	assert.Equal(t, 4, st.Expansions)
	assert.Equal(t, 3, st.PerSnippet[";ab"].Count)
	assert.Equal(t, 4, daily.Count)
}

func TestFlush_NothingPendingDoesNotTouchStore(t *testing.T) {
	store := &countingStore{Store: storage.NewMemory()}
	b := New(store)
	require.NoError(t, b.Flush(context.Background()))
	assert.Zero(t, store.gets.Load())
}

func TestFlush_DailyRollover(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, storage.Write(ctx, store, map[string]any{
		storage.KeyDailyStats: storage.DailyStats{Date: "2024-01-01", Count: 5},
	}))

	b := New(store, WithClock(fixedClock(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))))
	b.Record(";a")
	b.Record(";b")
	require.NoError(t, b.Flush(ctx))

	_, daily := readStats(t, store)
	assert.Equal(t, storage.DailyStats{Date: "2024-01-02", Count: 2}, daily)
}

func TestApply_DailyUsesUTC(t *testing.T) {
	// 23:30 at UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, 1, 1, 23, 30, 0, 0, loc)

	_, daily := Apply(storage.EmptyStats(), storage.DailyStats{Date: "2024-01-02", Count: 1}, 1, map[string]int{";a": 1}, now)
	assert.Equal(t, storage.DailyStats{Date: "2024-01-02", Count: 2}, daily)
}

func TestTeardownAndRecover(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	first := New(store)
	first.Record(";t")
	first.Record(";t")
	first.Record(";t")
	require.NoError(t, first.Teardown(ctx))

	var pending storage.PendingStats
	found, err := storage.Read(ctx, store, storage.KeyStatsPending, &pending)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, pending.TotalInc)
	assert.Equal(t, 3, pending.PerSnippet[";t"].Count)

	_, stored := readStats(t, store)
	assert.Zero(t, stored.Count, "teardown does not touch the stats record")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	second := New(store, WithMetrics(m))
	require.NoError(t, second.Recover(ctx))

	st, _ := readStats(t, store)
	assert.Equal(t, 3, st.Expansions)
	assert.Equal(t, 3, st.PerSnippet[";t"].Count)

	found, err = storage.Read(ctx, store, storage.KeyStatsPending, &pending)
	require.NoError(t, err)
	assert.False(t, found, "pending record is deleted once merged")

	// Recovering again must not double count.
	third := New(store)
	require.NoError(t, third.Recover(ctx))
	st, _ = readStats(t, store)
	assert.Equal(t, 3, st.Expansions)
}

func TestTeardown_NothingPending(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, New(store).Teardown(context.Background()))
	raw, err := store.Get(context.Background(), storage.KeyStatsPending)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestFlush_SingleFlight(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{
		Store:   storage.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	b := New(store)
	b.Record(";a")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, b.Flush(ctx))
	}()
	<-store.entered

	// Recorded while the first flush is in flight.
	b.Record(";b")
	require.NoError(t, b.Flush(ctx), "concurrent flush is dropped, not an error")
	assert.Equal(t, int32(1), store.gets.Load(), "only one read-modify-write ran")

	close(store.release)
	wg.Wait()

	total, per := b.Pending()
	assert.Equal(t, 1, total, "counts recorded during the flush stay buffered")
	assert.Equal(t, map[string]int{";b": 1}, per)

	st, _ := readStats(t, store.Store)
	assert.Equal(t, 1, st.Expansions)
}

func TestFlush_WriteFailureDropsSnapshot(t *testing.T) {
	store := &failingStore{Store: storage.NewMemory(), err: errors.New("disk full")}
	b := New(store)
	b.Record(";a")

	err := b.Flush(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.err)

	total, _ := b.Pending()
	assert.Zero(t, total, "a failed write does not re-queue its counts")
}

func TestFlush_MetricsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := &failingStore{Store: storage.NewMemory(), err: errors.New("boom")}
	b := New(store, WithMetrics(m))
	b.Record(";a")
	_ = b.Flush(context.Background())

	expected := `
# HELP echokey_stats_flushes_total Stats flush attempts, by result.
# TYPE echokey_stats_flushes_total counter
echokey_stats_flushes_total{result="failed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "echokey_stats_flushes_total"))
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := storage.NewMemory()
	b := New(store)
	b.Record(";a")

	done := make(chan struct{})
	go func() {
		b.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		total, _ := b.Pending()
		return total == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	st, _ := readStats(t, store)
	assert.Equal(t, 1, st.Expansions)
}

// countingStore counts Get calls.
type countingStore struct {
	storage.Store
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx, keys...)
}

// blockingStore parks the first stats read until release is closed.
type blockingStore struct {
	storage.Store
	gets    atomic.Int32
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	s.gets.Add(1)
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.Store.Get(ctx, keys...)
}

// failingStore fails every write.
type failingStore struct {
	storage.Store
	err error
}

func (s *failingStore) Set(ctx context.Context, values map[string][]byte) error {
	return s.err
}
