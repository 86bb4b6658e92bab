// Package stats buffers expansion counts in memory and folds them into the
// durable stats record on a fixed interval.
//
// Durable writes never happen on the keystroke path. Record only touches
// memory; Flush performs one read-modify-write of the stats and dailyStats
// keys. When a session is torn down with counts still buffered, Teardown
// writes them to statsPending without reading first, and Recover folds that
// record back in on the next session load.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TrishulMallur/EchoKey/internal/metrics"
	"github.com/TrishulMallur/EchoKey/internal/storage"
)

// DefaultFlushInterval is how often Run flushes.
const DefaultFlushInterval = 10 * time.Second

// Buffer accumulates per-trigger expansion counts for one session.
type Buffer struct {
	store   storage.Store
	now     func() time.Time
	metrics *metrics.Metrics

	mu    sync.Mutex
	total int
	per   map[string]int

	// flushing is the single in-flight token. A Flush that cannot take it
	// returns immediately.
	flushing atomic.Bool
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithClock overrides the time source used for lastUsed and the daily key.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) { b.now = now }
}

// WithMetrics attaches a collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Buffer) { b.metrics = m }
}

// New creates an empty buffer writing to store.
func New(store storage.Store, opts ...Option) *Buffer {
	b := &Buffer{
		store: store,
		now:   time.Now,
		per:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Record counts one expansion of trigger.
func (b *Buffer) Record(trigger string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total++
	b.per[trigger]++
}

// Pending returns the unflushed counts.
func (b *Buffer) Pending() (total int, per map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total, maps.Clone(b.per)
}

// snapshot takes and zeroes the in-memory counts.
func (b *Buffer) snapshot() (int, map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	total, per := b.total, b.per
	b.total = 0
	b.per = make(map[string]int)
	return total, per
}

func (b *Buffer) add(total int, per map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total += total
	for trigger, n := range per {
		b.per[trigger] += n
	}
}

// Flush merges the buffered counts into the durable record.
//
// Nothing pending is a no-op. If another Flush is in flight the call is
// dropped, not queued: the counts stay buffered for the next tick. The counts
// are zeroed before the store round-trip, so expansions recorded meanwhile
// land in the next flush. If the write fails the snapshot is gone; the error
// is logged and returned but the counts are not re-queued.
func (b *Buffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	empty := b.total == 0
	b.mu.Unlock()
	if empty {
		return nil
	}

	if !b.flushing.CompareAndSwap(false, true) {
		slog.Debug("Stats flush already in progress, skipping")
		b.metrics.Flush(metrics.FlushSkipped)
		return nil
	}
	defer b.flushing.Store(false)

	total, per := b.snapshot()
	if total == 0 {
		return nil
	}

	if err := b.merge(ctx, total, per); err != nil {
		slog.Error("Stats flush failed, dropping buffered counts",
			"expansions", total,
			"error", err,
		)
		b.metrics.Flush(metrics.FlushFailed)
		return err
	}

	b.metrics.Flush(metrics.FlushOK)
	slog.Debug("Stats flushed", "expansions", total, "triggers", len(per))
	return nil
}

func (b *Buffer) merge(ctx context.Context, total int, per map[string]int) error {
	raw, err := b.store.Get(ctx, storage.KeyStats, storage.KeyDailyStats)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	current := storage.EmptyStats()
	if _, err := storage.Decode(raw, storage.KeyStats, &current); err != nil {
		slog.Warn("Unreadable stats record, starting over", "error", err)
		current = storage.EmptyStats()
	}
	var daily storage.DailyStats
	if _, err := storage.Decode(raw, storage.KeyDailyStats, &daily); err != nil {
		slog.Warn("Unreadable daily stats record, starting over", "error", err)
		daily = storage.DailyStats{}
	}

	current, daily = Apply(current, daily, total, per, b.now())

	if err := storage.Write(ctx, b.store, map[string]any{
		storage.KeyStats:      current,
		storage.KeyDailyStats: daily,
	}); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

// Apply folds a delta into the stored records. The daily count restarts at
// zero when its date is not today's UTC date. Apply takes ownership of
// current.PerSnippet.
func Apply(current storage.Stats, daily storage.DailyStats, total int, per map[string]int, now time.Time) (storage.Stats, storage.DailyStats) {
	now = now.UTC()
	current.Expansions += total
	current.LastUsed = &now
	if current.PerSnippet == nil {
		current.PerSnippet = make(map[string]storage.SnippetStat, len(per))
	}
	for trigger, n := range per {
		s := current.PerSnippet[trigger]
		s.Count += n
		s.LastUsed = &now
		current.PerSnippet[trigger] = s
	}

	today := storage.Today(now)
	if daily.Date != today {
		daily = storage.DailyStats{Date: today}
	}
	daily.Count += total
	return current, daily
}

// Teardown writes buffered counts straight to the pending record. There is
// no read first; the next session's Recover does the merge.
//
// Only one pending record exists per store. Two sessions tearing down at the
// same moment overwrite each other's record.
func (b *Buffer) Teardown(ctx context.Context) error {
	total, per := b.snapshot()
	if total == 0 {
		return nil
	}

	now := b.now().UTC()
	pending := storage.PendingStats{
		TotalInc:   total,
		PerSnippet: make(map[string]storage.SnippetStat, len(per)),
		Timestamp:  now.UnixMilli(),
	}
	for trigger, n := range per {
		pending.PerSnippet[trigger] = storage.SnippetStat{Count: n, LastUsed: &now}
	}

	if err := storage.Write(ctx, b.store, map[string]any{storage.KeyStatsPending: pending}); err != nil {
		return fmt.Errorf("write pending stats: %w", err)
	}
	slog.Info("Wrote pending stats on teardown", "expansions", total)
	return nil
}

// Recover folds a pending record left by an earlier Teardown into the buffer,
// deletes it and flushes.
func (b *Buffer) Recover(ctx context.Context) error {
	var pending storage.PendingStats
	found, err := storage.Read(ctx, b.store, storage.KeyStatsPending, &pending)
	if err != nil {
		return fmt.Errorf("read pending stats: %w", err)
	}
	if !found || pending.TotalInc <= 0 {
		return nil
	}

	per := make(map[string]int, len(pending.PerSnippet))
	for trigger, s := range pending.PerSnippet {
		per[trigger] = s.Count
	}
	b.add(pending.TotalInc, per)

	if err := b.store.Remove(ctx, storage.KeyStatsPending); err != nil {
		return fmt.Errorf("remove pending stats: %w", err)
	}
	b.metrics.PendingRecovered(pending.TotalInc)
	slog.Info("Recovered pending stats", "expansions", pending.TotalInc)

	return b.Flush(ctx)
}

// Run flushes every interval until ctx is done. A flush already started when
// ctx ends is allowed to finish.
func (b *Buffer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	flushCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = b.Flush(flushCtx)
		}
	}
}
