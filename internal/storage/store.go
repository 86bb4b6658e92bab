package storage

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("storage: store is closed")

// Store is the durable key-value store shared by every session of one
// installation. Values are JSON documents keyed by the names in schema.go.
//
// Writers race: the store gives no isolation beyond a single Set or Remove
// call. Read-modify-write cycles (the stats flush, admin edits) are last
// writer wins.
type Store interface {
	// Get returns the raw values of the requested keys. Missing keys are
	// absent from the result rather than reported as errors.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Set writes all values in one batch and then notifies watchers of the
	// keys whose value actually changed.
	Set(ctx context.Context, values map[string][]byte) error

	// Remove deletes keys. Removing a missing key is not an error.
	Remove(ctx context.Context, keys ...string) error

	// Watch registers fn for change notifications. Notifications are
	// delivered synchronously on the writer's goroutine after the write has
	// committed and no store lock is held, so fn may read the store again.
	// The returned func unregisters fn.
	Watch(fn func(Changes)) (cancel func())

	// Close releases resources held by the store.
	Close() error
}

// Change is the before/after value of a single key. A nil slice means the
// key was absent.
type Change struct {
	Old []byte
	New []byte
}

// Changes maps changed keys to their transitions.
type Changes map[string]Change

// Has reports whether any of keys changed.
func (c Changes) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := c[k]; ok {
			return true
		}
	}
	return false
}

// watchers is the change feed shared by both backends.
type watchers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Changes)
}

func (w *watchers) add(fn func(Changes)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fns == nil {
		w.fns = make(map[int]func(Changes))
	}
	id := w.next
	w.next++
	w.fns[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.fns, id)
	}
}

// notify calls every watcher in registration order.
func (w *watchers) notify(changes Changes) {
	if len(changes) == 0 {
		return
	}
	w.mu.Lock()
	ids := make([]int, 0, len(w.fns))
	for id := range w.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Changes), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, w.fns[id])
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(changes)
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
