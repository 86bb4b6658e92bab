package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
)

// keyPrefix namespaces EchoKey documents inside the pebble keyspace.
const keyPrefix = "echokey:"

// Pebble is a Store persisted in a pebble database on local disk.
//
// Change notifications are in-process only: two processes sharing one
// directory is not supported (pebble holds a lock on the directory anyway).
type Pebble struct {
	// mu guards db. Readers hold it shared for the whole read so Close
	// cannot pull the database out from under them. Writers hold it
	// exclusively so the old value captured for a change notification is
	// the one the batch actually replaced.
	mu   sync.RWMutex
	db   *pebble.DB
	path string
	feed watchers
}

// OpenPebble opens (or creates) the pebble database at path.
func OpenPebble(path string) (*Pebble, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble store %s: %w", path, err)
	}
	slog.Debug("Opened pebble store", "path", path)
	return &Pebble{db: db, path: path}, nil
}

func (p *Pebble) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return nil, ErrClosed
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, ok, err := get(p.db, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

// get copies the value out before the closer releases it.
func get(db *pebble.DB, key string) ([]byte, bool, error) {
	v, closer, err := db.Get([]byte(keyPrefix + key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()
	return cloneBytes(v), true, nil
}

func (p *Pebble) Set(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	changes, err := p.write(func(db *pebble.DB, batch *pebble.Batch, changes Changes) error {
		for k, v := range values {
			old, had, err := get(db, k)
			if err != nil {
				return err
			}
			if had && bytes.Equal(old, v) {
				continue
			}
			if err := batch.Set([]byte(keyPrefix+k), v, nil); err != nil {
				return fmt.Errorf("stage %s: %w", k, err)
			}
			changes[k] = Change{Old: old, New: cloneBytes(v)}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.feed.notify(changes)
	return nil
}

func (p *Pebble) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	changes, err := p.write(func(db *pebble.DB, batch *pebble.Batch, changes Changes) error {
		for _, k := range keys {
			old, had, err := get(db, k)
			if err != nil {
				return err
			}
			if !had {
				continue
			}
			if err := batch.Delete([]byte(keyPrefix+k), nil); err != nil {
				return fmt.Errorf("stage delete %s: %w", k, err)
			}
			changes[k] = Change{Old: old}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.feed.notify(changes)
	return nil
}

// write stages a batch with fn and commits it synchronously, holding the
// write lock throughout. Watchers are notified by the caller after the lock
// is released so they may read the store.
func (p *Pebble) write(fn func(db *pebble.DB, batch *pebble.Batch, changes Changes) error) (Changes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil, ErrClosed
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	changes := make(Changes)
	if err := fn(p.db, batch, changes); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return changes, nil
}

func (p *Pebble) Watch(fn func(Changes)) func() {
	return p.feed.add(fn)
}

func (p *Pebble) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Open picks a backend from a path. The literal ":memory:" yields a Memory
// store; anything else is a pebble directory.
func Open(path string) (Store, error) {
	if path == ":memory:" {
		return NewMemory(), nil
	}
	return OpenPebble(path)
}
