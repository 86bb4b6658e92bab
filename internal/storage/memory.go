package storage

import (
	"bytes"
	"context"
	"sync"
)

// Memory is an in-process Store. It backs tests and the `--store :memory:`
// mode of the CLI.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
	feed   watchers
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = cloneBytes(v)
		}
	}
	return out, nil
}

func (m *Memory) Set(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	changes := make(Changes)
	for k, v := range values {
		old, had := m.data[k]
		if had && bytes.Equal(old, v) {
			continue
		}
		m.data[k] = cloneBytes(v)
		changes[k] = Change{Old: cloneBytes(old), New: cloneBytes(v)}
	}
	m.mu.Unlock()

	m.feed.notify(changes)
	return nil
}

func (m *Memory) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	changes := make(Changes)
	for _, k := range keys {
		old, had := m.data[k]
		if !had {
			continue
		}
		delete(m.data, k)
		changes[k] = Change{Old: old}
	}
	m.mu.Unlock()

	m.feed.notify(changes)
	return nil
}

func (m *Memory) Watch(fn func(Changes)) func() {
	return m.feed.add(fn)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
