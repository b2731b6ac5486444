package kv

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process map-backed store. It plays the part of
// the volatile session store and is the default backend in tests.
type MemoryBackend struct {
	name string
	mu   sync.RWMutex
	data map[string]Record
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{
		name: name,
		data: make(map[string]Record),
	}
}

// Name implements Backend.
func (b *MemoryBackend) Name() string {
	return b.name
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, key string) (Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.data[key]
	return rec, ok, nil
}

// Set implements Backend.
func (b *MemoryBackend) Set(_ context.Context, key string, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = rec
	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Close implements Backend.
func (b *MemoryBackend) Close() error {
	return nil
}
