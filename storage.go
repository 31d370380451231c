package authclient

import (
	"context"
	"sync"
)

// Storage is the durable key-value backend consumed by the client. Exactly
// one key is used, holding the JSON-serialized persisted session entry.
//
// Backends for the filesystem, redis and gorm live under stores/.
type Storage interface {
	// Get returns the value for key, or ok=false when absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Flush persists any batched writes. Backends that write through may
	// implement it as a no-op.
	Flush(ctx context.Context) error
}

// MemoryStorage is an in-process Storage. It is the default backend and the
// substrate most tests run on.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStorage) Flush(ctx context.Context) error {
	return nil
}
