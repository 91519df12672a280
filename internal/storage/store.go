package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrUnknownBackend indicates an unsupported store backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Reader loads named string values. A missing key reports found == false
// with a nil error.
type Reader interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// Store is a last-write-wins key-value store.
type Store interface {
	Reader
	Set(ctx context.Context, key, value string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (memory *Memory) Get(_ context.Context, key string) (string, bool, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	value, ok := memory.values[key]
	return value, ok, nil
}

// Set stores value under key.
func (memory *Memory) Set(_ context.Context, key, value string) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	memory.values[key] = value
	return nil
}

// Keys returns a copy of the stored keys.
func (memory *Memory) Keys() []string {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	keys := make([]string, 0, len(memory.values))
	for key := range memory.values {
		keys = append(keys, key)
	}
	return keys
}
