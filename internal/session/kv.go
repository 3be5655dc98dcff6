// Package session holds per-session UI state in an explicit object backed by
// a small key-value store, instead of ambient globals read from anywhere.
package session

import (
	"context"
	"fmt"
	"sync"
)

// KV is the storage boundary for session state. Keys are scoped by namespace
// so two sessions never see each other's data.
type KV interface {
	Set(ctx context.Context, namespace, key string, value []byte) error
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Delete(ctx context.Context, namespace, key string) error
	Clear(ctx context.Context, namespace string) error
}

// ErrKeyNotFound is returned by Get for missing keys.
var ErrKeyNotFound = fmt.Errorf("key not found")

// MemKV is an in-memory KV with namespace isolation.
type MemKV struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // namespace → key → value
}

// NewMemKV creates an empty in-memory KV store.
func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string]map[string][]byte)}
}

// Set stores a copy of value under the given namespace and key.
func (s *MemKV) Set(_ context.Context, namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[namespace]; !ok {
		s.data[namespace] = make(map[string][]byte)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[namespace][key] = cp
	return nil
}

// Get retrieves a copy of the value for namespace/key.
func (s *MemKV) Get(_ context.Context, namespace, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil, ErrKeyNotFound
	}
	val, ok := ns[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

// Delete removes a key from a namespace.
func (s *MemKV) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

// Clear drops an entire namespace.
func (s *MemKV) Clear(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, namespace)
	return nil
}
