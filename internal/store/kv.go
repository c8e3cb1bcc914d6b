// Package store persists session documents in a key-value catalogue.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound           = errors.New("form not found")
	ErrMalformed          = errors.New("form is malformed")
	ErrStorageUnavailable = errors.New("storage is full or unavailable")
	ErrQuotaExceeded      = errors.New("storage quota exceeded")
	ErrNothingToExport    = errors.New("no forms to export")
	ErrNothingToClear     = errors.New("no forms to clear")
)

// KV is the raw string store behind the catalogue.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryKV is an in-process KV. A positive quota caps the total bytes of
// keys plus values.
type MemoryKV struct {
	mu     sync.RWMutex
	data   map[string]string
	quota  int
	writes int
}

func NewMemoryKV(quota int) *MemoryKV {
	return &MemoryKV{data: map[string]string{}, quota: quota}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := 0
		for k, v := range m.data {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > m.quota {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = value
	m.writes++
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		delete(m.data, key)
		m.writes++
	}
	return nil
}

func (m *MemoryKV) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Writes counts mutating operations that changed state.
func (m *MemoryKV) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Len is the number of stored keys.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
