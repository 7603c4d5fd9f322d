package cache

import (
	"context"
	"strings"
	"sync"
)

type memoryEngine struct {
	lck     sync.RWMutex
	entries map[string]Entry
}

// NewMemory returns an engine that doesn't survive the process.
func NewMemory() Engine {
	return &memoryEngine{entries: map[string]Entry{}}
}

func (m *memoryEngine) Name() string {
	return "memory"
}

func (m *memoryEngine) Put(ctx context.Context, key string, e *Entry) error {
	m.lck.Lock()
	defer m.lck.Unlock()
	m.entries[key] = *e
	return nil
}

func (m *memoryEngine) Get(ctx context.Context, key string) (*Entry, error) {
	m.lck.RLock()
	defer m.lck.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *memoryEngine) DeleteBefore(ctx context.Context, ts int64) (int, error) {
	m.lck.Lock()
	defer m.lck.Unlock()
	var n int
	for k, e := range m.entries {
		if e.Timestamp < ts {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryEngine) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	m.lck.Lock()
	defer m.lck.Unlock()
	var n int
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryEngine) Close() error {
	return nil
}
