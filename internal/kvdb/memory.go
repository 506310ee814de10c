package kvdb

import (
	"bytes"
	"sort"
	"sync"
)

// MemDB is the in-process backend used by the live engine and by tests.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemDB) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemDB) List(prefix []byte, limit int) ([]Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]Pair, 0, len(keys))
	for _, k := range keys {
		out = append(out, Pair{
			Key:   []byte(k),
			Value: append([]byte(nil), m.data[k]...),
		})
	}
	return out, nil
}

func (m *MemDB) WriteBatch(pairs []Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pairs {
		if p.Value == nil {
			delete(m.data, string(p.Key))
		} else {
			m.data[string(p.Key)] = append([]byte(nil), p.Value...)
		}
	}
	return nil
}

func (m *MemDB) Close() error { return nil }
