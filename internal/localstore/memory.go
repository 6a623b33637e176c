package localstore

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is a Store that lives only as long as the process. Values are kept
// encoded so callers never share state with the cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Save(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	m.entries[key] = data
	return nil
}

func (m *Memory) Load(key string, dst any) bool {
	m.mu.RLock()
	raw, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return decode(key, raw, dst)
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// SetRaw stores bytes verbatim, bypassing encoding.
func (m *Memory) SetRaw(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
}

func (m *Memory) Close() error { return nil }
