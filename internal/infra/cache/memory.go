package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// memEntry is a value plus its expiry in the in-process layer.
type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryLayer is the bounded fast layer. Eviction is handled by the LRU
// once the size cap is reached; expiry is checked lazily on read.
type memoryLayer struct {
	entries *lru.Cache[string, memEntry]
}

func newMemoryLayer(maxEntries int) (*memoryLayer, error) {
	entries, err := lru.New[string, memEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &memoryLayer{entries: entries}, nil
}

// get returns the value for key, or false on miss or expiry.
// Expired entries are removed on sight.
func (m *memoryLayer) get(key string, now time.Time) ([]byte, bool) {
	entry, ok := m.entries.Get(key)
	if !ok {
		return nil, false
	}
	if now.After(entry.expiresAt) {
		m.entries.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (m *memoryLayer) set(key string, value []byte, expiresAt time.Time) {
	m.entries.Add(key, memEntry{value: value, expiresAt: expiresAt})
}

// purge drops every in-process entry. Used on pattern invalidation: the
// memory layer does not track task types, so correctness demands a full
// drop rather than a partial one.
func (m *memoryLayer) purge() {
	m.entries.Purge()
}
