package interaction

import "sync"

// MemoryStore is a standalone Store for interactions whose items are not
// part of a feed, such as the follow state of profile pages.
// Safe for concurrent access.
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
}

type memoryEntry struct {
	value bool
	count int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Put seeds or overwrites an entry, e.g. from a freshly loaded profile.
func (m *MemoryStore) Put(id string, value bool, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{value: value, count: count}
}

// Lookup implements Store.
func (m *MemoryStore) Lookup(id string) (bool, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e.value, e.count, ok
}

// Store implements Store. Unknown ids are not created.
func (m *MemoryStore) Store(id string, value bool, count int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return false
	}
	m.entries[id] = memoryEntry{value: value, count: count}
	return true
}
