package feed

import (
	"sync"
)

// ItemStore keeps feed items in arrival order with O(1) lookup by id.
// All reads return copies so callers cannot modify stored items.
// Safe for concurrent access.
type ItemStore struct {
	index map[string]int // id -> position in items
	items []Item         // Arrival order
	mu    sync.RWMutex
}

// NewItemStore creates an empty store.
func NewItemStore() *ItemStore {
	return &ItemStore{index: make(map[string]int)}
}

// Append adds items in order, dropping any whose id is already stored or
// repeated earlier in the same batch. Existing entries keep their position
// and content. Returns the number of items added.
func (s *ItemStore) Append(items []Item) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, it := range items {
		if _, exists := s.index[it.ID]; exists {
			continue
		}
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it.clone())
		added++
	}
	return added
}

// Get returns a copy of the item with the given id.
func (s *ItemStore) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.items[pos].clone(), true
}

// Update applies fn to the stored item in place. It reports whether the
// item exists. fn must not change the item's ID.
func (s *ItemStore) Update(id string, fn func(*Item)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return false
	}
	fn(&s.items[pos])
	s.items[pos].ID = id
	return true
}

// Delete removes an item. No error if the id is unknown.
func (s *ItemStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return false
	}
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}
	return true
}

// List returns copies of all items in arrival order.
func (s *ItemStore) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.clone()
	}
	return out
}

// LastID returns the id of the most recently arrived item, "" when empty.
func (s *ItemStore) LastID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.items) == 0 {
		return ""
	}
	return s.items[len(s.items)-1].ID
}

// Len returns the number of stored items.
func (s *ItemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
