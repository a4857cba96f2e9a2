package cache

import (
	"maps"
	"slices"
	"sync"
)

// Store is a concurrent map of entities keyed by id. Values are treated as immutable
// snapshots: writers build a new value and swap it in, so a reader never sees an entity
// half way through an update.
type Store[V any] struct {
	mutex   sync.RWMutex
	hashmap map[string]V
}

func NewStore[V any]() *Store[V] {
	return &Store[V]{hashmap: make(map[string]V)}
}

func (s *Store[V]) Get(id string) (V, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, ok := s.hashmap[id]
	return value, ok
}

// GetAll returns a copy of every value, ordered by id.
func (s *Store[V]) GetAll() []V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := slices.Sorted(maps.Keys(s.hashmap))
	values := make([]V, 0, len(keys))
	for _, key := range keys {
		values = append(values, s.hashmap[key])
	}
	return values
}

func (s *Store[V]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.hashmap)
}

func (s *Store[V]) Set(id string, value V) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.hashmap[id] = value
}

// Delete removes id and returns the value that was stored under it.
func (s *Store[V]) Delete(id string) (V, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	value, ok := s.hashmap[id]
	delete(s.hashmap, id)
	return value, ok
}

// DeleteFunc removes every value for which match returns true and returns them.
func (s *Store[V]) DeleteFunc(match func(V) bool) []V {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var removed []V
	for key, value := range s.hashmap {
		if match(value) {
			removed = append(removed, value)
			delete(s.hashmap, key)
		}
	}
	return removed
}

// Update replaces the value under id with the one fn derives from it. fn must not modify
// its argument; it runs under the store's write lock and may return false to leave the
// entry unchanged. ok is false when id isn't stored or fn declined.
func (s *Store[V]) Update(id string, fn func(current V) (V, bool)) (before, after V, ok bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, exists := s.hashmap[id]
	if !exists {
		return before, after, false
	}
	next, changed := fn(current)
	if !changed {
		return current, current, false
	}
	s.hashmap[id] = next
	return current, next, true
}

// ReplaceAll swaps the whole content of the store in one step. The store takes ownership
// of values.
func (s *Store[V]) ReplaceAll(values map[string]V) {
	if values == nil {
		values = make(map[string]V)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.hashmap = values
}

func (s *Store[V]) Clear() {
	s.ReplaceAll(nil)
}
