// Package weakref provides identity-keyed collections that do not keep their
// keys alive. Entries are removed automatically once the key object becomes
// unreachable, so long-lived tracking over a mutating document tree does not
// accumulate entries for nodes that were dropped from it.
package weakref

import (
	"runtime"
	"sync"
	"weak"
)

// Set is an identity set of pointers. Membership does not prevent collection
// of the member; collected members vanish from the set.
//
// The mutex exists because runtime cleanups run on the GC's schedule, not on
// the caller's goroutine.
type Set[T any] struct {
	mu    sync.Mutex
	items map[weak.Pointer[T]]struct{}
}

// NewSet creates an empty Set.
func NewSet[T any]() *Set[T] {
	return &Set[T]{items: make(map[weak.Pointer[T]]struct{})}
}

// Add inserts p. Returns false if p was already present.
func (s *Set[T]) Add(p *T) bool {
	w := weak.Make(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[w]; ok {
		return false
	}
	s.items[w] = struct{}{}
	runtime.AddCleanup(p, func(key weak.Pointer[T]) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
	}, w)
	return true
}

// Has reports whether p is in the set.
func (s *Set[T]) Has(p *T) bool {
	w := weak.Make(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[w]
	return ok
}

// Len returns the current number of live entries.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Map associates values with pointer keys without keeping the keys alive.
// Values are dropped together with their key's entry when the key is
// collected; values must therefore not reference the key.
type Map[K any, V any] struct {
	mu    sync.Mutex
	items map[weak.Pointer[K]]V
}

// NewMap creates an empty Map.
func NewMap[K any, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[weak.Pointer[K]]V)}
}

// Get returns the value for k, if any.
func (m *Map[K, V]) Get(k *K) (V, bool) {
	w := weak.Make(k)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[w]
	return v, ok
}

// Set stores v under k.
func (m *Map[K, V]) Set(k *K, v V) {
	w := weak.Make(k)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[w]; !ok {
		// First insertion for this key: arrange removal on collection.
		// A stale cleanup after an explicit Delete is a harmless no-op.
		runtime.AddCleanup(k, func(key weak.Pointer[K]) {
			m.mu.Lock()
			delete(m.items, key)
			m.mu.Unlock()
		}, w)
	}
	m.items[w] = v
}

// Delete removes the entry for k, if any.
func (m *Map[K, V]) Delete(k *K) {
	w := weak.Make(k)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, w)
}

// Len returns the current number of live entries.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
