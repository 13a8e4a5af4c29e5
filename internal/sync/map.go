package sync

import "sync"

// Map is a generic thread-safe map wrapper using RWMutex
type Map[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: make(map[K]V),
	}
}

func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok = m.m[key]
	return
}

func (m *Map[K, V]) Store(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
}

func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, key)
}

// Range calls f for each entry under a read lock. Returning false stops it.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.m {
		if !f(k, v) {
			break
		}
	}
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// View gives lock-free access to the map inside WithLock.
type View[K comparable, V any] interface {
	Get(key K) (value V, ok bool)
	Set(key K, value V)
	Delete(key K)
	Len() int
}

type mapView[K comparable, V any] struct {
	m map[K]V
}

func (mv *mapView[K, V]) Get(key K) (value V, ok bool) {
	value, ok = mv.m[key]
	return
}

func (mv *mapView[K, V]) Set(key K, value V) {
	mv.m[key] = value
}

func (mv *mapView[K, V]) Delete(key K) {
	delete(mv.m, key)
}

func (mv *mapView[K, V]) Len() int {
	return len(mv.m)
}

// WithLock runs f while holding the write lock so several operations apply
// atomically.
func (m *Map[K, V]) WithLock(f func(view View[K, V])) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f(&mapView[K, V]{m: m.m})
}
