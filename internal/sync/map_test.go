package sync

import (
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_StoreLoadDelete(t *testing.T) {
	m := NewMap[string, int]()

	m.Store("cam", 42)
	value, ok := m.Load("cam")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	m.Delete("cam")
	_, ok = m.Load("cam")
	assert.False(t, ok)
}

func TestMap_RangeAndLen(t *testing.T) {
	m := NewMap[string, int]()
	m.Store("a", 1)
	m.Store("b", 2)
	m.Store("c", 3)

	assert.Equal(t, 3, m.Len())

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	assert.Equal(t, 6, sum)

	visited := 0
	m.Range(func(_ string, _ int) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestMap_WithLock(t *testing.T) {
	m := NewMap[string, int]()
	m.Store("a", 1)

	m.WithLock(func(view View[string, int]) {
		v, ok := view.Get("a")
		assert.True(t, ok)
		view.Set("b", v+1)
		view.Delete("a")
		assert.Equal(t, 1, view.Len())
	})

	_, ok := m.Load("a")
	assert.False(t, ok)
	v, _ := m.Load("b")
	assert.Equal(t, 2, v)
}

func TestMap_ConcurrentAccess(t *testing.T) {
	m := NewMap[int, int]()

	var wg gosync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.Store(n, n)
			m.Load(n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, m.Len())
}
