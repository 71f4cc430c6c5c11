package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncMap(t *testing.T) {
	m := NewSyncMap[string, int]()
	_, ok := m.Get("a")
	assert.False(t, ok)

	m.Put("a", 1)
	m.Put("b", 2)
	value, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)
	assert.Equal(t, 2, m.Size())
	assert.ElementsMatch(t, []int{1, 2}, m.Values())

	m.Delete("a")
	assert.Equal(t, 1, m.Size())
	m.Delete("missing")
	assert.Equal(t, 1, m.Size())

	visited := 0
	m.Range(func(_ string, _ int) bool {
		visited++
		return true
	})
	assert.Equal(t, 1, visited)
}
