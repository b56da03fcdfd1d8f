package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushDedup(t *testing.T) {
	s := New(4)
	s.Push(1)
	s.Push(1)
	s.Push(2)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []uint16{1, 2}, s.Values())
}

func TestOverflowEvictsOldest(t *testing.T) {
	s := New(3)
	s.Push(1)
	s.Push(2)
	s.Push(3)
	s.Push(4)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []uint16{2, 3, 4}, s.Values())
	assert.False(t, s.Has(1))
}

func TestRemove(t *testing.T) {
	s := New(4)
	s.Push(1)
	s.Push(2)
	s.Push(3)
	assert.True(t, s.Remove(2))
	assert.False(t, s.Remove(2))
	assert.Equal(t, []uint16{1, 3}, s.Values())
	assert.Equal(t, 2, s.Len())
}

// Regression: the zero value is a legal index, and unwritten ring slots
// default to zero too. Values must not double-report 0 once the ring has
// not yet wrapped.
func TestZeroValueNotDuplicated(t *testing.T) {
	s := New(4)
	s.Push(0)
	s.Push(5)
	assert.Equal(t, []uint16{0, 5}, s.Values())
}

func TestWrapThenRemoveThenPushReusesSlot(t *testing.T) {
	s := New(2)
	s.Push(10)
	s.Push(20)
	s.Push(30) // evicts 10
	assert.Equal(t, []uint16{20, 30}, s.Values())
	s.Remove(20)
	s.Push(40)
	assert.Equal(t, []uint16{30, 40}, s.Values())
}

func TestResetClearsEverything(t *testing.T) {
	s := New(2)
	s.Push(1)
	s.Push(2)
	s.Push(3)
	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Values())
	s.Push(1)
	assert.Equal(t, []uint16{1}, s.Values())
}
