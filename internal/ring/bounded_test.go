package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedAddDedup(t *testing.T) {
	s := NewBounded(3)
	assert.True(t, s.Add(1))
	assert.True(t, s.Add(1))
	assert.Equal(t, 1, s.Len())
}

func TestBoundedRefusesPastCapacity(t *testing.T) {
	s := NewBounded(2)
	assert.True(t, s.Add(1))
	assert.True(t, s.Add(2))
	assert.False(t, s.Add(3))
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Has(3))
}

func TestBoundedRemoveFreesCapacity(t *testing.T) {
	s := NewBounded(1)
	assert.True(t, s.Add(1))
	assert.False(t, s.Add(2))
	assert.True(t, s.Remove(1))
	assert.True(t, s.Add(2))
	assert.True(t, s.Has(2))
}

func TestBoundedSwapRemoveKeepsRemainingValues(t *testing.T) {
	s := NewBounded(4)
	s.Add(1)
	s.Add(2)
	s.Add(3)
	s.Remove(2)
	assert.ElementsMatch(t, []uint16{1, 3}, s.Values())
}

func TestBoundedReset(t *testing.T) {
	s := NewBounded(2)
	s.Add(1)
	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Add(1))
}
