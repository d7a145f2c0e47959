package deque

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFront_LIFO(t *testing.T) {
	d := New[int](DefaultCapacity)
	require.True(t, d.PushFront(1))
	require.True(t, d.PushFront(2))
	require.True(t, d.PushFront(3))

	v, ok := d.PopFront()
	require.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = d.PopFront()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestPushBack_FIFOForThief(t *testing.T) {
	d := New[int](DefaultCapacity)
	require.True(t, d.PushBack(1))
	require.True(t, d.PushBack(2))
	require.True(t, d.PushBack(3))

	// After PushBack, the front holds the oldest (coarsest) work.
	v, ok := d.TryPopFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCapacity_BackPressure(t *testing.T) {
	d := New[int](2)
	require.True(t, d.PushBack(1))
	require.True(t, d.PushBack(2))
	assert.False(t, d.PushBack(3), "push should fail once full, signalling inline execution")
	assert.False(t, d.PushFront(3))
}

func TestPop_EmptyReturnsNotOK(t *testing.T) {
	d := New[int](DefaultCapacity)
	_, ok := d.PopFront()
	assert.False(t, ok)
	_, ok = d.PopBack()
	assert.False(t, ok)
	_, ok = d.TryPopFront()
	assert.False(t, ok)
}

func TestOccupancy(t *testing.T) {
	d := New[int](8)
	for i := 0; i < 6; i++ {
		require.True(t, d.PushBack(i))
	}
	assert.InDelta(t, 0.75, d.Occupancy(), 0.0001)
}

func TestTryPopFront_ContendedReturnsAbsent(t *testing.T) {
	d := New[int](DefaultCapacity)
	require.True(t, d.PushBack(1))

	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.TryPopFront()
	assert.False(t, ok, "a contended lock must report absent, not block")
}
