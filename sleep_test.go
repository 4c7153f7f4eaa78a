package rtos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepListOrdersByWakeTick(t *testing.T) {
	sl := NewSleepList()
	far := newTestTask("far", 10)
	near := newTestTask("near", 10)
	mid := newTestTask("mid", 10)

	sl.Insert(far, 100)
	sl.Insert(near, 10)
	sl.Insert(mid, 50)

	woken := sl.Advance(10)
	require.Len(t, woken, 1)
	assert.Same(t, near, woken[0])

	woken = sl.Advance(50)
	require.Len(t, woken, 1)
	assert.Same(t, mid, woken[0])

	assert.False(t, sl.Empty())
	woken = sl.Advance(100)
	require.Len(t, woken, 1)
	assert.Same(t, far, woken[0])
	assert.True(t, sl.Empty())
}

func TestSleepListAdvanceIsMonotonicAndBatches(t *testing.T) {
	sl := NewSleepList()
	a := newTestTask("a", 10)
	b := newTestTask("b", 10)
	sl.Insert(a, 5)
	sl.Insert(b, 6)

	woken := sl.Advance(6)
	assert.ElementsMatch(t, []*Task{a, b}, woken)
	assert.True(t, sl.Empty())
}

func TestSleepListRemoveCancelsTimeout(t *testing.T) {
	sl := NewSleepList()
	a := newTestTask("a", 10)
	sl.Insert(a, 100)

	assert.True(t, sl.Remove(a))
	assert.False(t, sl.Remove(a))
	assert.True(t, sl.Empty())
}

func TestSleepListWrapTolerantOrdering(t *testing.T) {
	sl := NewSleepList()
	beforeWrap := newTestTask("before-wrap", 10)
	afterWrap := newTestTask("after-wrap", 10)

	// beforeWrap is due just before the 32-bit counter wraps; afterWrap is
	// due just after. Numerically afterWrap's tick is tiny (wrapped), but
	// it is still "later" than beforeWrap's under wrap-tolerant comparison.
	sl.Insert(beforeWrap, ^uint32(0)-1)
	sl.Insert(afterWrap, 5)

	woken := sl.Advance(^uint32(0) - 1)
	require.Len(t, woken, 1)
	assert.Same(t, beforeWrap, woken[0])

	woken = sl.Advance(5)
	require.Len(t, woken, 1)
	assert.Same(t, afterWrap, woken[0])
}
