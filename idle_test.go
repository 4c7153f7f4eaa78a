package rtos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdleTableAddRunRemove(t *testing.T) {
	it := NewIdleTable(2)

	var calls []int
	cb := func(data any) { calls = append(calls, data.(int)) }

	require.NoError(t, it.Add(cb, 1))
	require.NoError(t, it.Add(cb, 2))
	assert.ErrorIs(t, it.Add(cb, 3), ErrIdleNoSpace)

	ran := it.runOnce()
	assert.True(t, ran)
	assert.ElementsMatch(t, []int{1, 2}, calls)

	require.NoError(t, it.Remove(cb, 1))
	assert.ErrorIs(t, it.Remove(cb, 1), ErrIdleNotFound)

	calls = nil
	it.runOnce()
	assert.Equal(t, []int{2}, calls)
}

func TestIdleTableRunOnceReportsEmpty(t *testing.T) {
	it := NewIdleTable(1)
	assert.False(t, it.runOnce())
}

func TestIdleTableRemoveDistinguishesData(t *testing.T) {
	it := NewIdleTable(2)
	cb := func(any) {}

	require.NoError(t, it.Add(cb, "a"))
	require.NoError(t, it.Add(cb, "b"))

	require.NoError(t, it.Remove(cb, "a"))
	assert.ErrorIs(t, it.Remove(cb, "a"), ErrIdleNotFound)
	require.NoError(t, it.Remove(cb, "b"))
}
