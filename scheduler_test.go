package rtos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(name string, priority uint8) *Task {
	return NewTask(name, priority, 0, 0xA5, func(any) {}, nil, 0)
}

func TestSchedulerGetNextReturnsIdleWhenEmpty(t *testing.T) {
	idle := newTestTask("idle", 255)
	s := NewScheduler(idle)
	assert.Same(t, idle, s.GetNext())
}

func TestSchedulerPicksHighestPriorityFirst(t *testing.T) {
	idle := newTestTask("idle", 255)
	s := NewScheduler(idle)

	low := newTestTask("low", 20)
	high := newTestTask("high", 5)
	mid := newTestTask("mid", 10)

	s.Add(low)
	s.Add(high)
	s.Add(mid)

	require.Same(t, high, s.GetNext())
	require.Same(t, mid, s.GetNext())
	require.Same(t, low, s.GetNext())
	assert.Same(t, idle, s.GetNext())
}

func TestSchedulerFIFOAtEqualPriority(t *testing.T) {
	idle := newTestTask("idle", 255)
	s := NewScheduler(idle)

	first := newTestTask("first", 10)
	second := newTestTask("second", 10)
	third := newTestTask("third", 10)

	s.Add(first)
	s.Add(second)
	s.Add(third)

	assert.Same(t, first, s.GetNext())
	assert.Same(t, second, s.GetNext())
	assert.Same(t, third, s.GetNext())
}

func TestSchedulerLockUnlockDriftPayback(t *testing.T) {
	idle := newTestTask("idle", 255)
	s := NewScheduler(idle)
	task := newTestTask("task", 10)

	s.Lock(task)
	s.Lock(task) // nested
	assert.Equal(t, uint32(2), task.LockCount())

	s.MarkDrift(task)

	// Unlocking once still leaves lock_count at 1: no payback owed yet.
	assert.False(t, s.Unlock(task))
	assert.Equal(t, uint32(1), task.LockCount())

	// The second unlock brings lock_count to zero with drift pending.
	assert.True(t, s.Unlock(task))
	assert.Equal(t, uint32(0), task.LockCount())

	// Drift flag is cleared once paid back.
	assert.False(t, s.Unlock(task))
}

func TestSchedulerEnterExitISR(t *testing.T) {
	idle := newTestTask("idle", 255)
	s := NewScheduler(idle)
	task := newTestTask("task", 10)
	s.SetCurrent(task)

	returned := s.EnterISR()
	assert.Same(t, task, returned)
	assert.Nil(t, s.Current())

	s.ExitISR()
	assert.Same(t, task, s.Current())
}

func TestSchedulerHigherPriorityReady(t *testing.T) {
	idle := newTestTask("idle", 255)
	s := NewScheduler(idle)
	current := newTestTask("current", 10)

	assert.False(t, s.HigherPriorityReady(current))

	s.Add(newTestTask("lower", 20))
	assert.False(t, s.HigherPriorityReady(current))

	s.Add(newTestTask("higher", 5))
	assert.True(t, s.HigherPriorityReady(current))
}
