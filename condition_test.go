package rtos

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flagCond is a minimal Suspender for exercising SuspendOn/ResumeCondition
// directly: DoSuspend blocks while the flag is false, and signal sets it and
// resumes exactly one matching waiter.
type flagCond struct {
	mu  sync.Mutex
	set bool
}

func (f *flagCond) Lock()   { f.mu.Lock() }
func (f *flagCond) Unlock() { f.mu.Unlock() }

func (f *flagCond) DoSuspend(any) bool {
	if f.set {
		f.set = false
		return false
	}
	return true
}

func newFlagCond() (*flagCond, *Cond) {
	f := &flagCond{}
	return f, NewCond(f)
}

func (f *flagCond) signal(k *Kernel, cond *Cond) {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
	k.ResumeCondition(cond, &ResumeInfo{
		DoResume: func(any, any) bool { return true },
	})
}

func TestSuspendOnSingleConditionReleaseWakesWaiter(t *testing.T) {
	k := New(WithSoftTicksPerSec(2000))
	impl, cond := newFlagCond()

	done := make(chan struct{})
	waiter := NewTask("waiter", 5, 0, 0, func(any) {
		idx, err := k.SuspendOn([]SuspendRequest{{Cond: cond, Timeout: NoTimeout}})
		assert.Equal(t, 0, idx)
		assert.NoError(t, err)
		close(done)
	}, nil, 0)

	go k.Run()
	defer k.Stop()
	k.AddTask(waiter)

	time.Sleep(20 * time.Millisecond)
	impl.signal(k, cond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never resumed")
	}
}

func TestSuspendOnMultipleConditionsWakesOnWhicheverFires(t *testing.T) {
	k := New(WithSoftTicksPerSec(2000))
	implA, condA := newFlagCond()
	_, condB := newFlagCond()

	result := make(chan int, 1)
	waiter := NewTask("waiter", 5, 0, 0, func(any) {
		idx, err := k.SuspendOn([]SuspendRequest{
			{Cond: condA, Timeout: NoTimeout},
			{Cond: condB, Timeout: NoTimeout},
		})
		require.NoError(t, err)
		result <- idx
	}, nil, 0)

	go k.Run()
	defer k.Stop()
	k.AddTask(waiter)

	time.Sleep(20 * time.Millisecond)
	implA.signal(k, condA) // only condA fires

	select {
	case idx := <-result:
		assert.Equal(t, 0, idx)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never resumed")
	}
}

func TestSuspendOnImmediateWhenAlreadyAvailable(t *testing.T) {
	k := New()
	impl, cond := newFlagCond()
	impl.set = true

	done := make(chan int, 1)
	waiter := NewTask("waiter", 5, 0, 0, func(any) {
		idx, err := k.SuspendOn([]SuspendRequest{{Cond: cond, Timeout: NoTimeout}})
		assert.NoError(t, err)
		done <- idx
	}, nil, 0)

	go k.Run()
	defer k.Stop()
	k.AddTask(waiter)

	select {
	case idx := <-done:
		assert.Equal(t, 0, idx)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never ran")
	}
}
