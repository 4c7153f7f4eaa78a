package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSemaphoreNonBlockingObtain(t *testing.T) {
	k := New()
	sem := k.NewSemaphore("test", 1, 1)

	assert.NoError(t, sem.Obtain(0))
	assert.Equal(t, uint8(0), sem.Count())
	assert.ErrorIs(t, sem.Obtain(0), ErrBusy)

	sem.Release()
	assert.Equal(t, uint8(1), sem.Count())
}

func TestSemaphoreReleaseAssertsPastMax(t *testing.T) {
	k := New()
	sem := k.NewSemaphore("test", 1, 1)

	halted := false
	old := haltFunc
	haltFunc = func() { halted = true }
	defer func() { haltFunc = old }()

	sem.Release() // count is already 1, at max -> assert fires inside kassert
	assert.True(t, halted)
}

func TestSemaphoreProducerConsumer(t *testing.T) {
	k := New(WithSoftTicksPerSec(2000))
	sem := k.NewSemaphore("items", 0, 4)

	results := make(chan int, 10)

	producer := NewTask("producer", 5, 0, 0, func(any) {
		for i := 0; i < 5; i++ {
			sem.Release()
			k.SleepMs(1)
		}
	}, nil, 0)

	consumer := NewTask("consumer", 10, 0, 0, func(any) {
		for i := 0; i < 5; i++ {
			err := sem.Obtain(NoTimeout)
			if err != nil {
				return
			}
			results <- i
		}
	}, nil, 0)

	go k.Run()
	defer k.Stop()

	k.AddTask(producer)
	k.AddTask(consumer)

	for i := 0; i < 5; i++ {
		select {
		case <-results:
		case <-time.After(2 * time.Second):
			t.Fatalf("consumer never received item %d", i)
		}
	}
}

func TestSemaphoreObtainTimesOut(t *testing.T) {
	k := New(WithSoftTicksPerSec(2000))
	sem := k.NewSemaphore("empty", 0, 1)

	done := make(chan error, 1)
	waiter := NewTask("waiter", 5, 0, 0, func(any) {
		done <- sem.Obtain(k.MsToTick(20))
	}, nil, 0)

	go k.Run()
	defer k.Stop()
	k.AddTask(waiter)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never returned from Obtain")
	}
}

func TestSemaphoreDestroyWakesWaitersWithDeleted(t *testing.T) {
	k := New(WithSoftTicksPerSec(2000))
	sem := k.NewSemaphore("doomed", 0, 1)

	done := make(chan error, 1)
	waiter := NewTask("waiter", 5, 0, 0, func(any) {
		done <- sem.Obtain(NoTimeout)
	}, nil, 0)

	go k.Run()
	defer k.Stop()
	k.AddTask(waiter)

	time.Sleep(20 * time.Millisecond) // let the waiter actually suspend
	sem.Destroy()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDeleted)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke from Destroy")
	}
}
