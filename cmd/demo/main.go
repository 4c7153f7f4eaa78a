// Command demo wires a small producer/consumer pipeline on top of the
// tinyrtos kernel: a producer task and a consumer task rendezvous through a
// pair of counting Semaphores (§4.9), while a pool of host-side goroutines generates
// readings outside the kernel, bounded by golang.org/x/sync/semaphore so the
// demo never queues more readings than the pipeline can hold (see
// SPEC_FULL.md's DOMAIN STACK section for why x/sync/semaphore belongs here
// rather than inside the kernel).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	rtos "github.com/tinyrtos/kernel"
)

const bufferDepth = 4

func main() {
	k := rtos.New(
		rtos.WithSoftTicksPerSec(1000),
		rtos.WithTaskStats(),
		rtos.WithLogger(slog.New(slog.NewTextHandler(os.Stdout, nil))),
	)

	readings := make(chan int, bufferDepth)
	slots := k.NewSemaphore("buffer-slots", bufferDepth, bufferDepth)
	items := k.NewSemaphore("buffer-items", 0, bufferDepth)

	hostGate := semaphore.NewWeighted(bufferDepth)
	go generate(hostGate, readings)

	producer := rtos.NewTask("producer", 10, 0, 0xA5, func(any) {
		for v := range readings {
			if err := slots.Obtain(rtos.NoTimeout); err != nil {
				return
			}
			fmt.Printf("producer: got reading %d\n", v)
			items.Release()
			k.SleepMs(5)
		}
	}, nil, 0)

	consumer := rtos.NewTask("consumer", 20, 0, 0xA5, func(any) {
		for {
			if err := items.Obtain(rtos.NoTimeout); err != nil {
				return
			}
			fmt.Println("consumer: processed one item")
			slots.Release()
			k.SleepMs(8)
		}
	}, nil, 0)

	k.AddTask(producer)
	k.AddTask(consumer)

	go func() {
		time.Sleep(2 * time.Second)
		k.Stop()
	}()

	k.Run()
}

// generate simulates an external event source: up to bufferDepth readings
// may be in flight at once, enforced by hostGate, independent of whatever
// the kernel-side semaphores are doing with already-accepted readings.
func generate(hostGate *semaphore.Weighted, out chan<- int) {
	defer close(out)
	ctx := context.Background()
	for i := 0; i < 40; i++ {
		if err := hostGate.Acquire(ctx, 1); err != nil {
			return
		}
		go func(v int) {
			defer hostGate.Release(1)
			time.Sleep(3 * time.Millisecond)
			out <- v
		}(i)
		time.Sleep(4 * time.Millisecond)
	}
}
