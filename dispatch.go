package rtos

import (
	"runtime"
	"unsafe"

	_ "unsafe"
)

// This file is the kernel's one unsafe boundary. Everything above it talks
// about tasks, priorities and conditions; everything below it is two
// goroutines pretending to be a CPU. Linking directly against the runtime's
// own park/ready pair (the same trick github.com/alphadose/zenq's
// ThreadParker uses to sleep and wake goroutines without a channel) gives a
// park→wake round trip that costs one function call instead of a channel
// send, which matters because it runs once per context switch.
//
// Quarantine discipline: nothing outside this file may import "unsafe" or
// carry a //go:linkname. scheduler.go and condition.go only ever see
// goHandle, park and ready.

// goHandle identifies a parked goroutine well enough to wake it again. It is
// opaque outside this file; callers obtain one via currentG and pass it back
// unmodified to ready.
type goHandle unsafe.Pointer

// runtimeMutex mirrors runtime.mutex. It is the kernel's own ready-queue /
// sleep-list lock: cheaper than sync.Mutex because it never has to go
// through the scheduler to block, which is the point of not using sync.Mutex
// for a lock the tick source itself must take.
type runtimeMutex struct {
	key uintptr
}

//go:linkname runtimeLock runtime.lock
func runtimeLock(l *runtimeMutex)

//go:linkname runtimeUnlock runtime.unlock
func runtimeUnlock(l *runtimeMutex)

//go:linkname nanotime runtime.nanotime
func nanotime() int64

//go:linkname goready runtime.goready
func goready(gp unsafe.Pointer, traceskip int)

//go:linkname gopark runtime.gopark
func gopark(unlockf func(unsafe.Pointer, unsafe.Pointer) bool, lock unsafe.Pointer, reason waitReason, traceEv byte, traceskip int)

// currentG returns a handle for the calling goroutine. A handle stored as a
// task's g must come from the task's own goroutine, never from the
// ISR-simulating tick goroutine; ResumeCondition also calls it from other
// goroutines, only to compare against the current task's handle.
func currentG() goHandle { return goHandle(getg()) }

//go:linkname getg runtime.getg
func getg() unsafe.Pointer

// park suspends the calling goroutine until some other goroutine calls
// ready with the returned handle. unlockAfterPark, if non-nil, runs after
// the goroutine is marked waiting but before it actually stops running.
// The kernel's own callers pass nil: SuspendOn links its suspend records
// before parking, and a resume that lands before the park completes is
// covered by ready's wait for _Gwaiting.
func park(reason waitReason, unlockAfterPark func()) {
	if unlockAfterPark == nil {
		gopark(nil, nil, reason, traceEvGoBlock, 0)
		return
	}
	gopark(func(unsafe.Pointer, unsafe.Pointer) bool {
		unlockAfterPark()
		return true
	}, nil, reason, traceEvGoBlock, 0)
}

//go:linkname readgstatus runtime.readgstatus
func readgstatus(gp unsafe.Pointer) uint32

const gWaiting = 4 // runtime._Gwaiting

// ready wakes the goroutine identified by h. It is safe to call from any
// goroutine, including the tick source. Mirrors the wait loop in
// alphadose/zenq's ThreadParker.Ready: goready panics if the target
// goroutine hasn't actually reached _Gwaiting yet, which can happen because
// park's caller (the task) and ready's caller (the scheduler or a resuming
// condition) run on different goroutines — so ready spins briefly rather
// than assume the park has landed.
func ready(h goHandle) {
	if h == nil {
		return
	}
	p := unsafe.Pointer(h)
	for readgstatus(p) != gWaiting {
		runtime.Gosched()
	}
	goready(p, 0)
}

type waitReason uint8

// Subset of runtime.waitReason, kept numerically identical to the runtime's
// own table since gopark/goready index into it for tracing; only the values
// the kernel actually reports are named.
const (
	waitReasonZero               waitReason = iota
	waitReasonGCAssistMarking               // unused, kept for numeric alignment
	waitReasonIOWait                        // unused
	waitReasonChanReceiveNilChan            // unused
	waitReasonChanSendNilChan               // unused
	waitReasonDumpingHeap                   // unused
	waitReasonGarbageCollection             // unused
	waitReasonGarbageCollectionScan         // unused
	waitReasonPanicWait                     // unused
	waitReasonSelect                        // unused
	waitReasonSelectNoCases                 // unused
	waitReasonGCAssistWait                  // unused
	waitReasonGCSweepWait                   // unused
	waitReasonGCScavengeWait                // unused
	waitReasonChanReceive                   // unused
	waitReasonChanSend                      // unused
	waitReasonFinalizerWait                 // unused
	waitReasonForceGCIdle                   // unused
	waitReasonSemacquire                    // unused: Semaphore blocks via SuspendOn, below
	waitReasonSleep                         // used by SleepTicks
	waitReasonSyncCondWait                  // used by SuspendOn, Semaphore.Obtain's blocking path
	waitReasonTimerGoroutineIdle            // unused
)

const traceEvGoBlock = 20
