package rtos

import "sync/atomic"

// IntGate models §4.1's interrupt-level gate: a single scalar, shared by the
// whole kernel, holding the current interrupt-disable nesting depth. There
// is no CPU interrupt bit to flip on the host this kernel actually runs on,
// so the gate is only an atomic depth counter: it takes no lock and excludes
// nothing by itself. Nesting still composes exactly like the original:
// Disable increments, Enable decrements (never below zero), and Set
// restores a previously saved level so a caller who disabled, saved, and
// conditionally re-enabled still composes correctly with an outer critical
// section.
type IntGate struct {
	level int32
}

// Disable raises the interrupt-disable depth by one and returns the level
// that was in effect before the call, suitable for passing to Set later.
func (g *IntGate) Disable() int32 {
	return atomic.AddInt32(&g.level, 1) - 1
}

// Enable lowers the interrupt-disable depth by one. It never goes negative;
// calling Enable on an already-zero gate is a caller bug but is tolerated
// defensively since it can be reached from an ISR unwind path.
func (g *IntGate) Enable() int32 {
	for {
		cur := atomic.LoadInt32(&g.level)
		if cur <= 0 {
			return 0
		}
		if atomic.CompareAndSwapInt32(&g.level, cur, cur-1) {
			return cur - 1
		}
	}
}

// Get returns the current interrupt-disable depth.
func (g *IntGate) Get() int32 { return atomic.LoadInt32(&g.level) }

// Set restores a previously saved depth, e.g. after a critical section
// whose caller wants to return to an earlier level rather than merely
// decrement by one.
func (g *IntGate) Set(level int32) { atomic.StoreInt32(&g.level, level) }

// Disabled reports whether interrupts are currently disabled at all.
func (g *IntGate) Disabled() bool { return g.Get() > 0 }

// INTLCK is the scoped try-acquire lock of §4.1/§4.9: a one-bit lock whose
// acquire is a bounded, wait-free test-and-increment, built directly on an
// IntGate the way semaphore.h's INTLCK_TRY_GET/INTLCK_RELEASE macros are —
// acquire under the gate, release without ever re-enabling interrupts the
// caller had already disabled for an unrelated reason.
type INTLCK struct {
	held  int32
	gate  *IntGate
}

// NewINTLCK returns a released lock guarded by gate.
func NewINTLCK(gate *IntGate) *INTLCK { return &INTLCK{gate: gate} }

// TryAcquire atomically tests-and-increments the lock. Reports whether it
// was acquired.
func (l *INTLCK) TryAcquire() bool {
	saved := l.gate.Disable()
	defer l.gate.Set(saved)
	if atomic.CompareAndSwapInt32(&l.held, 0, 1) {
		return true
	}
	return false
}

// Release decrements the lock. Safe to call only by the holder.
func (l *INTLCK) Release() {
	saved := l.gate.Disable()
	defer l.gate.Set(saved)
	atomic.StoreInt32(&l.held, 0)
}
