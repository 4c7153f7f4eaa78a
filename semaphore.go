package rtos

import "sync"

// Semaphore is §4.9/§3's counting semaphore: a Cond whose predicate is
// "count == 0" and whose release hands its one new unit directly to the
// highest-priority waiter, if any, rather than letting Obtain re-check after
// waking. Built on Cond the same way the rest of the kernel's blocking
// primitives would be (§4.8 names the semaphore as Cond's first concrete
// client); golang.org/x/sync/semaphore was evaluated and rejected for this
// role (see SPEC_FULL.md's DOMAIN STACK section) since its Release doesn't
// expose the priority-ordered, single-slot-handoff semantics §4.9 specifies.
//
// interruptProtected mode models §4.1's INTLCK-guarded semaphore variant,
// meant for a primitive an ISR can Release without fear of blocking. On real
// silicon, disabling interrupts is by itself full mutual exclusion; on a
// host where the simulated ISR is just another concurrently running
// goroutine, that guarantee doesn't hold, so mu still does the actual
// exclusion in both modes and gate only tracks nesting depth for fidelity
// (see DESIGN.md). The ISR-context assertion in Obtain checks
// Kernel.InISR, not the gate.
type Semaphore struct {
	name   string
	kernel *Kernel

	mu sync.Mutex

	interruptProtected bool
	gate                *IntGate
	savedLevel          int32

	count, maxCount uint8
	destroyed       bool

	cond    *Cond
	metrics *metricsRecorder
}

// SemaphoreOption configures a Semaphore at construction.
type SemaphoreOption func(*Semaphore)

// WithInterruptProtected marks the semaphore as obtainable/releasable from
// ISR context, guarded by gate (§4.1/§4.9).
func WithInterruptProtected(gate *IntGate) SemaphoreOption {
	return func(s *Semaphore) {
		s.interruptProtected = true
		s.gate = gate
	}
}

// NewSemaphore is semaphore_create(sem, initial, max): builds a counting
// semaphore bounded by max, starting at initial.
func (k *Kernel) NewSemaphore(name string, initial, max uint8, opts ...SemaphoreOption) *Semaphore {
	kassert(initial <= max, "semaphore %s: initial count %d exceeds max %d", name, initial, max)
	s := &Semaphore{
		name:    name,
		kernel:  k,
		count:   initial,
		maxCount: max,
		metrics: k.metrics,
	}
	for _, o := range opts {
		o(s)
	}
	s.cond = NewCond(s)
	if s.metrics != nil {
		s.metrics.observeSemaphoreCount(name, s.count)
	}
	return s
}

// Lock is Semaphore's Suspender.Lock: the kernel calls this around every
// DoSuspend/DoResume evaluation against s.cond.
func (s *Semaphore) Lock() {
	s.mu.Lock()
	if s.interruptProtected {
		s.savedLevel = s.gate.Disable()
	}
}

// Unlock is Semaphore's Suspender.Unlock.
func (s *Semaphore) Unlock() {
	if s.interruptProtected {
		s.gate.Set(s.savedLevel)
	}
	s.mu.Unlock()
}

// DoSuspend is Semaphore's Suspender.DoSuspend: a test-and-decrement. Called
// already holding s.mu via Lock, so it touches count directly.
func (s *Semaphore) DoSuspend(any) bool {
	if s.count > 0 {
		s.count--
		return false // acquired immediately, don't block
	}
	return true
}

// Obtain is semaphore_obtain(sem, timeout) (§4.9, §6): returns nil on
// success, ErrBusy if timeout is zero and the semaphore has no count,
// ErrTimeout if the deadline elapses first, or ErrDeleted if the semaphore
// is destroyed while waiting.
func (s *Semaphore) Obtain(timeout uint32) error {
	if s.interruptProtected && timeout != 0 {
		kassert(!s.kernel.InISR(), "semaphore %s: non-zero timeout obtain from ISR context", s.name)
	}
	s.Lock()
	if s.destroyed {
		s.Unlock()
		return ErrDeleted
	}
	if timeout == 0 {
		defer s.Unlock()
		if s.count > 0 {
			s.count--
			return nil
		}
		return ErrBusy
	}
	s.Unlock()
	_, status := s.kernel.SuspendOn([]SuspendRequest{{Cond: s.cond, Timeout: timeout}})
	return status
}

// Release is semaphore_release(sem) (§4.9, §6): increments count, then
// hands the new unit directly to the highest-priority waiter if one exists.
// Asserts if count is already at maxCount — over-release is a caller bug,
// not a runtime condition.
func (s *Semaphore) Release() {
	s.Lock()
	kassert(s.count < s.maxCount, "semaphore %s: released past max count %d", s.name, s.maxCount)
	s.count++
	s.Unlock()

	s.kernel.ResumeCondition(s.cond, &ResumeInfo{
		DoResume: func(any, any) bool {
			if s.count > 0 {
				s.count--
				return true
			}
			return false
		},
	})

	if s.metrics != nil {
		s.Lock()
		s.metrics.observeSemaphoreCount(s.name, s.count)
		s.Unlock()
	}
}

// Destroy is semaphore_destroy(sem): wakes every waiter with ErrDeleted and
// marks the semaphore so future Obtain calls fail immediately (§4.9's
// "destroyed while waiting" edge case, §7's ErrDeleted).
func (s *Semaphore) Destroy() {
	s.Lock()
	s.destroyed = true
	s.Unlock()
	s.kernel.ResumeCondition(s.cond, &ResumeInfo{
		DoResume: func(any, any) bool { return true },
		Status:   ErrDeleted,
		WakeAll:  true,
	})
}

// Count returns the current count, mainly for tests and TASK_STATS-style
// observability.
func (s *Semaphore) Count() uint8 {
	s.Lock()
	defer s.Unlock()
	return s.count
}
