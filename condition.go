package rtos

import "sync/atomic"

// condSeq hands out ascending Cond identifiers so SuspendOn can lock a set
// of conditions in a fixed global order regardless of the order the caller
// listed them in, avoiding deadlock against another SuspendOn call over an
// overlapping set.
var condSeq uint64

// NoTimeout is MAX_WAIT: "block forever, no timeout."
const NoTimeout uint32 = ^uint32(0)

// Suspender is what an external subsystem implements to offer a Cond
// (§6 "Condition contract"). Lock/Unlock are the subsystem's own mutual
// exclusion, invoked by the kernel around predicate evaluation and suspend
// list mutation; the kernel treats them as opaque. DoSuspend decides
// whether a waiter with the given param should block at all — it returns
// true to block, false if the resource the param describes is already
// available.
type Suspender interface {
	Lock()
	Unlock()
	DoSuspend(param any) bool
}

// ResumeInfo is the RESUME structure of §3/§4.8: what a producer passes to
// ResumeCondition. DoResume decides whether a given waiter's param matches
// what just became available; WakeAll continues the walk past the first
// match instead of stopping there (§4.8's "unless the resume-info says
// wake all matching").
type ResumeInfo struct {
	DoResume    func(recordParam, resumeParam any) bool
	ResumeParam any
	Status      error
	WakeAll     bool
}

// suspendRecord is §3's SUSPEND: one outstanding wait by one task on one
// condition.
type suspendRecord struct {
	task     *Task
	cond     *Cond
	priority uint8
	param    any
	status   error

	timeoutEnabled bool

	// resolved is CAS'd 0->1 by whichever of {ResumeCondition, a sleep
	// timeout} claims this record first (§4.8 invariant: "the first
	// transition wins; the other unlinks cleanly"). It is independent of
	// both the condition's lock and the sleep list's lock, since those
	// two paths never share one.
	resolved int32

	next *suspendRecord
}

func suspendNext(s *suspendRecord) *suspendRecord    { return s.next }
func suspendSetNext(s, next *suspendRecord)          { s.next = next }

func suspendPriorityBefore(a, b *suspendRecord) bool { return a.priority < b.priority }

// claim CASes the record from pending to resolved. Reports whether this
// call was the one that won.
func (r *suspendRecord) claim() bool {
	return atomic.CompareAndSwapInt32(&r.resolved, 0, 1)
}

// Cond is §3/§4.8's CONDITION: a generic wait object. Any number of tasks
// may be parked on it simultaneously; any number of Conds may be waited on
// together via Kernel.SuspendOn.
type Cond struct {
	id   uint64
	impl Suspender
	list *List[suspendRecord]
}

// NewCond wraps impl as a waitable condition.
func NewCond(impl Suspender) *Cond {
	return &Cond{
		id:   atomic.AddUint64(&condSeq, 1),
		impl: impl,
		list: NewList[suspendRecord](suspendNext, suspendSetNext),
	}
}

// SuspendRequest pairs a Cond with the per-call param passed to its
// DoSuspend/record, and an optional per-condition timeout — §4.8 suspends
// on an array of conditions, each with its own predicate data and
// (optionally) its own deadline.
type SuspendRequest struct {
	Cond    *Cond
	Param   any
	Timeout uint32 // ticks; NoTimeout = block indefinitely on this condition
}
