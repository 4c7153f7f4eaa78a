package rtos

import (
	"sort"
	"sync/atomic"
)

// SuspendOn is §4.8's generic suspend_on(): the task blocks until one of
// reqs' conditions resumes it or its own timeout elapses, whichever comes
// first. Returns the index into reqs of whichever condition resolved the
// wait, and the status that condition (or the timeout) delivered.
//
// Multiple conditions are locked in a fixed global order (Cond.id) rather
// than caller order, so two tasks suspending on overlapping condition sets
// can never deadlock against each other.
func (k *Kernel) SuspendOn(reqs []SuspendRequest) (int, error) {
	kassert(len(reqs) > 0, "SuspendOn called with no conditions")
	t := k.sched.Current()
	kassert(t != nil, "SuspendOn called outside task context")

	order := make([]int, len(reqs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return reqs[order[i]].Cond.id < reqs[order[j]].Cond.id })

	for _, i := range order {
		reqs[i].Cond.impl.Lock()
	}
	unlockAll := func() {
		for j := len(order) - 1; j >= 0; j-- {
			reqs[order[j]].Cond.impl.Unlock()
		}
	}

	for i, req := range reqs {
		if !req.Cond.impl.DoSuspend(req.Param) {
			unlockAll()
			return i, nil
		}
	}

	records := make([]*suspendRecord, len(reqs))
	minTimeout := NoTimeout
	for i, req := range reqs {
		r := &suspendRecord{task: t, cond: req.Cond, priority: t.Priority, param: req.Param, timeoutEnabled: req.Timeout != NoTimeout}
		records[i] = r
		req.Cond.list.InsertSorted(r, suspendPriorityBefore)
		if req.Timeout != NoTimeout && req.Timeout < minTimeout {
			minTimeout = req.Timeout
		}
	}
	t.mu.Lock()
	t.suspendData = records
	t.mu.Unlock()

	unlockAll()

	if minTimeout != NoTimeout {
		k.sleep.Insert(t, k.CurrentTick()+minTimeout)
	}

	k.blockCurrent(t, waitReasonSyncCondWait, nil)

	// Woken: exactly one record should already be resolved (by
	// ResumeCondition or the tick ISR's timeout path). Any record still
	// unresolved belongs to a condition nobody released — claim and unlink
	// it ourselves so it doesn't linger on that condition's list forever.
	t.mu.Lock()
	t.suspendData = nil
	t.mu.Unlock()

	winIdx := -1
	var status error
	for i, r := range records {
		if atomic.LoadInt32(&r.resolved) == 1 {
			if winIdx == -1 {
				winIdx = i
				status = r.status
			}
			continue
		}
		if r.claim() {
			r.cond.impl.Lock()
			r.cond.list.Remove(r)
			r.cond.impl.Unlock()
		}
		// else: lost a last-instant race to a concurrent resolver on this
		// same condition; that resolver owns the cleanup. See DESIGN.md for
		// why a single shared task-wide claim would be needed to close this
		// window completely, and why no caller in this kernel exercises it.
	}
	kassert(winIdx != -1, "task %s woke from SuspendOn with no resolved condition", t.Name)
	return winIdx, status
}

// ResumeCondition is §4.8's resume_condition(): walks cond's suspend list in
// priority order, asking info.DoResume whether each waiter's param matches
// what just became available. A match that wins the race against a racing
// timeout (claim) is unlinked, given info.Status, and requeued; the walk
// stops after the first such match unless info.WakeAll is set.
//
// §5: "a release that makes a higher-priority task runnable ... causes an
// immediate yield if the caller's lock_count is zero." A Requeue alone only
// makes the woken task eligible — its goroutine stays parked until someone
// actually dispatches it — so a releaser calling from task context with
// nothing locking out preemption must hand off the CPU itself once the walk
// is done, exactly like the original's resume_condition returning into code
// that checks for a pending reschedule.
func (k *Kernel) ResumeCondition(cond *Cond, info *ResumeInfo) {
	cond.impl.Lock()
	cond.list.Walk(func(r *suspendRecord) (remove, stop bool) {
		if !info.DoResume(r.param, info.ResumeParam) {
			return false, false
		}
		if !r.claim() {
			// Already resolved by a racing sleep timeout; drop the stale
			// entry without touching its status.
			return true, false
		}
		r.status = info.Status
		t := r.task
		t.mu.Lock()
		t.resumeFrom = ResumeSystem
		t.mu.Unlock()
		k.sleep.Remove(t)
		t.setState(StateResumePending)
		k.sched.Requeue(t, YieldSystem)
		return true, !info.WakeAll
	})
	cond.impl.Unlock()

	// Only the goroutine embodying the current task may hand off the CPU: a
	// release from any other goroutine leaves the dispatch to the running
	// task's own next kernel call.
	if cur := k.sched.Current(); cur != nil && cur.g == currentG() && cur.LockCount() == 0 && k.sched.HigherPriorityReady(cur) {
		k.Yield()
	}
}
