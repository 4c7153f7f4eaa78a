package rtos

// SleepList is §4.7's sleep timer: a priority-sorted linked list of tasks
// keyed on absolute wake-tick, ties broken by higher task priority first.
// The head always holds the nearest deadline (§3 invariant).
type SleepList struct {
	mu   runtimeMutex
	list *List[Task]
}

// NewSleepList returns an empty sleep list.
func NewSleepList() *SleepList {
	return &SleepList{list: NewList[Task](taskSleepNext, taskSetSleepNext)}
}

// sleepBefore orders by absolute wake tick using wrap-tolerant signed
// comparison, ties broken by numerically lower (higher) priority first.
func sleepBefore(a, b *Task) bool {
	if d := WrapTolerantCompare(a.wakeTick, b.wakeTick); d != 0 {
		return d < 0
	}
	return a.Priority < b.Priority
}

// Insert adds t to the sleep list with absolute wake tick wakeTick.
func (sl *SleepList) Insert(t *Task, wakeTick uint32) {
	kassert(!t.sleepTimeoutSet, "task %s already has a pending sleep deadline", t.Name)
	t.wakeTick = wakeTick
	t.sleepTimeoutSet = true
	sl.mu.lockHelper()
	sl.list.InsertSorted(t, sleepBefore)
	sl.mu.unlockHelper()
}

// Remove unlinks t, e.g. because it was resumed manually before its
// deadline elapsed. Reports whether t was present.
func (sl *SleepList) Remove(t *Task) bool {
	sl.mu.lockHelper()
	ok := sl.list.Remove(t)
	sl.mu.unlockHelper()
	t.sleepTimeoutSet = false
	return ok
}

// Advance pops and returns every task whose wake tick has elapsed as of
// now, i.e. signed(now - wake_tick) >= 0 (§4.7). Called once per tick from
// the tick ISR.
func (sl *SleepList) Advance(now uint32) []*Task {
	var woken []*Task
	sl.mu.lockHelper()
	for {
		head := sl.list.Peek()
		if head == nil || WrapTolerantCompare(now, head.wakeTick) < 0 {
			break
		}
		sl.list.PopHead()
		head.sleepTimeoutSet = false
		woken = append(woken, head)
	}
	sl.mu.unlockHelper()
	return woken
}

// Empty reports whether any task is sleeping.
func (sl *SleepList) Empty() bool {
	sl.mu.lockHelper()
	defer sl.mu.unlockHelper()
	return sl.list.Empty()
}

// lockHelper/unlockHelper exist only so sleep.go doesn't need its own
// copy-pasted lock()/unlock() method names colliding with Scheduler's.
func (m *runtimeMutex) lockHelper()   { runtimeLock(m) }
func (m *runtimeMutex) unlockHelper() { runtimeUnlock(m) }
