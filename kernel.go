package rtos

import (
	"runtime"
	"sync"
	"time"
)

// Kernel is the process-wide kernel object §9's design notes ask for:
// current_task, return_task and current_tick are not package-level globals
// but fields reached only through Kernel's methods, so more than one
// simulated kernel instance can coexist in one test binary.
//
// Docs below name the exact §6 operation each method implements.
type Kernel struct {
	cfg *Config

	sched *Scheduler
	tick  *TickSource
	sleep *SleepList
	idle  *IdleTable

	idleTask *Task

	metrics *metricsRecorder

	runOnce sync.Once
	stopCh  chan struct{}
	started bool

	mu sync.Mutex // guards started/stopCh only
}

// New builds a kernel. It does not start the tick source or dispatch any
// task — call Run for that (kernel_run, §6).
func New(opts ...Option) *Kernel {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger != nil {
		SetLogger(cfg.logger)
	}
	AssertFileInfo = cfg.assertFileInfo
	AssertEnabled = cfg.assertEnabled

	k := &Kernel{
		cfg:     cfg,
		sleep:   NewSleepList(),
		idle:    NewIdleTable(cfg.idleWorkSlots),
		metrics: cfg.metrics,
	}
	k.idleTask = NewTask("idle", 255, 0, cfg.stackPattern, k.idleEntry, nil, FlagNoReturn)
	if cfg.taskStats {
		k.idleTask.stats = &TaskStats{}
	}
	k.sched = NewScheduler(k.idleTask)
	k.sched.metrics = cfg.metrics
	k.tick = NewTickSource(cfg.softTicksPerSec, cfg.hwTicksPerSec, k.onTick)
	return k
}

// idleEntry is the idle task's body (§4.10): round-robins the idle-work
// table, yielding the CPU whenever a higher-priority task becomes ready so
// it never starves the rest of the system.
func (k *Kernel) idleEntry(any) {
	for {
		ran := k.idle.runOnce()
		if k.sched.HigherPriorityReady(k.idleTask) {
			k.Yield()
			continue
		}
		if !ran {
			time.Sleep(time.Microsecond)
		}
	}
}

// AddTask is scheduler_add(tcb, priority): records priority and enqueues t
// onto the ready queue (§4.6's add()). Like the original's scheduler_add,
// it does not itself force a reschedule — a task registered while the
// system is already running becomes eligible at the next dispatch point
// (the running task's own next Yield/Sleep/Suspend call, or the idle
// task's higher-priority check). The tick ISR only requeues woken sleepers
// and records drift; it does not dispatch.
func (k *Kernel) AddTask(t *Task) {
	kassert(t.entry != nil, "task %s has no entry function", t.Name)
	if k.cfg.taskStats && t.stats == nil {
		t.stats = &TaskStats{}
	}
	k.launch(t)
	k.sched.Add(t)
}

// launch starts t's goroutine and blocks until it has published its
// scheduling handle (runTask's t.g = currentG()). A task must never become
// reachable from the ready queue before that handle exists: every
// dispatcher reads t.g locklessly (ready(next.g) in finish, switchFrom,
// blockCurrent, Run), and ready() silently no-ops on a nil
// handle rather than waiting for one to appear — it only spins for "parked
// but not yet _Gwaiting", not "goroutine hasn't started". Without this
// handshake a task popped off the ready queue before its goroutine has run
// can be "dispatched" into a ready() that does nothing, after which the
// task parks and is never woken.
func (k *Kernel) launch(t *Task) {
	go k.runTask(t)
	<-t.started
}

// runTask is the goroutine body behind every Task: park until first
// dispatch, run the entry function, then transition to StateFinished
// (§4.5's state table) and hand the CPU to whoever's next.
func (k *Kernel) runTask(t *Task) {
	t.g = currentG()
	close(t.started)
	park(waitReasonZero, nil) // wait for first dispatch
	t.setState(StateRunning)
	if s := t.stats; s != nil {
		s.ScheduleCount++
	}
	t.entry(t.argv)
	// entry returned: FlagNoReturn tasks (the idle task, any driver loop
	// that's meant to run forever) asserting here matches §4.5's
	// "entry returns, flags has no-return -> undefined behavior (asserts)".
	kassert(t.Flags&FlagNoReturn == 0, "task %s with NoReturn flag returned", t.Name)
	k.finish(t)
}

// finish transitions t to StateFinished and dispatches the next task. A
// finished task is never chosen again (§4.5).
func (k *Kernel) finish(t *Task) {
	t.setState(StateFinished)
	close(t.done)
	next := k.sched.GetNext()
	k.sched.SetCurrent(next)
	next.setState(StateRunning)
	k.trackRunning(t, next)
	k.metrics.observeContextSwitch()
	ready(next.g)
	// t's own goroutine returns here; nothing parks it again.
}

// trackRunning closes out prev's TaskStats active-tick span (if it has one)
// and opens next's, the bookkeeping behind §3's "cumulative scheduled ticks"
// optional statistic. A no-op for tasks built without WithTaskStats.
func (k *Kernel) trackRunning(prev, next *Task) {
	now := k.CurrentTick()
	if prev != nil && prev.stats != nil && prev.stats.running {
		prev.stats.TotalActiveTicks += uint64(now - prev.stats.lastActiveTick)
		prev.stats.running = false
	}
	if next.stats != nil {
		next.stats.lastActiveTick = now
		next.stats.running = true
	}
}

// Yield is task_yield(): a cooperative reschedule (§4.6 YieldManual).
func (k *Kernel) Yield() {
	t := k.sched.Current()
	if t == nil {
		return // called from ISR context: a no-op, matches the C kernel's guard
	}
	k.switchFrom(t, YieldManual)
}

// switchFrom re-enqueues from (which must be non-nil; a terminating task
// goes through finish instead), dispatches the next runnable task, and parks from's goroutine until its
// next turn. This is §4.4's cooperative context switch, generalized to
// every place the kernel gives up the CPU on a task's behalf.
func (k *Kernel) switchFrom(from *Task, reason YieldReason) {
	from.setState(StateToBeSuspended)
	k.sched.Requeue(from, reason)
	next := k.sched.GetNext()
	k.sched.SetCurrent(next)
	next.setState(StateRunning)
	k.trackRunning(from, next)
	k.metrics.observeContextSwitch()
	if next == from {
		return // only runnable task is the caller itself; no real switch
	}
	ready(next.g)
	park(waitReasonZero, nil)
}

// blockCurrent removes from the CPU without re-enqueuing it on the ready
// queue — the task is parked somewhere else entirely (a condition's
// suspend list, the sleep list, or both), matching §4.5's
// running -> suspended transition.
func (k *Kernel) blockCurrent(from *Task, reason waitReason, publish func()) {
	from.setState(StateSuspended)
	next := k.sched.GetNext()
	k.sched.SetCurrent(next)
	next.setState(StateRunning)
	k.trackRunning(from, next)
	k.metrics.observeContextSwitch()
	if next != from {
		ready(next.g)
	}
	park(reason, publish)
}

// Lock is scheduler_lock(): disables preemption by incrementing the
// current task's lock_count. Nested locks compose (§4.6).
func (k *Kernel) Lock() {
	t := k.sched.Current()
	if t == nil {
		return
	}
	k.sched.Lock(t)
}

// Unlock is scheduler_unlock(). When lock_count reaches zero and the tick
// ISR had set FlagSchedDrift while locked, Unlock pays the missed tick back
// with an explicit yield — looped, since a second tick can set drift again
// while the payback yield is still being dispatched (mirrors the original's
// unlock loop; see SPEC_FULL.md).
func (k *Kernel) Unlock() {
	t := k.sched.Current()
	if t == nil {
		return
	}
	for k.sched.Unlock(t) {
		k.Yield()
	}
}

// CurrentTick is current_system_tick(): the monotonic soft tick count.
func (k *Kernel) CurrentTick() uint32 { return k.tick.Current() }

// CurrentHardwareTick is current_hardware_tick(): the high-resolution
// 64-bit tick.
func (k *Kernel) CurrentHardwareTick() uint64 { return k.tick.Hardware() }

// MsToTick converts milliseconds to soft ticks (MS_TO_TICK).
func (k *Kernel) MsToTick(ms uint32) uint32 {
	return uint32(uint64(ms) * uint64(k.cfg.softTicksPerSec) / 1000)
}

// InISR reports whether the calling goroutine is inside the tick ISR's
// callback (ISR_ENTER has run but ISR_EXIT has not); KERNEL_RUNNING() in
// the original additionally checks return_task, folded in here.
func (k *Kernel) InISR() bool { return k.sched.Current() == nil && k.sched.ReturnTask() != nil }

// onTick is the tick ISR body (§4.3): advance the soft tick (already done
// by TickSource before calling this), dispatch the sleep list, and record
// scheduler drift if a higher-priority task became ready while the running
// task's lock_count was non-zero.
func (k *Kernel) onTick(tick uint32) {
	k.metrics.observeTick()
	k.sched.EnterISR()
	defer k.sched.ExitISR()

	woken := k.sleep.Advance(tick)
	for _, t := range woken {
		t.mu.Lock()
		records, _ := t.suspendData.([]*suspendRecord)
		t.resumeFrom = ResumeSleep
		t.mu.Unlock()
		// A plain SleepTicks call has no suspend records; a SuspendOn call
		// with a timeout does. Only records that actually opted into a
		// timeout (timeoutEnabled) are resolved here — a request passed
		// with Timeout == NoTimeout never should have been swept up just
		// because a sibling request in the same SuspendOn shares this
		// deadline. Any record left untouched (no individual timeout, or
		// one this sweep lost a race on) is still cleaned up by SuspendOn's
		// own post-wake pass (suspend.go), since the whole call is
		// returning regardless (§5: "a timeout firing always unlinks the
		// task from every condition it was parked on").
		for _, r := range records {
			if !r.timeoutEnabled {
				continue
			}
			if r.claim() {
				r.cond.impl.Lock()
				r.cond.list.Remove(r)
				r.cond.impl.Unlock()
				r.status = ErrTimeout
			}
		}
		t.setState(StateSleepResumePending)
		k.sched.Requeue(t, YieldSystem)
		if stats := t.stats; stats != nil {
			stats.ScheduleCount++
		}
	}

	if cur := k.sched.ReturnTask(); cur != nil && len(woken) > 0 {
		if cur.LockCount() > 0 && k.sched.HigherPriorityReady(cur) {
			k.sched.MarkDrift(cur)
		}
	}
}

// Run is kernel_run(): starts the tick source and dispatches the first
// task. Blocks until Stop is called — "does not return" in spirit, since
// the goroutine that calls Run never goes back to being a schedulable task.
func (k *Kernel) Run() {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return
	}
	k.started = true
	k.stopCh = make(chan struct{})
	k.mu.Unlock()

	k.launch(k.idleTask)
	k.sched.SetCurrent(nil)
	first := k.sched.GetNext()
	k.sched.SetCurrent(first)
	first.setState(StateRunning)
	k.trackRunning(nil, first)
	ready(first.g)

	k.tick.Start(0)
	<-k.stopCh
	k.tick.Stop()
}

// Stop halts the tick source. Intended for tests and the demo; the original
// kernel_run() has no counterpart since embedded targets never return.
func (k *Kernel) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started && k.stopCh != nil {
		select {
		case <-k.stopCh:
		default:
			close(k.stopCh)
		}
	}
}

// SleepTicks is task_sleep(): parks the calling task on the sleep list for
// n soft ticks (§4.7). n==0 is a plain Yield.
func (k *Kernel) SleepTicks(n uint32) {
	if n == 0 {
		k.Yield()
		return
	}
	t := k.sched.Current()
	kassert(t != nil, "SleepTicks called outside task context")
	wake := k.CurrentTick() + n
	k.sleep.Insert(t, wake)
	t.mu.Lock()
	t.resumeFrom = ResumeSleep
	t.mu.Unlock()
	k.blockCurrent(t, waitReasonSleep, nil)
}

// SleepMs converts ms to ticks via MsToTick and sleeps that many ticks.
func (k *Kernel) SleepMs(ms uint32) { k.SleepTicks(k.MsToTick(ms)) }

// SleepUs busy-waits on the hardware tick counter instead of the sleep
// list: §4.7 describes this as the short-delay primitive a driver reaches
// for when a value under one soft tick period is needed and parking on the
// scheduler would be wasted motion.
func (k *Kernel) SleepUs(us uint64) {
	hwTicks := us * k.cfg.hwTicksPerSec / 1_000_000
	k.SleepHwTicks(hwTicks)
}

// SleepHwTicks busy-waits n hardware ticks, yielding to the Go scheduler
// between polls so it doesn't starve other goroutines on a host machine
// (§4.7's busy-wait variant, adapted for a runtime with no real NOP loop).
func (k *Kernel) SleepHwTicks(n uint64) {
	if n == 0 {
		return
	}
	deadline := k.CurrentHardwareTick() + n
	for k.CurrentHardwareTick() < deadline {
		runtime.Gosched()
	}
}

// IdleAddWork is idle_add_work(fn, data).
func (k *Kernel) IdleAddWork(fn IdleCallback, data any) error { return k.idle.Add(fn, data) }

// IdleRemoveWork is idle_remove_work(fn, data).
func (k *Kernel) IdleRemoveWork(fn IdleCallback, data any) error { return k.idle.Remove(fn, data) }
