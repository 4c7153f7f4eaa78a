package rtos

import "sync"

// State is a task's position in the §4.5 state machine.
type State uint8

const (
	// StateToBeSuspended mirrors TASK_TO_BE_SUSPENDED: the task has been
	// added to the scheduler, or has just yielded/been preempted, and is
	// waiting for dispatch.
	StateToBeSuspended State = iota
	// StateSuspended mirrors TASK_SUSPENDED: parked on a condition.
	StateSuspended
	// StateRunning mirrors TASK_RUNNING: currently holds the CPU.
	StateRunning
	// StateResumePending mirrors TASK_RESUME: a condition released this
	// task; it is runnable but not yet dispatched.
	StateResumePending
	// StateSleepResumePending mirrors TASK_SLEEP_RESUME: a sleep or
	// suspend timeout fired for this task.
	StateSleepResumePending
	// StateFinished mirrors TASK_FINISHED: the entry function returned.
	StateFinished
)

// ResumeFrom tags why a task last woke up.
type ResumeFrom uint8

const (
	// ResumeSystem mirrors TASK_RESUME_SYSTEM: woken by a manual release.
	ResumeSystem ResumeFrom = iota
	// ResumeSleep mirrors TASK_RESUME_SLEEP: woken because a deadline
	// elapsed.
	ResumeSleep
)

// Flags carries the per-task bits of §3.
type Flags uint8

const (
	// FlagNoReturn marks a task whose entry function must never return;
	// doing so is an assertion failure rather than a clean finish.
	FlagNoReturn Flags = 1 << iota
	// FlagSchedDrift marks a task that caused the tick ISR to skip a
	// reschedule because its lock_count was non-zero; the next unlock
	// that brings lock_count to zero must pay this back.
	FlagSchedDrift
)

// Entry is a task's entry function: an opaque argument in, nothing out.
// The real stack-and-register image §3 describes is the host goroutine's
// own stack — see the Task.stackSize field comment and DESIGN.md for why a Go port of
// this kernel cannot and need not manage task stacks itself.
type Entry func(argv any)

// Task is the kernel's TCB (§3). Callers own a Task's storage exactly like
// the C original owns a TASK struct: construct it, call Kernel.AddTask, and
// never reuse it for another entry function. The kernel never frees a Task.
type Task struct {
	Name     string
	Priority uint8
	Flags    Flags

	entry Entry
	argv  any

	mu          sync.Mutex
	state       State
	lockCount   uint32
	resumeFrom  ResumeFrom
	suspendData any

	// stackPattern/stackSize are advisory only (§3, §6 CONFIG_STACK_PATTERN):
	// on a host goroutine the runtime grows and owns the real stack, so
	// hi-water measurement has nothing meaningful to sample. They are kept
	// so callers migrating code from the C kernel have somewhere to put
	// the numbers; TaskStats never populates a real high-water value.
	stackSize    uint32
	stackPattern byte

	// wakeTick/sleepTimeoutSet back the sleep list (§3, §4.7).
	wakeTick        uint32
	sleepTimeoutSet bool

	// g is the handle of the goroutine currently embodying this task,
	// valid for the lifetime of one Kernel.AddTask call. Only the
	// dispatch.go boundary touches its underlying type.
	g goHandle

	// started is closed by runTask immediately after it publishes g, and
	// is waited on before the task is ever handed to the scheduler (see
	// Kernel.launch). Without this handshake a task can be popped off the
	// ready queue and dispatched via ready(t.g) before its goroutine has
	// run far enough to set g — ready() treats a nil handle as a no-op,
	// so the dispatch silently vanishes and the task parks forever.
	started chan struct{}

	// readyNext/sleepNext are the intrusive links used by the scheduler's
	// ready queue and sleep list respectively. A task is never on both
	// lists at once, so sharing is safe, but they're kept separate so the
	// two Lists' projection functions don't collide.
	readyNext *Task
	sleepNext *Task

	// stats, populated only when the owning Kernel was built with
	// WithTaskStats.
	stats *TaskStats

	done chan struct{}
}

// TaskStats holds the optional accounting fields §3 calls out as "do not
// affect behavior": cumulative scheduled ticks and schedule count.
type TaskStats struct {
	ScheduleCount    uint64
	TotalActiveTicks uint64
	lastActiveTick   uint32
	running          bool
}

// NewTask constructs a task control block. size and pattern are accepted
// for fidelity with task_create(tcb, name, stack, size, entry, argv, flags)
// but are advisory (see the Task.stackSize doc comment); the kernel never
// allocates or owns a stack buffer.
func NewTask(name string, priority uint8, size uint32, pattern byte, entry Entry, argv any, flags Flags) *Task {
	return &Task{
		Name:         name,
		Priority:     priority,
		Flags:        flags,
		entry:        entry,
		argv:         argv,
		state:        StateToBeSuspended,
		stackSize:    size,
		stackPattern: pattern,
		started:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// State returns the task's current state under the task's own lock.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// LockCount returns the current nested-scheduler-lock depth for this task.
func (t *Task) LockCount() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lockCount
}

// ResumeFrom reports why this task last woke up.
func (t *Task) ResumeFrom() ResumeFrom {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resumeFrom
}

// Stats returns the task's optional usage statistics, or nil if the owning
// Kernel was not built with WithTaskStats.
func (t *Task) Stats() *TaskStats { return t.stats }

func taskReadyNext(t *Task) *Task       { return t.readyNext }
func taskSetReadyNext(t, next *Task)    { t.readyNext = next }
func taskSleepNext(t *Task) *Task       { return t.sleepNext }
func taskSetSleepNext(t, next *Task)    { t.sleepNext = next }
