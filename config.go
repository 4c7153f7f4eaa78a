package rtos

import "log/slog"

// Config gathers the compile-time options §6 enumerates (TASK_STATS,
// CONFIG_SLEEP, CONFIG_SEMAPHORE, IDLE_WORK_MAX, SOFT_TICKS_PER_SEC,
// CONFIG_STACK_PATTERN, ASSERT_ENABLE/ASSERT_FILE_INFO) as a single struct
// built with functional options, the idiomatic Go stand-in for a header full
// of #defines chosen once at build time and fixed for the life of the
// kernel object. CONFIG_SLEEP and CONFIG_SEMAPHORE have no field or option
// here: the sleep list and Semaphore are always built in.
type Config struct {
	softTicksPerSec uint32
	hwTicksPerSec   uint64
	stackPattern    byte
	idleWorkSlots   int
	taskStats       bool
	assertEnabled   bool
	assertFileInfo  bool
	logger          *slog.Logger
	metrics         *metricsRecorder
}

// Option configures a Kernel at construction time.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		softTicksPerSec: 1000,
		hwTicksPerSec:   1_000_000,
		stackPattern:    0xA5,
		idleWorkSlots:   8,
		taskStats:       false,
		assertEnabled:   true,
		assertFileInfo:  true,
	}
}

// WithSoftTicksPerSec sets SOFT_TICKS_PER_SEC, the tick ISR's rate.
func WithSoftTicksPerSec(hz uint32) Option {
	return func(c *Config) { c.softTicksPerSec = hz }
}

// WithHardwareTicksPerSec sets the resolution of CurrentHardwareTick.
func WithHardwareTicksPerSec(hz uint64) Option {
	return func(c *Config) { c.hwTicksPerSec = hz }
}

// WithStackPattern sets CONFIG_STACK_PATTERN, the fill byte used for stack
// hi-water measurement. Advisory only on this port — see the Task.stackSize
// field comment: New records it on the idle task, and TaskStats does not
// report it.
func WithStackPattern(b byte) Option {
	return func(c *Config) { c.stackPattern = b }
}

// WithIdleWorkSlots sets IDLE_WORK_MAX, the fixed size of the idle-work
// table.
func WithIdleWorkSlots(n int) Option {
	return func(c *Config) { c.idleWorkSlots = n }
}

// WithTaskStats enables TASK_STATS/TASK_USAGE accounting (schedule count,
// cumulative active ticks) on every task.
func WithTaskStats() Option {
	return func(c *Config) { c.taskStats = true }
}

// WithAssertDisabled elides ASSERT_ENABLE: invariant checks compile to
// no-ops instead of halting. Mirrors building the original kernel without
// assertions; not recommended outside of benchmarking.
func WithAssertDisabled() Option {
	return func(c *Config) { c.assertEnabled = false }
}

// WithoutAssertFileInfo disables ASSERT_FILE_INFO: halt diagnostics omit
// the caller's file:line.
func WithoutAssertFileInfo() Option {
	return func(c *Config) { c.assertFileInfo = false }
}

// WithLogger overrides the kernel's sys-log glue (§4.11).
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithMetrics attaches a Prometheus recorder for scheduler/task statistics
// (see SPEC_FULL.md's DOMAIN STACK section). Passing nil is equivalent to
// omitting the option; metrics are purely observational either way.
func WithMetrics(r *MetricsRecorder) Option {
	return func(c *Config) {
		if r != nil {
			c.metrics = r.internal
		}
	}
}
