package rtos

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// §4.11 / §7: assertion failures halt the system with a diagnostic,
// synchronously, with interrupts (here, the kernel lock) already held by the
// caller. There is no recovery path — a task that asserts does not continue
// in a degraded mode.
//
// AssertFileInfo mirrors the ASSERT_FILE_INFO compile-time option: when
// true, the halt record carries the caller's file:line.
var AssertFileInfo = true

// AssertEnabled mirrors ASSERT_ENABLE: building with WithAssertDisabled sets
// this false, and kassert's invariant checks become no-ops.
var AssertEnabled = true

// haltFunc is swapped out by tests so an assertion failure can be observed
// instead of terminating the test binary.
var haltFunc = func() { os.Exit(1) }

// assertLogger is the kernel's sys-log glue. A *slog.Logger rather than a
// third-party logger: the kernel's own assert path runs synchronously with
// the kernel lock held, so the handler on the hot path must not allocate or
// block, and slog's disabled-level fast path already guarantees that — the
// pack's own KafClaw/internal/scheduler reaches for log/slog over a
// structured third-party logger for the same reason (see DESIGN.md).
var assertLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

// SetLogger overrides the kernel's diagnostic logger.
func SetLogger(l *slog.Logger) { assertLogger = l }

// kassert halts the kernel if cond is false. Every invariant check in this
// package goes through here so assertion behavior (logging, halting) stays
// in one place.
func kassert(cond bool, msg string, args ...any) {
	if cond || !AssertEnabled {
		return
	}
	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}
	var attrs []any
	if AssertFileInfo {
		if _, file, line, ok := runtime.Caller(2); ok {
			attrs = append(attrs, slog.String("at", fmt.Sprintf("%s:%d", file, line)))
		}
	}
	assertLogger.Error("kernel assertion failed: "+formatted, attrs...)
	haltFunc()
}
