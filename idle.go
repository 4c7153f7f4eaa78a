package rtos

import (
	"reflect"
	"sync"
)

// IdleCallback is one registered idle-time unit of work (§3 "Idle work
// table", §4.10). Callbacks must be non-blocking; blocking in idle is legal
// per §4.10 but starves every other registered callback.
type IdleCallback func(data any)

type idleEntry struct {
	fn   IdleCallback
	data any
	used bool
}

// IdleTable is the fixed-size (IDLE_WORK_MAX) callback table §4.10
// describes. Add finds a free slot; Remove matches by (callback, opaque)
// identity, comparing function identity via pointer equality the way
// Go necessarily must for values that aren't otherwise comparable.
type IdleTable struct {
	mu      sync.Mutex
	entries []idleEntry
}

// NewIdleTable returns an idle table with the given number of slots
// (IDLE_WORK_MAX).
func NewIdleTable(slots int) *IdleTable {
	if slots <= 0 {
		slots = 1
	}
	return &IdleTable{entries: make([]idleEntry, slots)}
}

// Add registers fn to be invoked with data on every idle pass. Returns
// ErrIdleNoSpace if the table is full (IDLE_NO_SPACE).
func (it *IdleTable) Add(fn IdleCallback, data any) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	for i := range it.entries {
		if !it.entries[i].used {
			it.entries[i] = idleEntry{fn: fn, data: data, used: true}
			return nil
		}
	}
	return ErrIdleNoSpace
}

// Remove unregisters the (fn, data) entry added by Add. Returns
// ErrIdleNotFound if no matching entry exists (IDLE_NOT_FOUND).
func (it *IdleTable) Remove(fn IdleCallback, data any) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	target := reflect.ValueOf(fn).Pointer()
	for i := range it.entries {
		e := &it.entries[i]
		if e.used && reflect.ValueOf(e.fn).Pointer() == target && e.data == data {
			*e = idleEntry{}
			return nil
		}
	}
	return ErrIdleNotFound
}

// snapshot copies the current entries out from under the lock so the
// round-robin runner never calls a callback while holding it (a callback
// registering or removing another entry must not deadlock).
func (it *IdleTable) snapshot() []idleEntry {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make([]idleEntry, len(it.entries))
	copy(out, it.entries)
	return out
}

// runOnce invokes every registered callback once, in slot order. Reports
// whether any callback ran, so the caller can back off when the table is
// empty instead of spinning.
func (it *IdleTable) runOnce() (ran bool) {
	for _, e := range it.snapshot() {
		if e.used {
			e.fn(e.data)
			ran = true
		}
	}
	return ran
}
