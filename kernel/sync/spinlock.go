// Package sync provides synchronization primitives for kernel code: spinlocks
// and a fixed-capacity lock-free ring shared with interrupt handlers.
package sync

import "sync/atomic"

var (
	// yieldFn is invoked by Acquire after spinAttempts failed attempts.
	// TODO: route through the task executor once nested polling is supported.
	yieldFn func()
)

// spinAttempts is the number of failed acquisition attempts before Acquire
// yields the processor to whoever holds the lock.
const spinAttempts = 100

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for attempt := uint32(1); !l.TryToAcquire(); attempt++ {
		if attempt%spinAttempts == 0 && yieldFn != nil {
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
