// Package task implements the cooperative executor that drives kernel work
// between interrupts.
package task

import "helios/kernel/sync"

// ID uniquely identifies a spawned task.
type ID uint64

// Poll is the result of polling a task.
type Poll uint8

const (
	// Pending marks a task that has more work to do and is waiting to be
	// woken.
	Pending = Poll(iota)

	// Ready marks a task that has run to completion.
	Ready
)

// Pollable is a resumable computation driven by the executor. Poll either
// finishes the work and returns Ready or arranges for a wakeup through the
// supplied context and returns Pending. A task returning Pending without
// storing its waker somewhere is never polled again.
type Pollable interface {
	Poll(ctx *Context) Poll
}

// PollFunc adapts a plain function to the Pollable interface.
type PollFunc func(ctx *Context) Poll

// Poll invokes f.
func (f PollFunc) Poll(ctx *Context) Poll {
	return f(ctx)
}

// Context carries the waker bound to the task currently being polled.
type Context struct {
	waker *Waker
}

// Waker returns the waker that reschedules the task being polled.
func (ctx *Context) Waker() *Waker {
	return ctx.waker
}

// Waker reschedules the task it is bound to. The executor hands the same
// waker to every poll of a task so holders may compare pointers to detect
// re-registration.
type Waker struct {
	id    ID
	ready *sync.Ring
}

// Wake queues the waker's task for another poll. It is safe to call from an
// interrupt handler and may be called any number of times before the next
// poll; surplus wakeups are skipped by the executor. If the ready queue is
// full the wakeup is dropped.
func (w *Waker) Wake() {
	w.ready.TryPush(uint64(w.id))
}
