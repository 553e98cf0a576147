package task

import (
	"helios/kernel"
	"helios/kernel/cpu"
	"helios/kernel/sync"
)

var (
	errTaskIDInUse    = &kernel.Error{Module: "task", Message: "task id already in use"}
	errReadyQueueFull = &kernel.Error{Module: "task", Message: "ready queue full"}

	disableInterruptsFn       = cpu.DisableInterrupts
	enableInterruptsFn        = cpu.EnableInterrupts
	enableInterruptsAndHaltFn = cpu.EnableInterruptsAndHalt
)

// Executor runs spawned tasks to completion. It is single-threaded and
// cooperative: a polled task runs until it returns, and the only source of
// concurrency is interrupt handlers invoking wakers.
type Executor struct {
	// tasks holds the spawned computations that have not completed yet.
	tasks map[ID]Pollable

	// wakers caches the waker built for each task so repeated polls hand
	// out the same one instead of allocating a new waker per poll.
	wakers map[ID]*Waker

	// ready queues the ids of tasks that should be polled. Wakers push
	// into it from interrupt context.
	ready sync.Ring

	nextID ID
}

// NewExecutor returns an executor with an empty task table.
func NewExecutor() *Executor {
	e := &Executor{
		tasks:  make(map[ID]Pollable),
		wakers: make(map[ID]*Waker),
	}
	e.ready.Init()

	return e
}

// Spawn assigns the computation a fresh id and queues it for its first poll.
// It panics if the ready queue cannot absorb another task. Spawn must not be
// called from an interrupt handler.
func (e *Executor) Spawn(p Pollable) {
	id := e.nextID
	e.nextID++

	if _, exists := e.tasks[id]; exists {
		panic(errTaskIDInUse)
	}
	e.tasks[id] = p

	if !e.ready.TryPush(uint64(id)) {
		panic(errReadyQueueFull)
	}
}

// RunReadyTasks polls tasks from the ready queue until it drains. Tasks
// woken while this runs are polled before it returns. Completed tasks are
// removed together with their cached waker.
func (e *Executor) RunReadyTasks() {
	for {
		val, ok := e.ready.TryPop()
		if !ok {
			return
		}

		id := ID(val)
		t, exists := e.tasks[id]
		if !exists {
			// The task completed with one more wakeup queued; stale
			// ready entries are skipped.
			continue
		}

		waker, exists := e.wakers[id]
		if !exists {
			waker = &Waker{id: id, ready: &e.ready}
			e.wakers[id] = waker
		}

		ctx := Context{waker: waker}
		if t.Poll(&ctx) == Ready {
			delete(e.tasks, id)
			delete(e.wakers, id)
		}
	}
}

// Run drives tasks forever: it polls everything that is ready and then halts
// the CPU until the next interrupt. It never returns.
func (e *Executor) Run() {
	for {
		e.RunReadyTasks()
		e.sleepIfIdle()
	}
}

// sleepIfIdle halts the CPU when no task is ready. The emptiness check runs
// with interrupts disabled and the halt re-enables them in the same
// instruction pair, so a wakeup raised by an interrupt cannot slip between
// the check and the halt.
func (e *Executor) sleepIfIdle() {
	disableInterruptsFn()
	if e.ready.Empty() {
		enableInterruptsAndHaltFn()
	} else {
		enableInterruptsFn()
	}
}
