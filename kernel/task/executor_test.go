package task

import (
	"testing"

	"helios/kernel"
	"helios/kernel/cpu"
	"helios/kernel/sync"
)

var errTestStop = &kernel.Error{Module: "task_test", Message: "stop requested"}

func restoreInterruptFns() {
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn = cpu.EnableInterrupts
	enableInterruptsAndHaltFn = cpu.EnableInterruptsAndHalt
}

func TestExecutorRunsSpawnedTasksToCompletion(t *testing.T) {
	const numTasks = 16

	e := NewExecutor()

	var (
		wakers    []*Waker
		pollCount [numTasks]int
	)

	for i := 0; i < numTasks; i++ {
		taskIndex := i
		e.Spawn(PollFunc(func(ctx *Context) Poll {
			pollCount[taskIndex]++
			if pollCount[taskIndex] == 1 {
				wakers = append(wakers, ctx.Waker())
				return Pending
			}

			return Ready
		}))
	}

	e.RunReadyTasks()

	if len(wakers) != numTasks {
		t.Fatalf("expected %d tasks to register a waker; got %d", numTasks, len(wakers))
	}

	if len(e.tasks) != numTasks || len(e.wakers) != numTasks {
		t.Fatalf("expected %d pending tasks with cached wakers; got %d tasks and %d wakers", numTasks, len(e.tasks), len(e.wakers))
	}

	if !e.ready.Empty() {
		t.Fatal("expected the ready queue to drain after polling all tasks")
	}

	for _, w := range wakers {
		w.Wake()
	}

	e.RunReadyTasks()

	for i, got := range pollCount {
		if got != 2 {
			t.Errorf("task %d: expected 2 polls; got %d", i, got)
		}
	}

	if len(e.tasks) != 0 || len(e.wakers) != 0 {
		t.Fatalf("expected no residual task entries; got %d tasks and %d wakers", len(e.tasks), len(e.wakers))
	}
}

func TestWakerTargetsItsOwnTask(t *testing.T) {
	e := NewExecutor()

	var (
		wakers    [2]*Waker
		pollCount [2]int
	)

	for i := 0; i < 2; i++ {
		taskIndex := i
		e.Spawn(PollFunc(func(ctx *Context) Poll {
			pollCount[taskIndex]++
			if wakers[taskIndex] != nil && wakers[taskIndex] != ctx.Waker() {
				t.Errorf("task %d: expected the cached waker to be reused across polls", taskIndex)
			}
			wakers[taskIndex] = ctx.Waker()
			return Pending
		}))
	}

	e.RunReadyTasks()

	wakers[1].Wake()
	e.RunReadyTasks()

	if pollCount[0] != 1 || pollCount[1] != 2 {
		t.Fatalf("expected poll counts [1 2]; got %v", pollCount)
	}
}

func TestDuplicateWakeupsAreSkipped(t *testing.T) {
	e := NewExecutor()

	var (
		w         *Waker
		pollCount int
	)

	e.Spawn(PollFunc(func(ctx *Context) Poll {
		pollCount++
		if pollCount == 1 {
			w = ctx.Waker()
			return Pending
		}

		return Ready
	}))

	e.RunReadyTasks()

	for i := 0; i < 3; i++ {
		w.Wake()
	}

	e.RunReadyTasks()

	if pollCount != 2 {
		t.Fatalf("expected the task to be polled 2 times; got %d", pollCount)
	}

	if len(e.tasks) != 0 || len(e.wakers) != 0 {
		t.Fatal("expected the completed task to be removed")
	}

	if !e.ready.Empty() {
		t.Fatal("expected the stale ready entries to be consumed")
	}
}

func TestSpawnPanicsWhenReadyQueueFull(t *testing.T) {
	defer func() {
		if err := recover(); err != errReadyQueueFull {
			t.Fatalf("expected Spawn to panic with errReadyQueueFull; got %v", err)
		}
	}()

	e := NewExecutor()

	forever := PollFunc(func(_ *Context) Poll { return Pending })
	for i := 0; i <= sync.RingCapacity; i++ {
		e.Spawn(forever)
	}
}

func TestRunDoesNotLoseWakeupBeforeIdleCheck(t *testing.T) {
	defer restoreInterruptFns()

	e := NewExecutor()

	var (
		w         *Waker
		pollCount int
	)

	e.Spawn(PollFunc(func(ctx *Context) Poll {
		pollCount++
		if pollCount == 1 {
			w = ctx.Waker()
			return Pending
		}

		return Ready
	}))

	woken := false
	disableInterruptsFn = func() {
		// Simulate an interrupt firing right before the CPU masks
		// interrupts for the idle check.
		if !woken && w != nil {
			woken = true
			w.Wake()
		}
	}
	enableInterruptsFn = func() {}
	enableInterruptsAndHaltFn = func() {
		if pollCount != 2 {
			t.Errorf("expected the woken task to be polled before the executor halts; got %d polls", pollCount)
		}
		panic(errTestStop)
	}

	defer func() {
		if err := recover(); err != errTestStop {
			t.Fatalf("expected the executor to reach the idle halt; got %v", err)
		}

		if pollCount != 2 {
			t.Fatalf("expected the task to be polled 2 times; got %d", pollCount)
		}

		if len(e.tasks) != 0 {
			t.Fatal("expected no residual task entries")
		}
	}()

	e.Run()
}

func TestRunResumesAfterHalt(t *testing.T) {
	defer restoreInterruptFns()

	e := NewExecutor()

	var (
		w         *Waker
		pollCount int
	)

	e.Spawn(PollFunc(func(ctx *Context) Poll {
		pollCount++
		if pollCount == 1 {
			w = ctx.Waker()
			return Pending
		}

		return Ready
	}))

	haltCount := 0
	disableInterruptsFn = func() {}
	enableInterruptsFn = func() {}
	enableInterruptsAndHaltFn = func() {
		haltCount++
		if haltCount == 1 {
			// The halt ends when the next interrupt arrives; deliver
			// the wakeup it is waiting for.
			w.Wake()
			return
		}
		panic(errTestStop)
	}

	defer func() {
		if err := recover(); err != errTestStop {
			t.Fatalf("expected the executor to return to the idle halt; got %v", err)
		}

		if pollCount != 2 {
			t.Fatalf("expected the task to be polled 2 times; got %d", pollCount)
		}

		if haltCount != 2 {
			t.Fatalf("expected 2 idle halts; got %d", haltCount)
		}
	}()

	e.Run()
}
