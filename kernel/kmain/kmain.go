// Package kmain orchestrates kernel boot: it brings up the descriptor
// tables and interrupt handling, the physical and virtual memory managers,
// the Go runtime, the kernel heap and the detected devices, then hands
// control to the task executor which runs until the machine powers off.
package kmain

import (
	"helios/device/input/keyboard"
	"helios/kernel"
	"helios/kernel/cpu"
	"helios/kernel/goruntime"
	"helios/kernel/hal"
	"helios/kernel/hal/multiboot"
	"helios/kernel/irq"
	"helios/kernel/kfmt"
	"helios/kernel/mem/kheap"
	"helios/kernel/mem/pmm/allocator"
	"helios/kernel/mem/vmm"
	"helios/kernel/shell"
	"helios/kernel/task"
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// Kmain is the only Go symbol that is visible (exported) to the rt0
// initialization code. It is invoked by the rt0 assembly after it loads a
// minimal GDT and sets up a g0 struct over the boot stack.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader, the physical extents of the loaded kernel image and the
// virtual offset at which the bootloader mapped physical memory.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the
// CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd, physMemOffset uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	// Descriptor tables and interrupt handlers must exist before any
	// subsystem that can fault; interrupts stay disabled until the
	// executor is ready to receive wakeups.
	irq.Install()

	var err *kernel.Error
	if err = allocator.Init(kernelStart, kernelEnd); err != nil {
		panic(err)
	} else if err = vmm.Init(physMemOffset); err != nil {
		panic(err)
	} else if err = goruntime.Init(); err != nil {
		panic(err)
	} else if err = kheap.Init(); err != nil {
		panic(err)
	}

	hal.DetectHardware()
	if s := hal.ActiveSerial(); s != nil {
		kfmt.SetPanicMirror(s)
	}

	sh, err := shell.New(kfmt.GetOutputSink())
	if err != nil {
		// The shell cannot come up without its line buffer; the kernel
		// has nothing to do beyond this point.
		panic(err)
	}

	executor := task.NewExecutor()
	executor.Spawn(task.PollFunc(func(_ *task.Context) task.Poll {
		sh.Greet()
		return task.Ready
	}))
	executor.Spawn(keyboard.NewScancodeStream(sh))

	cpu.EnableInterrupts()
	executor.Run()

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	kfmt.Panic(errKmainReturned)
}
