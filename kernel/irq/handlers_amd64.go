package irq

import (
	"sync/atomic"

	"helios/kernel"
	"helios/kernel/cpu"
	"helios/kernel/kfmt"
)

var (
	errUnhandledException = &kernel.Error{Module: "irq", Message: "unhandled exception"}

	haltFn = cpu.Halt

	tickCount uint64
)

// divideErrorHandler reports DIV or IDIV instructions whose result is
// undefined. The fault cannot be recovered; retrying the instruction would
// raise it again.
func divideErrorHandler(frame *Frame, regs *Regs) {
	kfmt.Printf("\nDivide error at RIP: 0x%16x\n", frame.RIP)
	regs.Print()
	frame.Print()
	panic(errUnhandledException)
}

// breakpointHandler logs INT3 hits and resumes execution at the instruction
// that follows them.
func breakpointHandler(frame *Frame, regs *Regs) {
	kfmt.Printf("\nBreakpoint at RIP: 0x%16x\n", frame.RIP)
	frame.Print()
}

// invalidOpcodeHandler reports attempts to execute an undefined instruction
// encoding.
func invalidOpcodeHandler(frame *Frame, regs *Regs) {
	kfmt.Printf("\nInvalid opcode at RIP: 0x%16x\n", frame.RIP)
	regs.Print()
	frame.Print()
	panic(errUnhandledException)
}

// doubleFaultHandler reports a fault that was raised while the CPU was
// dispatching an earlier fault. The machine state is too damaged to continue
// so the handler halts forever on its dedicated IST stack.
func doubleFaultHandler(code uint64, frame *Frame, regs *Regs) {
	kfmt.Printf("\nDouble fault (code: %d)\n", code)
	regs.Print()
	frame.Print()
	for {
		haltFn()
	}
}

// unhandledTrap reports a trap for which no handler has been registered.
// Execution cannot safely resume past an unclassified fault so it halts.
func unhandledTrap(vector, code uint64, frame *Frame, regs *Regs) {
	kfmt.Printf("\nUnhandled trap (vector: %d, code: %d)\n", vector, code)
	regs.Print()
	frame.Print()
	for {
		haltFn()
	}
}

// timerHandler counts programmable interval timer ticks.
func timerHandler() {
	atomic.AddUint64(&tickCount, 1)
}

// Ticks returns the number of timer interrupts serviced since boot.
func Ticks() uint64 {
	return atomic.LoadUint64(&tickCount)
}
