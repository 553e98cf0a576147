package irq

var irqInstalled bool

// Install loads a minimal GDT and TSS pair, wires the trap entry stubs into
// the IDT and remaps the PIC interrupt lines clear of the CPU exception
// vectors. It also attaches the built-in handlers for the faults the kernel
// knows how to report; additional handlers can be registered at any point
// via HandleException, HandleExceptionWithCode and HandleInterrupt.
//
// Install must be called before interrupts are enabled. Calling it a second
// time is a no-op.
func Install() {
	if irqInstalled {
		return
	}
	irqInstalled = true

	installGDT()
	installIDT()
	picInit()

	HandleException(DivideError, divideErrorHandler)
	HandleException(Breakpoint, breakpointHandler)
	HandleException(InvalidOpcode, invalidOpcodeHandler)
	HandleExceptionWithCode(DoubleFault, doubleFaultHandler)
	HandleInterrupt(TimerIRQ, timerHandler)
}
