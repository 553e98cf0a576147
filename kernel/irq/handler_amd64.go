package irq

const (
	// irqBaseVector is the trap vector that the first hardware interrupt
	// line gets remapped to. The 32 vectors below it are reserved for CPU
	// exceptions.
	irqBaseVector = 32

	// numTrapVectors is the number of trap vectors backed by an entry
	// stub: 32 CPU exceptions plus 16 remapped hardware interrupt lines.
	numTrapVectors = 48
)

// ExceptionNum defines an exception number that can be
// passed to the HandleException and HandleExceptionWithCode
// functions.
type ExceptionNum uint8

const (
	// DivideError occurs when a DIV or IDIV instruction divides
	// by zero or the quotient does not fit into the destination
	// register.
	DivideError = ExceptionNum(0)

	// Breakpoint occurs when the CPU executes an INT3 instruction.
	Breakpoint = ExceptionNum(3)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = ExceptionNum(6)

	// DoubleFault occurs when an exception is unhandled
	// or when an exception occurs while the CPU is
	// trying to call an exception handler.
	DoubleFault = ExceptionNum(8)

	// GPFException is raised when a general protection fault occurs.
	GPFException = ExceptionNum(13)

	// PageFaultException is raised when a PDT or
	// PDT-entry is not present or when a privilege
	// and/or RW protection check fails.
	PageFaultException = ExceptionNum(14)
)

// IRQNum identifies one of the 16 hardware interrupt lines delivered
// through the remapped PIC chain.
type IRQNum uint8

const (
	// TimerIRQ fires on each programmable interval timer tick.
	TimerIRQ = IRQNum(irqBaseVector)

	// KeyboardIRQ fires when the PS/2 controller output buffer holds a
	// new scancode.
	KeyboardIRQ = IRQNum(irqBaseVector + 1)
)

// ExceptionHandler is a function that handles an exception that does not push
// an error code to the stack. If the handler returns, any modifications to the
// supplied Frame and/or Regs pointers will be propagated back to the location
// where the exception occurred.
type ExceptionHandler func(*Frame, *Regs)

// ExceptionHandlerWithCode is a function that handles an exception that pushes
// an error code to the stack. If the handler returns, any modifications to the
// supplied Frame and/or Regs pointers will be propagated back to the location
// where the exception occurred.
type ExceptionHandlerWithCode func(uint64, *Frame, *Regs)

// InterruptHandler is a function that handles a hardware interrupt. It runs
// with interrupts disabled and must not block.
type InterruptHandler func()

// The handler registries are fixed arrays indexed by trap vector so that
// registration works before the Go runtime allocator has been bootstrapped.
var (
	exceptionHandlers     [numTrapVectors]ExceptionHandler
	exceptionCodeHandlers [numTrapVectors]ExceptionHandlerWithCode
	interruptHandlers     [numTrapVectors]InterruptHandler
)

// HandleException registers an exception handler (without an error code) for
// the given interrupt number.
func HandleException(exceptionNum ExceptionNum, handler ExceptionHandler) {
	exceptionHandlers[exceptionNum] = handler
}

// HandleExceptionWithCode registers an exception handler (with an error code)
// for the given interrupt number.
func HandleExceptionWithCode(exceptionNum ExceptionNum, handler ExceptionHandlerWithCode) {
	exceptionCodeHandlers[exceptionNum] = handler
}

// HandleInterrupt registers a handler to be invoked whenever the given
// hardware interrupt line fires. The dispatcher acknowledges the PIC after
// the handler returns; handlers must not emit the acknowledgment themselves.
func HandleInterrupt(irqNum IRQNum, handler InterruptHandler) {
	interruptHandlers[irqNum] = handler
}

// dispatchInterrupt is invoked by the trap entry stubs to route an incoming
// trap to its registered handler. Stack growth is not allowed here: the trap
// frame lives on the interrupted stack and must not move until the stubs
// restore it.
//
//go:nosplit
func dispatchInterrupt(vector uint64, regs *Regs, frame *Frame, code uint64) {
	switch {
	case exceptionCodeHandlers[vector] != nil:
		exceptionCodeHandlers[vector](code, frame, regs)
	case exceptionHandlers[vector] != nil:
		exceptionHandlers[vector](frame, regs)
	case interruptHandlers[vector] != nil:
		interruptHandlers[vector]()
	case vector < irqBaseVector:
		unhandledTrap(vector, code, frame, regs)
	}

	// Hardware interrupt lines must be acknowledged even when no handler
	// is attached or the PIC will never raise that line again.
	if vector >= irqBaseVector {
		picAcknowledge(vector)
	}
}
