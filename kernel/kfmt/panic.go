package kfmt

import (
	"io"

	"helios/kernel"
	"helios/kernel/cpu"
)

var (
	// cpuHaltFn is swapped by tests; the compiler inlines the direct call
	// in kernel builds.
	cpuHaltFn = cpu.Halt

	// panicMirror is an additional sink that receives a copy of panic
	// output. Fatal reports must reach every operational output device
	// because the primary sink may be the device that failed.
	panicMirror io.Writer

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// SetPanicMirror registers a secondary sink for panic diagnostics.
func SetPanicMirror(w io.Writer) {
	panicMirror = w
}

// Panic prints the supplied error (if not nil) to the active sinks and halts
// the CPU. Calls to Panic never return. Panic also serves as the redirection
// target for calls to panic() (resolved via runtime.gopanic).
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		panicString(t)
		return
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	panicPrintf("\n-----------------------------------\n")
	if err != nil {
		panicPrintf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	panicPrintf("*** kernel panic: system halted ***")
	panicPrintf("\n-----------------------------------\n")

	cpuHaltFn()
}

// panicPrintf sends formatted panic output to the registered sink and its
// mirror.
func panicPrintf(format string, args ...interface{}) {
	Printf(format, args...)
	if panicMirror != nil {
		Fprintf(panicMirror, format, args...)
	}
}

// panicString serves as the redirection target for runtime.throw.
//go:redirect-from runtime.throw
func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}
