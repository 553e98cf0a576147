// Package keyboard drives the PS/2 keyboard and bridges its interrupts into
// the task executor. The interrupt handler pushes raw scancodes onto a fixed
// lock-free ring and wakes the decoding task; the task drains the ring,
// decodes the codes through the keyboard layout and hands the resulting
// characters to a registered sink.
package keyboard

import (
	"io"
	"sync/atomic"
	"unsafe"

	"helios/device"
	"helios/kernel"
	"helios/kernel/cpu"
	"helios/kernel/irq"
	"helios/kernel/kfmt"
	"helios/kernel/sync"
	"helios/kernel/task"
)

// kbdDataPort is the PS/2 controller data port. Reading it pops the next
// scancode from the controller's output buffer and clears the interrupt
// condition.
const kbdDataPort = uint16(0x60)

var (
	portReadByteFn    = cpu.PortReadByte
	handleInterruptFn = irq.HandleInterrupt

	// scancodes buffers raw scancodes between the interrupt handler and
	// the decoding task. The handler is the only producer and the task the
	// only consumer.
	scancodes sync.Ring

	// streamWaker points to the task.Waker of the decoding task. It is
	// published by the task while suspending and read by the interrupt
	// handler; the pointer is accessed atomically because the handler can
	// fire between the store's issue and retire on the consumer side.
	streamWaker unsafe.Pointer

	// droppedScancodes counts scancodes discarded because the ring was
	// full. Dropping input is non-fatal; the counter surfaces it in
	// diagnostics.
	droppedScancodes uint64
)

// CharSink receives the characters produced by the decoding task, one at a
// time. The shell implements it.
type CharSink interface {
	PutChar(byte)
}

// interruptHandler services the keyboard IRQ. It runs with interrupts
// disabled and must not allocate or block: it reads the scancode, queues it
// and wakes the decoding task. A full ring drops the new scancode.
func interruptHandler() {
	scancode := portReadByteFn(kbdDataPort)

	if !scancodes.TryPush(uint64(scancode)) {
		atomic.AddUint64(&droppedScancodes, 1)
	}

	if w := (*task.Waker)(atomic.LoadPointer(&streamWaker)); w != nil {
		w.Wake()
	}
}

// setStreamWaker publishes the decoding task's waker for the interrupt
// handler to invoke.
func setStreamWaker(w *task.Waker) {
	atomic.StorePointer(&streamWaker, unsafe.Pointer(w))
}

// DroppedScancodes returns the number of scancodes lost to ring overflow.
func DroppedScancodes() uint64 {
	return atomic.LoadUint64(&droppedScancodes)
}

// scancodeStream decodes buffered scancodes into characters. It tracks the
// shift key state across polls; everything else the layout cannot map is
// dropped.
type scancodeStream struct {
	sink                  CharSink
	leftShift, rightShift bool
}

// NewScancodeStream returns the keyboard decoding task. The task never
// completes; when the scancode ring drains it re-registers its waker and
// suspends until the interrupt handler signals more input.
func NewScancodeStream(sink CharSink) task.Pollable {
	return &scancodeStream{sink: sink}
}

// Poll drains and decodes all buffered scancodes.
func (s *scancodeStream) Poll(ctx *task.Context) task.Poll {
	for {
		for {
			val, ok := scancodes.TryPop()
			if !ok {
				break
			}
			s.decode(uint8(val))
		}

		setStreamWaker(ctx.Waker())

		// A scancode pushed between the last pop and the waker
		// registration would strand its wakeup; re-check before
		// suspending.
		if scancodes.Empty() {
			return task.Pending
		}
	}
}

// decode translates one scancode, forwarding any decoded character to the
// sink. Break codes only matter for the shift keys; unknown codes are
// skipped.
func (s *scancodeStream) decode(code uint8) {
	if code&scancodeBreakBit != 0 {
		switch code &^ scancodeBreakBit {
		case scancodeLeftShift:
			s.leftShift = false
		case scancodeRightShift:
			s.rightShift = false
		}
		return
	}

	switch code {
	case scancodeLeftShift:
		s.leftShift = true
		return
	case scancodeRightShift:
		s.rightShift = true
		return
	}

	var ch byte
	if s.leftShift || s.rightShift {
		ch = usQwertyShiftedKeymap[code]
	} else {
		ch = usQwertyKeymap[code]
	}

	if ch != 0 {
		s.sink.PutChar(ch)
	}
}

// PS2Keyboard is the driver for the PS/2 keyboard controller.
type PS2Keyboard struct{}

// DriverName returns the name of this driver.
func (kbd *PS2Keyboard) DriverName() string {
	return "ps2_keyboard"
}

// DriverVersion returns the version of this driver.
func (kbd *PS2Keyboard) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit attaches the keyboard interrupt handler. Interrupts are still
// disabled at this point; the handler sees its first scancode after the
// kernel enables them.
func (kbd *PS2Keyboard) DriverInit(w io.Writer) *kernel.Error {
	handleInterruptFn(irq.KeyboardIRQ, interruptHandler)
	kfmt.Fprintf(w, "attached IRQ handler for vector %d\n", uint8(irq.KeyboardIRQ))
	return nil
}

// probeForPS2Keyboard assumes the keyboard is present; every PC-compatible
// machine exposes a PS/2 controller or an emulation of one.
func probeForPS2Keyboard() device.Driver {
	return &PS2Keyboard{}
}

func init() {
	scancodes.Init()

	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderNormal,
		Probe: probeForPS2Keyboard,
	})
}
