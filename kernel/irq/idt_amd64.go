package irq

import (
	"unsafe"

	"helios/kernel/cpu"
)

const (
	// idtOptionsMinimal describes a non-present gate with only the
	// mandatory bits (9 to 11) set.
	idtOptionsMinimal = uint16(0xe00)

	// idtOptionsPresentInterrupt describes a present interrupt gate.
	// Interrupts stay disabled while its handler runs.
	idtOptionsPresentInterrupt = uint16(0x8e00)

	idtSize = 256
)

// idtEntry describes an IDT gate in the format expected by the CPU.
type idtEntry struct {
	offsetLow  uint16
	selector   uint16
	options    uint16
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

// setOffset points the gate at the trap entry stub located at addr.
func (e *idtEntry) setOffset(addr uintptr) {
	e.offsetLow = uint16(addr)
	e.offsetMid = uint16(addr >> 16)
	e.offsetHigh = uint32(addr >> 32)
}

// setStackIndex makes the CPU switch to the given interrupt stack table slot
// before invoking the gate. The hardware encoding is 1-based; a zero value
// in the options field means no stack switch.
func (e *idtEntry) setStackIndex(slot int) {
	e.options = e.options&^0x7 | uint16(slot+1)
}

var (
	idt [idtSize]idtEntry

	idtDescriptor [10]byte

	loadIDTFn = cpu.LoadIDT
)

// trapVectorTable returns the addresses of the trap entry stubs defined in
// entry_amd64.s, indexed by trap vector.
func trapVectorTable() *[numTrapVectors]uintptr

// installIDT wires the trap entry stubs into the IDT and loads it. Vectors
// beyond the stub table stay non-present; raising one escalates to a double
// fault. The double fault gate switches to a dedicated stack so it can run
// even after a kernel stack overflow.
func installIDT() {
	for i := range idt {
		idt[i] = idtEntry{options: idtOptionsMinimal}
	}

	for vector, stub := range trapVectorTable() {
		entry := &idt[vector]
		entry.selector = gdtKernelCodeSelector
		entry.options = idtOptionsPresentInterrupt
		entry.setOffset(stub)

		if vector == int(DoubleFault) {
			entry.setStackIndex(doubleFaultStackIndex)
		}
	}

	writeDescriptorPtr(&idtDescriptor, uintptr(unsafe.Pointer(&idt[0])), uint16(unsafe.Sizeof(idt)-1))
	loadIDTFn(uintptr(unsafe.Pointer(&idtDescriptor[0])))
}
