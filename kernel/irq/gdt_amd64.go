package irq

import (
	"unsafe"

	"helios/kernel/cpu"
	"helios/kernel/mem"
)

const (
	// gdtKernelCodeDescriptor describes a 64-bit ring-0 code segment. In
	// long mode the base and limit fields are ignored by the CPU; only
	// the present, executable and long mode attribute bits matter.
	gdtKernelCodeDescriptor = uint64(0x00af9b000000ffff)

	// Segment selectors are byte offsets into the GDT. The TSS descriptor
	// spans two slots so there is no selector for slot 3.
	gdtKernelCodeSelector = uint16(0x08)
	gdtTSSSelector        = uint16(0x10)

	// doubleFaultStackIndex is the interrupt stack table slot reserved
	// for the double fault handler. Switching to a known-good stack lets
	// the handler run even when the fault was caused by a kernel stack
	// overflow.
	doubleFaultStackIndex = 0
)

// taskStateSegment is the 64-bit TSS layout expected by the CPU. The stack
// addresses it contains are packed as unaligned dword pairs; declaring them
// as uint64 fields would make Go pad the struct and break the hardware
// layout.
type taskStateSegment struct {
	reserved0 uint32
	rsp       [6]uint32
	reserved1 [2]uint32
	ist       [14]uint32
	reserved2 [2]uint32
	reserved3 uint16
	ioMapBase uint16
}

// setIST installs addr as the stack pointer for the given interrupt stack
// table slot. Slot numbering starts at 0; the IDT gate options encode the
// same slot as slot+1.
func (tss *taskStateSegment) setIST(slot int, addr uintptr) {
	tss.ist[2*slot] = uint32(addr)
	tss.ist[2*slot+1] = uint32(addr >> 32)
}

var (
	// gdt is the global descriptor table: the mandatory null descriptor,
	// the kernel code descriptor and a two-slot TSS descriptor.
	gdt [4]uint64

	tssSegment taskStateSegment

	// doubleFaultStack is the memory backing the IST slot used by the
	// double fault handler. The TSS receives its end address since stacks
	// grow towards lower addresses.
	doubleFaultStack [5 * mem.PageSize]byte

	gdtDescriptor [10]byte

	loadGDTFn          = cpu.LoadGDT
	reloadCSFn         = cpu.ReloadCS
	loadTaskRegisterFn = cpu.LoadTaskRegister
)

// tssDescriptor encodes the pair of GDT slots that describe a 64-bit TSS
// located at base.
func tssDescriptor(base uintptr) (low, high uint64) {
	low = 1<<47 | // present
		0x9<<40 | // available 64-bit TSS
		uint64(unsafe.Sizeof(tssSegment)-1) | // limit, inclusive
		(uint64(base)&0xffffff)<<16 |
		(uint64(base)>>24&0xff)<<56
	high = uint64(base) >> 32

	return low, high
}

// installGDT populates and loads the GDT, reloads the code segment selector
// and points the task register at the TSS so that interrupt stack table
// lookups work.
func installGDT() {
	tssSegment.setIST(doubleFaultStackIndex, uintptr(unsafe.Pointer(&doubleFaultStack[0]))+uintptr(len(doubleFaultStack)))

	gdt[0] = 0
	gdt[1] = gdtKernelCodeDescriptor
	gdt[2], gdt[3] = tssDescriptor(uintptr(unsafe.Pointer(&tssSegment)))

	writeDescriptorPtr(&gdtDescriptor, uintptr(unsafe.Pointer(&gdt[0])), uint16(len(gdt)*8-1))
	loadGDTFn(uintptr(unsafe.Pointer(&gdtDescriptor[0])))
	reloadCSFn(gdtKernelCodeSelector)
	loadTaskRegisterFn(gdtTSSSelector)
}

// writeDescriptorPtr assembles the 10-byte pseudo-descriptor (16-bit limit
// followed by a 64-bit base) expected by the LGDT and LIDT instructions. A
// struct cannot be used here as Go would insert padding between the fields.
func writeDescriptorPtr(buf *[10]byte, base uintptr, limit uint16) {
	buf[0] = byte(limit)
	buf[1] = byte(limit >> 8)
	for i := uint(0); i < 8; i++ {
		buf[2+i] = byte(base >> (8 * i))
	}
}
