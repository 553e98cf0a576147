package cpu

var (
	cpuidFn = ID
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt arrives.
func Halt()

// EnableInterruptsAndHalt enables interrupts and halts in the same
// instruction pair. The CPU delays interrupt delivery until the instruction
// after STI so no interrupt can be serviced between the two; callers rely on
// this when they must not lose a wakeup between deciding to sleep and
// sleeping.
func EnableInterruptsAndHalt()

// FlushTLBEntry flushes the TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table to the specified physical address and
// flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active root page
// table.
func ActivePDT() uintptr

// ReadCR2 returns the value stored in the CR2 register. After a page fault
// CR2 holds the faulting virtual address.
func ReadCR2() uint64

// LoadGDT loads a global descriptor table. descriptorPtr must point to a
// 10-byte pseudo-descriptor (limit + base).
func LoadGDT(descriptorPtr uintptr)

// LoadIDT loads an interrupt descriptor table. descriptorPtr must point to a
// 10-byte pseudo-descriptor (limit + base).
func LoadIDT(descriptorPtr uintptr)

// LoadTaskRegister loads the task register with a TSS segment selector.
func LoadTaskRegister(selector uint16)

// ReloadCS performs a far return to reload the code segment register with
// the supplied selector. It must be called right after loading a new GDT.
func ReloadCS(selector uint16)

// ID returns information about the CPU and its features. It is implemented
// as a CPUID instruction with EAX=leaf and returns the values in EAX, EBX,
// ECX and EDX.
func ID(leaf uint32) (eax, ebx, ecx, edx uint32)

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
