package vmm

import (
	"helios/kernel/cpu"
	"helios/kernel/mem"
	"unsafe"
)

var (
	// translationOffset is the virtual address where the bootloader has
	// mapped the whole of physical memory. Adding the offset to a physical
	// address yields a virtual address through which the kernel can access
	// that physical memory without any further page table manipulation.
	translationOffset uintptr

	// activePDTFn is used by tests to override calls to cpu.ActivePDT
	// which will cause a fault if called in user-mode.
	activePDTFn = cpu.ActivePDT

	// ptePointerFn returns a pointer to the supplied entry address. It is
	// used by tests to override the generated page table entry pointers so
	// walk() can be properly tested. When compiling the kernel this function
	// will be automatically inlined.
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(entryAddr)
	}
)

// SetTranslationOffset registers the virtual address where the bootloader
// mapped physical memory. It must be called before any other function in this
// package is used.
func SetTranslationOffset(offset uintptr) {
	translationOffset = offset
}

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments.  If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address. It calls the
// suppplied walkFn with the page table entry that corresponds to each page
// table level. If walkFn returns false then the walk is aborted.
func walk(virtAddr uintptr, walkFn pageTableWalker) {
	var (
		level      uint8
		tableAddr  uintptr
		entryIndex uintptr
		pte        *pageTableEntry
	)

	// tableAddr tracks the physical address of the page table for the
	// current level; its entries are accessed through the physical memory
	// mapping the bootloader established at translationOffset. The table
	// for the next level is the frame the current entry points to.
	for level, tableAddr = uint8(0), activePDTFn(); level < pageLevels; level, tableAddr = level+1, pte.Frame().Address() {
		// Extract the bits from virtual address that correspond to the
		// index in this level's page table
		entryIndex = (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)

		pte = (*pageTableEntry)(ptePtrFn(translationOffset + tableAddr + (entryIndex << mem.PointerShift)))
		if !walkFn(level, pte) {
			return
		}
	}
}
