// Package allocator implements the physical frame allocators used to
// bootstrap the kernel.
package allocator

import (
	"helios/kernel"
	"helios/kernel/hal/multiboot"
	"helios/kernel/kfmt"
	"helios/kernel/mem"
	"helios/kernel/mem/pmm"
	"helios/kernel/mem/vmm"
)

var (
	// earlyAllocator is the boot memory allocator instance that serves all
	// frame allocations for this kernel.
	earlyAllocator bootMemAllocator

	errBootAllocOutOfMemory = &kernel.Error{Module: "boot_mem_alloc", Message: "out of memory"}
)

// bootMemAllocator implements a rudimentary physical memory allocator over
// the memory region list provided by the bootloader. It hands out the next
// free frame in ascending address order, skipping reserved regions and the
// region covered by the loaded kernel image, and tracks its progress with a
// cursor holding the last allocated frame.
//
// Frames handed out by this allocator can never be returned. This kernel
// never reclaims physical memory during its lifetime, so no free path
// exists.
type bootMemAllocator struct {
	// allocCount tracks the total number of allocated frames.
	allocCount uint64

	// lastAllocFrame tracks the last allocated frame number.
	lastAllocFrame pmm.Frame

	// The extents of the loaded kernel image; frames covering it are
	// never handed out.
	kernelStartAddr, kernelEndAddr   uintptr
	kernelStartFrame, kernelEndFrame pmm.Frame
}

// init sets up the boot memory allocator internal state. The kernel start
// address is rounded down and the end address rounded up to page boundaries.
func (alloc *bootMemAllocator) init(kernelStart, kernelEnd uintptr) {
	pageSizeMinus1 := uintptr(mem.PageSize - 1)
	alloc.kernelStartAddr = kernelStart
	alloc.kernelEndAddr = kernelEnd
	alloc.kernelStartFrame = pmm.Frame((kernelStart & ^pageSizeMinus1) >> mem.PageShift)
	alloc.kernelEndFrame = pmm.Frame(((kernelEnd+pageSizeMinus1) & ^pageSizeMinus1)>>mem.PageShift) - 1
}

// AllocFrame scans the memory regions reported by the bootloader and
// reserves the next available free frame. It returns an error when every
// usable region has been exhausted.
func (alloc *bootMemAllocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	var (
		err       = errBootAllocOutOfMemory
		nextFrame pmm.Frame
	)

	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		// Ignore reserved regions and regions smaller than a single page
		if region.Type != multiboot.MemAvailable || region.Length < uint64(mem.PageSize) {
			return true
		}

		// Reported addresses may not be page-aligned; round up to get
		// the start frame and round down to get the end frame
		pageSizeMinus1 := uint64(mem.PageSize - 1)
		regionStartFrame := pmm.Frame(((region.PhysAddress + pageSizeMinus1) & ^pageSizeMinus1) >> mem.PageShift)
		regionEndFrame := pmm.Frame(((region.PhysAddress+region.Length) & ^pageSizeMinus1)>>mem.PageShift) - 1

		candidate := regionStartFrame
		if alloc.allocCount != 0 && alloc.lastAllocFrame+1 > candidate {
			candidate = alloc.lastAllocFrame + 1
		}

		// Frames covering the kernel image are never handed out
		if candidate >= alloc.kernelStartFrame && candidate <= alloc.kernelEndFrame {
			candidate = alloc.kernelEndFrame + 1
		}

		// The kernel skip may push the candidate past the region end
		// (e.g. the image ends at the last page in the region)
		if candidate > regionEndFrame {
			return true
		}

		nextFrame = candidate
		err = nil
		return false
	})

	if err != nil {
		return pmm.InvalidFrame, err
	}

	alloc.lastAllocFrame = nextFrame
	alloc.allocCount++
	return nextFrame, nil
}

// printMemoryMap prints the bootloader-reported memory map and the kernel
// image extents.
func (alloc *bootMemAllocator) printMemoryMap() {
	kfmt.Printf("[boot_mem_alloc] system memory map:\n")
	var totalFree mem.Size
	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.PhysAddress, region.PhysAddress+region.Length, region.Length, region.Type.String())

		if region.Type == multiboot.MemAvailable {
			totalFree += mem.Size(region.Length)
		}
		return true
	})
	kfmt.Printf("[boot_mem_alloc] available memory: %dKb\n", uint64(totalFree/mem.Kb))
	kfmt.Printf("[boot_mem_alloc] kernel loaded at 0x%x - 0x%x\n", alloc.kernelStartAddr, alloc.kernelEndAddr)
	kfmt.Printf("[boot_mem_alloc] size: %d bytes, reserved pages: %d\n",
		uint64(alloc.kernelEndAddr-alloc.kernelStartAddr),
		uint64(alloc.kernelEndFrame-alloc.kernelStartFrame+1),
	)
}

// Init sets up the boot memory allocator from the kernel image extents
// passed by the boot code and registers it as the frame source for the page
// table manager.
func Init(kernelStart, kernelEnd uintptr) *kernel.Error {
	earlyAllocator.init(kernelStart, kernelEnd)
	earlyAllocator.printMemoryMap()
	vmm.SetFrameAllocator(EarlyAllocFrame)
	return nil
}

// EarlyAllocFrame is a vmm.FrameAllocatorFn that reserves the next free
// frame from the boot memory allocator.
func EarlyAllocFrame() (pmm.Frame, *kernel.Error) {
	return earlyAllocator.AllocFrame()
}
