// Package kheap implements the kernel heap: a fixed virtual memory region
// that gets mapped at boot and carved up by a first-fit free-list allocator.
//
// Free regions are tracked by intrusive list nodes written into the free
// memory itself so the allocator needs no storage of its own. Freed regions
// are pushed to the head of the list and never coalesced with their
// neighbors; fragmentation is an accepted characteristic of this allocator.
package kheap

import (
	"unsafe"

	"helios/kernel"
	"helios/kernel/kfmt"
	"helios/kernel/mem"
	"helios/kernel/mem/pmm/allocator"
	"helios/kernel/mem/vmm"
	"helios/kernel/sync"
)

var (
	// heapStart is an easily recognizable base address for the kernel heap
	// region.
	heapStart = uintptr(0x444444440000)

	// heapSize is the size of the kernel heap region.
	heapSize = 100 * mem.Kb

	kernelHeap      linkedListAllocator
	heapLock        sync.Spinlock
	heapInitialized bool

	// the following functions are mocked by tests
	mapFn        = vmm.Map
	frameAllocFn = allocator.EarlyAllocFrame

	// ErrHeapExhausted is returned by Alloc when no free region can satisfy
	// a request. Callers decide whether failing the request is fatal.
	ErrHeapExhausted = &kernel.Error{Module: "kheap", Message: "out of heap space"}
)

// listNode describes one free region inside the heap. Nodes are intrusive:
// each one is written into the first bytes of the region it describes.
type listNode struct {
	next *listNode
	size uintptr
}

const (
	nodeSize  = unsafe.Sizeof(listNode{})
	nodeAlign = unsafe.Alignof(listNode{})
)

func (n *listNode) startAddr() uintptr {
	return uintptr(unsafe.Pointer(n))
}

func (n *listNode) endAddr() uintptr {
	return n.startAddr() + n.size
}

// fits reports whether this region can hold an allocation with the given
// size and alignment and returns the address such an allocation would start
// at. A fit that would strand a tail fragment too small to hold a listNode
// is rejected; the region is only usable whole or split into two trackable
// parts.
func (n *listNode) fits(size, align uintptr) (uintptr, bool) {
	allocStart := alignUp(n.startAddr(), align)
	allocEnd := allocStart + size

	if allocEnd < allocStart || allocEnd > n.endAddr() {
		return 0, false
	}

	if excess := n.endAddr() - allocEnd; excess > 0 && excess < nodeSize {
		return 0, false
	}

	return allocStart, true
}

// linkedListAllocator tracks the free regions of the heap in an intrusive
// singly linked list rooted at a dummy head node.
type linkedListAllocator struct {
	head listNode
}

// addFreeRegion writes a listNode describing the given region into the
// region itself and links it in as the new list head. The region start must
// be listNode-aligned and its size large enough to hold a node; Alloc and
// Free maintain both invariants for every region they produce.
func (alloc *linkedListAllocator) addFreeRegion(addr, size uintptr) {
	node := (*listNode)(unsafe.Pointer(addr))
	node.size = size
	node.next = alloc.head.next
	alloc.head.next = node
}

// findRegion scans the free list for the first region that can satisfy the
// request, unlinks it and returns it together with the address the
// allocation starts at.
func (alloc *linkedListAllocator) findRegion(size, align uintptr) (*listNode, uintptr) {
	for current := &alloc.head; current.next != nil; current = current.next {
		region := current.next
		allocStart, ok := region.fits(size, align)
		if !ok {
			continue
		}

		current.next = region.next
		region.next = nil
		return region, allocStart
	}

	return nil, 0
}

func (alloc *linkedListAllocator) alloc(size, align uintptr) (uintptr, *kernel.Error) {
	region, allocStart := alloc.findRegion(size, align)
	if region == nil {
		return 0, ErrHeapExhausted
	}

	// reinsert the tail left over after the allocation; fits guarantees it
	// can hold a node
	allocEnd := allocStart + size
	if excess := region.endAddr() - allocEnd; excess > 0 {
		alloc.addFreeRegion(allocEnd, excess)
	}

	return allocStart, nil
}

// alignUp aligns addr to the next multiple of align.
func alignUp(addr, align uintptr) uintptr {
	if rem := addr % align; rem != 0 {
		return addr - rem + align
	}
	return addr
}

// sizeAdjust pads size so the allocated region can hold a listNode once it
// is freed and so region boundaries stay node-aligned.
func sizeAdjust(size uintptr) uintptr {
	size = alignUp(size, nodeAlign)
	if size < nodeSize {
		size = nodeSize
	}
	return size
}

// Alloc reserves size bytes aligned to align and returns the address of the
// reservation. It returns ErrHeapExhausted when no free region can satisfy
// the request; whether that is fatal is the caller's decision. Alloc must
// not be called from interrupt context.
func Alloc(size, align uintptr) (uintptr, *kernel.Error) {
	if align < nodeAlign {
		align = nodeAlign
	}
	size = sizeAdjust(size)

	heapLock.Acquire()
	addr, err := kernelHeap.alloc(size, align)
	heapLock.Release()

	return addr, err
}

// Free returns the allocation at addr to the heap. The size must match the
// size passed to the Alloc call that produced addr. The freed region becomes
// the new free-list head and is not merged with adjacent free regions.
func Free(addr, size uintptr) {
	size = sizeAdjust(size)

	heapLock.Acquire()
	kernelHeap.addFreeRegion(addr, size)
	heapLock.Release()
}

// Init maps the heap region page by page and seeds the allocator with a
// single free region spanning the whole of it. It must be called after the
// vmm package is initialized and before the first Alloc call.
func Init() *kernel.Error {
	if heapInitialized {
		return nil
	}

	for page, lastPage := vmm.PageFromAddress(heapStart), vmm.PageFromAddress(heapStart+uintptr(heapSize)-1); page <= lastPage; page++ {
		frame, err := frameAllocFn()
		if err != nil {
			return err
		}

		if err = mapFn(page, frame, vmm.FlagPresent|vmm.FlagRW); err != nil {
			return err
		}
	}

	kernelHeap.addFreeRegion(heapStart, uintptr(heapSize))
	heapInitialized = true

	kfmt.Printf("[kheap] heap region: [0x%12x - 0x%12x], size: %d\n", heapStart, heapStart+uintptr(heapSize), uint64(heapSize))
	return nil
}
