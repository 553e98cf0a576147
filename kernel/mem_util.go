package kernel

import (
	"reflect"
	"unsafe"
)

// Memset sets size bytes starting at addr to value. Instead of a plain byte
// loop it seeds the first byte and then doubles the initialized prefix with
// copy calls, which the runtime turns into wide moves; the regions handed to
// it are page-aligned so the wide path is always taken.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: addr,
	}))

	target[0] = value
	for done := uintptr(1); done < size; done *= 2 {
		copy(target[done:], target[:done])
	}
}

// Memcopy copies size bytes from src to dst. The ranges must not overlap.
func Memcopy(src, dst uintptr, size uintptr) {
	if size == 0 {
		return
	}

	srcSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: src,
	}))
	dstSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: dst,
	}))

	copy(dstSlice, srcSlice)
}
