package kfmt

import "io"

// earlyBufferSize defines the capacity of the early boot output ring. It
// holds two screenfuls of a standard 80x25 text console and must be a power
// of 2.
const earlyBufferSize = 4096

// ringBuffer buffers Printf output generated before an output sink is
// registered. Once full, new writes overwrite the oldest buffered data.
type ringBuffer struct {
	data           [earlyBufferSize]byte
	rIndex, wIndex int
}

// Write appends len(p) bytes to the ring, advancing the read index when the
// write index catches up with it.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.data[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (earlyBufferSize - 1)
		if rb.wIndex == rb.rIndex {
			rb.rIndex = (rb.rIndex + 1) & (earlyBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read copies up to len(p) buffered bytes into p. It returns io.EOF when the
// ring is empty.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	// read runs to the write index or to the end of the backing array,
	// whichever comes first
	end := rb.wIndex
	if rb.rIndex > rb.wIndex {
		end = earlyBufferSize
	}

	n := copy(p, rb.data[rb.rIndex:end])
	rb.rIndex = (rb.rIndex + n) & (earlyBufferSize - 1)

	return n, nil
}
