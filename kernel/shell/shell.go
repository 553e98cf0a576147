// Package shell implements the kernel's echo shell. The shell receives
// decoded characters one at a time from the keyboard decoding task and
// echoes them to the active terminal, maintaining a single line of input.
package shell

import (
	"io"
	"reflect"
	"unsafe"

	"helios/kernel"
	"helios/kernel/kfmt"
	"helios/kernel/mem/kheap"
)

const (
	// lineBufSize bounds the input line; characters typed past it are
	// dropped until the line is submitted.
	lineBufSize = 80

	prompt = "> "
)

// heapAllocFn is swapped by tests so the shell can run against host memory.
var heapAllocFn = kheap.Alloc

// Shell echoes keyboard input one character at a time. It implements the
// keyboard package's CharSink interface.
type Shell struct {
	out     io.Writer
	line    []byte
	lineLen int
}

// New creates a shell writing to out. The input line buffer comes from the
// kernel heap; New fails if the heap cannot satisfy the allocation.
func New(out io.Writer) (*Shell, *kernel.Error) {
	addr, err := heapAllocFn(lineBufSize, 1)
	if err != nil {
		return nil, err
	}

	sh := &Shell{out: out}
	sh.line = *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: addr,
		Len:  lineBufSize,
		Cap:  lineBufSize,
	}))

	return sh, nil
}

// Greet prints the shell banner and the first prompt.
func (sh *Shell) Greet() {
	kfmt.Fprintf(sh.out, "\nhelios shell - echoing keyboard input\n")
	kfmt.Fprintf(sh.out, prompt)
}

// PutChar feeds one decoded character to the shell. Printable characters are
// buffered and echoed, backspace erases the last buffered character and
// newline submits the line and prints a fresh prompt. Other control
// characters are ignored.
func (sh *Shell) PutChar(b byte) {
	switch {
	case b == '\n':
		sh.lineLen = 0
		kfmt.Fprintf(sh.out, "\n")
		kfmt.Fprintf(sh.out, prompt)
	case b == '\b':
		if sh.lineLen > 0 {
			sh.lineLen--
			kfmt.Fprintf(sh.out, "\b")
		}
	case b >= ' ' && b <= '~':
		if sh.lineLen == len(sh.line) {
			return
		}

		sh.line[sh.lineLen] = b
		sh.lineLen++
		kfmt.Fprintf(sh.out, "%c", b)
	}
}

// Line returns the contents of the input line being edited.
func (sh *Shell) Line() []byte {
	return sh.line[:sh.lineLen]
}
