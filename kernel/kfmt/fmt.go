package kfmt

import (
	"io"
	"unsafe"

	"helios/kernel"
)

// maxBufSize defines the size of the scratch buffer used when formatting
// numbers; it is large enough for a zero-padded 64-bit value in any
// supported base plus a sign.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")
	errSeparator    = []byte(": ")

	// numFmtBuf holds formatted number output. The kernel is single-core
	// and formatting never yields, so a package-level scratch buffer is
	// safe and avoids allocating.
	numFmtBuf [maxBufSize]byte

	// singleByte is a shared one-byte buffer for routing individual
	// characters to doWrite without allocating.
	singleByte = []byte(" ")

	// earlyPrintBuffer captures Printf output generated before an output
	// sink has been registered.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. While
	// nil, output is steered into earlyPrintBuffer instead.
	outputSink io.Writer
)

// SetOutputSink sets the target for Printf calls to w and drains any output
// accumulated in the early boot ring buffer into it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the io.Writer that Printf output is routed to. If no
// sink has been registered yet it returns the early boot ring buffer so that
// callers always receive a usable writer.
func GetOutputSink() io.Writer {
	if outputSink == nil {
		return &earlyPrintBuffer
	}

	return outputSink
}

// Printf formats its arguments and writes the result to the registered
// output sink. Until a sink is registered, output accumulates in a ring
// buffer that is replayed into the first sink; this allows the kernel to log
// before the console is up.
//
// Printf is safe to call before the Go runtime is fully initialized: it does
// not allocate. The supported verb subset is:
//
// Strings:
//		%s the uninterpreted bytes of a string, byte slice or the
//		   module and message of a *kernel.Error
//		%q like %s but surrounded by double quotes
//
// Integers:
//		%o base 8
//		%d base 10
//		%x base 16, lower-case
//
// Characters:
//		%c the single byte described by a byte, rune or integer value
//
// Booleans:
//		%t "true" or "false"
//
// An optional decimal width may precede an integer or string verb. Short
// strings and base-10 values are left-padded with spaces; base-8 and base-16
// values are left-padded with zeroes.
//
// Pointer verbs are intentionally unsupported: formatting a pointer drags in
// reflect, whose itable setup calls into the allocator, and Printf must work
// before the allocator exists.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes the formatted output to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		ch       byte
		padLen   int
		argIndex int
	)

	for i := 0; i < len(format); i++ {
		ch = format[i]
		if ch != '%' {
			writeByte(w, ch)
			continue
		}

		// scan the optional width followed by the verb
		padLen = 0
	scanVerb:
		for i++; i < len(format); i++ {
			ch = format[i]
			switch {
			case ch == '%':
				writeByte(w, '%')
				break scanVerb
			case ch >= '0' && ch <= '9':
				padLen = padLen*10 + int(ch-'0')
			default:
				if argIndex >= len(args) {
					doWrite(w, errMissingArg)
					break scanVerb
				}

				formatArg(w, ch, args[argIndex], padLen)
				argIndex++
				break scanVerb
			}
		}
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

// formatArg dispatches a single argument to the formatter selected by verb.
func formatArg(w io.Writer, verb byte, arg interface{}, padLen int) {
	switch verb {
	case 'o':
		fmtInt(w, arg, 8, padLen)
	case 'd':
		fmtInt(w, arg, 10, padLen)
	case 'x':
		fmtInt(w, arg, 16, padLen)
	case 's':
		fmtString(w, arg, padLen)
	case 'q':
		writeByte(w, '"')
		fmtString(w, arg, 0)
		writeByte(w, '"')
	case 'c':
		fmtChar(w, arg)
	case 't':
		fmtBool(w, arg)
	default:
		doWrite(w, errNoVerb)
	}
}

// fmtBool writes "true" or "false".
func fmtBool(w io.Writer, v interface{}) {
	bVal, isBool := v.(bool)
	if !isBool {
		doWrite(w, errWrongArgType)
		return
	}

	if bVal {
		doWrite(w, trueValue)
	} else {
		doWrite(w, falseValue)
	}
}

// fmtChar writes the single byte described by v. Values above 0xff cannot be
// represented by the text console code page and print as '?'.
func fmtChar(w io.Writer, v interface{}) {
	var code int64 = -1

	switch cVal := v.(type) {
	case byte:
		code = int64(cVal)
	case rune:
		code = int64(cVal)
	case int:
		code = int64(cVal)
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if code < 0 || code > 0xff {
		writeByte(w, '?')
		return
	}

	writeByte(w, byte(code))
}

// fmtString writes a string-like value left-padded with spaces to padLen.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch sVal := v.(type) {
	case string:
		fmtRepeat(w, ' ', padLen-len(sVal))
		writeString(w, sVal)
	case []byte:
		fmtRepeat(w, ' ', padLen-len(sVal))
		doWrite(w, sVal)
	case *kernel.Error:
		writeString(w, sVal.Module)
		doWrite(w, errSeparator)
		writeString(w, sVal.Message)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	for i := 0; i < count; i++ {
		writeByte(w, ch)
	}
}

// fmtInt writes a formatted version of v in the requested base, applying the
// padding specified by padLen. All built-in signed and unsigned integer
// types are supported.
func fmtInt(w io.Writer, v interface{}, base, padLen int) {
	var (
		uval     uint64
		negative bool
		divider  = uint64(base)
		padCh    byte = ' '
		pos      int
	)

	if base == 8 || base == 16 {
		padCh = '0'
	}

	// leave room for a sign even when the caller asks for maximum padding
	if padLen > maxBufSize-2 {
		padLen = maxBufSize - 2
	}

	switch num := v.(type) {
	case uint8:
		uval = uint64(num)
	case uint16:
		uval = uint64(num)
	case uint32:
		uval = uint64(num)
	case uint64:
		uval = num
	case uint:
		uval = uint64(num)
	case uintptr:
		uval = uint64(num)
	case int8:
		negative = num < 0
		if negative {
			uval = uint64(-int64(num))
		} else {
			uval = uint64(num)
		}
	case int16:
		negative = num < 0
		if negative {
			uval = uint64(-int64(num))
		} else {
			uval = uint64(num)
		}
	case int32:
		negative = num < 0
		if negative {
			uval = uint64(-int64(num))
		} else {
			uval = uint64(num)
		}
	case int64:
		negative = num < 0
		if negative {
			uval = uint64(-num)
		} else {
			uval = uint64(num)
		}
	case int:
		negative = num < 0
		if negative {
			uval = uint64(-int64(num))
		} else {
			uval = uint64(num)
		}
	default:
		doWrite(w, errWrongArgType)
		return
	}

	// emit digits least significant first
	for {
		digit := byte(uval % divider)
		if digit < 10 {
			numFmtBuf[pos] = digit + '0'
		} else {
			numFmtBuf[pos] = digit - 10 + 'a'
		}
		pos++

		uval /= divider
		if uval == 0 {
			break
		}
	}

	if negative && padCh == '0' {
		// zero padding sits between the sign and the digits
		for ; pos < padLen-1; pos++ {
			numFmtBuf[pos] = padCh
		}
		numFmtBuf[pos] = '-'
		pos++
	} else {
		if negative {
			numFmtBuf[pos] = '-'
			pos++
		}
		for ; pos < padLen; pos++ {
			numFmtBuf[pos] = padCh
		}
	}

	// reverse in place
	for left, right := 0, pos-1; left < right; left, right = left+1, right-1 {
		numFmtBuf[left], numFmtBuf[right] = numFmtBuf[right], numFmtBuf[left]
	}

	doWrite(w, numFmtBuf[:pos])
}

// writeString routes a string to doWrite one byte at a time; converting the
// string to a byte slice would allocate.
func writeString(w io.Writer, s string) {
	for i := 0; i < len(s); i++ {
		singleByte[0] = s[i]
		doWrite(w, singleByte)
	}
}

// writeByte routes a single byte to doWrite via the shared one-byte buffer.
func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	doWrite(w, singleByte)
}

// doWrite hides p from escape analysis before writing it. The compiler
// cannot see through the indirect outputSink.Write call and would flag p as
// escaping, forcing Fprintf callers through runtime.convT2E and into the
// allocator; that path must stay allocation-free so it works before the
// allocator is bootstrapped.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. Copied from
// runtime/stubs.go.
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
