package kfmt

import (
	"bytes"
	"testing"

	"helios/kernel"
)

func TestFprintf(t *testing.T) {
	// mute vet warnings about malformed formatting strings
	fprintfn := Fprintf

	specs := []struct {
		fn        func(*bytes.Buffer)
		expOutput string
	}{
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "no args") },
			"no args",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "100%% done") },
			"100% done",
		},
		// bool values
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%t %t", true, false) },
			"true false",
		},
		// strings, byte slices and kernel errors
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%s arg", "STRING") },
			"STRING arg",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%s arg", []byte("BYTE SLICE")) },
			"BYTE SLICE arg",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "'%4s' padded", "ABC") },
			"' ABC' padded",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "'%4s' longer than padding", "ABCDE") },
			"'ABCDE' longer than padding",
		},
		{
			func(buf *bytes.Buffer) {
				fprintfn(buf, "got: %s", &kernel.Error{Module: "vmm", Message: "out of memory"})
			},
			"got: vmm: out of memory",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "quoted %q arg", "value") },
			"quoted \"value\" arg",
		},
		// characters
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%c%c%c", byte('a'), rune('b'), int(67)) },
			"abC",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%c", rune(0x3bb)) },
			"?",
		},
		// uints
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "uint arg: %d", uint8(10)) },
			"uint arg: 10",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "uint arg: %o", uint16(0777)) },
			"uint arg: 777",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "uint arg: 0x%x", uint32(0xbadf00d)) },
			"uint arg: 0xbadf00d",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "padded: '%10d'", uint64(123)) },
			"padded: '       123'",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "padded: '%4o'", uint(0777)) },
			"padded: '0777'",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "padded: '0x%10x'", uintptr(0xbadf00d)) },
			"padded: '0x000badf00d'",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "longer than padding: '0x%5x'", uint64(0xbadf00d)) },
			"longer than padding: '0xbadf00d'",
		},
		// ints
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "int arg: %d", int8(-10)) },
			"int arg: -10",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "int arg: %d", int16(-1345)) },
			"int arg: -1345",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "int arg: %d", int32(0)) },
			"int arg: 0",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "padded: '%6d'", int(-42)) },
			"padded: '   -42'",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "padded: '%6x'", int64(-255)) },
			"padded: '-000ff'",
		},
		// formatting errors
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "missing: %d") },
			"missing: (MISSING)",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "extra", 1) },
			"extra%!(EXTRA)",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%v", 1) },
			"%!(NOVERB)",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%d", "not a number") },
			"%!(WRONGTYPE)",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%t", 42) },
			"%!(WRONGTYPE)",
		},
		{
			func(buf *bytes.Buffer) { fprintfn(buf, "%c", "not a char") },
			"%!(WRONGTYPE)",
		},
	}

	var buf bytes.Buffer
	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn(&buf)

		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected output %q; got %q", specIndex, spec.expOutput, got)
		}
	}
}

func TestPrintfBeforeAndAfterSinkRegistration(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer.rIndex = 0
		earlyPrintBuffer.wIndex = 0
	}()

	outputSink = nil
	earlyPrintBuffer.rIndex = 0
	earlyPrintBuffer.wIndex = 0

	// output generated before a sink is registered lands in the early
	// buffer and gets replayed into the first registered sink.
	Printf("early output: %d\n", 42)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if exp, got := "early output: 42\n", buf.String(); got != exp {
		t.Fatalf("expected early output %q to be replayed into the sink; got %q", exp, got)
	}

	Printf("late output")

	if exp, got := "early output: 42\nlate output", buf.String(); got != exp {
		t.Fatalf("expected sink contents %q; got %q", exp, got)
	}
}
