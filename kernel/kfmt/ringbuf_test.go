package kfmt

import (
	"io"
	"testing"
)

func TestRingBufferReadWrite(t *testing.T) {
	var rb ringBuffer

	if _, err := rb.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("expected reading an empty ring to return io.EOF; got %v", err)
	}

	payload := []byte("the quick brown fox")
	if n, err := rb.Write(payload); n != len(payload) || err != nil {
		t.Fatalf("expected write to return (%d, nil); got (%d, %v)", len(payload), n, err)
	}

	got := make([]byte, len(payload))
	n, err := rb.Read(got)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) || string(got[:n]) != string(payload) {
		t.Fatalf("expected to read back %q; got %q", payload, got[:n])
	}

	if _, err = rb.Read(got); err != io.EOF {
		t.Fatalf("expected a drained ring to return io.EOF; got %v", err)
	}
}

func TestRingBufferOverwritesOldestData(t *testing.T) {
	var rb ringBuffer

	// fill the ring completely and then write one extra byte; the
	// oldest byte must be dropped to make room.
	for i := 0; i < earlyBufferSize; i++ {
		rb.Write([]byte{byte('a' + (i % 16))})
	}
	rb.Write([]byte{'!'})

	var (
		total int
		last  byte
		buf   = make([]byte, 512)
	)
	for {
		n, err := rb.Read(buf)
		if err == io.EOF {
			break
		}
		total += n
		last = buf[n-1]
	}

	// one slot is sacrificed to distinguish a full ring from an empty one
	if exp := earlyBufferSize - 1; total != exp {
		t.Fatalf("expected to read %d bytes from an overflowed ring; got %d", exp, total)
	}

	if last != '!' {
		t.Fatalf("expected the newest byte to survive the overwrite; got %q", last)
	}
}

func TestRingBufferWrappedRead(t *testing.T) {
	var rb ringBuffer

	// force the write index to wrap so a read is split at the end of the
	// backing array.
	rb.wIndex = earlyBufferSize - 4
	rb.rIndex = earlyBufferSize - 4
	rb.Write([]byte("12345678"))

	var out []byte
	buf := make([]byte, 16)
	for {
		n, err := rb.Read(buf)
		if err == io.EOF {
			break
		}
		out = append(out, buf[:n]...)
	}

	if string(out) != "12345678" {
		t.Fatalf("expected wrapped read to return %q; got %q", "12345678", out)
	}
}
