package serial

import (
	"bytes"
	"testing"

	"helios/kernel/cpu"
)

// portLog records the port writes issued by the driver together with a
// scripted set of read return values.
type portLog struct {
	writes    []portWrite
	readValue map[uint16][]uint8
}

type portWrite struct {
	port uint16
	val  uint8
}

func (l *portLog) write(port uint16, val uint8) {
	l.writes = append(l.writes, portWrite{port, val})
}

func (l *portLog) read(port uint16) uint8 {
	vals := l.readValue[port]
	if len(vals) == 0 {
		return 0
	}

	v := vals[0]
	if len(vals) > 1 {
		l.readValue[port] = vals[1:]
	}
	return v
}

func (l *portLog) install() {
	portWriteByteFn = l.write
	portReadByteFn = l.read
}

func restorePortFns() {
	portReadByteFn = cpu.PortReadByte
	portWriteByteFn = cpu.PortWriteByte
}

func TestUARTInitSequence(t *testing.T) {
	defer restorePortFns()

	log := &portLog{readValue: make(map[uint16][]uint8)}
	log.install()

	var buf bytes.Buffer
	u := NewUART(com1Base)
	if err := u.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	expWrites := []portWrite{
		{com1Base + regIntEnable, 0x00},
		{com1Base + regLineCtrl, 0x80},
		{com1Base + regData, 0x03},
		{com1Base + regIntEnable, 0x00},
		{com1Base + regLineCtrl, 0x03},
		{com1Base + regFifoCtrl, 0xc7},
		{com1Base + regModemCtrl, 0x0b},
	}

	if len(log.writes) != len(expWrites) {
		t.Fatalf("expected %d port writes; got %d", len(expWrites), len(log.writes))
	}

	for specIndex, exp := range expWrites {
		if log.writes[specIndex] != exp {
			t.Errorf("[spec %d] expected write (port 0x%x, val 0x%x); got (port 0x%x, val 0x%x)",
				specIndex, exp.port, exp.val, log.writes[specIndex].port, log.writes[specIndex].val)
		}
	}
}

func TestUARTWritePollsTransmitReady(t *testing.T) {
	defer restorePortFns()

	log := &portLog{readValue: map[uint16][]uint8{
		// The first byte waits out two busy polls; the rest transmit
		// immediately.
		com1Base + regLineSts: {0x00, 0x00, lineStsTxReady},
	}}
	log.install()

	u := NewUART(com1Base)
	count, err := u.Write([]byte("ok"))
	if err != nil {
		t.Fatal(err)
	}

	if count != 2 {
		t.Fatalf("expected Write to report 2 bytes; got %d", count)
	}

	exp := []portWrite{
		{com1Base + regData, 'o'},
		{com1Base + regData, 'k'},
	}

	if len(log.writes) != len(exp) {
		t.Fatalf("expected %d data writes; got %d", len(exp), len(log.writes))
	}

	for specIndex, expWrite := range exp {
		if log.writes[specIndex] != expWrite {
			t.Errorf("[spec %d] expected write (port 0x%x, val %q); got (port 0x%x, val %q)",
				specIndex, expWrite.port, expWrite.val, log.writes[specIndex].port, log.writes[specIndex].val)
		}
	}
}

func TestUARTProbe(t *testing.T) {
	defer restorePortFns()

	t.Run("present", func(t *testing.T) {
		log := &portLog{readValue: map[uint16][]uint8{
			com1Base + regData: {0xae},
		}}
		log.install()

		if drv := probeForUART(); drv == nil {
			t.Fatal("expected probeForUART to detect the loopback echo and return a driver")
		}
	})

	t.Run("absent", func(t *testing.T) {
		log := &portLog{readValue: map[uint16][]uint8{
			com1Base + regData: {0xff},
		}}
		log.install()

		if drv := probeForUART(); drv != nil {
			t.Fatal("expected probeForUART to return nil when the loopback echo fails")
		}
	})
}

func TestUARTDriverInterface(t *testing.T) {
	u := NewUART(com1Base)

	if u.DriverName() == "" {
		t.Fatal("DriverName() returned an empty string")
	}

	if major, minor, patch := u.DriverVersion(); major+minor+patch == 0 {
		t.Fatal("DriverVersion() returned an invalid version number")
	}
}
