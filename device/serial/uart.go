// Package serial provides a driver for the 16550 UART. The kernel uses the
// serial port as a secondary diagnostics sink; fatal error reports are
// mirrored to it so they survive even when the console is unusable.
package serial

import (
	"io"

	"helios/device"
	"helios/kernel"
	"helios/kernel/cpu"
	"helios/kernel/kfmt"
)

// com1Base is the standard I/O port base for the first serial port.
const com1Base = uint16(0x3f8)

// Register offsets from the port base. With the DLAB bit set in the line
// control register, offsets 0 and 1 address the baud rate divisor instead of
// the data and interrupt enable registers.
const (
	regData      = 0
	regIntEnable = 1
	regFifoCtrl  = 2
	regLineCtrl  = 3
	regModemCtrl = 4
	regLineSts   = 5
)

// lineStsTxReady is set in the line status register when the transmit
// holding register can accept another byte.
const lineStsTxReady = 0x20

var (
	portReadByteFn  = cpu.PortReadByte
	portWriteByteFn = cpu.PortWriteByte
)

// UART drives a 16550-compatible serial port in polled mode. Writes spin on
// the transmit-ready line status bit so the driver needs no interrupt
// handling and can be used from fatal-error paths.
type UART struct {
	base uint16
}

// NewUART creates a serial port driver for the given port base.
func NewUART(base uint16) *UART {
	return &UART{base: base}
}

// Write implements io.Writer. It always reports len(p) bytes written; the
// hardware provides no error indication in polled mode.
func (u *UART) Write(p []byte) (int, error) {
	for _, b := range p {
		u.WriteByte(b)
	}

	return len(p), nil
}

// WriteByte implements io.ByteWriter, blocking until the transmit holding
// register drains.
func (u *UART) WriteByte(b byte) error {
	for portReadByteFn(u.base+regLineSts)&lineStsTxReady == 0 {
	}
	portWriteByteFn(u.base+regData, b)

	return nil
}

// DriverName returns the name of this driver.
func (u *UART) DriverName() string {
	return "uart16550"
}

// DriverVersion returns the version of this driver.
func (u *UART) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit programs the port to 38400 baud, 8 data bits, no parity, one
// stop bit with FIFOs enabled.
func (u *UART) DriverInit(w io.Writer) *kernel.Error {
	portWriteByteFn(u.base+regIntEnable, 0x00) // no interrupts; the port is polled
	portWriteByteFn(u.base+regLineCtrl, 0x80)  // DLAB on; next two writes set the divisor
	portWriteByteFn(u.base+regData, 0x03)      // divisor low byte (38400 baud)
	portWriteByteFn(u.base+regIntEnable, 0x00) // divisor high byte
	portWriteByteFn(u.base+regLineCtrl, 0x03)  // DLAB off; 8 bits, no parity, one stop bit
	portWriteByteFn(u.base+regFifoCtrl, 0xc7)  // enable and clear FIFOs, 14-byte threshold
	portWriteByteFn(u.base+regModemCtrl, 0x0b) // assert DTR/RTS, enable OUT2

	kfmt.Fprintf(w, "listening on port 0x%x\n", u.base)
	return nil
}

// probeForUART checks for the presence of a serial port at the COM1 base by
// echoing a byte through the UART's loopback mode.
func probeForUART() device.Driver {
	portWriteByteFn(com1Base+regModemCtrl, 0x1e) // loopback mode
	portWriteByteFn(com1Base+regData, 0xae)
	echo := portReadByteFn(com1Base + regData)
	portWriteByteFn(com1Base+regModemCtrl, 0x0b) // back to normal operation

	if echo != 0xae {
		return nil
	}

	return NewUART(com1Base)
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderEarly,
		Probe: probeForUART,
	})
}
