package irq

import "helios/kernel/cpu"

const (
	pic1CmdPort  = uint16(0x20)
	pic1DataPort = uint16(0x21)
	pic2CmdPort  = uint16(0xa0)
	pic2DataPort = uint16(0xa1)

	// picWaitPort is an unused port; a write to it gives the PICs the few
	// microseconds they need to settle between initialization bytes on
	// older hardware.
	picWaitPort = uint16(0x80)

	picCmdInit           = uint8(0x11)
	picCmdEndOfInterrupt = uint8(0x20)
	picCascadeSlaveWire  = uint8(0x04)
	picCascadeSlaveID    = uint8(0x02)
	picMode8086          = uint8(0x01)

	// picIRQCount is the number of interrupt lines per PIC chip.
	picIRQCount = 8
)

var (
	portReadByteFn  = cpu.PortReadByte
	portWriteByteFn = cpu.PortWriteByte
)

// picInit remaps the master and slave 8259 PICs so that their 16 interrupt
// lines get delivered on the trap vectors starting at irqBaseVector instead
// of colliding with the CPU exception vectors. The interrupt masks that were
// active before the remap are preserved.
func picInit() {
	masterMask := portReadByteFn(pic1DataPort)
	slaveMask := portReadByteFn(pic2DataPort)

	picWrite(pic1CmdPort, picCmdInit)
	picWrite(pic2CmdPort, picCmdInit)
	picWrite(pic1DataPort, irqBaseVector)
	picWrite(pic2DataPort, irqBaseVector+picIRQCount)
	picWrite(pic1DataPort, picCascadeSlaveWire)
	picWrite(pic2DataPort, picCascadeSlaveID)
	picWrite(pic1DataPort, picMode8086)
	picWrite(pic2DataPort, picMode8086)

	portWriteByteFn(pic1DataPort, masterMask)
	portWriteByteFn(pic2DataPort, slaveMask)
}

// picWrite emits val to the given port followed by a write to an unused port
// which buys the PICs time to process the byte.
func picWrite(port uint16, val uint8) {
	portWriteByteFn(port, val)
	portWriteByteFn(picWaitPort, 0)
}

// picAcknowledge signals end-of-interrupt to the PICs involved in delivering
// the given trap vector. Vectors routed through the slave PIC require an
// acknowledgment to both chips.
func picAcknowledge(vector uint64) {
	switch {
	case vector >= irqBaseVector && vector < irqBaseVector+picIRQCount:
		portWriteByteFn(pic1CmdPort, picCmdEndOfInterrupt)
	case vector >= irqBaseVector+picIRQCount && vector < irqBaseVector+2*picIRQCount:
		portWriteByteFn(pic2CmdPort, picCmdEndOfInterrupt)
		portWriteByteFn(pic1CmdPort, picCmdEndOfInterrupt)
	}
}
