package device

import (
	"io"

	"helios/kernel"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprint.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it.
type ProbeFn func() Driver

// DetectOrder specifies when a driver probe runs relative to the other
// registered probes.
type DetectOrder int8

const (
	// DetectOrderEarly is used by drivers that the rest of the boot
	// sequence depends on. Output devices use it so that boot messages
	// become visible as early as possible.
	DetectOrderEarly DetectOrder = -128

	// DetectOrderNormal is the default detection order.
	DetectOrderNormal DetectOrder = 0

	// DetectOrderLast is used by drivers that expect the rest of the
	// device tree to be in place before they are probed.
	DetectOrderLast DetectOrder = 127
)

// DriverInfo describes a driver known to the kernel and the point during
// hardware detection where its probe function gets invoked.
type DriverInfo struct {
	// Order specifies when the driver probe runs relative to the other
	// registered probes.
	Order DetectOrder

	// Probe checks for the presence of the hardware that the driver
	// handles and returns a Driver instance for it.
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that can be sorted by
// detection order.
type DriverInfoList []*DriverInfo

// Len returns the number of entries in the list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges the list entries at indices i and j.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less reports whether the driver at index i must be probed before the
// driver at index j.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

var registeredDrivers DriverInfoList

// RegisterDriver adds info to the list of drivers that the hal package
// probes during hardware detection. Drivers are expected to register
// themselves from an init block.
func RegisterDriver(info *DriverInfo) {
	registeredDrivers = append(registeredDrivers, info)
}

// DriverList returns the list of registered drivers.
func DriverList() DriverInfoList {
	return registeredDrivers
}
