package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// variables that point to an Error instance and are compared by pointer. Code
// that runs before the Go allocator is bootstrapped (and code reachable from
// interrupt context) must not allocate, so errors are never constructed on
// the fly.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
