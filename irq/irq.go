// Package irq defines the basic interfaces for working
// with a Z80 family interrupt. A component which generates
// interrupts implements Sender so the receiving CPU can poll the
// line without cross coupling component logic.
package irq

// Sender defines the interface for an interrupt source.
type Sender interface {
	// Raised indicates whether the interrupt line is currently held high.
	Raised() bool
}

// Vectorer is optionally implemented by a Sender that supplies the
// data bus byte used to form the mode 2 vector table address. Senders
// which don't implement it get the bus idle value (0xFF).
type Vectorer interface {
	// Vector returns the byte the device places on the data bus
	// during interrupt acknowledge.
	Vector() uint8
}
