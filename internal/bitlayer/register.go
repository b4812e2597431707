package bitlayer

// RegisterProtocol is the capability set a caller supplies to give the
// engine byte-level register semantics. The engine never mutates the
// register file except through these three calls.
type RegisterProtocol interface {
	// CheckAddress reports whether this slave claims the given 7-bit
	// address. Pure, side-effect-free.
	CheckAddress(address uint8) bool

	// SetRegister stores b at index. Out-of-range indices are handled
	// however the implementation sees fit (ignore, extend, error-log); the
	// engine treats the call as non-fatal regardless.
	SetRegister(index int, b byte)

	// GetRegister returns the stored byte at index, or an
	// implementation-defined default (typically 0) if out of range.
	GetRegister(index int) byte
}
