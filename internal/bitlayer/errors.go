package bitlayer

import "fmt"

// Kind classifies the engine's non-I/O failure modes, mirroring the table
// in SPEC_FULL.md §7.
type Kind int

const (
	// KindUnexpectedSdaEdge means an SDA transition occurred while SCL was
	// high in a position where no framing condition (START, REPEATED START,
	// STOP) is legal — e.g. inside the register-pointer byte that must
	// follow an address-matched write.
	KindUnexpectedSdaEdge Kind = iota
	// KindBusClosed means the event bus was closed (EventBus.Close) while
	// the engine was still receiving from it, which this package treats as
	// fatal. Observers exiting do not close the bus.
	KindBusClosed
)

// Error is the typed error the engine surfaces for protocol-level problems.
// GPIO I/O failures are not wrapped in Error; they propagate as-is from the
// Pin implementation.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func newProtocolError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// ErrBusClosed is returned by Engine.Run when the event bus is closed while
// a receive is pending.
var ErrBusClosed = &Error{Kind: KindBusClosed, msg: "bitlayer: event bus closed"}
