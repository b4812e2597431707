package bitlayer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// State is the framing state machine's current position, per SPEC_FULL.md
// §3. Ack and WriteBit, the transient sub-states where the engine drives
// SDA, are realized as plain helper methods (ack, immediateAck, writeByte)
// rather than distinct State values — there is nothing else useful to
// observe while they run.
type State int

const (
	Idle State = iota
	AwaitAddress
	AddressMatchedWrite
	WritingRegisters
	AddressMatchedRead
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitAddress:
		return "AwaitAddress"
	case AddressMatchedWrite:
		return "AddressMatchedWrite"
	case WritingRegisters:
		return "WritingRegisters"
	case AddressMatchedRead:
		return "AddressMatchedRead"
	default:
		return "Unknown"
	}
}

// unsetRegister is CurrentRegister's sentinel for "no register pointer has
// been set since the last STOP" — the Go stand-in for the recommended
// Option<usize>::None from SPEC_FULL.md §9.
const unsetRegister = -1

// frameCondition is what readByte found instead of a clean 8th data bit.
type frameCondition int

const (
	frameNone frameCondition = iota
	// frameStart is an SDA falling edge observed while SCL is high. Whether
	// it means START or REPEATED START depends entirely on which State the
	// engine was in when it arrived; the condition itself is identical.
	frameStart
	// frameStop is an SDA rising edge observed while SCL is high.
	frameStop
)

// Config configures an Engine. All fields are required except Logger and
// OnProtocolError.
type Config struct {
	RegisterProtocol RegisterProtocol
	SDA, SCL         Pin

	// Logger receives structured trace/debug/info logs. Defaults to a
	// discarding entry if nil.
	Logger *logrus.Entry

	// OnProtocolError is invoked, non-fatally, whenever the engine detects
	// an UnexpectedSdaEdge (§7). If nil, the event is only logged.
	OnProtocolError func(*Error)
}

// Engine is the bit-layer protocol engine: it owns the SDA/SCL pins, the
// event bus, and the framing state machine, and delegates byte-level
// register semantics to a RegisterProtocol.
type Engine struct {
	sda, scl        Pin
	proto           RegisterProtocol
	log             *logrus.Entry
	onProtocolError func(*Error)

	bus             *EventBus
	currentRegister int
}

// New builds an Engine from cfg. It does not touch the GPIO pins or spawn
// any goroutines until Run is called.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.New())
		log.Logger.SetOutput(discardWriter{})
	}
	return &Engine{
		sda:             cfg.SDA,
		scl:             cfg.SCL,
		proto:           cfg.RegisterProtocol,
		log:             log,
		onProtocolError: cfg.OnProtocolError,
		currentRegister: unsetRegister,
	}
}

// discardWriter is a zero-dependency io.Writer sink, used instead of
// io.Discard so callers building against very old Go toolchains still
// compile; logrus only needs io.Writer.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Run spawns the two Pin Observers and runs the framing state machine until
// a fatal error occurs (GPIO failure, closed bus) or ctx is canceled. A
// cancellation is only honored between transactions, at Idle, so that an
// in-flight transaction is never torn down mid-byte.
func (e *Engine) Run(ctx context.Context) error {
	e.bus = NewEventBus()
	sdaObserver := NewPinObserver(SDA, e.sda, e.bus, e.log)
	sclObserver := NewPinObserver(SCL, e.scl, e.bus, e.log)

	observerErrs := make(chan error, 2)
	go func() { observerErrs <- sdaObserver.Run() }()
	go func() { observerErrs <- sclObserver.Run() }()

	loopErrs := make(chan error, 1)
	go func() { loopErrs <- e.loop(ctx) }()

	select {
	case err := <-observerErrs:
		return err
	case err := <-loopErrs:
		return err
	}
}

func (e *Engine) loop(ctx context.Context) error {
	state := Idle
	e.currentRegister = unsetRegister

	for {
		if state == Idle && ctx.Err() != nil {
			return ctx.Err()
		}

		switch state {
		case Idle:
			if err := e.waitForStart(ctx); err != nil {
				return err
			}
			state = AwaitAddress

		case AwaitAddress:
			b, cond, err := e.readByte()
			if err != nil {
				return err
			}
			if cond == frameStop {
				e.currentRegister = unsetRegister
				state = Idle
				continue
			}
			if cond == frameStart {
				// Abort the partial byte and restart address reception.
				continue
			}

			addr := b >> 1
			rw := b & 1
			if !e.proto.CheckAddress(addr) {
				e.log.WithField("address", addr).Debug("address mismatch")
				state = Idle
				continue
			}
			if rw == 0 {
				if err := e.ack(); err != nil {
					return err
				}
				state = AddressMatchedWrite
			} else {
				if e.currentRegister == unsetRegister {
					// No preceding write set a pointer; §9 default to 0
					// rather than refuse the transaction outright.
					e.currentRegister = 0
				}
				if err := e.immediateAck(); err != nil {
					return err
				}
				state = AddressMatchedRead
			}

		case AddressMatchedWrite:
			b, cond, err := e.readByte()
			if err != nil {
				return err
			}
			if cond == frameStop {
				e.currentRegister = unsetRegister
				state = Idle
				continue
			}
			if cond == frameStart {
				e.reportProtocolError(newProtocolError(KindUnexpectedSdaEdge,
					"unexpected SDA edge while awaiting the register pointer byte"))
				state = Idle
				continue
			}
			e.currentRegister = int(b)
			if err := e.ack(); err != nil {
				return err
			}
			state = WritingRegisters

		case WritingRegisters:
			b, cond, err := e.readByte()
			if err != nil {
				return err
			}
			switch cond {
			case frameStop:
				e.currentRegister = unsetRegister
				state = Idle
			case frameStart:
				nb, cond2, err := e.readByte()
				if err != nil {
					return err
				}
				if cond2 != frameNone {
					state = Idle
					continue
				}
				addr := nb >> 1
				rw := nb & 1
				if e.proto.CheckAddress(addr) && rw == 1 {
					if err := e.immediateAck(); err != nil {
						return err
					}
					state = AddressMatchedRead
				} else {
					state = Idle
				}
			default:
				e.proto.SetRegister(e.currentRegister, b)
				if err := e.ack(); err != nil {
					return err
				}
				e.currentRegister++
			}

		case AddressMatchedRead:
			val := e.proto.GetRegister(e.currentRegister)
			if err := e.writeByte(val); err != nil {
				return err
			}
			ackBit, err := e.readAckNack()
			if err != nil {
				return err
			}
			if ackBit == 0 {
				e.currentRegister++
			} else {
				state = Idle
			}
		}
	}
}

func (e *Engine) reportProtocolError(err *Error) {
	e.log.WithField("kind", err.Kind).Error(err.Error())
	if e.onProtocolError != nil {
		e.onProtocolError(err)
	}
}

// waitForStart blocks until an SDA falling edge is observed while SCL reads
// high — invariant 3 of SPEC_FULL.md §3 — or until ctx is canceled.
func (e *Engine) waitForStart(ctx context.Context) error {
	for {
		var ev PinEvent
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok = <-e.bus.events:
		}
		if !ok {
			return ErrBusClosed
		}
		if ev.Pin == SDA && ev.Level == 0 && e.scl.Read() == 1 {
			return nil
		}
	}
}

// readByte assembles one byte MSB-first from the SDA level sampled at each
// SCL rising edge, or reports the framing condition it found instead.
func (e *Engine) readByte() (byte, frameCondition, error) {
	var acc byte
	bits := 0
	for bits < 8 {
		ev, ok := e.bus.recv()
		if !ok {
			return 0, frameNone, ErrBusClosed
		}
		switch ev.Pin {
		case SCL:
			if ev.Level == 1 {
				acc = (acc << 1) | byte(e.sda.Read())
				bits++
			}
		case SDA:
			if e.scl.Read() == 1 {
				if ev.Level == 0 {
					return 0, frameStart, nil
				}
				return 0, frameStop, nil
			}
			// SDA settling while SCL is low: not meaningful here.
		}
	}
	return acc, frameNone, nil
}

// waitSclLow drains events until an SCL-low transition arrives, ignoring
// any SDA events in between — including ones caused by the engine's own
// drive, which the SDA observer dutifully reports back to it.
func (e *Engine) waitSclLow() error {
	for {
		ev, ok := e.bus.recv()
		if !ok {
			return ErrBusClosed
		}
		if ev.Pin == SCL && ev.Level == 0 {
			return nil
		}
	}
}

func (e *Engine) waitSclHigh() error {
	for {
		ev, ok := e.bus.recv()
		if !ok {
			return ErrBusClosed
		}
		if ev.Pin == SCL && ev.Level == 1 {
			return nil
		}
	}
}

// writeByte drives b onto SDA, MSB first, changing the line only during an
// SCL-low phase (invariant 2). It releases SDA during the low phase
// following the 8th bit, before the master's 9th (ACK) rising edge — the
// later of the two original revisions' behaviors; see DESIGN.md.
func (e *Engine) writeByte(b byte) error {
	for i := 7; i >= 0; i-- {
		if err := e.waitSclLow(); err != nil {
			return err
		}
		if (b>>uint(i))&1 == 0 {
			if err := e.sda.SetOutputLow(); err != nil {
				return err
			}
		} else if err := e.sda.Release(); err != nil {
			return err
		}
	}
	if err := e.waitSclLow(); err != nil {
		return err
	}
	return e.sda.Release()
}

// readAckNack samples the master's ACK/NACK bit. writeByte has already
// released SDA, so this only waits for the 9th rising edge and samples.
func (e *Engine) readAckNack() (int, error) {
	if err := e.waitSclHigh(); err != nil {
		return 0, err
	}
	return e.sda.Read(), nil
}

// ack drives the slave's acknowledgement: low starting on the next SCL-low
// phase, held across the following high phase, released on the low phase
// after that.
func (e *Engine) ack() error {
	if err := e.waitSclLow(); err != nil {
		return err
	}
	if err := e.sda.SetOutputLow(); err != nil {
		return err
	}
	if err := e.waitSclLow(); err != nil {
		return err
	}
	return e.sda.Release()
}

// immediateAck acknowledges a read-addressed byte (after a START or a
// REPEATED-START). It is called right after the 8th SCL rising edge, so it
// drives SDA low on the next SCL-low phase and holds it across the master's
// 9th (ACK) high phase. It does not release SDA: writeByte's first bit, set
// on the following SCL-low phase, takes the line over immediately.
func (e *Engine) immediateAck() error {
	if err := e.waitSclLow(); err != nil {
		return err
	}
	if err := e.sda.SetOutputLow(); err != nil {
		return err
	}
	return e.waitSclHigh()
}

var _ fmt.Stringer = State(0)
