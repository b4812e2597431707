package bitlayer

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// PinObserver continuously polls one GPIO line and emits an event on the
// bus whenever the observed level changes. No debouncing is performed: the
// pull-up network and the master are expected to produce clean edges.
//
// Busy-polling two lines from dedicated OS threads is deliberate, not an
// oversight — see SPEC_FULL.md §4.1: several GPIO back-ends on the target
// boards don't expose reliable edge interrupts at I²C speeds, and polling
// gives lower, more predictable jitter at the cost of a spun CPU core.
type PinObserver struct {
	pin PinTag
	gp  Pin
	bus *EventBus
	log *logrus.Entry
}

// NewPinObserver builds an observer for one line. gp must already be safe
// to call concurrently with the engine's direct reads of the same line.
func NewPinObserver(pin PinTag, gp Pin, bus *EventBus, log *logrus.Entry) *PinObserver {
	return &PinObserver{pin: pin, gp: gp, bus: bus, log: log.WithField("pin", pin)}
}

// Run configures the pin as input and polls it until configuring the pin
// fails or the bus is closed out from under it (Pin.Read has no error
// path). It never returns under normal operation.
func (o *PinObserver) Run() (err error) {
	defer func() {
		// A send on a closed bus panics; that is this package's "event bus
		// closed" fatal condition (§7).
		if r := recover(); r != nil {
			err = fmt.Errorf("bitlayer: %s observer: %v", o.pin, r)
		}
	}()

	if err := o.gp.SetInput(); err != nil {
		return fmt.Errorf("bitlayer: %s observer: configuring input: %w", o.pin, err)
	}

	last := o.gp.Read()
	o.log.WithField("level", last).Trace("observer started")
	for {
		cur := o.gp.Read()
		if cur != last {
			o.log.WithField("level", cur).Trace("edge detected")
			o.bus.send(PinEvent{Pin: o.pin, Level: cur})
			last = cur
		}
	}
}
