package bitlayer

// EventBus is a bounded single-producer(-per-pin)-single-consumer rendezvous
// channel: capacity zero, so every send blocks until the engine receives it.
// Two producer handles are cloned from the same bus, one per Pin Observer;
// per-pin order is preserved by Go channel semantics, but events from the
// two observers may interleave nondeterministically — the engine is written
// to never depend on a specific interleaving (see Engine.readByte).
type EventBus struct {
	events chan PinEvent
}

// NewEventBus returns a ready-to-use bus.
func NewEventBus() *EventBus {
	return &EventBus{events: make(chan PinEvent)}
}

// send blocks until the engine takes the event, or panics if the bus has
// been closed — that panic is recovered by the observer's Run loop and
// turned into a fatal error, per §7's "event bus closed" policy.
func (b *EventBus) send(e PinEvent) {
	b.events <- e
}

// recv blocks until an event is available, returning ok=false if the bus
// was closed.
func (b *EventBus) recv() (PinEvent, bool) {
	e, ok := <-b.events
	return e, ok
}

// Close shuts the bus down. Only the engine's owner should call this, after
// both observers have been told to stop; any pending send will panic.
func (b *EventBus) Close() {
	close(b.events)
}
