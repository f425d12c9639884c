// Package event implements the process-wide publish/subscribe dispatcher that
// decouples gateways, strategy engines, and UI consumers. Producers enqueue
// events from any goroutine; a single dispatch goroutine delivers them in FIFO
// order to the handlers registered for each event type, then to the general
// handlers registered for every type.
package event

import "time"

// Type tags an event with its kind. Symbol-scoped variants are derived with
// Scoped so consumers can subscribe to updates for a single instrument.
type Type string

const (
	// TypeTimer is the synthetic periodic event injected by the engine timer.
	TypeTimer Type = "eTimer"

	TypeTick     Type = "eTick"
	TypeTrade    Type = "eTrade"
	TypeOrder    Type = "eOrder"
	TypePosition Type = "ePosition"
	TypeAccount  Type = "eAccount"
	TypeContract Type = "eContract"
	TypeLog      Type = "eLog"
	TypeError    Type = "eError"

	// TypeStrategy is published when a strategy instance's state changes.
	TypeStrategy Type = "eStrategy"
	// TypeStopOrder is published when a local stop order changes state.
	TypeStopOrder Type = "eStopOrder"
)

// Scoped derives a sub-type scoped to one key, typically a symbol or a
// qualified order ID. Gateways publish both the base type and the scoped type
// for every push, so consumers can choose granularity.
func (t Type) Scoped(key string) Type {
	return t + Type("."+key)
}

// Event is the immutable message envelope moved through the engine: a type tag
// plus an untyped payload. Events are discarded after delivery; the engine
// retains nothing.
type Event struct {
	// Type is the dispatch key.
	Type Type
	// Data is the payload; its concrete type is implied by Type.
	Data any
	// Time is when the event was created.
	Time time.Time
}

// New creates an event stamped with the current time.
func New(eventType Type, data any) Event {
	return Event{
		Type: eventType,
		Data: data,
		Time: time.Now(),
	}
}

// Handler consumes events. Implementations must be comparable (pointer
// receivers are the norm) because the engine deduplicates registrations and
// resolves unregistrations by identity.
type Handler interface {
	ProcessEvent(Event)
}

// HandlerFunc adapts a function to the Handler interface. The returned pointer
// is the registration identity: registering the same *HandlerFunc twice is a
// no-op, while two HandlerFuncs wrapping the same function are distinct.
type HandlerFunc struct {
	name string
	fn   func(Event)
}

// NewHandlerFunc wraps fn as a Handler. The name appears in dispatch-failure
// logs.
func NewHandlerFunc(name string, fn func(Event)) *HandlerFunc {
	return &HandlerFunc{
		name: name,
		fn:   fn,
	}
}

// Name returns the handler's diagnostic name.
func (h *HandlerFunc) Name() string {
	return h.name
}

// ProcessEvent implements Handler.
func (h *HandlerFunc) ProcessEvent(e Event) {
	h.fn(e)
}
