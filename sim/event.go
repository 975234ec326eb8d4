package sim

// Priority breaks ties between events that share the same time. A lower
// value runs sooner.
const (
	// PriorityNormal is the priority of ordinary events.
	PriorityNormal = 0

	// PriorityDeferred marks an event that must run after all same-time
	// normal events. Wake-ups for processes that wait on an
	// already-terminated process, and for satisfied conditions, use this
	// priority so that the logic already underway at the current time
	// finishes first.
	PriorityDeferred = 1 << 20
)

// An Event is something going to happen in the future.
type Event interface {
	// Time returns the virtual time at which the event fires.
	Time() VTime

	// Priority breaks ties between same-time events. Lower runs sooner.
	Priority() int

	// Handler returns the handler that handles the event.
	Handler() Handler
}

// A Handler defines a domain for events. An event is handled by exactly one
// Handler, the one that scheduled it.
type Handler interface {
	Handle(e Event) error
}

// EventBase provides the basic fields and getters for other events.
type EventBase struct {
	time     VTime
	priority int
	handler  Handler
}

// MakeEventBase creates an EventBase.
func MakeEventBase(t VTime, priority int, handler Handler) EventBase {
	return EventBase{
		time:     t,
		priority: priority,
		handler:  handler,
	}
}

// Time returns the virtual time at which the event fires.
func (e EventBase) Time() VTime {
	return e.time
}

// Priority returns the tie-break priority of the event.
func (e EventBase) Priority() int {
	return e.priority
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// CallbackEvent runs a plain function when it fires. It is handled by the
// Scheduler that it is scheduled on.
type CallbackEvent struct {
	EventBase

	Callback func(now VTime)
}
