package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for typed broadcast within the
// process. Publishing is non-blocking for the caller; each subscriber runs
// on the dispatcher's goroutines.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish delivers an event to all subscribers of its concrete type.
// kelindar/event's generic API needs the static type, hence the switch.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case SlotStateEvent:
		event.Publish(b.dispatcher, e)
	case SlotTimeEvent:
		event.Publish(b.dispatcher, e)
	case SlotErrorEvent:
		event.Publish(b.dispatcher, e)
	case TakeEvent:
		event.Publish(b.dispatcher, e)
	case TransitionEvent:
		event.Publish(b.dispatcher, e)
	case DeviceChangeEvent:
		event.Publish(b.dispatcher, e)
	case FrameRateWarningEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler for the event type named by its parameter.
// Returns an unsubscribe function.
//
// Usage: unsub := bus.Subscribe(func(e TakeEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SlotStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SlotTimeEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SlotErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TakeEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransitionEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceChangeEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameRateWarningEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
