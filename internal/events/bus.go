package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers. A nil bus drops the event.
// Usage: bus.Publish(TrialSkippedEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}

	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case TrialStartedEvent:
		event.Publish(b.dispatcher, e)
	case TrialCompletedEvent:
		event.Publish(b.dispatcher, e)
	case TrialSkippedEvent:
		event.Publish(b.dispatcher, e)
	case TierCompletedEvent:
		event.Publish(b.dispatcher, e)
	case SearchFinishedEvent:
		event.Publish(b.dispatcher, e)
	case ProgressSampleEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e TrialCompletedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(TrialStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TrialCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TrialSkippedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TierCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SearchFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProgressSampleEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
