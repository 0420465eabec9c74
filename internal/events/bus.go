package events

import (
	"sync"
)

// Handler processes an event. Returning an error reports it but does not stop dispatch.
type Handler func(Event) error

// Bus is a synchronous in-process event bus.
// Subscribers are invoked in registration order on the publisher's goroutine.
// For async processing, handlers should send to their own channel/goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	onErr    func(EventType, error)
}

// NewBus creates a bus. onErr receives handler errors; nil drops them.
func NewBus(onErr func(EventType, error)) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		onErr:    onErr,
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish dispatches an event to all registered handlers for its type.
// One failing handler does not block the rest.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(e); err != nil && b.onErr != nil {
			b.onErr(e.Type, err)
		}
	}
}
