package nmea

// HandlerID identifies a subscription on an Event.
type HandlerID uint64

type eventHandler[T any] struct {
	id HandlerID
	fn func(T) error
}

// Event is an ordered observer list. Handlers run sequentially in
// subscription order; the first handler error stops the emission and is
// returned to the caller unchanged. The zero value is ready to use.
type Event[T any] struct {
	handlers []eventHandler[T]
	lastID   HandlerID
	disabled bool
}

// NewEvent returns an empty, enabled event.
func NewEvent[T any]() *Event[T] {
	return &Event[T]{}
}

// Subscribe appends fn and returns its id. A nil fn is ignored and yields 0.
func (e *Event[T]) Subscribe(fn func(T) error) HandlerID {
	if fn == nil {
		return 0
	}
	e.lastID++
	e.handlers = append(e.handlers, eventHandler[T]{id: e.lastID, fn: fn})
	return e.lastID
}

// Unsubscribe removes the handler with the given id.
func (e *Event[T]) Unsubscribe(id HandlerID) bool {
	for i, h := range e.handlers {
		if h.id == id {
			// Full slice expression forces a copy so an Emit in progress keeps
			// iterating over the old list.
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every handler.
func (e *Event[T]) Clear() {
	e.handlers = nil
}

// SetEnabled turns emission on or off without dropping subscriptions.
func (e *Event[T]) SetEnabled(on bool) {
	e.disabled = !on
}

func (e *Event[T]) Enabled() bool {
	return !e.disabled
}

// Len returns the number of subscribed handlers.
func (e *Event[T]) Len() int {
	return len(e.handlers)
}

// Emit calls every handler with v.
func (e *Event[T]) Emit(v T) error {
	if e.disabled {
		return nil
	}
	handlers := e.handlers
	for _, h := range handlers {
		if err := h.fn(v); err != nil {
			return err
		}
	}
	return nil
}
