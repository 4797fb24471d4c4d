package session

import "sync"

// Event is a user input event that counts as activity
type Event string

const (
	PointerMove Event = "pointermove"
	KeyPress    Event = "keypress"
	Click       Event = "click"
	Scroll      Event = "scroll"
	TouchStart  Event = "touchstart"
)

// ActivityEvents are the events that keep a session alive
var ActivityEvents = []Event{PointerMove, KeyPress, Click, Scroll, TouchStart}

// Bus dispatches input events to keyed handlers. Registering a key that already
// exists replaces the previous handler, so repeated setup never stacks listeners.
type Bus struct {
	mu       sync.Mutex
	handlers map[Event]map[string]func()
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[Event]map[string]func())}
}

// On registers fn for event under key
func (b *Bus) On(event Event, key string, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(event, key)
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[string]func())
	}
	b.handlers[event][key] = fn
}

// Off removes the handler registered under key
func (b *Bus) Off(event Event, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(event, key)
}

// Emit calls every handler registered for event
func (b *Bus) Emit(event Event) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.handlers[event]))
	for _, fn := range b.handlers[event] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listeners reports how many handlers are registered for event
func (b *Bus) Listeners(event Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[event])
}

func (b *Bus) removeLocked(event Event, key string) {
	if hs, ok := b.handlers[event]; ok {
		delete(hs, key)
	}
}
