package feed

import "sync"

// StatusHandler observes connection state transitions.
type StatusHandler func(State)

// MessageHandler observes decoded inbound feed messages.
type MessageHandler func(Message)

// Bus fans connection status changes and inbound messages out to any
// number of subscribers. Handlers are invoked synchronously on the
// publishing goroutine; a subscriber that needs to do slow work should
// hand off to its own goroutine.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	state    State
	statuses map[int]StatusHandler
	messages map[int]MessageHandler
}

// NewBus returns a bus whose initial state is disconnected.
func NewBus() *Bus {
	return &Bus{
		state:    StateDisconnected,
		statuses: make(map[int]StatusHandler),
		messages: make(map[int]MessageHandler),
	}
}

// State reports the most recently published connection state.
func (b *Bus) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SubscribeStatus registers fn for state transitions and immediately
// invokes it with the current state, so late subscribers need no
// separate catch-up query. The returned function removes the
// subscription; calling it more than once is harmless.
func (b *Bus) SubscribeStatus(fn StatusHandler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.statuses[id] = fn
	current := b.state
	b.mu.Unlock()

	fn(current)

	return func() {
		b.mu.Lock()
		delete(b.statuses, id)
		b.mu.Unlock()
	}
}

// SubscribeMessages registers fn for inbound feed messages. The
// returned function removes the subscription; calling it more than
// once is harmless.
func (b *Bus) SubscribeMessages(fn MessageHandler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.messages[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.messages, id)
		b.mu.Unlock()
	}
}

// PublishStatus records state and notifies status subscribers.
func (b *Bus) PublishStatus(state State) {
	b.mu.Lock()
	b.state = state
	handlers := make([]StatusHandler, 0, len(b.statuses))
	for _, fn := range b.statuses {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(state)
	}
}

// PublishMessage notifies message subscribers.
func (b *Bus) PublishMessage(msg Message) {
	b.mu.Lock()
	handlers := make([]MessageHandler, 0, len(b.messages))
	for _, fn := range b.messages {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
}
